package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType says which way money moved. It is redundant with the sign
// of Amount and must always agree with it.
type TransactionType string

const (
	// Credit is money in (positive amount).
	Credit TransactionType = "CREDIT"
	// Debit is money out (negative amount).
	Debit TransactionType = "DEBIT"
)

// CategoryTransfer is the category assigned to every outgoing transfer.
const CategoryTransfer = "Transfer"

// Transaction is one immutable ledger entry.
// Category is a free-text tag used by views for icon/colour lookup only.
type Transaction struct {
	ID          string          `json:"id"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"` // IN = positive, OUT = negative
	Type        TransactionType `json:"type"`
}

// Validate checks the sign/type invariant.
func (t Transaction) Validate() error {
	switch t.Type {
	case Credit:
		if !t.Amount.IsPositive() {
			return fmt.Errorf("transaction %q: CREDIT amount must be positive, got %s", t.ID, t.Amount)
		}
	case Debit:
		if !t.Amount.IsNegative() {
			return fmt.Errorf("transaction %q: DEBIT amount must be negative, got %s", t.ID, t.Amount)
		}
	default:
		return fmt.Errorf("transaction %q: unknown type %q", t.ID, t.Type)
	}
	return nil
}

// FilterTransactions returns the transactions whose description or category
// contains term, ignoring case. Order is preserved; an empty term matches all.
func FilterTransactions(txs []Transaction, term string) []Transaction {
	term = strings.ToLower(strings.TrimSpace(term))
	out := make([]Transaction, 0, len(txs))
	for _, tx := range txs {
		if term == "" ||
			strings.Contains(strings.ToLower(tx.Description), term) ||
			strings.Contains(strings.ToLower(tx.Category), term) {
			out = append(out, tx)
		}
	}
	return out
}
