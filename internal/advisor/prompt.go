package advisor

import (
	"fmt"
	"strings"

	"github.com/dvloznov/nova-bank/internal/domain"
	"github.com/shopspring/decimal"
)

// MaxSummaryTransactions caps how many recent transactions go into the prompt.
const MaxSummaryTransactions = 5

// AccountData is the account context the advisor answers against.
type AccountData struct {
	Balance            decimal.Decimal
	RecentTransactions []domain.Transaction
}

// BuildSystemInstruction renders the advisor persona with the customer's
// balance and up to MaxSummaryTransactions of their most recent transactions.
func BuildSystemInstruction(data AccountData) string {
	recent := data.RecentTransactions
	if len(recent) > MaxSummaryTransactions {
		recent = recent[:MaxSummaryTransactions]
	}

	summary := make([]string, 0, len(recent))
	for _, tx := range recent {
		summary = append(summary, fmt.Sprintf("%s: %s (%s)", tx.Description, tx.Amount.String(), tx.Category))
	}

	var b strings.Builder
	b.WriteString("You are Nova, an expert financial advisor for NovaBank customers.\n")
	b.WriteString("Current User Info:\n")
	fmt.Fprintf(&b, "- Balance: $%s\n", data.Balance.StringFixed(2))
	fmt.Fprintf(&b, "- Recent Transactions: %s\n\n", strings.Join(summary, ", "))
	b.WriteString("Goal: Provide helpful, professional, and concise financial advice.\n")
	b.WriteString("Help with budgeting, saving, and explaining trends based on their ACTUAL data above.\n")
	b.WriteString("Be encouraging but maintain a professional banking tone.\n")
	b.WriteString("Do NOT ask for account numbers, passwords, or PINs.\n")
	return b.String()
}
