package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/nova-bank/internal/domain"
)

// Currency is the ledger currency; every amount is in US dollars.
const Currency = "USD"

// TransactionRow is one ledger entry in the export table.
type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED

	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED
	BookingTS       time.Time  `bigquery:"booking_ts"`       // REQUIRED

	Amount   *big.Rat `bigquery:"amount"`   // REQUIRED NUMERIC
	Currency string   `bigquery:"currency"` // REQUIRED STRING

	Direction bigquery.NullString `bigquery:"direction"` // CREDIT or DEBIT

	RawDescription string              `bigquery:"raw_description"` // REQUIRED STRING
	CategoryName   bigquery.NullString `bigquery:"category_name"`   // NULLABLE

	ExportedTS time.Time `bigquery:"exported_ts"` // REQUIRED
}

// NewTransactionRow maps a ledger entry to its export row. The transaction
// date is taken in UTC.
func NewTransactionRow(tx domain.Transaction, exportedAt time.Time) *TransactionRow {
	booked := tx.Date.UTC()
	return &TransactionRow{
		TransactionID:   tx.ID,
		TransactionDate: civil.DateOf(booked),
		BookingTS:       booked,
		Amount:          tx.Amount.Rat(),
		Currency:        Currency,
		Direction:       bigquery.NullString{StringVal: string(tx.Type), Valid: tx.Type != ""},
		RawDescription:  tx.Description,
		CategoryName:    bigquery.NullString{StringVal: tx.Category, Valid: tx.Category != ""},
		ExportedTS:      exportedAt.UTC(),
	}
}
