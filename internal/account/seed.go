package account

import (
	"time"

	"github.com/dvloznov/nova-bank/internal/domain"
	"github.com/shopspring/decimal"
)

// SeedBalance is used when no balance has been persisted yet.
var SeedBalance = decimal.RequireFromString("12450.00")

// SeedTransactions returns the demo ledger shown on first run, newest first,
// dated relative to now.
func SeedTransactions(now time.Time) []domain.Transaction {
	return []domain.Transaction{
		{
			ID:          "1",
			Description: "Starbucks Coffee",
			Category:    "Food & Drink",
			Amount:      decimal.RequireFromString("-12.50"),
			Date:        now,
			Type:        domain.Debit,
		},
		{
			ID:          "2",
			Description: "Shell Gas Station",
			Category:    "Transport",
			Amount:      decimal.RequireFromString("-55.00"),
			Date:        now.Add(-2 * time.Hour),
			Type:        domain.Debit,
		},
		{
			ID:          "3",
			Description: "Monthly Salary Deposit",
			Category:    "Income",
			Amount:      decimal.RequireFromString("4500.00"),
			Date:        now.Add(-24 * time.Hour),
			Type:        domain.Credit,
		},
		{
			ID:          "4",
			Description: "Apple Online Store",
			Category:    "Shopping",
			Amount:      decimal.RequireFromString("-1299.00"),
			Date:        now.Add(-48 * time.Hour),
			Type:        domain.Debit,
		},
		{
			ID:          "5",
			Description: "Utility Bill - Power & Water",
			Category:    "Bills",
			Amount:      decimal.RequireFromString("-210.40"),
			Date:        now.Add(-72 * time.Hour),
			Type:        domain.Debit,
		},
	}
}
