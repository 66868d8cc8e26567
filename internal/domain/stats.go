package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PlaceholderSavingsRate is reported as AccountStats.SavingsRate.
// It is a fixed display value, not derived from account data.
const PlaceholderSavingsRate = 45.2

// AccountStats is derived from the ledger on every read and never persisted.
type AccountStats struct {
	TotalBalance    decimal.Decimal `json:"totalBalance"`
	MonthlyIncome   decimal.Decimal `json:"monthlyIncome"`
	MonthlyExpenses decimal.Decimal `json:"monthlyExpenses"`
	SavingsRate     float64         `json:"savingsRate"`
}

// Snapshot is a point-in-time copy of the account.
type Snapshot struct {
	Balance      decimal.Decimal `json:"balance"`
	Transactions []Transaction   `json:"transactions"`
	Stats        AccountStats    `json:"stats"`
}

// ComputeStats derives AccountStats from balance and txs. A transaction
// counts towards the monthly figures when its date falls in the same calendar
// month and year as now, evaluated in now's location.
func ComputeStats(balance decimal.Decimal, txs []Transaction, now time.Time) AccountStats {
	income := decimal.Zero
	expenses := decimal.Zero

	for _, tx := range txs {
		if !sameMonth(tx.Date.In(now.Location()), now) {
			continue
		}
		switch tx.Type {
		case Credit:
			income = income.Add(tx.Amount)
		case Debit:
			expenses = expenses.Add(tx.Amount)
		}
	}

	return AccountStats{
		TotalBalance:    balance,
		MonthlyIncome:   income,
		MonthlyExpenses: expenses.Abs(),
		SavingsRate:     PlaceholderSavingsRate,
	}
}

func sameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}
