package bigquery

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dvloznov/nova-bank/internal/domain"
	"github.com/dvloznov/nova-bank/internal/logger"
)

// DefaultMaxRetries bounds insert retries after the first attempt.
const DefaultMaxRetries = 4

// Result summarises one export run.
type Result struct {
	Exported int
	Skipped  int
}

// Exporter copies the ledger into BigQuery. Transactions whose id is already
// present in the table are skipped, so repeated runs do not duplicate rows.
type Exporter struct {
	repo       Repository
	now        func() time.Time
	newBackOff func() backoff.BackOff
}

// NewExporter creates an exporter writing to repo.
func NewExporter(repo Repository) *Exporter {
	return &Exporter{
		repo: repo,
		now:  time.Now,
		newBackOff: func() backoff.BackOff {
			return backoff.WithMaxRetries(backoff.NewExponentialBackOff(), DefaultMaxRetries)
		},
	}
}

// Export writes every transaction not yet in the table.
func (e *Exporter) Export(ctx context.Context, txs []domain.Transaction) (Result, error) {
	log := logger.FromContext(ctx)

	ids := make([]string, 0, len(txs))
	for _, tx := range txs {
		ids = append(ids, tx.ID)
	}

	existing, err := e.repo.ExistingTransactionIDs(ctx, ids)
	if err != nil {
		return Result{}, fmt.Errorf("Export: %w", err)
	}

	exportedAt := e.now()
	var rows []*TransactionRow
	var result Result
	for _, tx := range txs {
		if existing[tx.ID] {
			result.Skipped++
			continue
		}
		rows = append(rows, NewTransactionRow(tx, exportedAt))
	}

	if len(rows) == 0 {
		log.Info().Int("skipped", result.Skipped).Msg("BigQuery export: nothing new to export")
		return result, nil
	}

	attempt := 0
	insert := func() error {
		attempt++
		err := e.repo.InsertTransactions(ctx, rows)
		if err != nil {
			log.Warn().Err(err).Int("attempt", attempt).Msg("BigQuery insert failed")
		}
		return err
	}

	if err := backoff.Retry(insert, backoff.WithContext(e.newBackOff(), ctx)); err != nil {
		return result, fmt.Errorf("Export: %w", err)
	}

	result.Exported = len(rows)
	log.Info().
		Int("exported", result.Exported).
		Int("skipped", result.Skipped).
		Msg("BigQuery export completed")
	return result, nil
}
