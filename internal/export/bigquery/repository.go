package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

const (
	// DefaultDataset is used when no dataset is configured.
	DefaultDataset = "nova"
	// TransactionsTable is the export table name.
	TransactionsTable = "transactions"
)

// Repository stores exported rows.
type Repository interface {
	// ExistingTransactionIDs returns the subset of ids already exported.
	ExistingTransactionIDs(ctx context.Context, ids []string) (map[string]bool, error)

	// InsertTransactions appends rows to the export table.
	InsertTransactions(ctx context.Context, rows []*TransactionRow) error
}

// BigQueryRepository is the Repository backed by a BigQuery table.
type BigQueryRepository struct {
	client  *bigquery.Client
	project string
	dataset string
}

// NewBigQueryRepository creates a repository for project.dataset.transactions.
func NewBigQueryRepository(ctx context.Context, project, dataset string) (*BigQueryRepository, error) {
	if project == "" {
		return nil, fmt.Errorf("NewBigQueryRepository: project is required")
	}
	if dataset == "" {
		dataset = DefaultDataset
	}

	client, err := bigquery.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryRepository: creating client: %w", err)
	}
	return &BigQueryRepository{
		client:  client,
		project: project,
		dataset: dataset,
	}, nil
}

// Close closes the BigQuery client connection.
func (r *BigQueryRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

func (r *BigQueryRepository) tableRef() string {
	return fmt.Sprintf("`%s.%s.%s`", r.project, r.dataset, TransactionsTable)
}

// EnsureTable creates the export table if it does not exist yet.
func (r *BigQueryRepository) EnsureTable(ctx context.Context) error {
	sql := `
		CREATE TABLE IF NOT EXISTS ` + r.tableRef() + ` (
			transaction_id   STRING NOT NULL,
			transaction_date DATE NOT NULL,
			booking_ts       TIMESTAMP NOT NULL,
			amount           NUMERIC NOT NULL,
			currency         STRING NOT NULL,
			direction        STRING,
			raw_description  STRING NOT NULL,
			category_name    STRING,
			exported_ts      TIMESTAMP NOT NULL
		)
		PARTITION BY transaction_date
	`

	job, err := r.client.Query(sql).Run(ctx)
	if err != nil {
		return fmt.Errorf("EnsureTable: running query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("EnsureTable: waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("EnsureTable: job error: %w", err)
	}
	return nil
}

// ExistingTransactionIDs implements Repository.
func (r *BigQueryRepository) ExistingTransactionIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	existing := make(map[string]bool)
	if len(ids) == 0 {
		return existing, nil
	}

	q := r.client.Query(`
		SELECT transaction_id
		FROM ` + r.tableRef() + `
		WHERE transaction_id IN UNNEST(@ids)
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "ids", Value: ids},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ExistingTransactionIDs: query read: %w", err)
	}

	for {
		var row struct {
			TransactionID string `bigquery:"transaction_id"`
		}
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ExistingTransactionIDs: iter next: %w", err)
		}
		existing[row.TransactionID] = true
	}

	return existing, nil
}

// InsertTransactions implements Repository.
func (r *BigQueryRepository) InsertTransactions(ctx context.Context, rows []*TransactionRow) error {
	if len(rows) == 0 {
		return nil
	}

	table := r.client.DatasetInProject(r.project, r.dataset).Table(TransactionsTable)
	if err := table.Inserter().Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertTransactions: inserting rows: %w", err)
	}
	return nil
}

var _ Repository = (*BigQueryRepository)(nil)
