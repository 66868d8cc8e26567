package notion

import (
	"context"
	"fmt"

	"github.com/dvloznov/nova-bank/internal/domain"
	"github.com/dvloznov/nova-bank/internal/logger"
	"github.com/jomei/notionapi"
)

// pageSize is the largest page the Notion query API returns.
const pageSize = 100

// Result summarises one export run.
type Result struct {
	Created int
	Skipped int
	Failed  int
}

// Exporter mirrors the ledger into a Notion database, one page per
// transaction. Pages are matched on the Transaction ID property, so repeated
// runs only create what is missing.
type Exporter struct {
	client     NotionService
	databaseID string
	dryRun     bool
}

// NewExporter creates an exporter for the database. In dry-run mode nothing
// is written; the result counts what would be created.
func NewExporter(client NotionService, databaseID string, dryRun bool) *Exporter {
	return &Exporter{
		client:     client,
		databaseID: databaseID,
		dryRun:     dryRun,
	}
}

// Export creates a page for every transaction not yet in the database.
// Failures on individual pages are logged and counted; the run continues.
func (e *Exporter) Export(ctx context.Context, txs []domain.Transaction) (Result, error) {
	log := logger.FromContext(ctx)

	log.Info().
		Int("transaction_count", len(txs)).
		Bool("dry_run", e.dryRun).
		Msg("Starting transaction export to Notion")

	existing, err := e.existingTransactionIDs(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to query Notion pages: %w", err)
	}

	var result Result
	for _, tx := range txs {
		if existing[tx.ID] {
			result.Skipped++
			continue
		}

		if e.dryRun {
			log.Info().
				Str("transaction_id", tx.ID).
				Msg("[DRY RUN] Would create new Notion page")
			result.Created++
			continue
		}

		page, err := e.client.CreatePage(ctx, e.databaseID, TransactionToNotionProperties(tx))
		if err != nil {
			log.Warn().
				Err(err).
				Str("transaction_id", tx.ID).
				Msg("Failed to create Notion page")
			result.Failed++
			continue
		}
		log.Debug().
			Str("transaction_id", tx.ID).
			Str("page_id", string(page.ID)).
			Msg("Created Notion page")
		result.Created++
	}

	log.Info().
		Int("created", result.Created).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Msg("Notion export completed")

	return result, nil
}

func (e *Exporter) existingTransactionIDs(ctx context.Context) (map[string]bool, error) {
	ids := make(map[string]bool)
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{
			PageSize: pageSize,
		}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := e.client.QueryDatabase(ctx, e.databaseID, req)
		if err != nil {
			return nil, err
		}

		for _, page := range resp.Results {
			if id := extractTransactionID(page); id != "" {
				ids[id] = true
			}
		}

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return ids, nil
}
