package main

import (
	"context"
	"fmt"

	bqexport "github.com/dvloznov/nova-bank/internal/export/bigquery"
	notionexport "github.com/dvloznov/nova-bank/internal/export/notion"
	"github.com/dvloznov/nova-bank/internal/logger"
)

type exportCmd struct {
	BigQuery exportBigQueryCmd `cmd name:"bigquery" help:"Append new transactions to a BigQuery table."`
	Notion   exportNotionCmd   `cmd help:"Create a Notion page for every new transaction."`
}

type exportBigQueryCmd struct {
	Project     string `env:"GOOGLE_CLOUD_PROJECT" required help:"Google Cloud project ID."`
	Dataset     string `env:"BIGQUERY_DATASET" default:"nova" help:"BigQuery dataset holding the transactions table."`
	CreateTable bool   `name:"create-table" help:"Create the transactions table if it does not exist."`
}

func (c *exportBigQueryCmd) Run(g *Globals) error {
	log := logger.WithFields(g.log, map[string]interface{}{
		"export":  "bigquery",
		"dataset": c.Dataset,
	})
	ctx := logger.WithContext(context.Background(), log)

	acct, cleanup, err := g.openAccount(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	repo, err := bqexport.NewBigQueryRepository(ctx, c.Project, c.Dataset)
	if err != nil {
		return err
	}
	defer repo.Close()

	if c.CreateTable {
		if err := repo.EnsureTable(ctx); err != nil {
			return err
		}
	}

	result, err := bqexport.NewExporter(repo).Export(ctx, acct.Snapshot().Transactions)
	if err != nil {
		return err
	}

	fmt.Printf("Exported %d transactions (%d already present).\n", result.Exported, result.Skipped)
	return nil
}

type exportNotionCmd struct {
	Token      string `env:"NOTION_TOKEN" required help:"Notion integration token."`
	DatabaseID string `name:"database-id" env:"NOTION_DB_ID" required help:"Notion database receiving the ledger."`
	DryRun     bool   `name:"dry-run" help:"Report what would be created without writing to Notion."`
}

func (c *exportNotionCmd) Run(g *Globals) error {
	log := logger.WithFields(g.log, map[string]interface{}{
		"export":  "notion",
		"dry_run": c.DryRun,
	})
	ctx := logger.WithContext(context.Background(), log)

	acct, cleanup, err := g.openAccount(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	exporter := notionexport.NewExporter(notionexport.NewNotionClient(c.Token), c.DatabaseID, c.DryRun)
	result, err := exporter.Export(ctx, acct.Snapshot().Transactions)
	if err != nil {
		return err
	}

	verb := "Created"
	if c.DryRun {
		verb = "Would create"
	}
	fmt.Printf("%s %d pages (%d already present, %d failed).\n", verb, result.Created, result.Skipped, result.Failed)
	return nil
}
