package main

import (
	"context"
	"fmt"
	"time"

	"github.com/alecthomas/kong"
	"github.com/dvloznov/nova-bank/internal/account"
	"github.com/dvloznov/nova-bank/internal/advisor"
	"github.com/dvloznov/nova-bank/internal/logger"
	"github.com/rs/zerolog"
)

// Globals holds options shared by every command.
type Globals struct {
	LogLevel      string        `name:"log-level" env:"NOVA_LOG_LEVEL" default:"info" help:"Log level (debug, info, warn, error)."`
	State         string        `env:"NOVA_STATE" default:"sqlite:nova.db" help:"Where account state lives [sqlite:/path/nova.db gcs:bucket/prefix memory:]."`
	TransferDelay time.Duration `name:"transfer-delay" env:"NOVA_TRANSFER_DELAY" default:"1800ms" help:"Simulated transfer processing time."`
	APIKey        string        `name:"api-key" env:"GEMINI_API_KEY,API_KEY" help:"Gemini API key for the financial advisor."`
	Model         string        `env:"GEMINI_MODEL" help:"Gemini model used for advice. Empty selects the advisor default."`

	log zerolog.Logger
}

// cli commands / args available
var cli struct {
	Globals `embed`

	Serve    serveCmd    `cmd help:"Run the HTTP API."`
	Balance  balanceCmd  `cmd help:"Show balance and monthly stats."`
	History  historyCmd  `cmd help:"List transactions, newest first."`
	Transfer transferCmd `cmd help:"Send money to a recipient."`
	Advise   adviseCmd   `cmd help:"Ask Nova for financial advice."`
	Export   exportCmd   `cmd help:"Export the ledger to an external system."`
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("nova"),
		kong.Description("NovaBank personal banking core."),
	)
	cli.Globals.log = logger.New(cli.Globals.LogLevel)
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}

// openAccount opens the state backend and hydrates the account from it.
func (g *Globals) openAccount(ctx context.Context) (*account.Store, func(), error) {
	kv, closeKV, err := openState(ctx, g.State)
	if err != nil {
		return nil, nil, err
	}

	acct, err := account.Open(ctx, kv,
		account.WithDelay(g.TransferDelay),
		account.WithLogger(g.log),
	)
	if err != nil {
		_ = closeKV()
		return nil, nil, fmt.Errorf("open account: %w", err)
	}

	cleanup := func() {
		if err := closeKV(); err != nil {
			g.log.Error().Err(err).Msg("Failed to close state store")
		}
	}
	return acct, cleanup, nil
}

func (g *Globals) newAdvisor(ctx context.Context) (*advisor.Client, error) {
	adv, err := advisor.New(ctx, advisor.Config{
		APIKey: g.APIKey,
		Model:  g.Model,
	})
	if err != nil {
		return nil, err
	}
	g.log.Debug().Str("model", adv.Model()).Msg("Advisor configured")
	if !adv.Configured() {
		g.log.Warn().Msg("No Gemini API key configured - advice requests will fail")
	}
	return adv, nil
}
