package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/nova-bank/internal/api"
	"github.com/dvloznov/nova-bank/internal/api/handlers"
	"github.com/dvloznov/nova-bank/internal/chat"
	"github.com/dvloznov/nova-bank/internal/domain"
	"github.com/dvloznov/nova-bank/internal/logger"
	"github.com/dvloznov/nova-bank/internal/transfers"
	"github.com/dvloznov/nova-bank/internal/transfers/inmemory"
)

// serveCmd runs the HTTP API with its transfer worker.
type serveCmd struct {
	Port       string `env:"PORT" default:"8080" help:"HTTP server port."`
	QueueSize  int    `name:"queue-size" default:"100" help:"Transfers that may wait for processing."`
	MaxHistory int    `name:"max-history" default:"20" help:"Conversation turns sent with each advice request."`
}

func (c *serveCmd) Run(g *Globals) error {
	log := g.log
	ctx := logger.WithContext(context.Background(), log)

	acct, cleanup, err := g.openAccount(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	adv, err := g.newAdvisor(ctx)
	if err != nil {
		return err
	}
	conversation := chat.NewConversation(adv, acct,
		chat.WithLogger(log),
		chat.WithMaxHistory(c.MaxHistory),
	)

	// Initialize transfer infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(c.QueueSize, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	transferHandler := func(ctx context.Context, job *transfers.Job) (domain.Transaction, error) {
		log.Info().
			Str("job_id", job.JobID).
			Str("amount", job.Amount.StringFixed(2)).
			Msg("Processing transfer")
		return acct.Transfer(ctx, job.Recipient, job.Amount, job.Note)
	}

	log.Info().Msg("Starting transfer worker")
	if err := jobQueue.Start(workerCtx, transferHandler); err != nil {
		return err
	}

	handler := api.NewRouter(api.Handlers{
		Account:   handlers.NewAccountHandler(acct, log),
		Transfers: handlers.NewTransfersHandler(acct, jobQueue, jobStore, log),
		Advice:    handlers.NewAdviceHandler(conversation, log),
	}, log)

	// Advice requests can take a while, so the write timeout is generous.
	server := &http.Server{
		Addr:         ":" + c.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", c.Port).Str("state", g.State).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		log.Error().Err(err).Msg("Failed to start server")
		return err
	}

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Let the in-flight transfer finish before the state store closes.
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping transfer queue")
	}
	cancelWorker()

	log.Info().Msg("Server exited")
	return nil
}
