package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/dvloznov/nova-bank/internal/api/handlers"
	"github.com/dvloznov/nova-bank/internal/api/middleware"
	"github.com/rs/zerolog"
)

// Handlers groups the endpoint handlers served by NewRouter.
type Handlers struct {
	Account   *handlers.AccountHandler
	Transfers *handlers.TransfersHandler
	Advice    *handlers.AdviceHandler
}

// NewRouter registers every route and wraps the mux in the middleware chain.
func NewRouter(h Handlers, log zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	// Account endpoints
	mux.HandleFunc("/api/account", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			h.Account.GetAccount(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/transactions", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			h.Account.ListTransactions(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Transfer endpoints
	mux.HandleFunc("/api/transfers", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.Transfers.ListTransfers(w, r)
		case http.MethodPost:
			h.Transfers.CreateTransfer(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/transfers/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			// Extract job ID from path
			jobID := strings.TrimPrefix(r.URL.Path, "/api/transfers/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Transfer ID is required")
				return
			}
			h.Transfers.GetTransfer(w, r, jobID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Advice endpoints
	mux.HandleFunc("/api/advice", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.Advice.GetConversation(w, r)
		case http.MethodPost:
			h.Advice.SendMessage(w, r)
		case http.MethodDelete:
			h.Advice.ResetConversation(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	return middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(mux),
			),
		),
	)
}
