package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/dvloznov/nova-bank/internal/account"
	"github.com/dvloznov/nova-bank/internal/api/middleware"
	"github.com/dvloznov/nova-bank/internal/chat"
	"github.com/dvloznov/nova-bank/internal/domain"
	"github.com/dvloznov/nova-bank/internal/transfers"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// AccountReader is the read side of the account store.
type AccountReader interface {
	Snapshot() domain.Snapshot
	Ready() bool
}

// TransferValidator checks transfer preconditions without mutating anything.
type TransferValidator interface {
	Validate(amount decimal.Decimal) error
}

// Conversation is the advice chat session.
type Conversation interface {
	Send(ctx context.Context, text string) (domain.ChatMessage, error)
	Messages() []domain.ChatMessage
	Pending() bool
	Reset()
}

// AccountHandler serves the dashboard and transactions views.
type AccountHandler struct {
	account AccountReader
	log     zerolog.Logger
}

// NewAccountHandler creates a new account handler.
func NewAccountHandler(acct AccountReader, log zerolog.Logger) *AccountHandler {
	return &AccountHandler{
		account: acct,
		log:     log,
	}
}

// GetAccount handles GET /api/account
func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	snap := h.account.Snapshot()

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"ready":   h.account.Ready(),
		"balance": snap.Balance,
		"stats":   snap.Stats,
	})
}

// ListTransactions handles GET /api/transactions?q=
func (h *AccountHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	snap := h.account.Snapshot()

	transactions := domain.FilterTransactions(snap.Transactions, r.URL.Query().Get("q"))

	// Return array directly for frontend compatibility
	if transactions == nil {
		transactions = []domain.Transaction{}
	}
	middleware.WriteJSON(w, http.StatusOK, transactions)
}

// TransfersHandler validates and enqueues transfers.
type TransfersHandler struct {
	validator TransferValidator
	publisher transfers.Publisher
	store     transfers.Store
	log       zerolog.Logger
}

// NewTransfersHandler creates a new transfers handler.
func NewTransfersHandler(validator TransferValidator, publisher transfers.Publisher, store transfers.Store, log zerolog.Logger) *TransfersHandler {
	return &TransfersHandler{
		validator: validator,
		publisher: publisher,
		store:     store,
		log:       log,
	}
}

type transferRequest struct {
	Recipient string           `json:"recipient"`
	Amount    *decimal.Decimal `json:"amount"`
	Note      string           `json:"note"`
}

// CreateTransfer handles POST /api/transfers
func (h *TransfersHandler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Recipient = strings.TrimSpace(req.Recipient)
	if req.Recipient == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Recipient is required")
		return
	}
	if req.Amount == nil {
		middleware.WriteError(w, http.StatusUnprocessableEntity, account.ErrInvalidAmount.UserMessage)
		return
	}

	if err := h.validator.Validate(*req.Amount); err != nil {
		var verr *account.ValidationError
		if errors.As(err, &verr) {
			middleware.WriteError(w, http.StatusUnprocessableEntity, verr.UserMessage)
			return
		}
		h.log.Error().Err(err).Msg("Failed to validate transfer")
		middleware.WriteError(w, http.StatusInternalServerError, account.TransferFailedMessage)
		return
	}

	ctx := r.Context()

	job, err := h.publisher.Publish(ctx, &transfers.Job{
		Recipient: req.Recipient,
		Amount:    *req.Amount,
		Note:      strings.TrimSpace(req.Note),
	})
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue transfer")
		middleware.WriteError(w, http.StatusInternalServerError, account.TransferFailedMessage)
		return
	}

	h.log.Info().
		Str("job_id", job.JobID).
		Str("amount", job.Amount.StringFixed(2)).
		Msg("Transfer enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, job)
}

// GetTransfer handles GET /api/transfers/{id}
func (h *TransfersHandler) GetTransfer(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.store.GetJob(r.Context(), jobID)
	if errors.Is(err, transfers.ErrJobNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Transfer not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get transfer")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get transfer")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListTransfers handles GET /api/transfers
func (h *TransfersHandler) ListTransfers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := transfers.JobFilter{
		Status: transfers.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobs, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list transfers")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list transfers")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transfers": jobs,
		"count":     len(jobs),
	})
}

// AdviceHandler serves the financial advice chat.
type AdviceHandler struct {
	conversation Conversation
	log          zerolog.Logger
}

// NewAdviceHandler creates a new advice handler.
func NewAdviceHandler(conversation Conversation, log zerolog.Logger) *AdviceHandler {
	return &AdviceHandler{
		conversation: conversation,
		log:          log,
	}
}

func (h *AdviceHandler) state() map[string]interface{} {
	return map[string]interface{}{
		"messages":          h.conversation.Messages(),
		"pending":           h.conversation.Pending(),
		"suggested_prompts": chat.SuggestedPrompts(),
	}
}

// GetConversation handles GET /api/advice
func (h *AdviceHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.state())
}

// SendMessage handles POST /api/advice
func (h *AdviceHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	reply, err := h.conversation.Send(r.Context(), req.Message)
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		middleware.WriteError(w, http.StatusBadRequest, "Message is required")
		return
	case errors.Is(err, chat.ErrBusy):
		middleware.WriteError(w, http.StatusConflict, "Nova is still answering the previous message")
		return
	case err != nil:
		h.log.Error().Err(err).Msg("Failed to send advice message")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to send message")
		return
	}

	state := h.state()
	state["reply"] = reply
	middleware.WriteJSON(w, http.StatusOK, state)
}

// ResetConversation handles DELETE /api/advice
func (h *AdviceHandler) ResetConversation(w http.ResponseWriter, r *http.Request) {
	h.conversation.Reset()
	middleware.WriteJSON(w, http.StatusOK, h.state())
}
