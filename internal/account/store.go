package account

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dvloznov/nova-bank/internal/domain"
	"github.com/dvloznov/nova-bank/internal/storage"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	// BalanceKey holds the balance as decimal text.
	BalanceKey = "nova_balance"
	// TransactionsKey holds the ledger as a JSON array, newest first.
	TransactionsKey = "nova_transactions"

	// DefaultTransferDelay is the simulated processing time of a transfer.
	DefaultTransferDelay = 1800 * time.Millisecond
)

// Store owns the balance and ledger of one session. Transfer is the only
// mutation; every mutation is persisted to the KeyValueStore.
type Store struct {
	kv    storage.KeyValueStore
	log   zerolog.Logger
	delay time.Duration
	now   func() time.Time
	newID func() string

	seedBalance decimal.Decimal
	seedTxs     func(now time.Time) []domain.Transaction

	// transferMu is held from precondition check to commit, so concurrent
	// transfers are applied one after another against an up-to-date balance.
	transferMu sync.Mutex

	mu      sync.RWMutex
	balance decimal.Decimal
	txs     []domain.Transaction

	ready atomic.Bool
}

// Option configures a Store.
type Option func(*Store)

// WithDelay sets the simulated transfer latency. Zero disables it.
func WithDelay(d time.Duration) Option {
	return func(s *Store) { s.delay = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator replaces the transaction id generator.
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// WithLogger sets the logger used for hydration and persistence warnings.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) { s.log = log }
}

// WithSeed replaces the first-run demo data.
func WithSeed(balance decimal.Decimal, txs func(now time.Time) []domain.Transaction) Option {
	return func(s *Store) {
		s.seedBalance = balance
		s.seedTxs = txs
	}
}

// Open creates a Store and hydrates it from kv. The returned store is ready.
// Hydration never writes: defaults are only persisted after the first transfer.
func Open(ctx context.Context, kv storage.KeyValueStore, opts ...Option) (*Store, error) {
	s := &Store{
		kv:          kv,
		log:         zerolog.Nop(),
		delay:       DefaultTransferDelay,
		now:         time.Now,
		newID:       uuid.NewString,
		seedBalance: SeedBalance,
		seedTxs:     SeedTransactions,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.hydrate(ctx); err != nil {
		return nil, err
	}
	s.ready.Store(true)

	s.log.Info().
		Str("balance", s.balance.StringFixed(2)).
		Int("transaction_count", len(s.txs)).
		Msg("Account state hydrated")

	return s, nil
}

// Ready reports whether hydration has completed.
func (s *Store) Ready() bool {
	return s.ready.Load()
}

func (s *Store) hydrate(ctx context.Context) error {
	balance := s.seedBalance
	raw, err := s.kv.Get(ctx, BalanceKey)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return fmt.Errorf("hydrate: load balance: %w", err)
	default:
		parsed, perr := decimal.NewFromString(strings.TrimSpace(raw))
		if perr != nil {
			s.log.Warn().Err(perr).Str("key", BalanceKey).Msg("Stored balance is unreadable, using seed balance")
		} else {
			balance = parsed
		}
	}

	txs := s.seedTxs(s.timestamp())
	raw, err = s.kv.Get(ctx, TransactionsKey)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return fmt.Errorf("hydrate: load transactions: %w", err)
	default:
		stored, derr := decodeTransactions(raw)
		if derr != nil {
			s.log.Warn().Err(derr).Str("key", TransactionsKey).Msg("Stored transactions are unreadable, using seed transactions")
		} else {
			txs = stored
		}
	}

	s.mu.Lock()
	s.balance = balance
	s.txs = txs
	s.mu.Unlock()
	return nil
}

func decodeTransactions(raw string) ([]domain.Transaction, error) {
	var txs []domain.Transaction
	if err := json.Unmarshal([]byte(raw), &txs); err != nil {
		return nil, fmt.Errorf("decode transactions: %w", err)
	}
	if txs == nil {
		return nil, fmt.Errorf("decode transactions: payload is not a list")
	}
	for _, tx := range txs {
		if err := tx.Validate(); err != nil {
			return nil, fmt.Errorf("decode transactions: %w", err)
		}
	}
	return txs, nil
}

// Snapshot returns a copy of the current state with freshly computed stats.
func (s *Store) Snapshot() domain.Snapshot {
	s.mu.RLock()
	balance := s.balance
	txs := cloneTransactions(s.txs)
	s.mu.RUnlock()

	return domain.Snapshot{
		Balance:      balance,
		Transactions: txs,
		Stats:        domain.ComputeStats(balance, txs, s.now()),
	}
}

// Validate checks the transfer preconditions against the current balance.
func (s *Store) Validate(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if amount.GreaterThan(s.balance) {
		return ErrInsufficientFunds
	}
	return nil
}

// Transfer sends amount to recipient. Invalid amounts fail immediately with a
// ValidationError. Valid transfers wait for the configured delay, then debit
// the balance, prepend a DEBIT transaction and persist both keys.
// Cancelling ctx during the delay abandons the transfer without changes.
func (s *Store) Transfer(ctx context.Context, recipient string, amount decimal.Decimal, note string) (domain.Transaction, error) {
	s.transferMu.Lock()
	defer s.transferMu.Unlock()

	if err := s.Validate(amount); err != nil {
		return domain.Transaction{}, err
	}

	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return domain.Transaction{}, ctx.Err()
		}
	}

	description := "Transfer to " + recipient
	if note != "" {
		description += ": " + note
	}

	tx := domain.Transaction{
		ID:          s.newID(),
		Date:        s.timestamp(),
		Description: description,
		Category:    domain.CategoryTransfer,
		Amount:      amount.Neg(),
		Type:        domain.Debit,
	}

	s.mu.Lock()
	s.balance = s.balance.Sub(amount)
	s.txs = append([]domain.Transaction{tx}, s.txs...)
	balance := s.balance
	txs := cloneTransactions(s.txs)
	s.mu.Unlock()

	s.log.Info().
		Str("transaction_id", tx.ID).
		Str("amount", amount.StringFixed(2)).
		Str("balance", balance.StringFixed(2)).
		Msg("Transfer completed")

	s.persist(context.WithoutCancel(ctx), balance, txs)
	return tx, nil
}

// persist writes both keys. Failures are logged; the in-memory state stays
// authoritative for the session.
func (s *Store) persist(ctx context.Context, balance decimal.Decimal, txs []domain.Transaction) {
	if err := s.kv.Set(ctx, BalanceKey, balance.String()); err != nil {
		s.log.Error().Err(err).Str("key", BalanceKey).Msg("Failed to persist balance")
	}

	payload, err := json.Marshal(txs)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to encode transactions")
		return
	}
	if err := s.kv.Set(ctx, TransactionsKey, string(payload)); err != nil {
		s.log.Error().Err(err).Str("key", TransactionsKey).Msg("Failed to persist transactions")
	}
}

// timestamp is the store clock in UTC at millisecond precision, the
// resolution stored dates survive a round trip with.
func (s *Store) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func cloneTransactions(txs []domain.Transaction) []domain.Transaction {
	out := make([]domain.Transaction, len(txs))
	copy(out, txs)
	return out
}
