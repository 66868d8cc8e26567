package account

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dvloznov/nova-bank/internal/domain"
	"github.com/dvloznov/nova-bank/internal/logger"
	"github.com/dvloznov/nova-bank/internal/storage"
	"github.com/dvloznov/nova-bank/internal/storage/inmemory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func openTestStore(t *testing.T, kv storage.KeyValueStore, opts ...Option) *Store {
	t.Helper()
	base := []Option{
		WithDelay(0),
		WithClock(func() time.Time { return fixedNow }),
	}
	s, err := Open(context.Background(), kv, append(base, opts...)...)
	require.NoError(t, err)
	return s
}

func assertSameLedger(t *testing.T, want, got []domain.Transaction) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID, "id at %d", i)
		assert.True(t, want[i].Date.Equal(got[i].Date), "date at %d: want %s got %s", i, want[i].Date, got[i].Date)
		assert.Equal(t, want[i].Description, got[i].Description, "description at %d", i)
		assert.Equal(t, want[i].Category, got[i].Category, "category at %d", i)
		assert.True(t, want[i].Amount.Equal(got[i].Amount), "amount at %d: want %s got %s", i, want[i].Amount, got[i].Amount)
		assert.Equal(t, want[i].Type, got[i].Type, "type at %d", i)
	}
}

// failingKV fails reads and/or writes on demand.
type failingKV struct {
	*inmemory.Store
	getErr error
	setErr error
}

func (f *failingKV) Get(ctx context.Context, key string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	return f.Store.Get(ctx, key)
}

func (f *failingKV) Set(ctx context.Context, key, value string) error {
	if f.setErr != nil {
		return f.setErr
	}
	return f.Store.Set(ctx, key, value)
}

func TestOpen_SeedsWhenStorageEmpty(t *testing.T) {
	kv := inmemory.NewStore()
	s := openTestStore(t, kv)

	snap := s.Snapshot()

	assert.True(t, s.Ready())
	assert.True(t, snap.Balance.Equal(dec("12450.00")))
	assertSameLedger(t, SeedTransactions(fixedNow), snap.Transactions)

	ids := make([]string, 0, len(snap.Transactions))
	for _, tx := range snap.Transactions {
		ids = append(ids, tx.ID)
	}
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, ids)
	assert.Equal(t, 0, kv.Writes(), "hydration must not write")
}

func TestOpen_HydrationFallbacks(t *testing.T) {
	tests := []struct {
		name        string
		balance     string
		txs         string
		wantBalance string
		wantSeedTxs bool
	}{
		{"corrupt transactions keep stored balance", "900.10", "{not json", "900.10", true},
		{"empty transactions payload", "900.10", "", "900.10", true},
		{"null transactions payload", "900.10", "null", "900.10", true},
		{"sign and type disagree", "900.10", `[{"id":"x","date":"2026-03-01T00:00:00Z","description":"d","category":"c","amount":"5","type":"DEBIT"}]`, "900.10", true},
		{"unreadable balance", "NaN", `[]`, "12450.00", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv := inmemory.NewStore()
			require.NoError(t, kv.Set(context.Background(), BalanceKey, tt.balance))
			require.NoError(t, kv.Set(context.Background(), TransactionsKey, tt.txs))

			snap := openTestStore(t, kv).Snapshot()

			assert.True(t, snap.Balance.Equal(dec(tt.wantBalance)), "balance = %s", snap.Balance)
			if tt.wantSeedTxs {
				assertSameLedger(t, SeedTransactions(fixedNow), snap.Transactions)
			} else {
				assert.Empty(t, snap.Transactions)
			}
		})
	}
}

func TestOpen_HydratesBrowserPayload(t *testing.T) {
	// Numeric amounts and millisecond dates, as written by the web client.
	kv := inmemory.NewStore()
	require.NoError(t, kv.Set(context.Background(), BalanceKey, "11950"))
	require.NoError(t, kv.Set(context.Background(), TransactionsKey,
		`[{"id":"K3J9Q2ZX1","description":"Transfer to alice@example.com: rent","category":"Transfer","amount":-500,"date":"2026-03-14T09:30:00.123Z","type":"DEBIT"},`+
			`{"id":"3","description":"Monthly Salary Deposit","category":"Income","amount":4500,"date":"2026-03-13T09:30:00.000Z","type":"CREDIT"}]`))

	snap := openTestStore(t, kv).Snapshot()

	assert.True(t, snap.Balance.Equal(dec("11950")))
	require.Len(t, snap.Transactions, 2)
	assert.True(t, snap.Transactions[0].Amount.Equal(dec("-500")))
	assert.Equal(t, 123*int(time.Millisecond), snap.Transactions[0].Date.Nanosecond())
	assert.True(t, snap.Stats.MonthlyIncome.Equal(dec("4500")))
	assert.True(t, snap.Stats.MonthlyExpenses.Equal(dec("500")))
}

func TestOpen_StorageReadError(t *testing.T) {
	kv := &failingKV{Store: inmemory.NewStore(), getErr: errors.New("disk on fire")}

	_, err := Open(context.Background(), kv)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk on fire")
}

func TestTransfer_Success(t *testing.T) {
	amounts := []string{"0.01", "500.00", "12449.99", "12450.00"}

	for _, amount := range amounts {
		t.Run(amount, func(t *testing.T) {
			s := openTestStore(t, inmemory.NewStore())
			before := s.Snapshot()

			tx, err := s.Transfer(context.Background(), "bob", dec(amount), "")
			require.NoError(t, err)

			after := s.Snapshot()
			assert.True(t, after.Balance.Equal(before.Balance.Sub(dec(amount))), "balance = %s", after.Balance)
			require.Len(t, after.Transactions, len(before.Transactions)+1)

			newest := after.Transactions[0]
			assert.Equal(t, tx.ID, newest.ID)
			assert.True(t, newest.Amount.Equal(dec(amount).Neg()))
			assert.Equal(t, domain.Debit, newest.Type)
			assert.Equal(t, domain.CategoryTransfer, newest.Category)
			assert.Equal(t, "Transfer to bob", newest.Description)
			assert.True(t, newest.Date.Equal(fixedNow))
			assert.NoError(t, newest.Validate())
		})
	}
}

func TestTransfer_Rejected(t *testing.T) {
	tests := []struct {
		amount  string
		wantErr error
	}{
		{"0", ErrInvalidAmount},
		{"-5", ErrInvalidAmount},
		{"12450.01", ErrInsufficientFunds},
		{"1000000", ErrInsufficientFunds},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			kv := inmemory.NewStore()
			// A long delay proves rejections return without waiting.
			s := openTestStore(t, kv, WithDelay(time.Hour))
			before := s.Snapshot()

			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()

			_, err := s.Transfer(ctx, "bob", dec(tt.amount), "note")
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, ErrValidation)

			after := s.Snapshot()
			assert.True(t, after.Balance.Equal(before.Balance))
			assert.Len(t, after.Transactions, len(before.Transactions))
			assert.Equal(t, 0, kv.Writes())
		})
	}
}

func TestTransfer_ConcreteScenario(t *testing.T) {
	s := openTestStore(t, inmemory.NewStore())

	tx, err := s.Transfer(context.Background(), "alice@example.com", dec("500.00"), "rent")
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.Equal(t, "11950.00", snap.Balance.StringFixed(2))
	assert.Equal(t, "Transfer to alice@example.com: rent", tx.Description)
	assert.Contains(t, snap.Transactions[0].Description, "alice@example.com")
	assert.Contains(t, snap.Transactions[0].Description, "rent")
	assert.True(t, snap.Transactions[0].Amount.Equal(dec("-500.00")))
}

func TestTransfer_PersistenceRoundTrip(t *testing.T) {
	kv := inmemory.NewStore()
	ids := []string{"T1", "T2"}
	next := 0
	s := openTestStore(t, kv, WithIDGenerator(func() string {
		id := ids[next]
		next++
		return id
	}))

	_, err := s.Transfer(context.Background(), "alice@example.com", dec("500.00"), "rent")
	require.NoError(t, err)
	_, err = s.Transfer(context.Background(), "bob", dec("0.10"), "")
	require.NoError(t, err)
	assert.Equal(t, 4, kv.Writes(), "both keys are written after each transfer")

	before := s.Snapshot()
	reloaded := openTestStore(t, kv).Snapshot()

	assert.True(t, reloaded.Balance.Equal(before.Balance), "balance = %s", reloaded.Balance)
	assertSameLedger(t, before.Transactions, reloaded.Transactions)
	assert.Equal(t, "T2", reloaded.Transactions[0].ID)
	assert.Equal(t, "T1", reloaded.Transactions[1].ID)
}

func TestTransfer_StatsIncludeTransfer(t *testing.T) {
	s := openTestStore(t, inmemory.NewStore())
	_, err := s.Transfer(context.Background(), "alice@example.com", dec("500.00"), "")
	require.NoError(t, err)

	stats := s.Snapshot().Stats
	assert.True(t, stats.TotalBalance.Equal(dec("11950")))
	assert.True(t, stats.MonthlyIncome.Equal(dec("4500")))
	// 12.50 + 55 + 1299 + 210.40 + 500
	assert.True(t, stats.MonthlyExpenses.Equal(dec("2076.90")), "expenses = %s", stats.MonthlyExpenses)
	assert.Equal(t, domain.PlaceholderSavingsRate, stats.SavingsRate)
}

func TestTransfer_PersistFailureIsNotFatal(t *testing.T) {
	buf := &bytes.Buffer{}
	kv := &failingKV{Store: inmemory.NewStore(), setErr: errors.New("quota exceeded")}
	s := openTestStore(t, kv, WithLogger(logger.NewWithWriter(buf)))

	_, err := s.Transfer(context.Background(), "bob", dec("10"), "")
	require.NoError(t, err)

	assert.True(t, s.Snapshot().Balance.Equal(dec("12440")))
	assert.Contains(t, buf.String(), "quota exceeded")
}

func TestTransfer_CancelledDuringDelay(t *testing.T) {
	kv := inmemory.NewStore()
	s := openTestStore(t, kv, WithDelay(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := s.Transfer(ctx, "bob", dec("10"), "")
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("transfer did not observe cancellation")
	}

	assert.True(t, s.Snapshot().Balance.Equal(SeedBalance))
	assert.Len(t, s.Snapshot().Transactions, 5)
	assert.Equal(t, 0, kv.Writes())
}

func TestTransfer_SnapshotAvailableDuringDelay(t *testing.T) {
	s := openTestStore(t, inmemory.NewStore(), WithDelay(200*time.Millisecond))

	done := make(chan error, 1)
	go func() {
		_, err := s.Transfer(context.Background(), "bob", dec("10"), "")
		done <- err
	}()

	// Reads never block on the in-flight transfer and see the old state.
	time.Sleep(20 * time.Millisecond)
	assert.True(t, s.Snapshot().Balance.Equal(SeedBalance))

	require.NoError(t, <-done)
	assert.True(t, s.Snapshot().Balance.Equal(dec("12440")))
}

func TestTransfer_ConcurrentCallsAreSerialised(t *testing.T) {
	s := openTestStore(t, inmemory.NewStore(),
		WithDelay(20*time.Millisecond),
		WithSeed(dec("100"), func(time.Time) []domain.Transaction { return nil }),
	)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.Transfer(context.Background(), fmt.Sprintf("r%d", i), dec("60"), "")
		}(i)
	}
	wg.Wait()

	var ok, rejected int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrInsufficientFunds):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, rejected)
	assert.True(t, s.Snapshot().Balance.Equal(dec("40")))
	assert.Len(t, s.Snapshot().Transactions, 1)
}

func TestSnapshot_IsACopy(t *testing.T) {
	s := openTestStore(t, inmemory.NewStore())

	snap := s.Snapshot()
	snap.Transactions[0].Description = "tampered"
	snap.Transactions = snap.Transactions[:1]

	fresh := s.Snapshot()
	assert.Len(t, fresh.Transactions, 5)
	assert.Equal(t, "Starbucks Coffee", fresh.Transactions[0].Description)
}

func TestValidationError_UserMessage(t *testing.T) {
	var verr *ValidationError
	require.True(t, errors.As(error(ErrInsufficientFunds), &verr))
	assert.Equal(t, "Insufficient funds for this transfer.", verr.UserMessage)
	assert.True(t, strings.HasPrefix(ErrInvalidAmount.Error(), "transfer rejected"))
}
