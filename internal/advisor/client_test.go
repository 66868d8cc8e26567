package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/dvloznov/nova-bank/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeGenerator struct {
	reply string
	err   error

	calls    int
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
}

func (f *fakeGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.calls++
	f.model = model
	f.contents = contents
	f.config = config
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: genai.NewContentFromText(f.reply, genai.RoleModel)},
		},
	}, nil
}

func sampleData() AccountData {
	now := time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)
	return AccountData{
		Balance: decimal.RequireFromString("12450"),
		RecentTransactions: []domain.Transaction{
			{ID: "1", Date: now, Description: "Starbucks Coffee", Category: "Food & Drink", Amount: decimal.RequireFromString("-12.50"), Type: domain.Debit},
			{ID: "3", Date: now, Description: "Monthly Salary Deposit", Category: "Income", Amount: decimal.RequireFromString("4500"), Type: domain.Credit},
		},
	}
}

func TestGetAdvice_SendsHistoryThenMessage(t *testing.T) {
	gen := &fakeGenerator{reply: "Try the 50/30/20 rule."}
	c := NewWithGenerator(Config{}, gen)

	history := []domain.Turn{
		{Role: domain.RoleModel, Text: "Hello Alex!"},
		{Role: domain.RoleUser, Text: "Hi"},
		{Role: domain.RoleModel, Text: "How can I help?"},
	}

	reply, err := c.GetAdvice(context.Background(), "How to save $500/month?", history, sampleData())
	require.NoError(t, err)
	assert.Equal(t, "Try the 50/30/20 rule.", reply)

	require.Equal(t, 1, gen.calls)
	assert.Equal(t, DefaultModel, gen.model)
	require.Len(t, gen.contents, 4)

	wantRoles := []string{"model", "user", "model", "user"}
	wantTexts := []string{"Hello Alex!", "Hi", "How can I help?", "How to save $500/month?"}
	for i, content := range gen.contents {
		assert.Equal(t, wantRoles[i], content.Role)
		require.Len(t, content.Parts, 1)
		assert.Equal(t, wantTexts[i], content.Parts[0].Text)
	}

	require.NotNil(t, gen.config)
	require.NotNil(t, gen.config.Temperature)
	assert.InDelta(t, 0.7, *gen.config.Temperature, 1e-6)
	require.NotNil(t, gen.config.SystemInstruction)
	assert.Contains(t, gen.config.SystemInstruction.Parts[0].Text, "$12450.00")
}

func TestGetAdvice_EmptyHistory(t *testing.T) {
	gen := &fakeGenerator{reply: "ok"}
	c := NewWithGenerator(Config{Model: "gemini-test"}, gen)

	_, err := c.GetAdvice(context.Background(), "Explain compound interest", nil, sampleData())
	require.NoError(t, err)

	assert.Equal(t, "gemini-test", gen.model)
	require.Len(t, gen.contents, 1)
	assert.Equal(t, "user", gen.contents[0].Role)
}

func TestGetAdvice_EmptyReplyIsReturned(t *testing.T) {
	c := NewWithGenerator(Config{}, &fakeGenerator{reply: ""})

	reply, err := c.GetAdvice(context.Background(), "hi", nil, sampleData())
	require.NoError(t, err)
	assert.Empty(t, reply)
}

func TestGetAdvice_MissingAPIKey(t *testing.T) {
	c, err := New(context.Background(), Config{})
	require.NoError(t, err)
	assert.False(t, c.Configured())

	_, err = c.GetAdvice(context.Background(), "hi", nil, sampleData())
	assert.ErrorIs(t, err, ErrMissingAPIKey)
	assert.NotErrorIs(t, err, ErrServiceUnavailable)
}

func TestGetAdvice_ServiceFailure(t *testing.T) {
	c := NewWithGenerator(Config{}, &fakeGenerator{err: errors.New("503 overloaded")})

	_, err := c.GetAdvice(context.Background(), "hi", nil, sampleData())
	assert.ErrorIs(t, err, ErrServiceUnavailable)
	assert.Contains(t, err.Error(), "503 overloaded")
}

func TestGetAdvice_KeepsCauseOfFailure(t *testing.T) {
	tests := []struct {
		name  string
		cause error
	}{
		{"canceled", context.Canceled},
		{"deadline", context.DeadlineExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewWithGenerator(Config{}, &fakeGenerator{err: fmt.Errorf("post: %w", tt.cause)})

			_, err := c.GetAdvice(context.Background(), "hi", nil, sampleData())
			assert.ErrorIs(t, err, ErrServiceUnavailable)
			assert.ErrorIs(t, err, tt.cause)
		})
	}
}

func TestNewWithGenerator_DefaultModel(t *testing.T) {
	assert.Equal(t, DefaultModel, NewWithGenerator(Config{}, nil).Model())
	assert.Equal(t, "gemini-custom", NewWithGenerator(Config{Model: "gemini-custom"}, nil).Model())
}

func TestNewWithGenerator_CustomTemperature(t *testing.T) {
	gen := &fakeGenerator{reply: "ok"}
	temp := float32(0.2)
	c := NewWithGenerator(Config{Temperature: &temp}, gen)

	_, err := c.GetAdvice(context.Background(), "hi", nil, sampleData())
	require.NoError(t, err)
	assert.InDelta(t, 0.2, *gen.config.Temperature, 1e-6)
}

func TestBuildSystemInstruction(t *testing.T) {
	got := BuildSystemInstruction(sampleData())

	assert.Contains(t, got, "You are Nova, an expert financial advisor for NovaBank customers.")
	assert.Contains(t, got, "- Balance: $12450.00")
	assert.Contains(t, got, "- Recent Transactions: Starbucks Coffee: -12.5 (Food & Drink), Monthly Salary Deposit: 4500 (Income)")
	assert.Contains(t, got, "Do NOT ask for account numbers, passwords, or PINs.")
}

func TestBuildSystemInstruction_LimitsTransactions(t *testing.T) {
	data := AccountData{Balance: decimal.Zero}
	for i := 0; i < 8; i++ {
		data.RecentTransactions = append(data.RecentTransactions, domain.Transaction{
			Description: "tx" + string(rune('a'+i)),
			Category:    "c",
			Amount:      decimal.NewFromInt(-1),
			Type:        domain.Debit,
		})
	}

	got := BuildSystemInstruction(data)

	assert.Contains(t, got, "txe: -1 (c)")
	assert.NotContains(t, got, "txf")
	assert.Equal(t, 4, strings.Count(got, "), "))
	assert.Contains(t, got, "- Balance: $0.00")
}

func TestBuildSystemInstruction_NoTransactions(t *testing.T) {
	got := BuildSystemInstruction(AccountData{Balance: decimal.RequireFromString("10.5")})
	assert.Contains(t, got, "- Balance: $10.50")
	assert.Contains(t, got, "- Recent Transactions: \n")
}
