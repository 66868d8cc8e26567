package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/dvloznov/nova-bank/internal/advisor"
	"github.com/dvloznov/nova-bank/internal/domain"
	"github.com/rs/zerolog"
)

const (
	// Greeting opens every conversation.
	Greeting = "Hello Alex! I'm Nova, your personalized AI financial advisor. How can I help you optimize your finances today? I can help with budgeting, saving goals, or explaining market trends."

	// EmptyReplyFallback replaces an empty model reply.
	EmptyReplyFallback = "I'm sorry, I couldn't process that request right now."

	// UnavailableFallback replaces the reply when the advisor fails.
	UnavailableFallback = "I'm having trouble connecting to my brain right now. Please ensure your environment is set up correctly."

	// DefaultMaxHistory bounds the turns sent with each request.
	DefaultMaxHistory = 20
)

var (
	ErrEmptyMessage = errors.New("chat: message is empty")
	ErrBusy         = errors.New("chat: a message is already being answered")
)

var suggestedPrompts = []string{
	"How to save $500/month?",
	"Explain compound interest",
	"Review my spending",
	"Investing for beginners",
}

// Advisor answers a message given the prior turns and the account context.
type Advisor interface {
	GetAdvice(ctx context.Context, userMessage string, history []domain.Turn, data advisor.AccountData) (string, error)
}

// AccountSource supplies the account state the advisor sees.
type AccountSource interface {
	Snapshot() domain.Snapshot
}

// Conversation is one advice session. Only one message can be in flight.
type Conversation struct {
	advisor    Advisor
	account    AccountSource
	log        zerolog.Logger
	now        func() time.Time
	maxHistory int

	mu       sync.Mutex
	messages []domain.ChatMessage
	sending  bool

	// generation changes on Reset; a reply started before it is dropped.
	generation int
}

// Option configures a Conversation.
type Option func(*Conversation)

// WithMaxHistory bounds the number of prior turns sent to the advisor.
// Values below 1 disable the bound.
func WithMaxHistory(n int) Option {
	return func(c *Conversation) { c.maxHistory = n }
}

func WithLogger(log zerolog.Logger) Option {
	return func(c *Conversation) { c.log = log }
}

func WithClock(now func() time.Time) Option {
	return func(c *Conversation) { c.now = now }
}

// NewConversation starts a conversation with the greeting.
func NewConversation(adv Advisor, account AccountSource, opts ...Option) *Conversation {
	c := &Conversation{
		advisor:    adv,
		account:    account,
		log:        zerolog.Nop(),
		now:        time.Now,
		maxHistory: DefaultMaxHistory,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.messages = []domain.ChatMessage{c.greeting()}
	return c
}

func (c *Conversation) greeting() domain.ChatMessage {
	return domain.ChatMessage{Role: domain.RoleModel, Text: Greeting, Timestamp: c.now()}
}

// Send appends text as a user message, asks the advisor and appends exactly
// one model message, which is returned. Advisor failures are logged and
// answered with a fallback message. If the conversation is reset while the
// advisor is answering, the reply is returned but not recorded.
func (c *Conversation) Send(ctx context.Context, text string) (domain.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.ChatMessage{}, ErrEmptyMessage
	}

	c.mu.Lock()
	if c.sending {
		c.mu.Unlock()
		return domain.ChatMessage{}, ErrBusy
	}
	c.sending = true
	generation := c.generation
	history := c.history()
	c.messages = append(c.messages, domain.ChatMessage{Role: domain.RoleUser, Text: text, Timestamp: c.now()})
	c.mu.Unlock()

	snap := c.account.Snapshot()
	reply, err := c.advisor.GetAdvice(ctx, text, history, advisor.AccountData{
		Balance:            snap.Balance,
		RecentTransactions: snap.Transactions,
	})
	switch {
	case err != nil:
		c.log.Error().Err(err).Msg("Advice request failed")
		reply = UnavailableFallback
	case reply == "":
		reply = EmptyReplyFallback
	}

	msg := domain.ChatMessage{Role: domain.RoleModel, Text: reply, Timestamp: c.now()}

	c.mu.Lock()
	if c.generation == generation {
		c.messages = append(c.messages, msg)
	}
	c.sending = false
	c.mu.Unlock()

	return msg, nil
}

// history must be called with mu held.
func (c *Conversation) history() []domain.Turn {
	msgs := c.messages
	if c.maxHistory > 0 && len(msgs) > c.maxHistory {
		msgs = msgs[len(msgs)-c.maxHistory:]
	}
	turns := make([]domain.Turn, 0, len(msgs))
	for _, m := range msgs {
		turns = append(turns, m.Turn())
	}
	return turns
}

// Messages returns a copy of the conversation so far.
func (c *Conversation) Messages() []domain.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.ChatMessage, len(c.messages))
	copy(out, c.messages)
	return out
}

// Pending reports whether a message is being answered.
func (c *Conversation) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sending
}

// Reset drops everything but a fresh greeting. A reply still in flight is
// discarded when it arrives.
func (c *Conversation) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.messages = []domain.ChatMessage{c.greeting()}
}

// SuggestedPrompts returns the quick prompts offered by the advice view.
func SuggestedPrompts() []string {
	out := make([]string, len(suggestedPrompts))
	copy(out, suggestedPrompts)
	return out
}
