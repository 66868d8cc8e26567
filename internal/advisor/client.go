package advisor

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/nova-bank/internal/domain"
	"github.com/dvloznov/nova-bank/internal/logger"
	"google.golang.org/genai"
)

const (
	// DefaultModel is the Gemini model used when Config.Model is empty.
	DefaultModel = "gemini-2.5-flash"
	// DefaultTemperature is used when Config.Temperature is nil.
	DefaultTemperature float32 = 0.7
)

var (
	// ErrMissingAPIKey is returned by GetAdvice when no API key was configured.
	ErrMissingAPIKey = errors.New("advisor: API key is missing")
	// ErrServiceUnavailable wraps every failure of the remote model call.
	ErrServiceUnavailable = errors.New("advisor: service unavailable")
)

// ContentGenerator is the slice of the genai API the advisor needs.
// *genai.Models satisfies it.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Config holds the advisor settings.
type Config struct {
	APIKey      string
	Model       string
	Temperature *float32
}

// Client asks Gemini for financial advice. It holds no conversation state.
type Client struct {
	model       string
	temperature float32
	generator   ContentGenerator
}

// New creates a Client backed by the Gemini API. An empty APIKey is not an
// error here: the client is returned unconfigured and GetAdvice reports
// ErrMissingAPIKey.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return NewWithGenerator(cfg, nil), nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("advisor: create genai client: %w", err)
	}
	return NewWithGenerator(cfg, client.Models), nil
}

// NewWithGenerator creates a Client around an existing generator. A nil
// generator leaves the client unconfigured.
func NewWithGenerator(cfg Config, generator ContentGenerator) *Client {
	c := &Client{
		model:       cfg.Model,
		temperature: DefaultTemperature,
		generator:   generator,
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if cfg.Temperature != nil {
		c.temperature = *cfg.Temperature
	}
	return c
}

// Model returns the Gemini model requests are sent to.
func (c *Client) Model() string {
	return c.model
}

// Configured reports whether the client can reach the model.
func (c *Client) Configured() bool {
	return c.generator != nil
}

// GetAdvice sends the prior turns followed by userMessage and returns the
// model's reply text. The reply may be empty.
func (c *Client) GetAdvice(ctx context.Context, userMessage string, history []domain.Turn, data AccountData) (string, error) {
	if c.generator == nil {
		return "", ErrMissingAPIKey
	}

	log := logger.FromContext(ctx)

	contents := make([]*genai.Content, 0, len(history)+1)
	for _, turn := range history {
		contents = append(contents, genai.NewContentFromText(turn.Text, genaiRole(turn.Role)))
	}
	contents = append(contents, genai.NewContentFromText(userMessage, genai.RoleUser))

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(BuildSystemInstruction(data), genai.RoleUser),
		Temperature:       genai.Ptr(c.temperature),
	}

	resp, err := c.generator.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		log.Error().Err(err).Str("model", c.model).Msg("Gemini request failed")
		return "", fmt.Errorf("%w: generate content: %w", ErrServiceUnavailable, err)
	}
	if resp == nil {
		return "", nil
	}

	reply := resp.Text()
	log.Debug().
		Str("model", c.model).
		Int("history_turns", len(history)).
		Int("reply_length", len(reply)).
		Msg("Advice generated")
	return reply, nil
}

func genaiRole(role domain.Role) genai.Role {
	if role == domain.RoleModel {
		return genai.RoleModel
	}
	return genai.RoleUser
}
