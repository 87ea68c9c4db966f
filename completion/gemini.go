package completion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tailored-agentic-units/converse/core/protocol"
	"google.golang.org/genai"
)

// GeminiClient completes through the Gemini API.
type GeminiClient struct {
	client      *genai.Client
	temperature float32
	maxTokens   int32
}

// NewGeminiClient creates a GeminiClient. An API key is required. The
// OpenAI-compatible DefaultBaseURL is not a Gemini endpoint and is ignored;
// any other BaseURL replaces the Gemini API host.
func NewGeminiClient(ctx context.Context, cfg *Config) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	gc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: cfg.Timeout()},
	}
	if cfg.BaseURL != "" && cfg.BaseURL != DefaultBaseURL {
		gc.HTTPOptions.BaseURL = cfg.BaseURL
	}

	client, err := genai.NewClient(ctx, gc)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &GeminiClient{
		client:      client,
		temperature: cfg.Temperature,
		maxTokens:   int32(cfg.MaxTokens),
	}, nil
}

func (c *GeminiClient) Complete(ctx context.Context, window []protocol.Message, model string) (string, error) {
	var system string
	contents := make([]*genai.Content, 0, len(window))

	for _, msg := range window {
		switch msg.Role {
		case protocol.RoleSystem:
			system = msg.Content
		case protocol.RoleUser:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		case protocol.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			return "", &Error{Kind: KindMalformed, Err: fmt.Errorf("%w: %q", ErrUnsupportedRole, msg.Role)}
		}
	}

	temp := c.temperature
	cfg := &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: c.maxTokens,
	}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	res, err := c.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return "", classifyGemini(err)
	}

	text := res.Text()
	if text == "" {
		return "", &Error{Kind: KindMalformed, Err: ErrEmptyReply}
	}

	return text, nil
}

func (c *GeminiClient) ListModels(ctx context.Context) ([]string, error) {
	var ids []string
	for model, err := range c.client.Models.All(ctx) {
		if err != nil {
			return nil, classifyGemini(err)
		}
		ids = append(ids, strings.TrimPrefix(model.Name, "models/"))
	}
	return ids, nil
}

func classifyGemini(err error) *Error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code != 0 {
		return StatusError(apiErr.Code, err)
	}

	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr.Code != 0 {
		return StatusError(apiErrPtr.Code, err)
	}

	return Classify(err)
}
