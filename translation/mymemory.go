package translation

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/bytedance/sonic"
)

const maxResponseBytes = 1 << 20

// MyMemoryClient translates through the MyMemory HTTP API.
type MyMemoryClient struct {
	baseURL string
	source  string
	email   string
	http    *http.Client
}

type myMemoryResponse struct {
	ResponseData *struct {
		TranslatedText string `json:"translatedText"`
	} `json:"responseData"`
}

// NewMyMemoryClient creates a MyMemoryClient.
func NewMyMemoryClient(cfg *Config) *MyMemoryClient {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	source := cfg.SourceLanguage
	if source == "" {
		source = DefaultSourceLanguage
	}

	return &MyMemoryClient{
		baseURL: strings.TrimRight(base, "/"),
		source:  source,
		email:   cfg.Email,
		http:    &http.Client{Timeout: cfg.Timeout()},
	}
}

func (c *MyMemoryClient) Translate(ctx context.Context, text, targetLang string) string {
	out, _ := c.TranslateOutcome(ctx, text, targetLang)
	return out
}

func (c *MyMemoryClient) TranslateOutcome(ctx context.Context, text, targetLang string) (string, Outcome) {
	if strings.TrimSpace(text) == "" {
		return text, OutcomeUnchanged
	}

	translated, err := c.fetch(ctx, text, targetLang)
	if err != nil {
		return text, OutcomeFallback
	}
	if translated == text {
		return text, OutcomeUnchanged
	}
	return translated, OutcomeTranslated
}

func (c *MyMemoryClient) fetch(ctx context.Context, text, targetLang string) (string, error) {
	params := url.Values{}
	params.Set("q", text)
	params.Set("langpair", c.source+"|"+targetLang)
	if c.email != "" {
		params.Set("de", c.email)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/get?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &statusError{code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", err
	}

	var decoded myMemoryResponse
	if err := sonic.Unmarshal(body, &decoded); err != nil {
		return "", err
	}
	if decoded.ResponseData == nil || decoded.ResponseData.TranslatedText == "" {
		return "", ErrNoTranslation
	}

	return decoded.ResponseData.TranslatedText, nil
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("translation service returned HTTP %d", e.code)
}
