package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"resume-pipeline/internal/llm"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-2.0-flash"
	adcScope       = "https://www.googleapis.com/auth/generative-language"
)

// fallbackModels are tried in order when the configured model is unknown to the API.
var fallbackModels = []string{"gemini-2.0-flash-001", "gemini-2.5-flash", "gemini-flash-latest"}

// Options configures the Gemini completer.
type Options struct {
	APIKey string
	// UseADC authenticates with Google application default credentials instead of an API key.
	UseADC  bool
	Model   string
	Timeout time.Duration
	BaseURL string
	// HTTPClient overrides the transport; Timeout is applied on top of it.
	HTTPClient *http.Client
}

// Client implements llm.Completer against the Gemini generateContent REST API.
type Client struct {
	baseURL    string
	apiKey     string
	models     []string
	httpClient *http.Client
}

// NewClient constructs a Gemini client. With UseADC the HTTP client carries an
// OAuth2 bearer token from the default credential chain.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	if !opts.UseADC && strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required unless GEMINI_USE_ADC is set")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if opts.UseADC {
		ts, err := google.DefaultTokenSource(ctx, adcScope)
		if err != nil {
			return nil, fmt.Errorf("gemini default credentials: %w", err)
		}
		httpClient = oauthClient(httpClient, ts)
	}
	httpClient.Timeout = timeout

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}

	return &Client{
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(opts.APIKey),
		models:     modelChain(model),
		httpClient: httpClient,
	}, nil
}

func oauthClient(base *http.Client, ts oauth2.TokenSource) *http.Client {
	transport := base.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &http.Client{
		Transport: &oauth2.Transport{Source: ts, Base: transport},
	}
}

func modelChain(primary string) []string {
	out := []string{primary}
	for _, m := range fallbackModels {
		if m != primary {
			out = append(out, m)
		}
	}
	return out
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

var errModelNotFound = errors.New("gemini model not found")

// Complete sends one generateContent request. It only moves to a fallback model
// when the API reports the model itself as unknown.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(generateRequest{
		Contents:         []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{Temperature: 0.1, ResponseMimeType: "application/json"},
	})
	if err != nil {
		return "", err
	}

	var lastErr error
	for _, model := range c.models {
		text, err := c.generate(ctx, model, payload)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !errors.Is(err, errModelNotFound) {
			return "", err
		}
		log.Printf("gemini model=%s not found, trying next", model)
	}
	return "", lastErr
}

func (c *Client) generate(ctx context.Context, model string, payload []byte) (string, error) {
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(model))
	if c.apiKey != "" {
		endpoint += "?key=" + url.QueryEscape(c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return "", fmt.Errorf("gemini request timeout: %w", err)
		}
		return "", fmt.Errorf("gemini request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("%w: %s", errModelNotFound, model)
	}

	var parsed generateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		if resp.StatusCode >= 400 {
			return "", fmt.Errorf("gemini http status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}
		return "", fmt.Errorf("gemini response parse: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("gemini http status %d: %s (%s)", resp.StatusCode, parsed.Error.Message, parsed.Error.Status)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("gemini http status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", llm.ErrEmptyCompletion
	}

	var sb strings.Builder
	for _, p := range parsed.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", llm.ErrEmptyCompletion
	}
	log.Printf("llm response provider=gemini model=%s finish=%s chars=%d", model, parsed.Candidates[0].FinishReason, len(text))
	return text, nil
}

var _ llm.Completer = (*Client)(nil)
