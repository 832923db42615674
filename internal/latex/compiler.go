package latex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"strings"
	"time"

	"resume-pipeline/internal/shared/metrics"
	"resume-pipeline/internal/shared/telemetry"
)

const (
	DefaultBaseURL     = "https://latex.ytotech.com"
	defaultTimeout     = 60 * time.Second
	defaultMaxAttempts = 3
	defaultBaseDelay   = time.Second
	maxResponseBytes   = 32 << 20
	maxDiagnostics     = 6
	maxStatusBodyChars = 200
)

// ErrCompilationFailed matches every compile failure, rejected or exhausted.
var ErrCompilationFailed = errors.New("latex compilation failed")

var errEmptyBody = errors.New("compile service returned an empty body")

// CompileError carries the compiler's own diagnostic for rejected sources.
type CompileError struct {
	StatusCode int
	Body       string
}

// Error leads with the TeX error lines so they survive when the message is
// truncated for storage; the full body follows.
func (e *CompileError) Error() string {
	if diag := e.Diagnostics(); len(diag) > 0 {
		return fmt.Sprintf("latex compilation failed (status %d): %s | %s", e.StatusCode, strings.Join(diag, " "), e.Body)
	}
	return fmt.Sprintf("latex compilation failed (status %d): %s", e.StatusCode, e.Body)
}

// Diagnostics returns the "! ..." error lines of the TeX log, each followed by
// its "l.<n>" context line when present.
func (e *CompileError) Diagnostics() []string {
	var out []string
	for _, text := range compileLogs(e.Body) {
		lines := strings.Split(text, "\n")
		for i, line := range lines {
			line = strings.TrimSpace(line)
			if !strings.HasPrefix(line, "!") {
				continue
			}
			out = append(out, line)
			if i+1 < len(lines) {
				if next := strings.TrimSpace(lines[i+1]); strings.HasPrefix(next, "l.") {
					out = append(out, next)
				}
			}
			if len(out) >= maxDiagnostics {
				return out[:maxDiagnostics]
			}
		}
	}
	return out
}

// compileLogs pulls log text out of the service's JSON error body; any other
// body is treated as the log itself.
func compileLogs(body string) []string {
	var parsed struct {
		Logs     string            `json:"logs"`
		LogFiles map[string]string `json:"log_files"`
	}
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		return []string{body}
	}
	var logs []string
	if parsed.Logs != "" {
		logs = append(logs, parsed.Logs)
	}
	names := make([]string, 0, len(parsed.LogFiles))
	for name := range parsed.LogFiles {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		logs = append(logs, parsed.LogFiles[name])
	}
	return logs
}

func (e *CompileError) Is(target error) bool {
	return target == ErrCompilationFailed
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Options configures the remote compiler client.
type Options struct {
	BaseURL string
	// Timeout bounds each attempt separately.
	Timeout     time.Duration
	MaxAttempts int
	BaseDelay   time.Duration
	HTTPClient  *http.Client
	Sleep       SleepFunc
}

// Client posts LaTeX source to a builds/sync endpoint and returns the PDF.
type Client struct {
	endpoint    string
	timeout     time.Duration
	maxAttempts int
	baseDelay   time.Duration
	httpClient  *http.Client
	sleep       SleepFunc
}

// New applies defaults for every zero option.
func New(opts Options) *Client {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	c := &Client{
		endpoint:    base + "/builds/sync",
		timeout:     opts.Timeout,
		maxAttempts: opts.MaxAttempts,
		baseDelay:   opts.BaseDelay,
		httpClient:  opts.HTTPClient,
		sleep:       opts.Sleep,
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = defaultMaxAttempts
	}
	if c.baseDelay <= 0 {
		c.baseDelay = defaultBaseDelay
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	if c.sleep == nil {
		c.sleep = sleepContext
	}
	return c
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type resource struct {
	Main    bool   `json:"main"`
	Content string `json:"content"`
}

type buildRequest struct {
	Compiler  string     `json:"compiler"`
	Resources []resource `json:"resources"`
}

// Compile retries transport failures and 5xx responses with doubling backoff.
// A 4xx the service rejects the source with is returned at once as *CompileError.
func (c *Client) Compile(ctx context.Context, source string) ([]byte, error) {
	payload, err := json.Marshal(buildRequest{
		Compiler:  "pdflatex",
		Resources: []resource{{Main: true, Content: source}},
	})
	if err != nil {
		return nil, err
	}

	delay := c.baseDelay
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		metrics.IncCompileAttempt()
		pdf, err := c.attempt(ctx, payload)
		if err == nil {
			return pdf, nil
		}
		var rejected *CompileError
		if errors.As(err, &rejected) {
			return nil, err
		}
		lastErr = err
		if ctx.Err() != nil || attempt == c.maxAttempts {
			break
		}

		telemetry.Warn("latex.retry", map[string]any{
			"attempt":  attempt,
			"delay_ms": delay.Milliseconds(),
			"error":    err.Error(),
		})
		if err := c.sleep(ctx, delay); err != nil {
			lastErr = err
			break
		}
		delay *= 2
	}
	return nil, fmt.Errorf("%w: %w", ErrCompilationFailed, lastErr)
}

func (c *Client) attempt(ctx context.Context, payload []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/pdf")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("compile request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read compile response: %w", err)
	}
	log.Printf("latex compile status=%d bytes=%d", resp.StatusCode, len(body))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			return nil, fmt.Errorf("compile service status %d with empty body", resp.StatusCode)
		}
		// 5xx comes from the service or a proxy in front of it, not from pdflatex
		if resp.StatusCode >= 500 {
			if len(msg) > maxStatusBodyChars {
				msg = msg[:maxStatusBodyChars]
			}
			return nil, fmt.Errorf("compile service status %d: %s", resp.StatusCode, msg)
		}
		return nil, &CompileError{StatusCode: resp.StatusCode, Body: msg}
	}
	if len(body) == 0 {
		return nil, errEmptyBody
	}
	return body, nil
}
