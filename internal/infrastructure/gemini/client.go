package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/motospec/backend/internal/domain"
	"github.com/motospec/backend/internal/usecase"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const maxAttempts = 3

// Config holds Gemini client settings
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	// RequestsPerMinute bounds outgoing calls; burst is a fifth of it.
	RequestsPerMinute int
}

// Client fetches motorcycle specification records from the Gemini generateContent
// API with Google Search grounding.
type Client struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	model       string
	rateLimiter *rate.Limiter
	backoff     func(attempt int) time.Duration
	logger      zerolog.Logger
}

// NewClient creates a new Gemini API client
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 10
	}
	burst := cfg.RequestsPerMinute / 5
	if burst < 1 {
		burst = 1
	}

	return &Client{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		model:       cfg.Model,
		rateLimiter: rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60), burst),
		backoff:     exponentialBackoff,
		logger:      logger,
	}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type tool struct {
	GoogleSearch *struct{} `json:"google_search,omitempty"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
	Tools    []tool    `json:"tools,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Text concatenates the text parts of the first candidate.
func (r *generateResponse) Text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String()
}

// FetchRecord asks the model for the full specification of model/variant and decodes
// the JSON object in its answer.
func (c *Client) FetchRecord(ctx context.Context, model, variant string) (domain.Record, error) {
	text, err := c.generate(ctx, BuildPrompt(model, variant))
	if err != nil {
		return nil, err
	}

	record, err := usecase.ExtractJSONObject(text)
	if err != nil {
		c.logger.Warn().Err(err).Str("model", model).Msg("could not parse JSON from Gemini response")
		return nil, err
	}

	c.logger.Info().Str("model", model).Str("variant", variant).Int("fields", len(record)).Msg("fetched record")
	return record, nil
}

// generate calls generateContent, retrying transient failures.
func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		Tools:    []tool{{GoogleSearch: &struct{}{}}},
	})
	if err != nil {
		return "", err
	}
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("%w: %v", domain.ErrRateLimited, err)
		}

		status, respBody, err := c.doRequest(ctx, endpoint, body)
		if err != nil {
			c.logger.Warn().Err(err).Int("attempt", attempt).Msg("gemini request error")
			lastErr = err
			if !sleepCtx(ctx, c.backoff(attempt)) {
				return "", ctx.Err()
			}
			continue
		}

		if status != http.StatusOK {
			c.logger.Warn().Int("status", status).Int("attempt", attempt).Str("body", truncate(respBody, 256)).Msg("gemini API error")
			lastErr = fmt.Errorf("%w: status %d", domain.ErrFetchFailure, status)
			// client errors other than throttling will not improve on retry
			if status >= 400 && status < 500 && status != http.StatusTooManyRequests {
				return "", lastErr
			}
			if !sleepCtx(ctx, c.backoff(attempt)) {
				return "", ctx.Err()
			}
			continue
		}

		var resp generateResponse
		if err := json.Unmarshal(respBody, &resp); err != nil {
			return "", fmt.Errorf("%w: decode response: %v", domain.ErrFetchFailure, err)
		}
		text := resp.Text()
		if text == "" {
			return "", fmt.Errorf("%w: empty response", domain.ErrFetchFailure)
		}
		return text, nil
	}

	c.logger.Error().Err(lastErr).Msg("all gemini retries failed")
	return "", lastErr
}

// doRequest executes a POST with the API key header and returns status and body.
func (c *Client) doRequest(ctx context.Context, endpoint string, body []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", domain.ErrFetchFailure, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: read body: %v", domain.ErrFetchFailure, err)
	}
	return resp.StatusCode, respBody, nil
}

// exponentialBackoff returns the wait before retrying after the given attempt.
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(500*(1<<(attempt-1))) * time.Millisecond
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
