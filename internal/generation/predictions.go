package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Prediction states.
const (
	PredictionStarting   = "starting"
	PredictionProcessing = "processing"
	PredictionSucceeded  = "succeeded"
	PredictionFailed     = "failed"
	PredictionCanceled   = "canceled"
)

// Prediction is one asynchronous model invocation.
type Prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  any             `json:"error"`
}

// Done reports whether the prediction reached a terminal state.
func (p *Prediction) Done() bool {
	switch p.Status {
	case PredictionSucceeded, PredictionFailed, PredictionCanceled:
		return true
	}
	return false
}

// PredictionClient talks to a prediction-style model API: create a
// prediction for a model, then poll it until it finishes.
type PredictionClient struct {
	baseURL      string
	token        string
	http         *http.Client
	pollInterval time.Duration
	retry        RetryConfig
	limiter      *rate.Limiter
	logger       *slog.Logger
}

// NewPredictionClient creates a client. A nil httpClient uses a client
// with the configured timeout.
func NewPredictionClient(cfg *Config, httpClient *http.Client, logger *slog.Logger) *PredictionClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.TimeoutDuration()}
	}
	return &PredictionClient{
		baseURL:      strings.TrimRight(cfg.PredictionsURL, "/"),
		token:        cfg.PredictionsToken,
		http:         httpClient,
		pollInterval: cfg.PollIntervalDuration(),
		retry:        cfg.Retry(),
		limiter:      rate.NewLimiter(rate.Limit(cfg.RequestRate), cfg.RequestBurst),
		logger:       logger.With("client", "predictions"),
	}
}

// Run creates a prediction on model ("owner/name") with input, waits for
// it to finish, and returns its output URLs.
func (c *PredictionClient) Run(ctx context.Context, model string, input map[string]any) ([]string, error) {
	if c.token == "" {
		return nil, fmt.Errorf("%w: predictions token", ErrNotConfigured)
	}

	pred, err := c.create(ctx, model, input)
	if err != nil {
		return nil, err
	}

	c.logger.DebugContext(ctx, "prediction created", "id", pred.ID, "model", model)

	for !pred.Done() {
		timer := time.NewTimer(c.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		if pred, err = c.get(ctx, pred.ID); err != nil {
			return nil, err
		}
	}

	if pred.Status != PredictionSucceeded {
		return nil, fmt.Errorf("%w: %s: %v", ErrPredictionFailed, pred.Status, pred.Error)
	}

	urls, err := OutputURLs(pred.Output)
	if err != nil {
		return nil, err
	}

	c.logger.InfoContext(ctx, "prediction succeeded", "id", pred.ID, "model", model, "outputs", len(urls))
	return urls, nil
}

func (c *PredictionClient) create(ctx context.Context, model string, input map[string]any) (*Prediction, error) {
	body, err := json.Marshal(map[string]any{"input": input})
	if err != nil {
		return nil, fmt.Errorf("encode input: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s/predictions", c.baseURL, model)
	return withRetry(ctx, c.retry, func() (*Prediction, error) {
		return c.do(ctx, http.MethodPost, url, body)
	})
}

func (c *PredictionClient) get(ctx context.Context, id string) (*Prediction, error) {
	url := fmt.Sprintf("%s/predictions/%s", c.baseURL, id)
	return withRetry(ctx, c.retry, func() (*Prediction, error) {
		return c.do(ctx, http.MethodGet, url, nil)
	})
}

func (c *PredictionClient) do(ctx context.Context, method, url string, body []byte) (*Prediction, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	var pred Prediction
	if err := json.NewDecoder(resp.Body).Decode(&pred); err != nil {
		return nil, fmt.Errorf("decode prediction: %w", err)
	}
	return &pred, nil
}

// OutputURLs extracts asset URLs from a model output, which may be a
// string, an array of strings, or an object with a url field.
func OutputURLs(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, ErrNoOutput
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		if single == "" {
			return nil, ErrNoOutput
		}
		return []string{single}, nil
	}

	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		out := make([]string, 0, len(many))
		for _, u := range many {
			if u != "" {
				out = append(out, u)
			}
		}
		if len(out) == 0 {
			return nil, ErrNoOutput
		}
		return out, nil
	}

	var obj struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.URL != "" {
		return []string{obj.URL}, nil
	}

	return nil, fmt.Errorf("%w: unrecognized output %s", ErrNoOutput, truncate(string(raw), 120))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
