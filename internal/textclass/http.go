package textclass

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
)

const maxResponseBytes = 1 << 20

// HTTPClassifier calls a hosted inference endpoint with the common
// text-classification wire shape: POST {"inputs": text}, response
// [[{"label": ..., "score": ...}, ...]] (or the un-nested variant).
type HTTPClassifier struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPClassifier creates a classifier client for one endpoint.
func NewHTTPClassifier(baseURL, apiKey string, timeout time.Duration) *HTTPClassifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPClassifier{
		baseURL: baseURL,
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *HTTPClassifier) Classify(ctx context.Context, text string) ([]Prediction, error) {
	var preds []Prediction
	err := retry.Do(
		func() error {
			var err error
			preds, err = c.classifyOnce(ctx, text)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(150*time.Millisecond),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}
	return preds, nil
}

func (c *HTTPClassifier) classifyOnce(ctx context.Context, text string) ([]Prediction, error) {
	payload, err := json.Marshal(map[string]string{"inputs": text})
	if err != nil {
		return nil, fmt.Errorf("marshal classify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create classify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call classifier: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read classifier response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("classifier status %d: %s", resp.StatusCode, truncate(body, 200))
	}

	return decodePredictions(body)
}

// decodePredictions accepts both [[{label,score}]] and [{label,score}]
// shapes; hosted inference APIs disagree on the nesting.
func decodePredictions(body []byte) ([]Prediction, error) {
	var nested [][]Prediction
	if err := json.Unmarshal(body, &nested); err == nil {
		if len(nested) == 0 {
			return nil, nil
		}
		return nested[0], nil
	}

	var flat []Prediction
	if err := json.Unmarshal(body, &flat); err == nil {
		return flat, nil
	}

	return nil, fmt.Errorf("unrecognized classifier response: %s", truncate(body, 200))
}

func truncate(b []byte, max int) string {
	if len(b) <= max {
		return string(b)
	}
	return string(b[:max]) + "..."
}
