package imagemod

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
)

const maxResponseBytes = 1 << 20

// SightengineClient calls the Sightengine check endpoint.
type SightengineClient struct {
	baseURL   string
	apiUser   string
	apiSecret string
	models    []string
	client    *http.Client
}

// NewSightengineClient creates a Sightengine client. Credentials are
// injected at construction; nothing here reads process-wide state.
func NewSightengineClient(baseURL, apiUser, apiSecret string, models []string, timeout time.Duration) *SightengineClient {
	if baseURL == "" {
		baseURL = "https://api.sightengine.com/1.0/check.json"
	}
	if len(models) == 0 {
		models = []string{"nudity", "weapon", "violence", "gore", "offensive"}
	}
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &SightengineClient{
		baseURL:   baseURL,
		apiUser:   apiUser,
		apiSecret: apiSecret,
		models:    models,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Moderate uploads the image and returns the decoded response map.
func (c *SightengineClient) Moderate(ctx context.Context, image []byte) (map[string]any, error) {
	var result map[string]any
	err := retry.Do(
		func() error {
			var err error
			result, err = c.moderateOnce(ctx, image)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(200*time.Millisecond),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *SightengineClient) moderateOnce(ctx context.Context, image []byte) (map[string]any, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("media", "upload.jpg")
	if err != nil {
		return nil, fmt.Errorf("create media part: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, fmt.Errorf("write media part: %w", err)
	}
	fields := map[string]string{
		"models":     strings.Join(c.models, ","),
		"api_user":   c.apiUser,
		"api_secret": c.apiSecret,
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("write %s field: %w", k, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, &body)
	if err != nil {
		return nil, fmt.Errorf("create moderation request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call moderation: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read moderation response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("moderation status %d", resp.StatusCode)
	}

	var parsed map[string]any
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode moderation response: %w", err)
	}
	if status, _ := parsed["status"].(string); status == "failure" {
		return nil, fmt.Errorf("moderation request rejected: %v", parsed["error"])
	}
	return parsed, nil
}
