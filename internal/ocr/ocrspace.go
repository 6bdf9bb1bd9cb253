package ocr

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

// SpaceClient calls the OCR.Space parse endpoint.
type SpaceClient struct {
	baseURL  string
	apiKey   string
	language string
	client   *http.Client
}

// NewSpaceClient creates an OCR.Space client.
func NewSpaceClient(baseURL, apiKey, language string, timeout time.Duration) *SpaceClient {
	if baseURL == "" {
		baseURL = "https://api.ocr.space/parse/image"
	}
	if language == "" {
		language = "eng"
	}
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &SpaceClient{
		baseURL:  baseURL,
		apiKey:   apiKey,
		language: language,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

type spaceResponse struct {
	ParsedResults []struct {
		ParsedText string `json:"ParsedText"`
	} `json:"ParsedResults"`
	IsErroredOnProcessing bool `json:"IsErroredOnProcessing"`
	ErrorMessage          any  `json:"ErrorMessage"`
}

// Extract uploads the image and returns the parsed text. Transient
// failures are retried with short backoff; persistent failure returns
// an error for the pipeline to degrade to empty text.
func (c *SpaceClient) Extract(ctx context.Context, image []byte) (string, error) {
	var text string
	err := retry.Do(
		func() error {
			var err error
			text, err = c.extractOnce(ctx, image)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(200*time.Millisecond),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return "", err
	}
	return text, nil
}

func (c *SpaceClient) extractOnce(ctx context.Context, image []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", "upload.jpg")
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return "", fmt.Errorf("write image part: %w", err)
	}
	if err := mw.WriteField("apikey", c.apiKey); err != nil {
		return "", fmt.Errorf("write apikey field: %w", err)
	}
	if err := mw.WriteField("language", c.language); err != nil {
		return "", fmt.Errorf("write language field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, &body)
	if err != nil {
		return "", fmt.Errorf("create ocr request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call ocr: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("ocr status %d", resp.StatusCode)
	}

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read ocr response: %w", err)
	}

	var parsed spaceResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("decode ocr response: %w", err)
	}
	if parsed.IsErroredOnProcessing {
		return "", fmt.Errorf("ocr processing error: %v", parsed.ErrorMessage)
	}
	if len(parsed.ParsedResults) == 0 {
		return "", nil
	}
	return strings.TrimSpace(parsed.ParsedResults[0].ParsedText), nil
}
