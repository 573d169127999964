package fal

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

	"github.com/beijibiao/signstudio/internal/config"
)

// Client talks to the fal.ai queue API: submit a request, poll its status,
// fetch the result.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	log        *slog.Logger
}

type GenerateOptions struct {
	Prompt    string
	ImageSize string
}

type Image struct {
	URL string
}

func NewClient(cfg config.Config, log *slog.Logger) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = time.Minute
	}

	return &Client{
		apiKey:  cfg.FalAPIKey,
		baseURL: strings.TrimRight(cfg.FalBaseURL, "/"),
		model:   cfg.FalModel,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

// Generate runs one text-to-image request through the queue and returns the
// first produced image. A completed request with zero images is an error.
func (c *Client) Generate(ctx context.Context, opts GenerateOptions) (*Image, error) {
	requestID, err := c.submit(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("submit request: %w", err)
	}
	if err := c.awaitCompletion(ctx, requestID); err != nil {
		return nil, err
	}
	return c.fetchResult(ctx, requestID)
}

func (c *Client) submit(ctx context.Context, opts GenerateOptions) (string, error) {
	payload := map[string]any{
		"prompt":                opts.Prompt,
		"image_size":            opts.ImageSize,
		"num_inference_steps":   4,
		"enable_safety_checker": false,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	fullURL := c.baseURL + "/" + c.model
	if c.log != nil {
		c.log.Info("submitting fal request", "url", fullURL, "image_size", opts.ImageSize)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Key "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	rawBody, status, err := c.do(req)
	if err != nil {
		return "", err
	}
	if status >= 300 {
		if c.log != nil {
			c.log.Error("fal submit failed", "status", status, "body", truncateBody(rawBody))
		}
		return "", fmt.Errorf("fal error: status=%d body=%s", status, truncateBody(rawBody))
	}

	var submitResp struct {
		RequestID string `json:"request_id"`
	}
	if err := json.Unmarshal(rawBody, &submitResp); err != nil {
		return "", fmt.Errorf("decode submit response: %w (body=%s)", err, truncateBody(rawBody))
	}
	if submitResp.RequestID == "" {
		return "", fmt.Errorf("empty request_id in response")
	}
	return submitResp.RequestID, nil
}

func (c *Client) awaitCompletion(ctx context.Context, requestID string) error {
	statusURL := fmt.Sprintf("%s/%s/requests/%s/status", c.baseURL, c.model, requestID)

	maxAttempts := 90
	pollInterval := 2 * time.Second

	for attempt := 0; attempt < maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL, nil)
		if err != nil {
			return fmt.Errorf("new request: %w", err)
		}
		req.Header.Set("Authorization", "Key "+c.apiKey)
		req.Header.Set("Accept", "application/json")

		rawBody, status, err := c.do(req)
		if err != nil {
			return err
		}
		if status >= 300 {
			if c.log != nil {
				c.log.Error("fal status poll failed", "status", status, "body", truncateBody(rawBody))
			}
			return fmt.Errorf("fal error: status=%d body=%s", status, truncateBody(rawBody))
		}

		var statusResp struct {
			Status string `json:"status"`
		}
		if err := json.Unmarshal(rawBody, &statusResp); err != nil {
			return fmt.Errorf("decode status response: %w (body=%s)", err, truncateBody(rawBody))
		}

		switch statusResp.Status {
		case "COMPLETED":
			if c.log != nil {
				c.log.Info("fal request completed", "request_id", requestID, "attempt", attempt+1)
			}
			return nil
		case "IN_QUEUE", "IN_PROGRESS":
			if c.log != nil && attempt%10 == 0 {
				c.log.Info("fal request pending", "request_id", requestID, "status", statusResp.Status, "attempt", attempt+1)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(pollInterval):
			}
		default:
			return fmt.Errorf("unexpected request status: %s", statusResp.Status)
		}
	}
	return fmt.Errorf("request timeout after %d attempts", maxAttempts)
}

func (c *Client) fetchResult(ctx context.Context, requestID string) (*Image, error) {
	resultURL := fmt.Sprintf("%s/%s/requests/%s", c.baseURL, c.model, requestID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resultURL, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Key "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	rawBody, status, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if status >= 300 {
		if c.log != nil {
			c.log.Error("fal fetch result failed", "status", status, "body", truncateBody(rawBody))
		}
		return nil, fmt.Errorf("fal error: status=%d body=%s", status, truncateBody(rawBody))
	}

	var result struct {
		Images []struct {
			URL string `json:"url"`
		} `json:"images"`
	}
	if err := json.Unmarshal(rawBody, &result); err != nil {
		return nil, fmt.Errorf("decode result: %w (body=%s)", err, truncateBody(rawBody))
	}
	if len(result.Images) == 0 || result.Images[0].URL == "" {
		return nil, fmt.Errorf("no images in result")
	}

	return &Image{URL: result.Images[0].URL}, nil
}

func (c *Client) do(req *http.Request) ([]byte, int, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("fal request: %w", err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read response body: %w", err)
	}
	return rawBody, resp.StatusCode, nil
}

func truncateBody(body []byte) string {
	const limit = 512
	s := strings.TrimSpace(string(body))
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
