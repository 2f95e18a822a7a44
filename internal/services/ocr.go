package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// OCRClient is the boundary to the external handwriting OCR server. The
// server rasterizes, segments and recognizes the script; recognized text
// may contain "[DIAGRAM DETECTED]" markers where the server found figures.
type OCRClient interface {
	Health(ctx context.Context) error
	Recognize(ctx context.Context, pdfPath string) (string, error)
}

type ocrClient struct {
	url       string
	healthURL string
	client    *http.Client
}

func NewOCRClient(url, healthURL string, timeout time.Duration) OCRClient {
	return &ocrClient{
		url:       url,
		healthURL: healthURL,
		client:    &http.Client{Timeout: timeout},
	}
}

type ocrRequest struct {
	Path string `json:"path"`
}

type ocrResponse struct {
	Results []string `json:"results"`
	Error   string   `json:"error"`
}

// Health implements OCRClient.
func (c *ocrClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.healthURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create health request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("ocr server unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ocr server not ready: %s", resp.Status)
	}

	return nil
}

// Recognize implements OCRClient.
func (c *ocrClient) Recognize(ctx context.Context, pdfPath string) (string, error) {
	body, err := json.Marshal(ocrRequest{Path: pdfPath})
	if err != nil {
		return "", fmt.Errorf("failed to marshal ocr request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create ocr request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ocr request failed: %w", err)
	}
	defer resp.Body.Close()

	var parsed ocrResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode ocr response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if parsed.Error != "" {
			return "", fmt.Errorf("ocr server error: %s", parsed.Error)
		}
		return "", fmt.Errorf("ocr server returned %s", resp.Status)
	}
	if parsed.Error != "" {
		return "", fmt.Errorf("ocr server error: %s", parsed.Error)
	}

	return strings.Join(parsed.Results, "\n"), nil
}
