package classifier_client

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
)

// Client is a client for the external larva detection service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Detection represents a single detected object in the response.
type Detection struct {
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
}

// DetectResponse represents the detection result for one image.
type DetectResponse struct {
	Predictions []Detection `json:"predictions"`
}

// Summary holds the parsed counts derived from a detection response.
type Summary struct {
	TotalObjects   int
	TotalLarvae    int
	TotalNonLarvae int
	AvgConfidence  float64
}

// NewClient creates a new detection service client. The timeout bounds the
// whole request; per-call contexts may shorten it further.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Detect sends the image bytes to the detection endpoint and returns the
// parsed response together with the raw payload for audit storage.
func (c *Client) Detect(ctx context.Context, filename string, imageData []byte) (*DetectResponse, []byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("image", filename)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, nil, fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	url := c.baseURL + "/detect"
	if c.apiKey != "" {
		url += "?api_key=" + c.apiKey
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, &buf)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("detection service returned status %d: %s", resp.StatusCode, string(body))
	}

	var result DetectResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, body, nil
}

// Parse derives the count summary from a detection response. Classes named
// "larva" or "jentik" count as larvae, everything else as non-larvae.
func Parse(resp *DetectResponse) Summary {
	var s Summary
	var confidenceSum float64

	for _, det := range resp.Predictions {
		s.TotalObjects++
		confidenceSum += det.Confidence

		class := strings.ToLower(det.Class)
		if strings.Contains(class, "larva") || strings.Contains(class, "jentik") {
			s.TotalLarvae++
		} else {
			s.TotalNonLarvae++
		}
	}

	if s.TotalObjects > 0 {
		s.AvgConfidence = confidenceSum / float64(s.TotalObjects)
	}
	return s
}
