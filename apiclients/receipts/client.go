// Package receipts is a client for the external receipt
// data-extraction service, used to prefill payment details from an
// uploaded receipt image or PDF. Extraction is strictly best effort:
// callers log and ignore failures rather than blocking the business
// operation that triggered the call.
package receipts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/go-querystring/query"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/moyshiginzburg/atelier/config"
)

// ErrDisabled is returned by NewClient when no service URL is
// configured.
var ErrDisabled = errors.New("receipt extraction is not configured")

// requestTimeout bounds a single extraction call.
const requestTimeout = 30 * time.Second

// Client makes authenticated calls to the extraction service. The
// OAuth2 client-credentials flow handles token acquisition and
// refresh transparently.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *log.Logger
}

// NewClient returns a Client from the receipts configuration, or
// ErrDisabled when the service URL is unset.
func NewClient(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Client, error) {
	if cfg.Receipts.URL == "" {
		return nil, ErrDisabled
	}
	cc := clientcredentials.Config{
		ClientID:     cfg.Receipts.ClientID,
		ClientSecret: cfg.Receipts.ClientSecret,
		TokenURL:     cfg.Receipts.TokenURL,
	}
	httpClient := cc.Client(ctx)
	httpClient.Timeout = requestTimeout
	return &Client{
		httpClient: httpClient,
		baseURL:    cfg.Receipts.URL,
		logger:     logger,
	}, nil
}

// ExtractQuery carries the query options for an extraction call.
type ExtractQuery struct {
	Filename string `url:"filename"`
	Language string `url:"lang,omitempty"`
}

// ExtractedReceipt is the data the service read from a receipt. Any
// field the service could not determine is left at its zero value.
type ExtractedReceipt struct {
	Vendor    string  `json:"vendor"`
	Amount    float64 `json:"amount"`
	Date      string  `json:"date"`
	Reference string  `json:"reference"`
}

// Extract submits receipt bytes for extraction and returns the fields
// the service recognised.
func (c *Client) Extract(ctx context.Context, q ExtractQuery, receipt []byte) (*ExtractedReceipt, error) {
	values, err := query.Values(q)
	if err != nil {
		return nil, fmt.Errorf("could not encode query: %w", err)
	}
	requestURL := fmt.Sprintf("%s/v1/extract?%s", c.baseURL, values.Encode())
	c.logger.Debug("receipt extraction request", "url", requestURL, "bytes", len(receipt))

	req, err := c.newRequest(ctx, "POST", requestURL, receipt)
	if err != nil {
		return nil, err
	}
	var extracted ExtractedReceipt
	if err := c.do(req, &extracted); err != nil {
		return nil, fmt.Errorf("extraction call failed: %w", err)
	}
	return &extracted, nil
}

// newRequest is a helper to create a new HTTP request with common
// headers.
func (c *Client) newRequest(ctx context.Context, method, url string, body []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, readerFor(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do executes a request and decodes the JSON response into v.
func (c *Client) do(req *http.Request, v any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}
	if v != nil {
		return json.Unmarshal(body, v)
	}
	return nil
}
