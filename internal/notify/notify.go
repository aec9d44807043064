// Package notify posts shop events to an outbound webhook. Delivery
// is fire and forget: a failed post is logged and dropped, and no
// business operation ever waits on or fails because of a
// notification.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Event kinds posted to the webhook.
const (
	KindOrderCreated    = "order_created"
	KindAgreementSigned = "agreement_signed"
	KindEventReminder   = "event_reminder"
)

// sendTimeout bounds a single webhook post.
const sendTimeout = 10 * time.Second

// Event is the payload posted to the webhook.
type Event struct {
	Kind         string  `json:"kind"`
	Message      string  `json:"message"`
	OrderID      int64   `json:"orderId,omitempty"`
	CustomerName string  `json:"customerName,omitempty"`
	EventDate    string  `json:"eventDate,omitempty"`
	Amount       float64 `json:"amount,omitempty"`
}

// Notifier posts events to a webhook URL in the background. An empty
// URL disables posting entirely; Send becomes a no-op.
type Notifier struct {
	webhookURL string
	httpClient *http.Client
	logger     *log.Logger
	wg         sync.WaitGroup
}

// New returns a Notifier for the given webhook URL.
func New(webhookURL string, logger *log.Logger) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: sendTimeout},
		logger:     logger,
	}
}

// Send posts the event to the webhook in a background goroutine.
func (n *Notifier) Send(event Event) {
	if n.webhookURL == "" {
		return
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		if err := n.post(event); err != nil {
			n.logger.Warn("webhook notification failed", "kind", event.Kind, "error", err)
		}
	}()
}

// Wait blocks until all in-flight notifications have completed. Used
// at shutdown and in tests.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

func (n *Notifier) post(event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("could not marshal event: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "POST", n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("could not build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
