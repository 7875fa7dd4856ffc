package server

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/avior/policyvault/internal/models"
)

// Webhook event types.
const (
	EventVersionAdvanced = "document.version_advanced"
	EventApproved        = "document.approved"
	EventRetired         = "document.retired"
	EventRolledBack      = "document.rolled_back"
)

// WebhookEvent is the payload delivered to configured webhook URLs.
type WebhookEvent struct {
	Event      string    `json:"event"`
	DocumentID string    `json:"document_id"`
	Reference  string    `json:"reference"`
	Title      string    `json:"title"`
	Version    string    `json:"version"`
	Status     string    `json:"status"`
	Actor      string    `json:"actor"`
	Timestamp  time.Time `json:"timestamp"`
}

// WebhookNotifier delivers document events to configured URLs. Deliveries
// run in the background and failures are logged, never surfaced to the
// request that triggered them.
type WebhookNotifier struct {
	urls   []string
	client *http.Client
	logger *slog.Logger
	wg     sync.WaitGroup
}

func NewWebhookNotifier(urls []string, logger *slog.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		urls:   urls,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

// Notify dispatches an event for a document to all configured URLs.
func (n *WebhookNotifier) Notify(event string, doc *models.Document, actor string) {
	if n == nil || len(n.urls) == 0 {
		return
	}

	payload := WebhookEvent{
		Event:      event,
		DocumentID: doc.ID,
		Reference:  doc.Ref(),
		Title:      doc.Title,
		Version:    doc.Version,
		Status:     string(doc.Status),
		Actor:      actor,
		Timestamp:  time.Now().UTC(),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		n.logger.Error("webhook marshal failed", "error", err)
		return
	}

	for _, url := range n.urls {
		n.wg.Add(1)
		go func(url string) {
			defer n.wg.Done()
			n.deliver(url, body)
		}(url)
	}
}

func (n *WebhookNotifier) deliver(url string, body []byte) {
	resp, err := n.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		n.logger.Warn("webhook delivery failed", "url", url, "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		n.logger.Warn("webhook delivery rejected", "url", url, "status", resp.StatusCode)
	}
}

// Wait blocks until all in-flight deliveries finish. Used during shutdown.
func (n *WebhookNotifier) Wait() {
	if n == nil {
		return
	}
	n.wg.Wait()
}
