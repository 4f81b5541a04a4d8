package notification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// NotificationType represents the type of notification
type NotificationType string

const (
	NotifySignal    NotificationType = "signal"
	NotifyBatchDone NotificationType = "batch_done"
	NotifyError     NotificationType = "error"
	NotifyInfo      NotificationType = "info"
)

// Notification represents a notification message
type Notification struct {
	Type      NotificationType
	Title     string
	Message   string
	Ticker    string
	Score     int
	Timestamp time.Time
	Extra     map[string]interface{}
}

// Notifier interface for different notification providers
type Notifier interface {
	Send(notification *Notification) error
	Name() string
	IsEnabled() bool
}

// Manager manages multiple notification providers
type Manager struct {
	notifiers []Notifier
	enabled   bool
}

// NewManager creates a new notification manager
func NewManager() *Manager {
	return &Manager{
		notifiers: make([]Notifier, 0),
		enabled:   true,
	}
}

// AddNotifier adds a notification provider
func (m *Manager) AddNotifier(n Notifier) {
	m.notifiers = append(m.notifiers, n)
}

// Send sends a notification to all enabled providers
func (m *Manager) Send(notification *Notification) error {
	if !m.enabled {
		return nil
	}

	var lastErr error
	for _, n := range m.notifiers {
		if n.IsEnabled() {
			if err := n.Send(notification); err != nil {
				lastErr = err
			}
		}
	}
	return lastErr
}

// SendSignal announces a strong saved signal
func (m *Manager) SendSignal(ticker, classification string, smartScore int, entry, stop, target float64) error {
	return m.Send(&Notification{
		Type:      NotifySignal,
		Title:     fmt.Sprintf("Signal: %s [%s]", ticker, classification),
		Message:   fmt.Sprintf("%s scored %d\nEntry: %.2f | Stop: %.2f | Target: %.2f", ticker, smartScore, entry, stop, target),
		Ticker:    ticker,
		Score:     smartScore,
		Timestamp: time.Now(),
		Extra: map[string]interface{}{
			"classification": classification,
			"entry_price":    entry,
			"stop_loss":      stop,
			"target_price":   target,
		},
	})
}

// SendBatchSummary announces a completed scan batch
func (m *Manager) SendBatchSummary(batchID string, processed, saved, rejected, skipped, failed int, elapsed time.Duration) error {
	return m.Send(&Notification{
		Type:  NotifyBatchDone,
		Title: fmt.Sprintf("Scan batch complete (%s)", batchID),
		Message: fmt.Sprintf("Processed %d stocks in %s\nSaved: %d | Rejected: %d | Skipped: %d | Errors: %d",
			processed, elapsed.Round(time.Second), saved, rejected, skipped, failed),
		Timestamp: time.Now(),
		Extra: map[string]interface{}{
			"batch_id":  batchID,
			"processed": processed,
			"saved":     saved,
			"rejected":  rejected,
			"skipped":   skipped,
			"errors":    failed,
		},
	})
}

// SendError announces a failure worth a human look
func (m *Manager) SendError(title, message string) error {
	return m.Send(&Notification{
		Type:      NotifyError,
		Title:     fmt.Sprintf("Error: %s", title),
		Message:   message,
		Timestamp: time.Now(),
	})
}

// =============================================================================
// WEBHOOK NOTIFIER
// =============================================================================

// WebhookNotifier posts notifications as JSON to a configured endpoint
type WebhookNotifier struct {
	webhookURL string
	enabled    bool
	client     *http.Client
}

// WebhookConfig holds webhook configuration
type WebhookConfig struct {
	WebhookURL string
	Enabled    bool
}

// NewWebhookNotifier creates a new webhook notifier
func NewWebhookNotifier(config WebhookConfig) *WebhookNotifier {
	return &WebhookNotifier{
		webhookURL: config.WebhookURL,
		enabled:    config.Enabled && config.WebhookURL != "",
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (w *WebhookNotifier) Name() string {
	return "webhook"
}

func (w *WebhookNotifier) IsEnabled() bool {
	return w.enabled
}

func (w *WebhookNotifier) Send(notification *Notification) error {
	if !w.enabled {
		return nil
	}

	payload := map[string]interface{}{
		"type":      string(notification.Type),
		"title":     notification.Title,
		"message":   notification.Message,
		"ticker":    notification.Ticker,
		"score":     notification.Score,
		"timestamp": notification.Timestamp.Format(time.RFC3339),
		"extra":     notification.Extra,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	resp, err := w.client.Post(w.webhookURL, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}
