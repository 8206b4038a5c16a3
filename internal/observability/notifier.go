package observability

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/tomaspereira-au/onboard-agent/pkg/models"
)

// webhookTimeout bounds the completion POST; a hung webhook must not stall
// conversation turns.
const webhookTimeout = 5 * time.Second

// Notifier announces finished onboarding sessions to an external channel.
type Notifier interface {
	SessionCompleted(rec models.SessionRecord) error
}

// webhookNotifier posts a Slack-compatible message to a webhook URL.
type webhookNotifier struct {
	webhookURL string
	client     *http.Client
}

// NewWebhookNotifier creates a Notifier that posts completion messages to the
// given webhook URL.
func NewWebhookNotifier(webhookURL string) Notifier {
	return &webhookNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: webhookTimeout},
	}
}

type webhookMessage struct {
	Text string `json:"text"`
}

// SessionCompleted posts a one-line completion summary. The payload carries
// counts only, not the collected values.
func (n *webhookNotifier) SessionCompleted(rec models.SessionRecord) error {
	msg := webhookMessage{
		Text: fmt.Sprintf("Onboarding session %s completed: %d fields collected over %d transcript turns.",
			rec.SessionID, len(rec.Fields), len(rec.Transcript)),
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling webhook message: %w", err)
	}

	resp, err := n.client.Post(n.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("posting to webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
