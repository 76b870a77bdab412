package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dupeforge/dupeforge/internal/config"
	"github.com/dupeforge/dupeforge/models"
)

// SlackChannel sends notifications to a Slack incoming webhook URL.
type SlackChannel struct {
	cfg    config.SlackConfig
	client *http.Client
}

func NewSlack(cfg config.SlackConfig) *SlackChannel {
	return &SlackChannel{cfg: cfg, client: &http.Client{Timeout: 5 * time.Second}}
}

func (s *SlackChannel) Name() string       { return "slack" }
func (s *SlackChannel) IsConfigured() bool { return s.cfg.WebhookURL != "" }

func (s *SlackChannel) Send(ctx context.Context, evt models.Event) error {
	color := eventColor(evt.Type)
	attachment := map[string]any{
		"color":  color,
		"title":  title(evt),
		"text":   body(evt),
		"footer": "dupeforge",
		"ts":     time.Now().Unix(),
	}
	payload := map[string]any{
		"channel":     s.cfg.Channel,
		"text":        title(evt),
		"attachments": []map[string]any{attachment},
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.WebhookURL, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req) // #nosec G107 -- WebhookURL is a user-configured Slack incoming webhook URL
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("slack webhook returned %d", resp.StatusCode)
	}
	return nil
}

func eventColor(t models.EventType) string {
	switch t {
	case models.EventScanFailed, models.EventJobFailed:
		return "#FF0000"
	case models.EventJobRetrying:
		return "#FFAA00"
	case models.EventScanCompleted:
		return "#2EB67D"
	default:
		return "#888888"
	}
}
