package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/cueboard/cueboard/server/internal/config"
	"github.com/cueboard/cueboard/server/internal/selection"
)

// Event is the JSON body posted to "http" webhooks.
type Event struct {
	Result     selection.Result `json:"result"`
	Resource   string           `json:"resource,omitempty"`
	DisplayURL string           `json:"display_url,omitempty"`
	Message    string           `json:"message"`
	Time       time.Time        `json:"time"`
}

// Notifier posts selection changes to the configured webhooks. It implements
// selection.Observer. Deliveries run in their own goroutine so a slow target
// never holds up the controller.
type Notifier struct {
	webhooks []config.WebhookConfig
	client   *http.Client
	now      func() time.Time
	wg       sync.WaitGroup
}

// New creates a Notifier for the webhooks in cfg.
func New(cfg config.NotifyConfig) *Notifier {
	return &Notifier{
		webhooks: cfg.Webhooks,
		client:   &http.Client{Timeout: 10 * time.Second},
		now:      time.Now,
	}
}

// Selection queues a delivery for selected and cleared results.
// Unknown identifiers change nothing and are not announced.
func (n *Notifier) Selection(res selection.Result, c selection.Confirmation) {
	if res == selection.ResultNotFound || len(n.webhooks) == 0 {
		return
	}
	ev := Event{
		Result:     res,
		Resource:   c.Resource,
		DisplayURL: c.DisplayURL,
		Message:    c.Message,
		Time:       n.now().UTC(),
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.deliver(ev)
	}()
}

// Wait blocks until all queued deliveries have finished.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

// deliver sends ev to every configured target. Errors are logged only.
func (n *Notifier) deliver(ev Event) {
	for _, wh := range n.webhooks {
		url := wh.URL()
		if url == "" {
			continue
		}

		var err error
		switch wh.Type {
		case "slack":
			err = n.sendSlack(url, ev)
		case "http":
			err = n.sendHTTP(url, ev)
		default:
			slog.Warn("notify: unknown webhook type, skipping", "type", wh.Type)
			continue
		}

		if err != nil {
			slog.Error("notify: webhook delivery failed", "type", wh.Type, "result", ev.Result, "err", err)
		} else {
			slog.Debug("notify: webhook delivered", "type", wh.Type, "result", ev.Result)
		}
	}
}

func (n *Notifier) sendSlack(url string, ev Event) error {
	body, _ := json.Marshal(map[string]string{"text": slackText(ev)})
	return n.post(url, body)
}

func (n *Notifier) sendHTTP(url string, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return n.post(url, body)
}

func (n *Notifier) post(url string, body []byte) error {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func slackText(ev Event) string {
	if ev.Result == selection.ResultCleared {
		return "*cueboard* display cleared"
	}
	return fmt.Sprintf("*cueboard* now showing `%s`", ev.Resource)
}
