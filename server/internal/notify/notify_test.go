package notify

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/cueboard/cueboard/server/internal/config"
	"github.com/cueboard/cueboard/server/internal/selection"
)

// receiver records every request body posted to it.
type receiver struct {
	mu     sync.Mutex
	bodies [][]byte
	status int
}

func (rv *receiver) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b, _ := io.ReadAll(r.Body)
	rv.mu.Lock()
	rv.bodies = append(rv.bodies, b)
	rv.mu.Unlock()
	if rv.status != 0 {
		w.WriteHeader(rv.status)
	}
}

func (rv *receiver) count() int {
	rv.mu.Lock()
	defer rv.mu.Unlock()
	return len(rv.bodies)
}

func newNotifier(t *testing.T, typ string, rv *receiver) *Notifier {
	t.Helper()
	srv := httptest.NewServer(rv)
	t.Cleanup(srv.Close)
	t.Setenv("CUEBOARD_TEST_HOOK", srv.URL)

	n := New(config.NotifyConfig{Webhooks: []config.WebhookConfig{{Type: typ, URLEnv: "CUEBOARD_TEST_HOOK"}}})
	n.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return n
}

func TestNotifier_HTTPWebhookReceivesEvent(t *testing.T) {
	rv := &receiver{}
	n := newNotifier(t, "http", rv)

	n.Selection(selection.ResultSelected, selection.Confirmation{
		Resource:   "demo.png",
		DisplayURL: "/display/abc",
		Message:    "File 'demo.png' selected. All clients updated.",
	})
	n.Wait()

	if rv.count() != 1 {
		t.Fatalf("deliveries: got %d, want 1", rv.count())
	}
	var ev Event
	if err := json.Unmarshal(rv.bodies[0], &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.Result != selection.ResultSelected || ev.Resource != "demo.png" || ev.DisplayURL != "/display/abc" {
		t.Errorf("event: got %+v", ev)
	}
	if !ev.Time.Equal(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("time: got %v", ev.Time)
	}
}

func TestNotifier_SlackWebhookText(t *testing.T) {
	rv := &receiver{}
	n := newNotifier(t, "slack", rv)

	n.Selection(selection.ResultCleared, selection.Confirmation{Message: "Redirecting to home page"})
	n.Wait()

	if rv.count() != 1 {
		t.Fatalf("deliveries: got %d, want 1", rv.count())
	}
	var body map[string]string
	if err := json.Unmarshal(rv.bodies[0], &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["text"] != "*cueboard* display cleared" {
		t.Errorf("text: got %q", body["text"])
	}
}

func TestNotifier_NotFoundIsNotAnnounced(t *testing.T) {
	rv := &receiver{}
	n := newNotifier(t, "http", rv)

	n.Selection(selection.ResultNotFound, selection.Confirmation{Resource: "missing.png"})
	n.Wait()

	if rv.count() != 0 {
		t.Errorf("deliveries: got %d, want 0", rv.count())
	}
}

func TestNotifier_UnsetURLEnvIsSkipped(t *testing.T) {
	n := New(config.NotifyConfig{Webhooks: []config.WebhookConfig{{Type: "http", URLEnv: "CUEBOARD_UNSET_HOOK"}}})
	n.Selection(selection.ResultSelected, selection.Confirmation{Resource: "demo.png"})
	n.Wait() // must return without a request
}

func TestNotifier_PostErrorStatus(t *testing.T) {
	rv := &receiver{status: http.StatusInternalServerError}
	srv := httptest.NewServer(rv)
	defer srv.Close()

	n := New(config.NotifyConfig{})
	if err := n.post(srv.URL, []byte(`{}`)); err == nil {
		t.Error("post to failing webhook: want error, got nil")
	}
}

func TestSlackText(t *testing.T) {
	got := slackText(Event{Result: selection.ResultSelected, Resource: "Intro/map.html"})
	if want := "*cueboard* now showing `Intro/map.html`"; got != want {
		t.Errorf("slackText: got %q, want %q", got, want)
	}
}
