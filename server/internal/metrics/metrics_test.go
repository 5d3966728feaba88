package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/cueboard/cueboard/server/internal/metrics"
	"github.com/cueboard/cueboard/server/internal/registry"
	"github.com/cueboard/cueboard/server/internal/selection"
)

// scrape serves the collector and parses the exposition back.
func scrape(t *testing.T, c *metrics.Collector) map[string]*dto.MetricFamily {
	t.Helper()
	rr := httptest.NewRecorder()
	c.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type: got %q, want text/plain", ct)
	}
	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(rr.Body)
	if err != nil {
		t.Fatalf("parse exposition: %v", err)
	}
	return mfs
}

// value returns the sample in mf whose label name=value, or the first
// sample when name is empty.
func value(t *testing.T, mf *dto.MetricFamily, name, val string) float64 {
	t.Helper()
	if mf == nil {
		t.Fatal("metric family missing")
	}
	for _, m := range mf.GetMetric() {
		if name == "" {
			return sample(m)
		}
		for _, lp := range m.GetLabel() {
			if lp.GetName() == name && lp.GetValue() == val {
				return sample(m)
			}
		}
	}
	t.Fatalf("%s{%s=%q}: not found", mf.GetName(), name, val)
	return 0
}

func sample(m *dto.Metric) float64 {
	if m.Counter != nil {
		return m.Counter.GetValue()
	}
	return m.Gauge.GetValue()
}

func TestCollector_Empty(t *testing.T) {
	mfs := scrape(t, metrics.New())

	if got := value(t, mfs[metrics.ClientsName], "role", "viewer"); got != 0 {
		t.Errorf("viewer clients: got %v, want 0", got)
	}
	if got := value(t, mfs[metrics.DeliveryFailuresName], "", ""); got != 0 {
		t.Errorf("failures: got %v, want 0", got)
	}
}

func TestCollector_CountsActivity(t *testing.T) {
	c := metrics.New()
	c.ClientAdded(registry.RoleViewer)
	c.ClientAdded(registry.RoleViewer)
	c.ClientAdded(registry.RoleManager)
	c.ClientRemoved(registry.RoleViewer)
	c.Delivered(registry.KindRedirect, 2, 1)
	c.Delivered(registry.KindRedirect, 1, 0)
	c.Delivered(registry.KindBackground, 2, 0)
	c.Selection(selection.ResultSelected, selection.Confirmation{})
	c.Selection(selection.ResultNotFound, selection.Confirmation{})

	mfs := scrape(t, c)

	if got := value(t, mfs[metrics.ClientsName], "role", "viewer"); got != 1 {
		t.Errorf("viewer clients: got %v, want 1", got)
	}
	if got := value(t, mfs[metrics.ClientsName], "role", "manager"); got != 1 {
		t.Errorf("manager clients: got %v, want 1", got)
	}
	if got := value(t, mfs[metrics.BroadcastsName], "kind", "redirect"); got != 2 {
		t.Errorf("redirect broadcasts: got %v, want 2", got)
	}
	if got := value(t, mfs[metrics.BroadcastsName], "kind", "background"); got != 1 {
		t.Errorf("background broadcasts: got %v, want 1", got)
	}
	if got := value(t, mfs[metrics.DeliveryFailuresName], "", ""); got != 1 {
		t.Errorf("failures: got %v, want 1", got)
	}
	if got := value(t, mfs[metrics.SelectionsName], "result", "not_found"); got != 1 {
		t.Errorf("not_found selections: got %v, want 1", got)
	}
}

// The collector wired as a registry observer tracks live membership.
func TestCollector_AsRegistryObserver(t *testing.T) {
	c := metrics.New()
	reg := registry.New(registry.WithObserver(c))

	conn := &nopConn{}
	reg.Register(conn, registry.RoleViewer)
	reg.Broadcast(registry.Redirect("/"))
	reg.Deregister(conn)

	mfs := scrape(t, c)
	if got := value(t, mfs[metrics.ClientsName], "role", "viewer"); got != 0 {
		t.Errorf("viewer clients: got %v, want 0", got)
	}
	if got := value(t, mfs[metrics.BroadcastsName], "kind", "redirect"); got != 1 {
		t.Errorf("redirect broadcasts: got %v, want 1", got)
	}
}

func TestCollector_MethodNotAllowed(t *testing.T) {
	rr := httptest.NewRecorder()
	metrics.New().ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/metrics", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", rr.Code)
	}
}

type nopConn struct{}

func (*nopConn) Send(registry.Message) error { return nil }
func (*nopConn) Close()                      {}
