package metrics

import (
	"net/http"
	"sort"
	"sync"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/cueboard/cueboard/server/internal/registry"
	"github.com/cueboard/cueboard/server/internal/selection"
)

// Metric names exposed on /metrics.
const (
	ClientsName          = "cueboard_clients"
	BroadcastsName       = "cueboard_broadcasts_total"
	DeliveryFailuresName = "cueboard_delivery_failures_total"
	SelectionsName       = "cueboard_selections_total"
)

// Collector counts registry and selection activity and renders it in the
// Prometheus text exposition format. It implements registry.Observer and
// selection.Observer. Safe for concurrent use.
type Collector struct {
	mu         sync.Mutex
	clients    map[registry.Role]float64
	broadcasts map[registry.Kind]float64
	failures   float64
	selections map[selection.Result]float64
}

// New creates an empty Collector.
func New() *Collector {
	return &Collector{
		clients:    map[registry.Role]float64{registry.RoleViewer: 0, registry.RoleManager: 0},
		broadcasts: make(map[registry.Kind]float64),
		selections: make(map[selection.Result]float64),
	}
}

func (c *Collector) ClientAdded(role registry.Role) {
	c.mu.Lock()
	c.clients[role]++
	c.mu.Unlock()
}

func (c *Collector) ClientRemoved(role registry.Role) {
	c.mu.Lock()
	c.clients[role]--
	c.mu.Unlock()
}

func (c *Collector) Delivered(kind registry.Kind, _, failed int) {
	c.mu.Lock()
	c.broadcasts[kind]++
	c.failures += float64(failed)
	c.mu.Unlock()
}

func (c *Collector) Selection(res selection.Result, _ selection.Confirmation) {
	c.mu.Lock()
	c.selections[res]++
	c.mu.Unlock()
}

// Families returns the current values as metric families, sorted by name.
// Families with no samples yet are omitted.
func (c *Collector) Families() []*dto.MetricFamily {
	c.mu.Lock()
	defer c.mu.Unlock()

	clients := family(ClientsName, "Connected WebSocket clients by role.", dto.MetricType_GAUGE)
	for _, role := range []registry.Role{registry.RoleManager, registry.RoleViewer} {
		clients.Metric = append(clients.Metric, gauge(c.clients[role], "role", role.String()))
	}

	broadcasts := family(BroadcastsName, "Broadcast passes by message kind.", dto.MetricType_COUNTER)
	for _, kind := range sortedKeys(c.broadcasts) {
		broadcasts.Metric = append(broadcasts.Metric, counter(c.broadcasts[kind], "kind", string(kind)))
	}

	failures := family(DeliveryFailuresName, "Deliveries that failed and dropped the client.", dto.MetricType_COUNTER)
	failures.Metric = append(failures.Metric, counter(c.failures))

	selections := family(SelectionsName, "Selection requests by result.", dto.MetricType_COUNTER)
	for _, res := range sortedKeys(c.selections) {
		selections.Metric = append(selections.Metric, counter(c.selections[res], "result", string(res)))
	}

	// The text format rejects families without samples.
	var out []*dto.MetricFamily
	for _, mf := range []*dto.MetricFamily{broadcasts, clients, failures, selections} {
		if len(mf.Metric) > 0 {
			out = append(out, mf)
		}
	}
	return out
}

// ServeHTTP writes all families in the text exposition format.
func (c *Collector) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", string(expfmt.NewFormat(expfmt.TypeTextPlain)))
	for _, mf := range c.Families() {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return
		}
	}
}

// --- helpers ----------------------------------------------------------------

func family(name, help string, typ dto.MetricType) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name: proto.String(name),
		Help: proto.String(help),
		Type: typ.Enum(),
	}
}

func gauge(v float64, labels ...string) *dto.Metric {
	return &dto.Metric{Label: labelPairs(labels), Gauge: &dto.Gauge{Value: proto.Float64(v)}}
}

func counter(v float64, labels ...string) *dto.Metric {
	return &dto.Metric{Label: labelPairs(labels), Counter: &dto.Counter{Value: proto.Float64(v)}}
}

// labelPairs turns name, value, name, value... into label pairs.
func labelPairs(kv []string) []*dto.LabelPair {
	var out []*dto.LabelPair
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, &dto.LabelPair{Name: proto.String(kv[i]), Value: proto.String(kv[i+1])})
	}
	return out
}

func sortedKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
