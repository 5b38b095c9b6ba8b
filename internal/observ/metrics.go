package observ

import (
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// registry backs the free-label-set counters/gauges/histograms the rest
// of the codebase calls through IncCounter/SetGauge/Observe. Prometheus
// vectors need a fixed label-name set per metric, so each distinct
// (name, sorted label keys) pair gets its own vector, created lazily.
type registry struct {
	mu     sync.Mutex
	reg    *prometheus.Registry
	ctrs   map[string]*prometheus.CounterVec
	gauges map[string]*prometheus.GaugeVec
	hists  map[string]*prometheus.HistogramVec
}

var reg = &registry{
	reg:    prometheus.NewRegistry(),
	ctrs:   map[string]*prometheus.CounterVec{},
	gauges: map[string]*prometheus.GaugeVec{},
	hists:  map[string]*prometheus.HistogramVec{},
}

func labelNames(lbl map[string]string) []string {
	names := make([]string, 0, len(lbl))
	for k := range lbl {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func vectorKey(name string, names []string) string {
	return name + "|" + strings.Join(names, ",")
}

func (r *registry) counter(name string, lbl map[string]string) prometheus.Counter {
	names := labelNames(lbl)
	key := vectorKey(name, names)
	r.mu.Lock()
	cv, ok := r.ctrs[key]
	if !ok {
		cv = promauto.With(r.reg).NewCounterVec(prometheus.CounterOpts{Name: sanitize(name)}, names)
		r.ctrs[key] = cv
	}
	r.mu.Unlock()
	return cv.With(lbl)
}

func (r *registry) gauge(name string, lbl map[string]string) prometheus.Gauge {
	names := labelNames(lbl)
	key := vectorKey(name, names)
	r.mu.Lock()
	gv, ok := r.gauges[key]
	if !ok {
		gv = promauto.With(r.reg).NewGaugeVec(prometheus.GaugeOpts{Name: sanitize(name)}, names)
		r.gauges[key] = gv
	}
	r.mu.Unlock()
	return gv.With(lbl)
}

func (r *registry) histogram(name string, lbl map[string]string) prometheus.Observer {
	names := labelNames(lbl)
	key := vectorKey(name, names)
	r.mu.Lock()
	hv, ok := r.hists[key]
	if !ok {
		hv = promauto.With(r.reg).NewHistogramVec(prometheus.HistogramOpts{Name: sanitize(name)}, names)
		r.hists[key] = hv
	}
	r.mu.Unlock()
	return hv.With(lbl)
}

func sanitize(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}

func IncCounter(name string, labels map[string]string) {
	IncCounterBy(name, labels, 1.0)
}

func IncCounterBy(name string, labels map[string]string, value float64) {
	reg.counter(name, labels).Add(value)
}

func SetGauge(name string, value float64, labels map[string]string) {
	reg.gauge(name, labels).Set(value)
}

func Observe(name string, value float64, labels map[string]string) {
	reg.histogram(name, labels).Observe(value)
}

func RecordHistogram(name string, value float64, labels map[string]string) {
	Observe(name, value, labels)
}

func RecordGauge(name string, value float64, labels map[string]string) {
	SetGauge(name, value, labels)
}

func RecordDuration(name string, duration time.Duration, labels map[string]string) {
	Observe(name+"_ms", float64(duration.Milliseconds()), labels)
}

// Handler exposes metrics in Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(reg.reg, promhttp.HandlerOpts{})
}

// Health is a minimal liveness handler; deeper health (candidate
// markets stuck at zero, consecutive adapter failures, drawdown stop)
// is evaluated by the scheduler's alert predicates, not the HTTP layer,
// per spec.md §4.16.
func Health() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}
