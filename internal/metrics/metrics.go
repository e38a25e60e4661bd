package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Resolution outcomes.
const (
	OutcomeFound          = "found"
	OutcomeNoMedia        = "no_media"
	OutcomeProbeExhausted = "probe_exhausted"
	OutcomeError          = "error"
)

// Metrics holds the service collectors.
type Metrics struct {
	Resolutions *prometheus.CounterVec
	Uploads     *prometheus.CounterVec
	ProbeCache  *prometheus.CounterVec
	Items       *prometheus.GaugeVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pintopics_resolutions_total",
			Help: "Keyword mention resolutions by outcome",
		}, []string{"keyword", "outcome"}),
		Uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pintopics_uploads_total",
			Help: "Media uploads by outcome",
		}, []string{"outcome"}),
		ProbeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pintopics_probes_total",
			Help: "Resolutions served from the probe cache (hit) or by probing (miss)",
		}, []string{"result"}),
		Items: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pintopics_registry_items",
			Help: "Stored media items per keyword as of the last reconciliation",
		}, []string{"keyword"}),
	}
	reg.MustRegister(m.Resolutions, m.Uploads, m.ProbeCache, m.Items)
	return m
}

// RecordResolution counts one mention outcome. A nil receiver is a no-op.
func (m *Metrics) RecordResolution(keyword, outcome string, cached bool) {
	if m == nil {
		return
	}
	m.Resolutions.WithLabelValues(keyword, outcome).Inc()
	if outcome != OutcomeFound {
		return
	}
	if cached {
		m.ProbeCache.WithLabelValues("hit").Inc()
	} else {
		m.ProbeCache.WithLabelValues("miss").Inc()
	}
}

func (m *Metrics) RecordUpload(outcome string) {
	if m == nil {
		return
	}
	m.Uploads.WithLabelValues(outcome).Inc()
}

// SetItems is shaped to plug into the reconciler's count observer.
func (m *Metrics) SetItems(keyword string, count int) {
	if m == nil {
		return
	}
	m.Items.WithLabelValues(keyword).Set(float64(count))
}
