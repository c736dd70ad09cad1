package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Pipeline stage labels.
const (
	StageWellKnown  = "well_known"
	StageNFT        = "nft_position"
	StageCDN        = "cdn"
	StageAggregator = "aggregator"
	StageNone       = "none"
)

// Metrics holds the icon engine collectors.
type Metrics struct {
	CheckResults      *prometheus.CounterVec
	PipelineOutcomes  *prometheus.CounterVec
	InFlightPipelines prometheus.Gauge
	GetResults        *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CheckResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "icon_resolver",
			Name:      "check_results_total",
			Help:      "Icon check responses by result.",
		}, []string{"result"}),
		PipelineOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "icon_resolver",
			Name:      "pipeline_outcomes_total",
			Help:      "Background fetch pipelines by the stage that produced the icon.",
		}, []string{"stage"}),
		InFlightPipelines: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "icon_resolver",
			Name:      "pipelines_in_flight",
			Help:      "Background fetch pipelines currently running.",
		}),
		GetResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "icon_resolver",
			Name:      "get_results_total",
			Help:      "Icon get responses by status.",
		}, []string{"status"}),
	}

	reg.MustRegister(m.CheckResults, m.PipelineOutcomes, m.InFlightPipelines, m.GetResults)
	return m
}

// NewNop returns collectors registered nowhere, for tests.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
