// Package metrics holds the Prometheus collectors for the tool surface:
// call outcomes, message volumes, pagination direction, NDJSON exports and
// observed flood waits.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Set struct {
	registry *prometheus.Registry

	ToolCalls       *prometheus.CounterVec
	ToolDuration    *prometheus.HistogramVec
	MessagesFetched prometheus.Counter
	PagesServed     *prometheus.CounterVec
	Exports         *prometheus.CounterVec
	FloodWaits      prometheus.Counter
	ArtifactsSwept  prometheus.Counter
}

func New() *Set {
	reg := prometheus.NewRegistry()
	s := &Set{
		registry: reg,
		ToolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "telegram_toolkit_tool_calls_total",
			Help: "Tool invocations by tool name and outcome.",
		}, []string{"tool", "status"}),
		ToolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "telegram_toolkit_tool_duration_seconds",
			Help:    "Tool call latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"tool"}),
		MessagesFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "telegram_toolkit_messages_fetched_total",
			Help: "Messages returned inline across all pages.",
		}),
		PagesServed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "telegram_toolkit_pages_served_total",
			Help: "Pages served by traversal direction.",
		}, []string{"direction"}),
		Exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "telegram_toolkit_ndjson_exports_total",
			Help: "NDJSON artifact creations by status.",
		}, []string{"status"}),
		FloodWaits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "telegram_toolkit_flood_waits_total",
			Help: "Rate-limit waits surfaced to callers.",
		}),
		ArtifactsSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "telegram_toolkit_artifacts_swept_total",
			Help: "Expired artifacts removed by the sweeper.",
		}),
	}
	reg.MustRegister(
		s.ToolCalls,
		s.ToolDuration,
		s.MessagesFetched,
		s.PagesServed,
		s.Exports,
		s.FloodWaits,
		s.ArtifactsSwept,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return s
}

// Handler serves the registry in Prometheus exposition format.
func (s *Set) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}
