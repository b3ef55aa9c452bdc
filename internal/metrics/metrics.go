// Package metrics exports dispatch progress as Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bft-labs/tripdiary/internal/app"
	"github.com/bft-labs/tripdiary/internal/domain"
)

const Subsystem = "tripdiary"

// Collector implements app.Observer on top of Prometheus collectors.
type Collector struct {
	registry *prometheus.Registry

	EventReceivedCount *prometheus.CounterVec
	ActionResultCount  *prometheus.CounterVec
	ActionLatency      *prometheus.SummaryVec
	CommitCount        *prometheus.CounterVec
	CommitErrorCount   *prometheus.CounterVec
	DispatchLatency    *prometheus.SummaryVec
	GuardResultCount   *prometheus.CounterVec
	CurrentState       *prometheus.GaugeVec
}

// NewCollector creates the collectors and registers them, together with the
// Go and process collectors, on a private registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		EventReceivedCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem: Subsystem,
			Name:      "event_received_count",
			Help:      "The number of events received, by event and current state.",
		}, []string{"event", "state"}),
		ActionResultCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem: Subsystem,
			Name:      "action_result_count",
			Help:      "The number of resolved actions, by action and outcome.",
		}, []string{"action", "outcome"}),
		ActionLatency: prometheus.NewSummaryVec(prometheus.SummaryOpts{
			Subsystem: Subsystem,
			Name:      "action_latency_seconds",
			Help:      "Time for actions to resolve, by action.",
		}, []string{"action"}),
		CommitCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem: Subsystem,
			Name:      "commit_count",
			Help:      "The number of committed transitions, by plan and target state.",
		}, []string{"plan", "to"}),
		CommitErrorCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem: Subsystem,
			Name:      "commit_error_count",
			Help:      "The number of dispatches that did not commit, by event.",
		}, []string{"event"}),
		DispatchLatency: prometheus.NewSummaryVec(prometheus.SummaryOpts{
			Subsystem: Subsystem,
			Name:      "dispatch_latency_seconds",
			Help:      "Time to handle one event, by event.",
		}, []string{"event"}),
		GuardResultCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem: Subsystem,
			Name:      "guard_result_count",
			Help:      "The number of settings guard checks, by result.",
		}, []string{"result"}),
		CurrentState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Subsystem: Subsystem,
			Name:      "current_state",
			Help:      "1 for the last committed state, 0 for every other state.",
		}, []string{"state"}),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.EventReceivedCount,
		c.ActionResultCount,
		c.ActionLatency,
		c.CommitCount,
		c.CommitErrorCount,
		c.DispatchLatency,
		c.GuardResultCount,
		c.CurrentState,
	)
	return c
}

// Registry returns the registry the collectors are registered on.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) OnEvent(event domain.Event, state domain.State) {
	c.EventReceivedCount.WithLabelValues(event.Kind.String(), state.String()).Inc()
}

func (c *Collector) OnActionResult(r domain.ActionResult) {
	c.ActionResultCount.WithLabelValues(r.Kind.String(), r.Outcome.String()).Inc()
	if r.Outcome != domain.OutcomeUnavailable {
		c.ActionLatency.WithLabelValues(r.Kind.String()).Observe(r.Duration.Seconds())
	}
}

func (c *Collector) OnCommit(commit app.Commit) {
	c.DispatchLatency.WithLabelValues(commit.Event.Kind.String()).Observe(commit.Duration.Seconds())
	if !commit.Committed {
		c.CommitErrorCount.WithLabelValues(commit.Event.Kind.String()).Inc()
		return
	}
	c.CommitCount.WithLabelValues(commit.Plan, commit.To.String()).Inc()
	for _, s := range domain.States() {
		v := 0.0
		if s == commit.To {
			v = 1
		}
		c.CurrentState.WithLabelValues(s.String()).Set(v)
	}
}

func (c *Collector) OnGuard(result app.GuardResult) {
	c.GuardResultCount.WithLabelValues(result.String()).Inc()
}

var _ app.Observer = (*Collector)(nil)
