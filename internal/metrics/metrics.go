// Package metrics exposes prometheus counters for orchestration outcomes and
// collaborator usage.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/abhisek/lectern/internal/llm"
)

// Metrics holds lectern's collectors on a private registry. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	Outcomes     *prometheus.CounterVec
	Calls        *prometheus.CounterVec
	Tokens       *prometheus.CounterVec
	CallDuration *prometheus.HistogramVec
	CostUSD      *prometheus.CounterVec
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "lectern",
				Name:      "orchestration_outcomes_total",
				Help:      "Outcomes of orchestration operations by component.",
			},
			[]string{"component", "outcome"},
		),
		Calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "lectern",
				Name:      "llm_calls_total",
				Help:      "Collaborator calls by purpose and status.",
			},
			[]string{"purpose", "status"},
		),
		Tokens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "lectern",
				Name:      "llm_tokens_total",
				Help:      "Tokens consumed by purpose and direction.",
			},
			[]string{"purpose", "direction"},
		),
		CallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "lectern",
				Name:      "llm_call_duration_seconds",
				Help:      "Collaborator call latency.",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"purpose"},
		),
		CostUSD: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "lectern",
				Name:      "llm_cost_usd_total",
				Help:      "Estimated collaborator spend.",
			},
			[]string{"model"},
		),
	}
	m.registry.MustRegister(m.Outcomes, m.Calls, m.Tokens, m.CallDuration, m.CostUSD)
	return m
}

// Outcome counts one orchestration outcome, e.g. ("materialize", "in_flight").
func (m *Metrics) Outcome(component, outcome string) {
	if m == nil {
		return
	}
	m.Outcomes.WithLabelValues(component, outcome).Inc()
}

// RecordUsage implements llm.UsageRecorder.
func (m *Metrics) RecordUsage(_ context.Context, ev llm.UsageEvent) error {
	if m == nil {
		return nil
	}
	status := "ok"
	if !ev.Success {
		status = "error"
	}
	m.Calls.WithLabelValues(ev.Purpose, status).Inc()
	m.Tokens.WithLabelValues(ev.Purpose, "input").Add(float64(ev.InputTokens))
	m.Tokens.WithLabelValues(ev.Purpose, "output").Add(float64(ev.OutputTokens))
	m.CallDuration.WithLabelValues(ev.Purpose).Observe((time.Duration(ev.LatencyMs) * time.Millisecond).Seconds())
	if ev.CostUSD > 0 {
		m.CostUSD.WithLabelValues(ev.Model).Add(ev.CostUSD)
	}
	return nil
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
