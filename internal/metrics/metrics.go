// Package metrics exposes heartbeat counters for Prometheus.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/meetthepeople/mtp/internal/heartbeat"
)

const namespace = "mtp"

type Metrics struct {
	registry *prometheus.Registry
	reports  *prometheus.CounterVec
	skipped  *prometheus.CounterVec
	active   prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		reports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "heartbeat",
			Name:      "reports_total",
			Help:      "Presence reports sent, by trigger and result.",
		}, []string{"trigger", "result"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "heartbeat",
			Name:      "skipped_total",
			Help:      "Presence reports or cycle starts skipped, by reason.",
		}, []string{"reason"}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "heartbeat",
			Name:      "mounted",
			Help:      "1 while the home screen holds the heartbeat.",
		}),
	}
	reg.MustRegister(
		m.reports,
		m.skipped,
		m.active,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Observe records one heartbeat event; pass it to heartbeat.WithObserver.
func (m *Metrics) Observe(e heartbeat.Event) {
	switch e.Outcome {
	case heartbeat.OutcomeDelivered:
		m.reports.WithLabelValues(string(e.Trigger), "ok").Inc()
	case heartbeat.OutcomeFailed:
		m.reports.WithLabelValues(string(e.Trigger), "error").Inc()
	case heartbeat.OutcomeSkippedDebounce:
		m.skipped.WithLabelValues("debounce").Inc()
	case heartbeat.OutcomeSkippedActive:
		m.skipped.WithLabelValues("already_active").Inc()
	}
}

func (m *Metrics) SetMounted(mounted bool) {
	if mounted {
		m.active.Set(1)
		return
	}
	m.active.Set(0)
}

func (m *Metrics) Handler() http.Handler {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	return r
}

// Serve exposes /metrics on bind until ctx is done. An empty bind disables it.
func (m *Metrics) Serve(ctx context.Context, bind string) error {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil
	}
	ln, err := net.Listen("tcp", bind)
	if err != nil {
		return fmt.Errorf("listen metrics %s: %w", bind, err)
	}
	srv := &http.Server{
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.Printf("event=metrics_started addr=%s", ln.Addr())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve metrics: %w", err)
	}
	return nil
}
