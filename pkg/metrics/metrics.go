package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/core-tools/hsu-watchdog/pkg/errors"
	"github.com/core-tools/hsu-watchdog/pkg/logging"
	"github.com/core-tools/hsu-watchdog/pkg/watchdog"
)

const namespace = "watchdog"

// Recorder tracks cycle metrics on its own registry
type Recorder struct {
	registry      *prometheus.Registry
	cycles        prometheus.Counter
	pathOutcomes  *prometheus.CounterVec
	restarts      prometheus.Counter
	circuitOpens  prometheus.Counter
	cycleDuration prometheus.Histogram
	trackedPaths  prometheus.Gauge
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		cycles: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cycles_total",
				Help:      "Total number of watchdog cycles",
			},
		),
		pathOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "path_outcomes_total",
				Help:      "Path evaluations by outcome",
			},
			[]string{"outcome"},
		),
		restarts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "restarts_total",
				Help:      "Suspended processes restarted",
			},
		),
		circuitOpens: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_opens_total",
				Help:      "Times a path's restart circuit breaker opened",
			},
		),
		cycleDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "cycle_duration_seconds",
				Help:      "Duration of a watchdog cycle",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
		),
		trackedPaths: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "tracked_paths",
				Help:      "Paths evaluated in the last cycle",
			},
		),
	}

	r.registry.MustRegister(r.cycles)
	r.registry.MustRegister(r.pathOutcomes)
	r.registry.MustRegister(r.restarts)
	r.registry.MustRegister(r.circuitOpens)
	r.registry.MustRegister(r.cycleDuration)
	r.registry.MustRegister(r.trackedPaths)

	return r
}

// ObserveCycle records one finished cycle, after retries
func (r *Recorder) ObserveCycle(report watchdog.CycleReport) {
	r.cycles.Inc()
	r.cycleDuration.Observe(report.Duration.Seconds())
	r.trackedPaths.Set(float64(len(report.Results)))
	for _, result := range report.Results {
		r.pathOutcomes.WithLabelValues(string(result.Outcome)).Inc()
		if result.Outcome == watchdog.OutcomeAlertedAndRestarted {
			r.restarts.Inc()
		}
	}
}

// CircuitOpened records a breaker opening
func (r *Recorder) CircuitOpened() {
	r.circuitOpens.Inc()
}

// Registry exposes the registry for tests and custom exporters
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

const shutdownTimeout = 5 * time.Second

// Serve exposes /metrics on address until ctx is done
func (r *Recorder) Serve(ctx context.Context, address string, logger logging.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	server := &http.Server{
		Addr:              address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Serving metrics, address: %s", address)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return errors.NewNetworkError("metrics server failed", err).WithContext("address", address)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warnf("Metrics server shutdown failed, error: %v", err)
		}
		return nil
	}
}
