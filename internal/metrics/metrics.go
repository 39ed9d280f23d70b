// Package metrics exposes Prometheus counters for the bot's traffic.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/devmike09/Converter-Bot/internal/logger"
)

// Collector manages all Prometheus metrics for the converter bot
type Collector struct {
	updatesTotal       *prometheus.CounterVec
	conversionsTotal   *prometheus.CounterVec
	conversionDuration *prometheus.HistogramVec
	downloadsTotal     *prometheus.CounterVec
	archivesTotal      *prometheus.CounterVec
	sessionFiles       prometheus.Gauge
	queueDepth         *prometheus.GaugeVec
}

// NewCollector creates a collector registered on the default global registry
func NewCollector() *Collector {
	return NewCollectorWithRegistry(nil)
}

// NewCollectorWithRegistry creates a collector on a custom registry.
// If registry is nil, uses the default global registry
func NewCollectorWithRegistry(registry *prometheus.Registry) *Collector {
	var factory promauto.Factory
	if registry == nil {
		factory = promauto.With(prometheus.DefaultRegisterer)
	} else {
		factory = promauto.With(registry)
	}

	return &Collector{
		updatesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bot_updates_total",
				Help: "Total number of Telegram updates processed",
			},
			[]string{"type"},
		),

		conversionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bot_conversions_total",
				Help: "Total number of conversion attempts",
			},
			[]string{"operation", "status"},
		),

		conversionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bot_conversion_duration_seconds",
				Help:    "Time spent running the transcoder",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		downloadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bot_downloads_total",
				Help: "Total number of direct link downloads",
			},
			[]string{"status"},
		),

		archivesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bot_archives_total",
				Help: "Total number of session archive builds",
			},
			[]string{"status"},
		),

		sessionFiles: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "bot_session_files",
				Help: "Files currently held across all sessions",
			},
		),

		queueDepth: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bot_queue_depth",
				Help: "Updates waiting in the worker pool queues",
			},
			[]string{"queue"},
		),
	}
}

// RecordUpdate counts one inbound update by type (message, command, callback)
func (c *Collector) RecordUpdate(kind string) {
	c.updatesTotal.WithLabelValues(kind).Inc()
}

// RecordConversion counts one conversion attempt and its duration
func (c *Collector) RecordConversion(operation, status string, elapsed time.Duration) {
	c.conversionsTotal.WithLabelValues(operation, status).Inc()
	c.conversionDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// RecordDownload counts one direct link download attempt
func (c *Collector) RecordDownload(status string) {
	c.downloadsTotal.WithLabelValues(status).Inc()
}

// RecordArchive counts one archive build attempt
func (c *Collector) RecordArchive(status string) {
	c.archivesTotal.WithLabelValues(status).Inc()
}

// SetSessionFiles updates the stored-files gauge
func (c *Collector) SetSessionFiles(n int) {
	c.sessionFiles.Set(float64(n))
}

// SetQueueDepth updates the backlog gauge for one worker pool queue
func (c *Collector) SetQueueDepth(queue string, depth int) {
	c.queueDepth.WithLabelValues(queue).Set(float64(depth))
}

// StartServer exposes /metrics and /health on addr in a background goroutine
// and returns the server so the caller can shut it down.
func StartServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Metrics server listening", map[string]interface{}{
			"addr": addr,
		})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", map[string]interface{}{
				"addr":  addr,
				"error": err.Error(),
			})
		}
	}()
	return server
}
