// Package monitoring exposes frame metrics to prometheus.
package monitoring

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/mdfront/mdfront/pkg/config"
	"github.com/mdfront/mdfront/pkg/logger"
	"github.com/mdfront/mdfront/pkg/scheduler"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mdfront"

// Metrics are the counters of one session.
// They implement scheduler.Observer.
type Metrics struct {
	Registry *prometheus.Registry

	frames   prometheus.Counter
	skipped  prometheus.Counter
	work     prometheus.Histogram
	sleep    prometheus.Histogram
	overrun  prometheus.Counter
	states   *prometheus.CounterVec
	reloads  prometheus.Counter
	audioOut prometheus.Counter
}

var _ scheduler.Observer = (*Metrics)(nil)

func NewMetrics() *Metrics {
	frameBuckets := prometheus.ExponentialBuckets(0.0005, 2, 8)
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		frames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "frames_total", Help: "Frames run.",
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "pacing_skipped_total", Help: "Frames not paced for crossing a second.",
		}),
		overrun: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "frame_overruns_total", Help: "Frames that took longer than their budget.",
		}),
		work: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "frame_work_seconds", Help: "Time spent running a frame.", Buckets: frameBuckets,
		}),
		sleep: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "frame_sleep_seconds", Help: "Time slept after a frame.", Buckets: frameBuckets,
		}),
		states: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "state_ops_total", Help: "Save state operations.",
		}, []string{"op", "result"}),
		reloads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "media_loads_total", Help: "Media loads, reloads included.",
		}),
		audioOut: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "audio_dropped_frames_total", Help: "Audio frames dropped by the mixer.",
		}),
	}
	m.Registry.MustRegister(m.frames, m.skipped, m.overrun, m.work, m.sleep, m.states, m.reloads, m.audioOut,
		collectors.NewGoCollector())
	return m
}

func (m *Metrics) Observe(s scheduler.Stat) {
	m.frames.Inc()
	m.work.Observe(s.Work.Seconds())
	m.sleep.Observe(s.Sleep.Seconds())
	if s.Skipped {
		m.skipped.Inc()
	}
	if s.Work > s.Target {
		m.overrun.Inc()
	}
}

// StateOp counts a save or load of a state.
func (m *Metrics) StateOp(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.states.WithLabelValues(op, result).Inc()
}

func (m *Metrics) MediaLoaded()  { m.reloads.Inc() }
func (m *Metrics) AudioDropped() { m.audioOut.Inc() }
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

type Monitoring struct {
	conf   config.Monitoring
	log    *logger.Logger
	server *http.Server
}

// New creates a new monitoring service for the metrics.
func New(conf config.Monitoring, m *Metrics, log *logger.Logger) *Monitoring {
	h := http.NewServeMux()
	metricPath := fmt.Sprintf("%s/metrics", conf.URLPrefix)
	h.Handle(metricPath, m.Handler())
	return &Monitoring{
		conf: conf,
		log:  log.Extend(log.With().Str("m", "monitoring")),
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", conf.Port),
			Handler:           h,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Run starts listening, the server runs until Shutdown.
func (m *Monitoring) Run() error {
	ln, err := net.Listen("tcp", m.server.Addr)
	if err != nil {
		return err
	}
	m.log.Info().Msgf("Prometheus metrics at %v%v/metrics", ln.Addr(), m.conf.URLPrefix)
	go func() {
		if err := m.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.log.Error().Err(err).Msg("monitoring server")
		}
	}()
	return nil
}

func (m *Monitoring) Shutdown(ctx context.Context) error {
	m.log.Debug().Msg("Shutting down monitoring server")
	return m.server.Shutdown(ctx)
}

func (m *Monitoring) String() string {
	return fmt.Sprintf("monitoring::%s:%d", m.conf.URLPrefix, m.conf.Port)
}
