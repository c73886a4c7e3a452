package observability

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "helveg"

// Prometheus implements every hook interface with Prometheus collectors.
type Prometheus struct {
	LayoutRuns          *prometheus.CounterVec
	LayoutStops         *prometheus.CounterVec
	LayoutIterations    prometheus.Counter
	LayoutRunning       prometheus.Gauge
	IterationsPerSecond prometheus.Gauge
	AverageTraction     prometheus.Gauge
	RunDuration         *prometheus.HistogramVec
	ContextSpawns       prometheus.Counter
	ContextKills        *prometheus.CounterVec

	GraphOperations       *prometheus.CounterVec
	GraphOperationSeconds *prometheus.HistogramVec
	GraphChanges          *prometheus.CounterVec

	PipelineStageSeconds *prometheus.HistogramVec
	PipelineErrors       *prometheus.CounterVec

	CacheRequests *prometheus.CounterVec
	CacheBytes    prometheus.Counter

	HTTPRequests       *prometheus.CounterVec
	HTTPRequestSeconds *prometheus.HistogramVec
}

// NewPrometheus creates and registers all collectors with reg.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	f := promauto.With(reg)
	return &Prometheus{
		LayoutRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace, Subsystem: "layout", Name: "runs_total",
			Help: "Layout runs started, by mode.",
		}, []string{"mode"}),
		LayoutStops: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace, Subsystem: "layout", Name: "stops_total",
			Help: "Layout runs ended, by reason.",
		}, []string{"reason"}),
		LayoutIterations: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace, Subsystem: "layout", Name: "iterations_total",
			Help: "Iterations reported by layout runs.",
		}),
		LayoutRunning: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace, Subsystem: "layout", Name: "running",
			Help: "1 while a layout run is active.",
		}),
		IterationsPerSecond: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace, Subsystem: "layout", Name: "iterations_per_second",
			Help: "Iteration rate at the last progress report.",
		}),
		AverageTraction: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace, Subsystem: "layout", Name: "average_traction",
			Help: "Average node traction at the last progress report.",
		}),
		RunDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace, Subsystem: "layout", Name: "run_duration_seconds",
			Help:    "Wall-clock duration of layout runs.",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 15, 60, 300},
		}, []string{"reason"}),
		ContextSpawns: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace, Subsystem: "layout", Name: "context_spawns_total",
			Help: "Background contexts spawned.",
		}),
		ContextKills: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace, Subsystem: "layout", Name: "context_kills_total",
			Help: "Background contexts terminated, by reason.",
		}, []string{"reason"}),

		GraphOperations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace, Subsystem: "graph", Name: "operations_total",
			Help: "Graph operations, by operation and status.",
		}, []string{"op", "status"}),
		GraphOperationSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace, Subsystem: "graph", Name: "operation_duration_seconds",
			Help:    "Duration of graph operations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		GraphChanges: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace, Subsystem: "graph", Name: "changes_total",
			Help: "Model change notifications, by kind and whether the visible subset changed.",
		}, []string{"kind", "structural"}),

		PipelineStageSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace, Subsystem: "pipeline", Name: "stage_duration_seconds",
			Help:    "Duration of pipeline stages.",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),
		PipelineErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace, Subsystem: "pipeline", Name: "errors_total",
			Help: "Failed pipeline stages.",
		}, []string{"stage"}),

		CacheRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace, Subsystem: "cache", Name: "requests_total",
			Help: "Cache lookups and writes, by key type and result.",
		}, []string{"key_type", "result"}),
		CacheBytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace, Subsystem: "cache", Name: "written_bytes_total",
			Help: "Bytes written to the cache.",
		}),

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace, Subsystem: "http", Name: "requests_total",
			Help: "Ops server requests, by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPRequestSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "Ops server request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// Install registers p for every hook category.
func Install(p *Prometheus) {
	SetLayoutHooks(p)
	SetGraphHooks(p)
	SetPipelineHooks(promPipeline{p})
	SetCacheHooks(p)
	SetHTTPHooks(p)
}

func (p *Prometheus) OnLayoutStart(_ context.Context, mode string, _, _ int) {
	p.LayoutRuns.WithLabelValues(mode).Inc()
	p.LayoutRunning.Set(1)
}

func (p *Prometheus) OnLayoutProgress(_ context.Context, iterations int, ips, traction float64) {
	p.LayoutIterations.Add(float64(iterations))
	p.IterationsPerSecond.Set(ips)
	p.AverageTraction.Set(traction)
}

func (p *Prometheus) OnLayoutStop(_ context.Context, reason string, _ int, d time.Duration) {
	p.LayoutStops.WithLabelValues(reason).Inc()
	p.RunDuration.WithLabelValues(reason).Observe(d.Seconds())
	p.LayoutRunning.Set(0)
}

func (p *Prometheus) OnContextSpawn(context.Context) { p.ContextSpawns.Inc() }

func (p *Prometheus) OnContextKill(_ context.Context, reason string) {
	p.ContextKills.WithLabelValues(reason).Inc()
}

func (p *Prometheus) OnOperation(_ context.Context, op string, d time.Duration, err error) {
	p.GraphOperations.WithLabelValues(op, status(err)).Inc()
	p.GraphOperationSeconds.WithLabelValues(op).Observe(d.Seconds())
}

func (p *Prometheus) OnChange(_ context.Context, kind string, structural bool) {
	p.GraphChanges.WithLabelValues(kind, strconv.FormatBool(structural)).Inc()
}

func (p *Prometheus) OnCacheHit(_ context.Context, keyType string) {
	p.CacheRequests.WithLabelValues(keyType, "hit").Inc()
}

func (p *Prometheus) OnCacheMiss(_ context.Context, keyType string) {
	p.CacheRequests.WithLabelValues(keyType, "miss").Inc()
}

func (p *Prometheus) OnCacheSet(_ context.Context, keyType string, size int) {
	p.CacheRequests.WithLabelValues(keyType, "set").Inc()
	p.CacheBytes.Add(float64(size))
}

func (p *Prometheus) OnResponse(_ context.Context, method, route string, code int, d time.Duration) {
	p.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	p.HTTPRequestSeconds.WithLabelValues(route).Observe(d.Seconds())
}

// promPipeline adapts Prometheus to PipelineHooks, whose OnLayoutStart
// signature clashes with LayoutHooks.
type promPipeline struct{ p *Prometheus }

func (pp promPipeline) OnLoadStart(context.Context, string) {}

func (pp promPipeline) OnLoadComplete(_ context.Context, _ string, _ int, d time.Duration, err error) {
	pp.stage("load", d, err)
}

func (pp promPipeline) OnLayoutStart(context.Context, int) {}

func (pp promPipeline) OnLayoutComplete(_ context.Context, _ int, d time.Duration, err error) {
	pp.stage("layout", d, err)
}

func (pp promPipeline) OnRenderStart(context.Context, []string) {}

func (pp promPipeline) OnRenderComplete(_ context.Context, _ []string, d time.Duration, err error) {
	pp.stage("render", d, err)
}

func (pp promPipeline) stage(name string, d time.Duration, err error) {
	pp.p.PipelineStageSeconds.WithLabelValues(name).Observe(d.Seconds())
	if err != nil {
		pp.p.PipelineErrors.WithLabelValues(name).Inc()
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

var (
	_ LayoutHooks   = (*Prometheus)(nil)
	_ GraphHooks    = (*Prometheus)(nil)
	_ CacheHooks    = (*Prometheus)(nil)
	_ HTTPHooks     = (*Prometheus)(nil)
	_ PipelineHooks = promPipeline{}
)
