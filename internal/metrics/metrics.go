package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geosig_requests_total",
		Help: "Total number of API requests by route",
	}, []string{"route"})
	RequestDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "geosig_request_duration_ms",
		Help:    "Request duration in milliseconds",
		Buckets: []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 20000},
	}, []string{"route"})
	SignaturesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geosig_signatures_total",
		Help: "Total generated signatures by outcome",
	}, []string{"outcome"})
	TraverseRoundsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geosig_traverse_rounds_total",
		Help: "Total traversal rounds",
	})
	CellsEvaluatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geosig_cells_evaluated_total",
		Help: "Total cells tested against a shape",
	})
	CellsAcceptedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geosig_cells_accepted_total",
		Help: "Total cells accepted into signatures",
	})
	WorkerFaultsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geosig_worker_faults_total",
		Help: "Total chunk evaluations that failed",
	})
	PartitionPartsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geosig_partition_parts_total",
		Help: "Total fishnet parts produced",
	})
	CacheHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geosig_cache_hits_total",
		Help: "Signature cache hits by layer",
	}, []string{"layer"})
	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geosig_cache_misses_total",
		Help: "Signature cache misses across all layers",
	})
	GenerateDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "geosig_generate_duration_ms",
		Help:    "Signature generation duration in milliseconds",
		Buckets: []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 20000, 60000},
	})
)

func init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestDurationMs)
	prometheus.MustRegister(SignaturesTotal)
	prometheus.MustRegister(TraverseRoundsTotal)
	prometheus.MustRegister(CellsEvaluatedTotal)
	prometheus.MustRegister(CellsAcceptedTotal)
	prometheus.MustRegister(WorkerFaultsTotal)
	prometheus.MustRegister(PartitionPartsTotal)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(GenerateDurationMs)
}

// 文档注释：返回 Prometheus 指标监听器
// 背景：统一暴露已注册指标，挂载到 API_BASE/metrics 供抓取。
func Handler() http.Handler { return promhttp.Handler() }
