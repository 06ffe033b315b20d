package monitoring

import (
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mezonai/vessel/logx"
)

type Operation string

var (
	OpAppend  Operation = "append"
	OpVerify  Operation = "verify"
	OpRehash  Operation = "rehash"
	OpImport  Operation = "import"
	OpExport  Operation = "export"
	OpExtract Operation = "extract"
)

type vesselPromMetrics struct {
	upUnixSeconds     prometheus.Gauge
	chainLength       prometheus.Gauge
	appendedBlocks    prometheus.Counter
	verifyFailures    *prometheus.CounterVec
	driftedBlocks     prometheus.Counter
	operationErrors   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	embeddedBytes     prometheus.Histogram
	extractedBytes    prometheus.Histogram
	panicCount        prometheus.Counter
}

func newVesselPromMetrics() *vesselPromMetrics {
	return &vesselPromMetrics{
		upUnixSeconds: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "vessel_up_timestamp_unix_seconds",
				Help: "Unix timestamp of the service start",
			},
		),
		chainLength: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "vessel_chain_length",
				Help: "Number of blocks in the ledger of record",
			},
		),
		appendedBlocks: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "vessel_appended_blocks_total",
				Help: "The total number of appended blocks",
			},
		),
		verifyFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vessel_verify_failures_total",
				Help: "The total number of failed chain verifications",
			},
			[]string{"reason"},
		),
		driftedBlocks: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "vessel_rehash_drifted_blocks_total",
				Help: "The total number of blocks whose hash changed during rehash",
			},
		),
		operationErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vessel_operation_errors_total",
				Help: "The total number of failed operations",
			},
			[]string{"operation", "code"},
		),
		operationDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "vessel_operation_duration_seconds",
				Help: "Duration in second of ledger and codec operations",
			},
			[]string{"operation"},
		),
		embeddedBytes: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "vessel_embedded_payload_bytes",
				Help:    "Size of payloads embedded into images",
				Buckets: prometheus.ExponentialBuckets(256, 4, 8),
			},
		),
		extractedBytes: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "vessel_extracted_payload_bytes",
				Help:    "Size of payloads extracted from images",
				Buckets: prometheus.ExponentialBuckets(256, 4, 8),
			},
		),
		panicCount: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "vessel_panic_count",
				Help: "The total number of recovered panics",
			},
		),
	}
}

var (
	vesselMetrics *vesselPromMetrics
	initOnce      sync.Once
)

// InitMetrics registers the collectors once; recording before InitMetrics is a no-op
func InitMetrics() {
	initOnce.Do(func() {
		vesselMetrics = newVesselPromMetrics()
		vesselMetrics.upUnixSeconds.SetToCurrentTime()
	})
}

func RegisterMetrics(router *mux.Router) {
	logx.Info("MONITORING", "Registering prometheus metrics")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
}

func SetChainLength(length int) {
	if vesselMetrics == nil {
		return
	}
	vesselMetrics.chainLength.Set(float64(length))
}

func IncreaseAppendedBlocks() {
	if vesselMetrics == nil {
		return
	}
	vesselMetrics.appendedBlocks.Inc()
}

func RecordVerifyFailure(reason string) {
	if vesselMetrics == nil {
		return
	}
	vesselMetrics.verifyFailures.With(prometheus.Labels{
		"reason": reason,
	}).Inc()
}

func AddDriftedBlocks(n int) {
	if vesselMetrics == nil {
		return
	}
	vesselMetrics.driftedBlocks.Add(float64(n))
}

func RecordOperationError(op Operation, code string) {
	if vesselMetrics == nil {
		return
	}
	if code == "" {
		code = "other"
	}
	vesselMetrics.operationErrors.With(prometheus.Labels{
		"operation": string(op),
		"code":      code,
	}).Inc()
}

func RecordOperationDuration(op Operation, duration time.Duration) {
	if vesselMetrics == nil {
		return
	}
	vesselMetrics.operationDuration.With(prometheus.Labels{
		"operation": string(op),
	}).Observe(duration.Seconds())
}

func RecordEmbeddedBytes(n int) {
	if vesselMetrics == nil {
		return
	}
	vesselMetrics.embeddedBytes.Observe(float64(n))
}

func RecordExtractedBytes(n int) {
	if vesselMetrics == nil {
		return
	}
	vesselMetrics.extractedBytes.Observe(float64(n))
}

func IncreasePanicCount() {
	if vesselMetrics == nil {
		return
	}
	vesselMetrics.panicCount.Inc()
}
