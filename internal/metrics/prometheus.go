package metrics

import (
	"sync"

	"github.com/Jyouping/brooklin/types"
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector implements types.MetricsCollector backed by Prometheus.
//
// It instruments the TaskConsumer, assignment and binlog metric families.
// It embeds NopMetrics, so any MetricsCollector method it does not override
// is a no-op.
type PrometheusCollector struct {
	*NopMetrics

	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	// TaskConsumer metrics
	wcRetryCounter             *prometheus.CounterVec
	wcBackoffHistogram         *prometheus.HistogramVec
	wcSubjectsGauge            prometheus.Gauge
	wcSubjectChanges           *prometheus.CounterVec
	wcGuardrailViolations      *prometheus.CounterVec
	wcSubjectThresholdWarnings prometheus.Counter
	wcUpdateResults            *prometheus.CounterVec
	wcUpdateLatency            prometheus.Histogram
	wcIteratorRestarts         *prometheus.CounterVec
	wcIteratorEscalations      prometheus.Counter
	wcConsecutiveFailures      prometheus.Gauge
	wcHealthStatus             prometheus.Gauge
	wcRecreationAttempts       *prometheus.CounterVec
	wcRecreations              *prometheus.CounterVec
	wcRecreationDuration       prometheus.Histogram

	// Assignment engine metrics
	rebalanceDuration   *prometheus.HistogramVec
	rebalanceAttempts   *prometheus.CounterVec
	partitionCount      *prometheus.GaugeVec
	assignmentVersion   *prometheus.GaugeVec
	kvOperationDuration *prometheus.HistogramVec

	// Binlog assembler metrics
	txnCommitted     prometheus.Counter
	txnCommittedRows prometheus.Histogram
	txnRolledBack    prometheus.Counter
	unknownTableID   prometheus.Counter
	producerFailures prometheus.Counter
}

// Compile-time assertion that PrometheusCollector implements MetricsCollector.
var _ types.MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheus creates a new Prometheus-backed metrics collector.
//
// Parameters:
//   - reg: Prometheus registerer interface (uses prometheus.DefaultRegisterer if nil)
//   - namespace: Prometheus metrics namespace (defaults to "brooklin" if empty)
//
// Returns:
//   - *PrometheusCollector: A MetricsCollector implementation using Prometheus
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "brooklin"
	}

	return &PrometheusCollector{NopMetrics: NewNop(), reg: reg, namespace: namespace}
}

func (p *PrometheusCollector) ensureRegistered() {
	p.once.Do(func() {
		p.wcRetryCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "worker_consumer",
			Name:      "control_retries_total",
			Help:      "Total control-plane retry attempts by operation.",
		}, []string{"op"})

		p.wcBackoffHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "worker_consumer",
			Name:      "retry_backoff_seconds",
			Help:      "Observed control-plane backoff durations in seconds by operation.",
			Buckets:   []float64{0.05, 0.1, 0.15, 0.25, 0.5, 1, 2, 5},
		}, []string{"op"})

		p.wcSubjectsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "worker_consumer",
			Name:      "subjects_current",
			Help:      "Current number of filter subjects on the instance consumer.",
		})
		p.wcSubjectChanges = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "worker_consumer",
			Name:      "subject_changes_total",
			Help:      "Total subject changes by kind (add/remove).",
		}, []string{"kind"})
		p.wcGuardrailViolations = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "worker_consumer",
			Name:      "guardrail_violations_total",
			Help:      "Total guardrail violations (max_subjects, workerid_mutation).",
		}, []string{"kind"})
		p.wcSubjectThresholdWarnings = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "worker_consumer",
			Name:      "subject_threshold_warnings_total",
			Help:      "Warnings emitted when subjects near the MaxSubjects threshold.",
		})

		p.wcUpdateResults = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "worker_consumer",
			Name:      "update_results_total",
			Help:      "Total instance consumer update outcomes (success,failure,noop).",
		}, []string{"result"})

		p.wcUpdateLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "worker_consumer",
			Name:      "update_latency_seconds",
			Help:      "Latency of instance consumer update operations in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 1.6, 10), // 10ms .. ~1.6s
		})

		p.wcIteratorRestarts = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "worker_consumer",
			Name:      "iterator_restarts_total",
			Help:      "Total iterator restarts by reason (transient,heartbeat).",
		}, []string{"reason"})

		p.wcIteratorEscalations = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "worker_consumer",
			Name:      "iterator_escalations_total",
			Help:      "Total iterator escalation events that triggered a consumer refresh.",
		})

		p.wcConsecutiveFailures = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "worker_consumer",
			Name:      "consecutive_iterator_failures",
			Help:      "Current number of consecutive iterator failures without success.",
		})

		p.wcHealthStatus = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "worker_consumer",
			Name:      "health_status",
			Help:      "Instance consumer health status (1=healthy,0=unhealthy).",
		})

		p.wcRecreationAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "worker_consumer",
			Name:      "recreation_attempts_total",
			Help:      "Total attempts to recreate missing/invalid consumer by reason.",
		}, []string{"reason"})

		p.wcRecreations = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "worker_consumer",
			Name:      "recreations_total",
			Help:      "Recreation outcomes (success|failure) by reason.",
		}, []string{"result", "reason"})

		p.wcRecreationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "worker_consumer",
			Name:      "recreation_duration_seconds",
			Help:      "Total duration in seconds of consumer recreation sequences.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
		})

		p.reg.MustRegister(p.wcRetryCounter)
		p.reg.MustRegister(p.wcBackoffHistogram)
		p.reg.MustRegister(p.wcSubjectsGauge)
		p.reg.MustRegister(p.wcSubjectChanges)
		p.reg.MustRegister(p.wcGuardrailViolations)
		p.reg.MustRegister(p.wcSubjectThresholdWarnings)
		p.reg.MustRegister(p.wcUpdateResults)
		p.reg.MustRegister(p.wcUpdateLatency)
		p.reg.MustRegister(p.wcIteratorRestarts)
		p.reg.MustRegister(p.wcIteratorEscalations)
		p.reg.MustRegister(p.wcConsecutiveFailures)
		p.reg.MustRegister(p.wcHealthStatus)
		p.reg.MustRegister(p.wcRecreationAttempts)
		p.reg.MustRegister(p.wcRecreations)
		p.reg.MustRegister(p.wcRecreationDuration)

		p.rebalanceDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "assignment",
			Name:      "rebalance_duration_seconds",
			Help:      "Duration of sticky rebalance operations by reason.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"reason"})

		p.rebalanceAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "assignment",
			Name:      "rebalance_attempts_total",
			Help:      "Rebalance attempts by reason and outcome.",
		}, []string{"reason", "result"})

		p.partitionCount = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "assignment",
			Name:      "partition_count",
			Help:      "Current partition count for a datastream group.",
		}, []string{"group"})

		p.assignmentVersion = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "assignment",
			Name:      "version",
			Help:      "Most recently published assignment version for a group.",
		}, []string{"group"})

		p.kvOperationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "assignment",
			Name:      "kv_operation_duration_seconds",
			Help:      "NATS KV operation latency by operation type.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"})

		p.txnCommitted = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "binlog",
			Name:      "transactions_committed_total",
			Help:      "Total transactions assembled and emitted.",
		})

		p.txnCommittedRows = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "binlog",
			Name:      "transaction_rows",
			Help:      "Row-mutation count per emitted transaction.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		})

		p.txnRolledBack = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "binlog",
			Name:      "transactions_rolled_back_total",
			Help:      "Total transactions discarded by a rollback event.",
		})

		p.unknownTableID = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "binlog",
			Name:      "unknown_table_id_total",
			Help:      "Row events referencing a table ID with no preceding table-map event.",
		})

		p.producerFailures = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "binlog",
			Name:      "producer_send_failures_total",
			Help:      "Failed sends to the outbound producer.",
		})

		p.reg.MustRegister(p.rebalanceDuration)
		p.reg.MustRegister(p.rebalanceAttempts)
		p.reg.MustRegister(p.partitionCount)
		p.reg.MustRegister(p.assignmentVersion)
		p.reg.MustRegister(p.kvOperationDuration)
		p.reg.MustRegister(p.txnCommitted)
		p.reg.MustRegister(p.txnCommittedRows)
		p.reg.MustRegister(p.txnRolledBack)
		p.reg.MustRegister(p.unknownTableID)
		p.reg.MustRegister(p.producerFailures)
	})
}

// AssignmentMetrics implementation

// RecordRebalanceDuration observes a rebalance operation's duration by reason.
func (p *PrometheusCollector) RecordRebalanceDuration(duration float64, reason string) {
	p.ensureRegistered()
	p.rebalanceDuration.WithLabelValues(reason).Observe(duration)
}

// RecordRebalanceAttempt counts a rebalance attempt by reason and outcome.
func (p *PrometheusCollector) RecordRebalanceAttempt(reason string, success bool) {
	p.ensureRegistered()
	result := "success"
	if !success {
		result = "failure"
	}
	p.rebalanceAttempts.WithLabelValues(reason, result).Inc()
}

// RecordPartitionCount sets the current partition count gauge for a group.
func (p *PrometheusCollector) RecordPartitionCount(group string, count int) {
	p.ensureRegistered()
	p.partitionCount.WithLabelValues(group).Set(float64(count))
}

// RecordAssignmentChange records the published assignment version for a group.
func (p *PrometheusCollector) RecordAssignmentChange(group string, _, _ int, version int64) {
	p.ensureRegistered()
	p.assignmentVersion.WithLabelValues(group).Set(float64(version))
}

// RecordKVOperationDuration observes NATS KV operation latency.
func (p *PrometheusCollector) RecordKVOperationDuration(operation string, duration float64) {
	p.ensureRegistered()
	p.kvOperationDuration.WithLabelValues(operation).Observe(duration)
}

// BinlogMetrics implementation

// RecordTransactionCommitted counts an emitted transaction and its row count.
func (p *PrometheusCollector) RecordTransactionCommitted(rowCount int) {
	p.ensureRegistered()
	p.txnCommitted.Inc()
	p.txnCommittedRows.Observe(float64(rowCount))
}

// RecordTransactionRolledBack counts a discarded transaction.
func (p *PrometheusCollector) RecordTransactionRolledBack() {
	p.ensureRegistered()
	p.txnRolledBack.Inc()
}

// RecordUnknownTableID counts a row event with no table-map entry.
func (p *PrometheusCollector) RecordUnknownTableID() {
	p.ensureRegistered()
	p.unknownTableID.Inc()
}

// RecordProducerSendFailure counts a failed producer send.
func (p *PrometheusCollector) RecordProducerSendFailure() {
	p.ensureRegistered()
	p.producerFailures.Inc()
}

// TaskConsumerMetrics implementation

// IncrementTaskConsumerControlRetry increments retry attempts for the given op.
func (p *PrometheusCollector) IncrementTaskConsumerControlRetry(op string) {
	p.ensureRegistered()
	p.wcRetryCounter.WithLabelValues(op).Inc()
}

// RecordTaskConsumerRetryBackoff observes a backoff delay (seconds) for the given op.
func (p *PrometheusCollector) RecordTaskConsumerRetryBackoff(op string, seconds float64) {
	p.ensureRegistered()
	p.wcBackoffHistogram.WithLabelValues(op).Observe(seconds)
}

// SetTaskConsumerSubjectsCurrent sets current subject count.
func (p *PrometheusCollector) SetTaskConsumerSubjectsCurrent(count int) {
	p.ensureRegistered()
	p.wcSubjectsGauge.Set(float64(count))
}

// IncrementTaskConsumerSubjectChange increments subject add/remove counts.
func (p *PrometheusCollector) IncrementTaskConsumerSubjectChange(kind string, count int) {
	p.ensureRegistered()
	p.wcSubjectChanges.WithLabelValues(kind).Add(float64(count))
}

// IncrementTaskConsumerGuardrailViolation increments violations.
func (p *PrometheusCollector) IncrementTaskConsumerGuardrailViolation(kind string) {
	p.ensureRegistered()
	p.wcGuardrailViolations.WithLabelValues(kind).Inc()
}

// IncrementTaskConsumerSubjectThresholdWarning increments threshold warnings.
func (p *PrometheusCollector) IncrementTaskConsumerSubjectThresholdWarning() {
	p.ensureRegistered()
	p.wcSubjectThresholdWarnings.Inc()
}

// RecordTaskConsumerUpdate records the update result (success, failure, noop).
func (p *PrometheusCollector) RecordTaskConsumerUpdate(result string) {
	p.ensureRegistered()
	p.wcUpdateResults.WithLabelValues(result).Inc()
}

// ObserveTaskConsumerUpdateLatency observes update latency.
func (p *PrometheusCollector) ObserveTaskConsumerUpdateLatency(seconds float64) {
	p.ensureRegistered()
	p.wcUpdateLatency.Observe(seconds)
}

// IncrementTaskConsumerIteratorRestart increments iterator restart reason.
func (p *PrometheusCollector) IncrementTaskConsumerIteratorRestart(reason string) {
	p.ensureRegistered()
	p.wcIteratorRestarts.WithLabelValues(reason).Inc()
}

// IncrementTaskConsumerIteratorEscalation increments the iterator escalation counter.
func (p *PrometheusCollector) IncrementTaskConsumerIteratorEscalation() {
	p.ensureRegistered()
	p.wcIteratorEscalations.Inc()
}

// SetTaskConsumerConsecutiveIteratorFailures sets the consecutive failure gauge.
func (p *PrometheusCollector) SetTaskConsumerConsecutiveIteratorFailures(count int) {
	p.ensureRegistered()
	p.wcConsecutiveFailures.Set(float64(count))
}

// SetTaskConsumerHealthStatus sets health status gauge (1 healthy, 0 unhealthy).
func (p *PrometheusCollector) SetTaskConsumerHealthStatus(healthy bool) {
	p.ensureRegistered()
	if healthy {
		p.wcHealthStatus.Set(1)
	} else {
		p.wcHealthStatus.Set(0)
	}
}

// IncrementTaskConsumerRecreationAttempt increments recreation attempts.
func (p *PrometheusCollector) IncrementTaskConsumerRecreationAttempt(reason string) {
	p.ensureRegistered()
	p.wcRecreationAttempts.WithLabelValues(reason).Inc()
}

// RecordTaskConsumerRecreation records recreation outcome by result & reason.
func (p *PrometheusCollector) RecordTaskConsumerRecreation(result string, reason string) {
	p.ensureRegistered()
	p.wcRecreations.WithLabelValues(result, reason).Inc()
}

// ObserveTaskConsumerRecreationDuration observes recreation latency.
func (p *PrometheusCollector) ObserveTaskConsumerRecreationDuration(seconds float64) {
	p.ensureRegistered()
	p.wcRecreationDuration.Observe(seconds)
}
