package metrics

import "github.com/Jyouping/brooklin/types"

// NopMetrics implements a no-op metrics collector.
//
// All metrics are discarded. Useful for testing or when external
// metrics collection is used.
type NopMetrics struct{}

// Compile-time assertion that NopMetrics implements MetricsCollector.
var _ types.MetricsCollector = (*NopMetrics)(nil)

// NewNop creates a new no-op metrics collector.
//
// Returns:
//   - *NopMetrics: A new no-op metrics collector instance
//
// Example:
//
//	metrics := metrics.NewNop()
//	mgr, err := brooklin.NewManager(&cfg, conn, src, strat, brooklin.WithMetrics(metrics))
func NewNop() *NopMetrics {
	return &NopMetrics{}
}

// AssignmentMetrics implementation

func (n *NopMetrics) RecordRebalanceDuration(_ float64, _ string) {}

func (n *NopMetrics) RecordRebalanceAttempt(_ string, _ bool) {}

func (n *NopMetrics) RecordPartitionCount(_ string, _ int) {}

func (n *NopMetrics) RecordAssignmentChange(_ string, _, _ int, _ int64) {}

func (n *NopMetrics) RecordKVOperationDuration(_ string, _ float64) {}

// BinlogMetrics implementation

func (n *NopMetrics) RecordTransactionCommitted(_ int) {}

func (n *NopMetrics) RecordTransactionRolledBack() {}

func (n *NopMetrics) RecordUnknownTableID() {}

func (n *NopMetrics) RecordProducerSendFailure() {}

// TaskConsumerMetrics implementation

func (n *NopMetrics) IncrementTaskConsumerControlRetry(_ string) {}

func (n *NopMetrics) RecordTaskConsumerRetryBackoff(_ string, _ float64) {}

func (n *NopMetrics) SetTaskConsumerSubjectsCurrent(_ int) {}

func (n *NopMetrics) IncrementTaskConsumerSubjectChange(_ string, _ int) {}

func (n *NopMetrics) IncrementTaskConsumerGuardrailViolation(_ string) {}

func (n *NopMetrics) IncrementTaskConsumerSubjectThresholdWarning() {}

func (n *NopMetrics) RecordTaskConsumerUpdate(_ string) {}

func (n *NopMetrics) ObserveTaskConsumerUpdateLatency(_ float64) {}

func (n *NopMetrics) IncrementTaskConsumerIteratorRestart(_ string) {}

func (n *NopMetrics) IncrementTaskConsumerIteratorEscalation() {}

func (n *NopMetrics) SetTaskConsumerConsecutiveIteratorFailures(_ int) {}

func (n *NopMetrics) SetTaskConsumerHealthStatus(_ bool) {}

func (n *NopMetrics) IncrementTaskConsumerRecreationAttempt(_ string) {}

func (n *NopMetrics) RecordTaskConsumerRecreation(_ string, _ string) {}

func (n *NopMetrics) ObserveTaskConsumerRecreationDuration(_ float64) {}
