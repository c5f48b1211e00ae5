package metrics

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewNop(t *testing.T) {
	metrics := NewNop()

	require.NotNil(t, metrics)
	require.IsType(t, &NopMetrics{}, metrics)
}

func TestNopMetrics_AssignmentMetrics(t *testing.T) {
	metrics := NewNop()

	require.NotPanics(t, func() {
		metrics.RecordRebalanceDuration(1.5, "partition_change")
		metrics.RecordRebalanceAttempt("partition_change", true)
		metrics.RecordPartitionCount("orders", 7)
		metrics.RecordAssignmentChange("orders", 5, 3, 42)
		metrics.RecordKVOperationDuration("put", 0.01)
	})
}

func TestNopMetrics_BinlogMetrics(t *testing.T) {
	metrics := NewNop()

	require.NotPanics(t, func() {
		metrics.RecordTransactionCommitted(3)
		metrics.RecordTransactionRolledBack()
		metrics.RecordUnknownTableID()
		metrics.RecordProducerSendFailure()
	})
}

func TestNopMetrics_TaskConsumerMetrics(t *testing.T) {
	metrics := NewNop()

	require.NotPanics(t, func() {
		metrics.IncrementTaskConsumerControlRetry("get")
		metrics.RecordTaskConsumerRetryBackoff("get", 0.1)
		metrics.SetTaskConsumerSubjectsCurrent(10)
		metrics.IncrementTaskConsumerSubjectChange("add", 1)
		metrics.IncrementTaskConsumerGuardrailViolation("max_subjects")
		metrics.IncrementTaskConsumerSubjectThresholdWarning()
		metrics.RecordTaskConsumerUpdate("success")
		metrics.ObserveTaskConsumerUpdateLatency(0.05)
		metrics.IncrementTaskConsumerIteratorRestart("transient")
		metrics.IncrementTaskConsumerIteratorEscalation()
		metrics.SetTaskConsumerConsecutiveIteratorFailures(2)
		metrics.SetTaskConsumerHealthStatus(true)
		metrics.IncrementTaskConsumerRecreationAttempt("missing_consumer")
		metrics.RecordTaskConsumerRecreation("success", "missing_consumer")
		metrics.ObserveTaskConsumerRecreationDuration(0.3)
	})
}

func BenchmarkNopMetrics_RecordAssignmentChange(b *testing.B) {
	metrics := NewNop()
	for b.Loop() {
		metrics.RecordAssignmentChange("orders", 5, 3, 42)
	}
}

func BenchmarkNopMetrics_RecordTransactionCommitted(b *testing.B) {
	metrics := NewNop()
	for b.Loop() {
		metrics.RecordTransactionCommitted(3)
	}
}
