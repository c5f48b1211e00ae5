package types

// MetricsCollector defines methods for recording operational metrics.
//
// Implementations should be non-blocking and handle failures gracefully.
// All methods are called from internal goroutines and must be thread-safe.
//
// This interface composes smaller, domain-focused interfaces for better modularity.
type MetricsCollector interface {
	AssignmentMetrics
	BinlogMetrics
	TaskConsumerMetrics
}

// AssignmentMetrics defines metrics for the sticky partition assignment engine.
type AssignmentMetrics interface {
	// RecordRebalanceDuration records the time taken for a rebalance operation.
	//
	// Parameters:
	//   - duration: Time taken in seconds
	//   - reason: Rebalance reason ("partition_change" or "target_change")
	RecordRebalanceDuration(duration float64, reason string)

	// RecordRebalanceAttempt records a rebalance attempt (success or failure).
	//
	// Parameters:
	//   - reason: Rebalance reason
	//   - success: true if rebalance succeeded, false otherwise
	RecordRebalanceAttempt(reason string, success bool)

	// RecordPartitionCount sets the current partition count for a group (gauge metric).
	//
	// Parameters:
	//   - group: DatastreamGroup name
	//   - count: Current number of partitions being managed
	RecordPartitionCount(group string, count int)

	// RecordAssignmentChange records task assignment changes for a group.
	RecordAssignmentChange(group string, added, removed int, version int64)

	// RecordKVOperationDuration records NATS KV operation latency.
	//
	// Parameters:
	//   - operation: Operation type ("get", "put", "delete", "watch")
	//   - duration: Time taken in seconds
	RecordKVOperationDuration(operation string, duration float64)
}

// BinlogMetrics defines metrics for the MySQL binlog transaction assembler.
type BinlogMetrics interface {
	// RecordTransactionCommitted records a successfully assembled and emitted transaction.
	//
	// Parameters:
	//   - rowCount: Number of row-mutation events in the transaction
	RecordTransactionCommitted(rowCount int)

	// RecordTransactionRolledBack records a transaction discarded by a rollback event.
	RecordTransactionRolledBack()

	// RecordUnknownTableID records a row-mutation event referencing a table ID
	// with no preceding table-map event.
	RecordUnknownTableID()

	// RecordProducerSendFailure records a failed send to the outbound Producer.
	RecordProducerSendFailure()
}

// TaskConsumerMetrics defines metrics for the per-instance durable
// subscription consumer (see the subscription package).
type TaskConsumerMetrics interface {
	IncrementTaskConsumerControlRetry(op string)
	RecordTaskConsumerRetryBackoff(op string, seconds float64)
	SetTaskConsumerSubjectsCurrent(count int)
	IncrementTaskConsumerSubjectChange(kind string, count int)
	IncrementTaskConsumerGuardrailViolation(kind string)
	IncrementTaskConsumerSubjectThresholdWarning()
	RecordTaskConsumerUpdate(result string)
	ObserveTaskConsumerUpdateLatency(seconds float64)
	IncrementTaskConsumerIteratorRestart(reason string)
	IncrementTaskConsumerIteratorEscalation()
	SetTaskConsumerConsecutiveIteratorFailures(count int)
	SetTaskConsumerHealthStatus(healthy bool)
	IncrementTaskConsumerRecreationAttempt(reason string)
	RecordTaskConsumerRecreation(result string, reason string)
	ObserveTaskConsumerRecreationDuration(seconds float64)
}
