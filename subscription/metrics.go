package subscription

import "github.com/Jyouping/brooklin/types"

// emitControlRetry delegates retry increment to the given metrics collector if provided.
func emitControlRetry(mc types.MetricsCollector, op string) {
	if mc == nil {
		return
	}
	mc.IncrementTaskConsumerControlRetry(op)
}

// emitRetryBackoff delegates backoff observation to the given metrics collector.
func emitRetryBackoff(mc types.MetricsCollector, op string, dSec float64) {
	if mc == nil {
		return
	}
	mc.RecordTaskConsumerRetryBackoff(op, dSec)
}

// emitIteratorRestart records a pull-iterator recreation, classified by reason
// ("heartbeat", "connectivity", or "transient").
func emitIteratorRestart(mc types.MetricsCollector, reason string) {
	if mc == nil {
		return
	}
	mc.IncrementTaskConsumerIteratorRestart(reason)
}

// emitIteratorEscalation records that a burst of iterator failures forced a
// full consumer recreation rather than just a new iterator.
func emitIteratorEscalation(mc types.MetricsCollector) {
	if mc == nil {
		return
	}
	mc.IncrementTaskConsumerIteratorEscalation()
}

// emitConsecutiveIteratorFailures reports the current consecutive-failure streak.
func emitConsecutiveIteratorFailures(mc types.MetricsCollector, count int) {
	if mc == nil {
		return
	}
	mc.SetTaskConsumerConsecutiveIteratorFailures(count)
}

// emitHealthStatus reports whether the consumer is currently considered healthy.
func emitHealthStatus(mc types.MetricsCollector, healthy bool) {
	if mc == nil {
		return
	}
	mc.SetTaskConsumerHealthStatus(healthy)
}

// emitRecreationAttempt records an attempt to recreate a durable consumer.
func emitRecreationAttempt(mc types.MetricsCollector, reason string) {
	if mc == nil {
		return
	}
	mc.IncrementTaskConsumerRecreationAttempt(reason)
}

// emitRecreationResult records the outcome ("success" or "failure") of a
// single consumer-recreation attempt.
func emitRecreationResult(mc types.MetricsCollector, result, reason string) {
	if mc == nil {
		return
	}
	mc.RecordTaskConsumerRecreation(result, reason)
}

// emitRecreationDuration records how long a full recreation attempt sequence took.
func emitRecreationDuration(mc types.MetricsCollector, seconds float64) {
	if mc == nil {
		return
	}
	mc.ObserveTaskConsumerRecreationDuration(seconds)
}
