package subscription

import "time"

// Default configuration values for TaskConsumer.
const (
	// DefaultBatchSize is the default number of messages to fetch per pull request.
	DefaultBatchSize = 1

	// DefaultMaxWaiting is the default maximum number of outstanding pull requests.
	DefaultMaxWaiting = 512

	// DefaultFetchTimeout is the default maximum duration to wait for messages.
	DefaultFetchTimeout = 5 * time.Second

	// DefaultMaxRetries is the default maximum number of retry attempts.
	DefaultMaxRetries = 3

	// DefaultRetryBackoff is the default duration between retry attempts.
	DefaultRetryBackoff = 100 * time.Millisecond

	// DefaultAckWait is the default duration to wait for acknowledgment.
	DefaultAckWait = 30 * time.Second

	// DefaultMaxDeliver is the default maximum delivery attempts.
	DefaultMaxDeliver = 3

	// DefaultInactiveThreshold is the default inactive consumer cleanup threshold.
	DefaultInactiveThreshold = 24 * time.Hour

	// DefaultRetryMultiplier is the default growth factor applied between
	// successive jittered backoff delays.
	DefaultRetryMultiplier = 2.0

	// DefaultHealthFailureThreshold is the default number of consecutive
	// iterator failures after which the consumer is reported unhealthy.
	DefaultHealthFailureThreshold = 5

	// DefaultIteratorEscalationWindow is the default window over which
	// repeated iterator failures are counted toward escalation.
	DefaultIteratorEscalationWindow = 30 * time.Second

	// DefaultIteratorEscalationThreshold is the default number of iterator
	// failures within IteratorEscalationWindow that triggers a forced
	// consumer recreation.
	DefaultIteratorEscalationThreshold = 5

	// DefaultMaxRecreationRetries is the default number of attempts made to
	// recreate a durable consumer once escalation is triggered.
	DefaultMaxRecreationRetries = 3
)
