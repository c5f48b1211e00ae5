package subscription

import (
	"time"

	"github.com/Jyouping/brooklin/internal/logging"
	"github.com/Jyouping/brooklin/internal/metrics"
	"github.com/Jyouping/brooklin/types"
	"github.com/nats-io/nats.go/jetstream"
)

// TaskConsumerConfig configures a TaskConsumer.
//
// Required fields:
//   - StreamName
//   - ConsumerPrefix
//   - SubjectTemplate
//
// Optional tuning fields are documented inline below. Zero values are replaced by
// sensible defaults via applyDefaults().
type TaskConsumerConfig struct {
	StreamName      string
	ConsumerPrefix  string
	SubjectTemplate string

	AckPolicy         jetstream.AckPolicy
	AckWait           time.Duration
	MaxDeliver        int
	InactiveThreshold time.Duration

	BatchSize    int
	MaxWaiting   int
	FetchTimeout time.Duration

	// MaxRetries bounds the initial CreateOrUpdateConsumer retry loop run
	// from UpdateTaskConsumer.
	MaxRetries int

	// RetryBase, RetryMax, and RetryMultiplier drive the jittered backoff
	// used both by the UpdateTaskConsumer retry loop and by the pull loop's
	// iterator-recreation backoff. RetryBackoff is the flat delay after a
	// failed attempt to create the pull iterator, and the value RetryBase
	// takes when left at zero.
	RetryBackoff    time.Duration
	RetryBase       time.Duration
	RetryMax        time.Duration
	RetryMultiplier float64

	// HealthFailureThreshold is the number of consecutive pull-iterator
	// failures after which the consumer reports itself unhealthy via
	// Metrics.SetTaskConsumerHealthStatus.
	HealthFailureThreshold int

	// IteratorEscalationWindow and IteratorEscalationThreshold together
	// decide when a burst of iterator failures is severe enough to force a
	// full consumer recreation rather than just recreating the iterator.
	IteratorEscalationWindow    time.Duration
	IteratorEscalationThreshold int

	// MaxRecreationRetries bounds the retry loop used when a consumer is
	// recreated in response to escalation or an externally deleted consumer.
	MaxRecreationRetries int

	Logger  types.Logger
	Metrics types.MetricsCollector
}

// applyDefaults fills unset optional fields with project defaults.
func (cfg *TaskConsumerConfig) applyDefaults() {
	if cfg.AckPolicy == 0 {
		cfg.AckPolicy = jetstream.AckExplicitPolicy
	}
	if cfg.AckWait == 0 {
		cfg.AckWait = DefaultAckWait
	}
	if cfg.MaxDeliver == 0 {
		cfg.MaxDeliver = DefaultMaxDeliver
	}
	if cfg.InactiveThreshold == 0 {
		cfg.InactiveThreshold = DefaultInactiveThreshold
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.MaxWaiting == 0 {
		cfg.MaxWaiting = DefaultMaxWaiting
	}
	if cfg.FetchTimeout == 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = DefaultRetryBackoff
	}
	if cfg.RetryBase == 0 {
		cfg.RetryBase = cfg.RetryBackoff
	}
	if cfg.RetryMax == 0 {
		cfg.RetryMax = 10 * cfg.RetryBase
	}
	if cfg.RetryMultiplier == 0 {
		cfg.RetryMultiplier = DefaultRetryMultiplier
	}
	if cfg.HealthFailureThreshold == 0 {
		cfg.HealthFailureThreshold = DefaultHealthFailureThreshold
	}
	if cfg.IteratorEscalationWindow == 0 {
		cfg.IteratorEscalationWindow = DefaultIteratorEscalationWindow
	}
	if cfg.IteratorEscalationThreshold == 0 {
		cfg.IteratorEscalationThreshold = DefaultIteratorEscalationThreshold
	}
	if cfg.MaxRecreationRetries == 0 {
		cfg.MaxRecreationRetries = DefaultMaxRecreationRetries
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNop()
	}
}
