package subscription

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/Jyouping/brooklin/internal/natsutil"
	"github.com/Jyouping/brooklin/types"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// TaskConsumer manages a single JetStream durable pull consumer per instance for partition-based work distribution.
type TaskConsumer struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	config TaskConsumerConfig
	logger types.Logger

	// Template for subject generation
	subjectTemplate *template.Template

	// iterFactory creates the pull-message iterator for a consumer; overridable
	// in tests to simulate iterator behavior without a live JetStream server.
	iterFactory func(cons jetstream.Consumer, batch int, expiry time.Duration) (jetstream.MessagesContext, error)

	// createOrUpdateFn applies a consumer config to the stream; overridable in
	// tests. Defaults to js.CreateOrUpdateConsumer.
	createOrUpdateFn func(ctx context.Context, stream string, cfg jetstream.ConsumerConfig) (jetstream.Consumer, error)

	// State tracking
	mu sync.RWMutex

	// Single-consumer (per instance) mode state
	instanceID     string
	workerConsumer jetstream.Consumer
	workerCancel   context.CancelFunc
	workerSubjects []string // last applied subjects (deduped, sorted)
	handler        MessageHandler
}

// subjectContext is the template context for subject generation.
type subjectContext struct {
	PartitionID string
}

// NewTaskConsumer creates a new durable consumer manager for a single instance.
//
// This helper implements the single-consumer (per-instance) pattern. Instead of
// creating one consumer per partition, it maintains a single durable pull
// consumer whose FilterSubjects set (plural) is updated whenever the instance's
// assignment changes. This greatly reduces JetStream consumer churn and avoids
// expensive restart storms during rapid scaling events while still allowing
// precise subject-level filtering.
//
// The helper handles:
//   - Durable consumer creation (CreateOrUpdateConsumer)
//   - Subject template expansion per partition (deduped + sorted)
//   - Resilient pull loop with heartbeat tolerance
//   - ACK/NAK semantics driven by the injected MessageHandler
//
// Optional configuration fields are automatically set to sensible defaults if
// not provided. The message handler is required and immutable for the lifetime
// of the helper.
//
// Parameters:
//   - conn: NATS connection (must be non-nil)
//   - cfg: Helper configuration with required fields (StreamName, ConsumerPrefix, SubjectTemplate)
//   - handler: Message handler invoked for each received JetStream message
//
// Returns:
//   - *TaskConsumer: Initialized helper with defaults applied
//   - error: Configuration, connection, template parsing, or handler error
//
// Example (minimal configuration with defaults):
//
//	helper, err := subscription.NewTaskConsumer(natsConn, subscription.TaskConsumerConfig{
//	    StreamName:      "work-stream",
//	    ConsumerPrefix:  "processor",
//	    SubjectTemplate: "metrics.{{.PartitionID}}.collected",
//	}, subscription.MessageHandlerFunc(func(ctx context.Context, msg jetstream.Msg) error {
//	    // process message
//	    return msg.Ack()
//	}))
//
// Example (with custom configuration):
//
//	helper, err := subscription.NewTaskConsumer(natsConn, subscription.TaskConsumerConfig{
//	    StreamName:        "work-stream",
//	    ConsumerPrefix:    "processor",
//	    SubjectTemplate:   "metrics.{{.PartitionID}}.collected",
//	    BatchSize:         50,               // Override default (1)
//	    FetchTimeout:      10 * time.Second, // Override default (5s)
//	    AckWait:           45 * time.Second, // Override default (30s)
//	    Logger:            myLogger,         // Optional: omit for no-op logger
//	}, subscription.MessageHandlerFunc(customHandler))
func NewTaskConsumer(conn *nats.Conn, cfg TaskConsumerConfig, handler MessageHandler) (*TaskConsumer, error) {
	if conn == nil {
		return nil, errors.New("NATS connection is required")
	}

	if cfg.StreamName == "" {
		return nil, errors.New("stream name is required")
	}

	if cfg.ConsumerPrefix == "" {
		return nil, errors.New("consumer prefix is required")
	}

	if cfg.SubjectTemplate == "" {
		return nil, errors.New("subject template is required")
	}

	if handler == nil {
		return nil, errors.New("message handler is required")
	}

	// Create JetStream context and delegate to NewTaskConsumerJS for construction
	js, err := jetstream.New(conn)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return NewTaskConsumerJS(js, cfg, handler)
}

// NewTaskConsumerJS creates a new TaskConsumer using a pre-initialized JetStream context.
//
// This overload enables looser coupling to the nats client by accepting the
// jetstream.JetStream interface instead of a concrete *nats.Conn. The underlying
// connection is captured via js.Conn() for internal status/logging when needed.
//
// Parameters:
//   - js: Pre-configured JetStream context (must be non-nil)
//   - cfg: Helper configuration with required fields
//   - handler: Message handler invoked for each received JetStream message
//
// Returns:
//   - *TaskConsumer: Initialized helper
//   - error: Configuration or template parsing error
func NewTaskConsumerJS(js jetstream.JetStream, cfg TaskConsumerConfig, handler MessageHandler) (*TaskConsumer, error) {
	if js == nil {
		return nil, errors.New("JetStream context is required")
	}

	// Validate essential cfg fields and handler (reuse same checks as NewTaskConsumer)
	if cfg.StreamName == "" {
		return nil, errors.New("stream name is required")
	}
	if cfg.ConsumerPrefix == "" {
		return nil, errors.New("consumer prefix is required")
	}
	if cfg.SubjectTemplate == "" {
		return nil, errors.New("subject template is required")
	}
	if handler == nil {
		return nil, errors.New("message handler is required")
	}

	// Apply defaults and parse template
	cfg.applyDefaults()
	tmpl, err := template.New("subject").Parse(cfg.SubjectTemplate)
	if err != nil {
		return nil, fmt.Errorf("invalid subject template: %w", err)
	}

	return &TaskConsumer{
		conn:             js.Conn(),
		js:               js,
		config:           cfg,
		logger:           cfg.Logger,
		subjectTemplate:  tmpl,
		iterFactory:      defaultIterFactory,
		createOrUpdateFn: js.CreateOrUpdateConsumer,
		workerSubjects:   nil,
		handler:          handler,
	}, nil
}

// defaultIterFactory is the production jetstream.Consumer.Messages call used
// unless a TaskConsumer's iterFactory is overridden (tests only).
func defaultIterFactory(cons jetstream.Consumer, batch int, expiry time.Duration) (jetstream.MessagesContext, error) {
	if cons == nil {
		return nil, errors.New("instance consumer not yet initialized")
	}

	return cons.Messages(
		jetstream.PullMaxMessages(batch),
		jetstream.PullExpiry(expiry),
		jetstream.PullHeartbeat(expiry/2),
	)
}

// UpdateTaskConsumer reconciles the instance-level durable consumer with the complete
// set of assigned partitions (single-consumer mode).
//
// Behavior:
//   - Builds subjects from partitions via the SubjectTemplate (deduped + sorted)
//   - Diffs against the previously applied subject list; no-op if unchanged
//   - Uses jetstream.CreateOrUpdateConsumer to atomically apply FilterSubjects
//   - Maintains a single long-lived pull loop (loop is started lazily on first update)
//   - Does NOT restart the pull loop on subsequent updates (hot-reload semantics)
//
// Idempotency: Calling with the same partition set is a no-op and returns nil.
//
// Concurrency: Safe for concurrent calls; internal locking ensures consistent state.
//
// Parameters:
//   - ctx: Context for cancellation and retry backoff timing
//   - instanceID: Stable instance identifier (forms durable name <ConsumerPrefix>-<instanceID>)
//   - partitions: Complete assignment slice (may be empty for no subjects)
//
// Returns:
//   - error: Non-nil only on unrecoverable configuration or JetStream API failure after retries
//
// Example:
//
//	helper, _ := subscription.NewTaskConsumer(nc, subscription.TaskConsumerConfig{
//	    StreamName:      "events",
//	    ConsumerPrefix:  "instance",
//	    SubjectTemplate: "events.{{.PartitionID}}",
//	}, subscription.MessageHandlerFunc(func(ctx context.Context, msg jetstream.Msg) error {
//	    // process
//	    return msg.Ack()
//	}))
//	// initial assignment
//	_ = helper.UpdateTaskConsumer(ctx, "instance-7", []types.Partition{{Keys: []string{"a","0"}}, {Keys: []string{"b","3"}}})
//	// later, assignment shrinks
//	_ = helper.UpdateTaskConsumer(ctx, "instance-7", []types.Partition{{Keys: []string{"a","0"}}})
func (dh *TaskConsumer) UpdateTaskConsumer(ctx context.Context, instanceID string, partitions []types.Partition) error {
	if instanceID == "" {
		return errors.New("instanceID is required")
	}

	// Build deduped, sorted subject list
	subjects, err := dh.buildSubjects(partitions)
	if err != nil {
		return err
	}

	dh.mu.Lock()
	// Capture prior instanceID to allow best-effort cleanup if it changes
	prevInstanceID := dh.instanceID
	// Fast no-op if nothing changed (and instanceID matches)
	if prevInstanceID == instanceID && equalStringSlices(subjects, dh.workerSubjects) {
		dh.mu.Unlock()
		return nil
	}
	dh.mu.Unlock()

	// Prepare consumer config
	durable := dh.sanitizeConsumerName(dh.config.ConsumerPrefix + "-" + instanceID)
	cfg := jetstream.ConsumerConfig{
		Name:              durable,
		Durable:           durable,
		FilterSubjects:    subjects,
		AckPolicy:         dh.config.AckPolicy,
		AckWait:           dh.config.AckWait,
		MaxDeliver:        dh.config.MaxDeliver,
		InactiveThreshold: dh.config.InactiveThreshold,
		MaxWaiting:        dh.config.MaxWaiting,
	}

	// Apply with retries using the JS manager to avoid extra stream lookup work
	var cons jetstream.Consumer
	var lastErr error
	var delay time.Duration
	for attempt := 0; attempt <= dh.config.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		cons, lastErr = dh.js.CreateOrUpdateConsumer(ctx, dh.config.StreamName, cfg)
		if lastErr == nil {
			break
		}
		reason := classifyConsumerError(lastErr)
		emitControlRetry(dh.config.Metrics, "update_consumer")
		if isTerminalConsumerError(lastErr) {
			return fmt.Errorf("failed to create/update instance consumer %s (%s): %w", durable, reason, lastErr)
		}
		if attempt >= dh.config.MaxRetries {
			return fmt.Errorf("failed to create/update instance consumer %s after %d attempts (%s): %w", durable, dh.config.MaxRetries+1, reason, lastErr)
		}
		delay = jitterBackoff(delay, dh.config.RetryBase, dh.config.RetryMultiplier, dh.config.RetryMax, nil)
		emitRetryBackoff(dh.config.Metrics, "update_consumer", delay.Seconds())
		dh.config.Logger.Debug("retrying instance consumer create/update", "consumer", durable, "attempt", attempt, "reason", reason, "delay", delay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	dh.mu.Lock()
	dh.instanceID = instanceID
	dh.workerConsumer = cons
	dh.workerSubjects = subjects
	// Ensure pull loop is running
	if dh.workerCancel == nil {
		// Start a background pull loop. Use background to decouple from caller ctx; cancellation via Close or future updates is handled internally.
		pullCtx, cancel := context.WithCancel(context.Background())
		dh.workerCancel = cancel
		go dh.runWorkerPullLoop(pullCtx)
	}
	dh.mu.Unlock()

	// Best-effort cleanup: if instanceID changed, attempt to delete the old durable consumer.
	if prevInstanceID != "" && prevInstanceID != instanceID {
		oldDurable := dh.sanitizeConsumerName(dh.config.ConsumerPrefix + "-" + prevInstanceID)
		go func(streamName, durable string) {
			// Short timeout, detached from caller's ctx
			delCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := dh.js.DeleteConsumer(delCtx, streamName, durable); err != nil {
				// Log and move on; do not fail the update path
				dh.logger.Warn("best-effort delete of old durable failed", "durable", durable, "error", err)
			} else {
				dh.logger.Info("deleted old durable after instanceID change", "durable", durable)
			}
		}(dh.config.StreamName, oldDurable)
	}

	return nil
}

// runWorkerPullLoop runs the single-consumer pull loop using the configured handler.
//
// Beyond simple message delivery, the loop tracks consecutive iterator
// failures to report health via Metrics, and escalates to a full consumer
// recreation (not just a new iterator) when failures cluster tightly enough
// within IteratorEscalationWindow to suggest the underlying consumer itself
// is gone or broken rather than just a transient pull hiccup.
func (dh *TaskConsumer) runWorkerPullLoop(ctx context.Context) {
	// Snapshot instanceID under read lock to avoid races with Close()
	dh.mu.RLock()
	durableName := dh.sanitizeConsumerName(dh.config.ConsumerPrefix + "-" + dh.instanceID)
	dh.mu.RUnlock()
	dh.logger.Debug("starting instance pull loop", "durable", durableName)

	iterFactory := dh.iterFactory
	if iterFactory == nil {
		iterFactory = defaultIterFactory
	}

	consecutiveFailures := 0
	escalationCount := 0
	var escalationWindowStart time.Time
	var backoffDelay time.Duration

	for {
		dh.mu.RLock()
		cons := dh.workerConsumer
		handler := dh.handler
		batch := dh.config.BatchSize
		expiry := dh.config.FetchTimeout
		dh.mu.RUnlock()

		iter, err := iterFactory(cons, batch, expiry)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			dh.logger.Error("failed to create instance message iterator", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(dh.config.RetryBackoff):
				continue
			}
		}

		// Iterate until error or context cancel
		for {
			select {
			case <-ctx.Done():
				iter.Stop()
				return
			default:
			}

			msg, err := iter.Next()
			if err != nil {
				iter.Stop()
				if errors.Is(err, jetstream.ErrMsgIteratorClosed) {
					return
				}
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return
				}

				reason := "transient"
				switch {
				case errors.Is(err, jetstream.ErrNoHeartbeat):
					reason = "heartbeat"
					dh.logger.Error("instance pull loop: no heartbeat", "error", err)
				case natsutil.IsConnectivityError(err):
					reason = "connectivity"
					dh.logger.Debug("instance pull loop: connectivity error, retrying", "error", err)
				default:
					dh.logger.Warn("instance pull loop: iterator error, retrying", "error", err)
				}

				emitIteratorRestart(dh.config.Metrics, reason)
				consecutiveFailures++
				emitConsecutiveIteratorFailures(dh.config.Metrics, consecutiveFailures)
				emitHealthStatus(dh.config.Metrics, consecutiveFailures < dh.config.HealthFailureThreshold)

				now := time.Now()
				if escalationWindowStart.IsZero() || now.Sub(escalationWindowStart) > dh.config.IteratorEscalationWindow {
					escalationWindowStart = now
					escalationCount = 0
				}
				escalationCount++

				if escalationCount >= dh.config.IteratorEscalationThreshold {
					emitIteratorEscalation(dh.config.Metrics)
					dh.logger.Warn("instance pull loop: escalating to consumer recreation", "durable", durableName, "failures", escalationCount)
					escalationCount = 0
					escalationWindowStart = time.Time{}

					dh.mu.RLock()
					subjects := dh.workerSubjects
					dh.mu.RUnlock()

					if newCons, rerr := dh.recreateDurableConsumer(ctx, durableName, subjects, reason); rerr == nil {
						dh.mu.Lock()
						dh.workerConsumer = newCons
						dh.mu.Unlock()
					} else {
						dh.logger.Warn("instance pull loop: consumer recreation failed", "error", rerr)
					}
				}

				backoffDelay = jitterBackoff(backoffDelay, dh.config.RetryBase, dh.config.RetryMultiplier, dh.config.RetryMax, nil)
				select {
				case <-ctx.Done():
					return
				case <-time.After(backoffDelay):
				}

				break
			}

			consecutiveFailures = 0
			backoffDelay = 0
			emitConsecutiveIteratorFailures(dh.config.Metrics, 0)
			emitHealthStatus(dh.config.Metrics, true)

			if handler == nil {
				// No handler configured yet; NAK to retry later and avoid message loss
				_ = msg.Nak()
				continue
			}

			if err := handler.Handle(ctx, msg); err != nil {
				_ = msg.Nak()
			} else {
				_ = msg.Ack()
			}
		}
		// loop to recreate iterator
	}
}

// recreateDurableConsumer rebuilds the durable consumer from scratch, used
// when the pull loop's iterator escalation decides a new iterator alone
// won't fix things (e.g. the consumer was deleted externally). It retries
// up to MaxRecreationRetries times with jittered backoff, and reports a
// single duration observation covering the whole attempt sequence regardless
// of outcome.
func (dh *TaskConsumer) recreateDurableConsumer(ctx context.Context, durable string, subjects []string, reason string) (jetstream.Consumer, error) {
	cfg := jetstream.ConsumerConfig{
		Name:              durable,
		Durable:           durable,
		FilterSubjects:    subjects,
		AckPolicy:         dh.config.AckPolicy,
		AckWait:           dh.config.AckWait,
		MaxDeliver:        dh.config.MaxDeliver,
		InactiveThreshold: dh.config.InactiveThreshold,
		MaxWaiting:        dh.config.MaxWaiting,
	}

	createOrUpdate := dh.createOrUpdateFn
	if createOrUpdate == nil {
		createOrUpdate = dh.js.CreateOrUpdateConsumer
	}

	maxAttempts := dh.config.MaxRecreationRetries
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	start := time.Now()
	var lastErr error
	var delay time.Duration
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		emitRecreationAttempt(dh.config.Metrics, reason)
		cons, err := createOrUpdate(ctx, dh.config.StreamName, cfg)
		if err == nil {
			emitRecreationResult(dh.config.Metrics, "success", reason)
			emitRecreationDuration(dh.config.Metrics, time.Since(start).Seconds())

			return cons, nil
		}

		lastErr = err
		emitRecreationResult(dh.config.Metrics, "failure", reason)
		if attempt == maxAttempts-1 {
			break
		}

		delay = jitterBackoff(delay, dh.config.RetryBase, dh.config.RetryMultiplier, dh.config.RetryMax, nil)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	emitRecreationDuration(dh.config.Metrics, time.Since(start).Seconds())

	return nil, fmt.Errorf("failed to recreate durable consumer %s after %d attempts (%s): %w", durable, maxAttempts, reason, lastErr)
}

// Close stops all pull loops and cleans up resources.
//
// Consumers are NOT deleted from NATS - they will be automatically cleaned up
// by NATS based on InactiveThreshold setting.
//
// Parameters:
//   - ctx: Context for graceful shutdown timeout
//
// Returns:
//   - error: Cleanup error
//
// Example:
//
//	defer helper.Close(context.Background())
func (dh *TaskConsumer) Close(ctx context.Context) error {
	dh.mu.Lock()
	defer dh.mu.Unlock()

	dh.logger.Info("closing durable helper")

	// Cancel instance single-consumer pull loop if running
	if dh.workerCancel != nil {
		dh.logger.Debug("cancelling instance pull loop", "instanceID", dh.instanceID)
		dh.workerCancel()
		dh.workerCancel = nil
	}

	dh.workerConsumer = nil
	dh.workerSubjects = nil
	dh.instanceID = ""

	// Wait a bit for goroutines to exit gracefully
	select {
	case <-ctx.Done():
		dh.logger.Warn("close context cancelled before graceful shutdown completed")

		return ctx.Err()
	case <-time.After(100 * time.Millisecond):
		// Continue
	}

	dh.logger.Info("durable helper closed successfully")

	return nil
}

// TaskConsumerInfo returns the JetStream ConsumerInfo for the instance-level durable consumer
// created/managed by UpdateTaskConsumer.
//
// Behavior:
//   - Returns an error if UpdateTaskConsumer has not been called yet (consumer uninitialized)
//   - Delegates to the Consumer.Info(ctx) call with the provided context
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//
// Returns:
//   - *jetstream.ConsumerInfo: Consumer metadata and current FilterSubjects
//   - error: Non-nil if consumer is not initialized or Info() call fails
func (dh *TaskConsumer) TaskConsumerInfo(ctx context.Context) (*jetstream.ConsumerInfo, error) {
	dh.mu.RLock()
	cons := dh.workerConsumer
	dh.mu.RUnlock()
	if cons == nil {
		return nil, errors.New("instance consumer not initialized")
	}
	info, err := cons.Info(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get instance consumer info: %w", err)
	}

	return info, nil
}

// WorkerSubjects returns a copy of the last applied FilterSubjects list for the instance-level
// durable consumer managed by UpdateTaskConsumer.
//
// Returns:
//   - []string: Copy of subject list (nil if consumer not yet initialized)
//
// Example:
//
//	subjects := helper.WorkerSubjects()
//	for _, s := range subjects { log.Println("subject", s) }
func (dh *TaskConsumer) WorkerSubjects() []string {
	dh.mu.RLock()
	defer dh.mu.RUnlock()
	if dh.workerSubjects == nil {
		return nil
	}

	out := make([]string, len(dh.workerSubjects))
	copy(out, dh.workerSubjects)

	return out
}

// sanitizeConsumerName replaces invalid characters from consumer name to underscore (_).
//
// NATS consumer name restrictions:
// - Cannot contain whitespace
// - Cannot contain . (dot)
// - Cannot contain * (asterisk)
// - Cannot contain > (greater than)
// - Cannot contain path separators (/ or \)
// - Cannot contain non-printable characters
//
// We replace invalid characters with underscore (_).
func (dh *TaskConsumer) sanitizeConsumerName(name string) string {
	var result strings.Builder
	result.Grow(len(name))

	for _, r := range name {
		// Check for invalid characters
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' || // whitespace
			r == '.' || r == '*' || r == '>' || // special chars
			r == '/' || r == '\\' || // path separators
			r < 32 || r == 127 { // non-printable
			result.WriteRune('_')
		} else {
			result.WriteRune(r)
		}
	}

	return result.String()
}

// generateSubject generates a subject from the template.
//
// Template context contains PartitionID (keys joined with ".").
// Example: ["source", "region", "us"] â†’ "source.region.us"
func (dh *TaskConsumer) generateSubject(partition types.Partition) (string, error) {
	if len(partition.Keys) == 0 {
		return "", errors.New("partition has no keys")
	}

	ctx := subjectContext{PartitionID: partition.SubjectKey()}

	// Execute template
	var buf strings.Builder
	if err := dh.subjectTemplate.Execute(&buf, ctx); err != nil {
		return "", fmt.Errorf("failed to execute subject template: %w", err)
	}

	return buf.String(), nil
}

// buildSubjects generates a sorted, deduplicated list of subjects from partitions.
func (dh *TaskConsumer) buildSubjects(partitions []types.Partition) ([]string, error) {
	if len(partitions) == 0 {
		return []string{}, nil
	}
	// Deduplicate via map
	m := make(map[string]struct{}, len(partitions))
	for _, p := range partitions {
		subj, err := dh.generateSubject(p)
		if err != nil {
			return nil, err
		}
		m[subj] = struct{}{}
	}
	subjects := make([]string, 0, len(m))
	for s := range m {
		subjects = append(subjects, s)
	}
	// Sort for deterministic ordering
	slices.Sort(subjects)

	return subjects, nil
}

// equalStringSlices compares two string slices for equality assuming both are sorted.
func equalStringSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}
