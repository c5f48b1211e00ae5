package subscription

import (
	"context"

	"github.com/nats-io/nats.go/jetstream"
)

// MessageHandler defines the contract for processing JetStream messages yielded by the
// TaskConsumer pull loop.
//
// Behavior summary:
//   - The helper fetches a message and calls Handle once per message.
//   - When Handle returns nil, the helper ACKs the message.
//     When Handle returns a non-nil error, the helper NAKs the message.
//   - The helper always performs this disposition; TaskConsumerConfig has no
//     manual-ack mode that hands ACK/NAK/Term over to the handler.
//
// Backpressure and concurrency:
//   - The pull loop is single-threaded: it does not call Handle for the next message
//     until the current Handle returns. Handlers can implement backpressure by blocking
//     (e.g., when an internal work queue is full).
//   - If you return quickly, the helper will immediately ACK on
//     success, so calling InProgress() afterwards has no effect.
//
// Redelivery semantics:
//   - With AckExplicit policy, failing to ACK within AckWait causes redelivery.
//     Use msg.InProgress() to extend the deadline when work takes longer than AckWait.
//   - Exactly-once is not guaranteed; design handlers to be idempotent.
//
// Parameters:
//   - ctx: Request-scoped context for cancellation and deadlines
//   - msg: The JetStream message to process
//
// Returns:
//   - error: nil on success; non-nil to indicate failure. The helper NAKs on error.
//
// Example:
//
//	var h MessageHandler = MessageHandlerFunc(func(ctx context.Context, msg jetstream.Msg) error {
//	    // process msg.Data(); return error to NAK
//	    return nil // helper will ACK
//	})
type MessageHandler interface {
	// Handle processes a single message.
	//
	// Return nil for the helper to ACK, or an error for the helper to NAK. Handle
	// may periodically call msg.InProgress() to extend AckWait while long-running
	// work completes.
	Handle(ctx context.Context, msg jetstream.Msg) error
}

// MessageHandlerFunc is a function adapter for MessageHandler.
type MessageHandlerFunc func(ctx context.Context, msg jetstream.Msg) error

// Handle implements MessageHandler interface.
func (f MessageHandlerFunc) Handle(ctx context.Context, msg jetstream.Msg) error { return f(ctx, msg) }
