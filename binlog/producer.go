package binlog

import "context"

// SendCallback reports the outcome of a Producer.Send call. It runs on
// whatever context the Producer chooses (its own goroutine, an ack
// callback from a broker client, etc.), never synchronously from inside
// Send.
type SendCallback func(err error)

// Producer is the outbound contract: hand a whole transaction's worth of
// change records to a downstream system in one call.
//
// Send must treat the batch atomically from the caller's point of view: it
// either accepts every record in the batch or none of them. Partial
// batches are not a valid outcome. The result of the attempt is reported
// asynchronously through callback; Send itself should return quickly and
// not block on the broker's acknowledgment.
type Producer interface {
	Send(ctx context.Context, batch Batch, callback SendCallback) error
}
