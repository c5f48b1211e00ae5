package binlog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
)

// NATSProducer implements Producer over a JetStream stream. The
// destination partition is hardcoded to 0 (embedded in the subject as
// ".0"); multi-partition output is not yet supported, per spec.md §6.
type NATSProducer struct {
	js      jetstream.JetStream
	subject string
}

var _ Producer = (*NATSProducer)(nil)

// NewNATSProducer creates a producer that publishes committed batches to
// "<subject>.0" on js.
func NewNATSProducer(js jetstream.JetStream, subject string) *NATSProducer {
	return &NATSProducer{js: js, subject: subject}
}

// wireBatch is the JSON wire shape published for a Batch.
type wireBatch struct {
	Checkpoint string         `json:"checkpoint"`
	Records    []ChangeRecord `json:"records"`
}

// Send publishes batch to JetStream asynchronously. callback is invoked
// once the broker acknowledges the publish or reports a failure; per
// spec.md §5, the batch is accepted or rejected as a whole — JetStream's
// publish is already all-or-nothing per message, so no partial-batch
// handling is needed here.
func (p *NATSProducer) Send(_ context.Context, batch Batch, callback SendCallback) error {
	data, err := json.Marshal(wireBatch{
		Checkpoint: batch.Checkpoint.Encode(),
		Records:    batch.Records,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal batch: %w", err)
	}

	subject := fmt.Sprintf("%s.0", p.subject)

	future, err := p.js.PublishAsync(subject, data)
	if err != nil {
		return fmt.Errorf("failed to publish batch: %w", err)
	}

	go func() {
		select {
		case <-future.Ok():
			callback(nil)
		case err := <-future.Err():
			callback(err)
		}
	}()

	return nil
}
