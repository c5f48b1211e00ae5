package binlog

import "fmt"

// UnknownOpcodeError is a fatal error: a row event variant reached the
// opcode derivation step without matching any known write/update/delete
// type. This indicates a classifier/event mismatch, not a data problem, and
// is never expected to occur against a real replication stream.
type UnknownOpcodeError struct {
	EventType string
}

func (e *UnknownOpcodeError) Error() string {
	return fmt.Sprintf("binlog: unknown opcode for event type %s", e.EventType)
}
