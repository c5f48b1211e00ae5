package binlog

import "fmt"

// Opcode identifies the kind of row mutation a ChangeRecord carries.
type Opcode string

const (
	OpInsert Opcode = "INSERT"
	OpUpdate Opcode = "UPDATE"
	OpDelete Opcode = "DELETE"
)

// ColumnInfo describes one column of a table, as returned by a
// TableInfoProvider.
type ColumnInfo struct {
	Name    string
	IsKey   bool
	Ordinal int
}

// ChangeRecord is a single row mutation, shaped for the downstream producer.
//
// KeyJSON and ValueJSON are both column-name -> stringified-value maps,
// KeyJSON restricted to key columns and ValueJSON covering every column.
// They are represented as plain maps rather than pre-marshaled bytes so
// that a Producer can choose its own wire encoding.
type ChangeRecord struct {
	Opcode    Opcode
	GTID      string
	Timestamp uint32
	Db        string
	Table     string
	KeyJSON   map[string]string
	ValueJSON map[string]string
}

// GTID is a MySQL global transaction identifier: a source UUID plus a
// monotonically increasing sequence number scoped to that source.
type GTID struct {
	SourceID string
	Sequence int64
}

// String renders the GTID in "<source-id>:<sequence>" form, as required by
// the ChangeRecord.GTID field.
func (g GTID) String() string {
	return fmt.Sprintf("%s:%d", g.SourceID, g.Sequence)
}

// noGTID is the source-id/sequence pair used for transactions opened by a
// plain "BEGIN" query event with no preceding GtidEvent.
var noGTID = GTID{SourceID: "None", Sequence: 0}

// Checkpoint is the opaque-to-the-producer token identifying a durable
// replication position: source id, GTID sequence, binlog file, and byte
// position of the most recently processed event in the emitted batch.
type Checkpoint struct {
	SourceID string
	Sequence int64
	File     string
	Position uint32
}

// Encode renders the checkpoint as a single token. Its exact form is
// defined here, not by the downstream consumer, but is treated as opaque
// by everything in this package other than the formatter itself.
func (c Checkpoint) Encode() string {
	return fmt.Sprintf("%s:%d@%s:%d", c.SourceID, c.Sequence, c.File, c.Position)
}

// Batch is the unit handed to a Producer: every ChangeRecord from one
// committed transaction, plus the checkpoint to resume from after it.
type Batch struct {
	Checkpoint Checkpoint
	Records    []ChangeRecord
}
