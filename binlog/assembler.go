package binlog

import (
	"context"
	"fmt"

	"github.com/Jyouping/brooklin/internal/logging"
	"github.com/Jyouping/brooklin/internal/metrics"
	"github.com/Jyouping/brooklin/types"
	"github.com/go-mysql-org/go-mysql/replication"
)

// qualifiedTable is a "db.table" pair, the value side of the table-id map
// a transaction accumulates from TableMapEvents.
type qualifiedTable struct {
	db    string
	table string
}

// transaction is the Assembler's InTxn state: everything that accumulates
// between a txn-start event and its commit or rollback.
type transaction struct {
	gtid      GTID
	tableMap  map[uint64]qualifiedTable
	pending   []ChangeRecord
	position  uint32
	timestamp uint32
}

// AssemblerOption configures an Assembler at construction time.
type AssemblerOption func(*Assembler)

// WithLogger overrides the Assembler's default no-op logger.
func WithLogger(l types.Logger) AssemblerOption {
	return func(a *Assembler) { a.logger = l }
}

// WithMetrics overrides the Assembler's default no-op metrics collector.
func WithMetrics(m types.BinlogMetrics) AssemblerOption {
	return func(a *Assembler) { a.metrics = m }
}

// Assembler is the transaction state machine of §4.4: it consumes one
// binlog event at a time via OnEvent and emits whole transactions to a
// Producer on commit.
//
// An Assembler is invoked serially by a single reader context and keeps no
// internal locking of its own; it is not safe to call OnEvent concurrently
// from multiple goroutines.
type Assembler struct {
	producer Producer
	tables   TableInfoProvider

	logger  types.Logger
	metrics types.BinlogMetrics

	currFileName string
	txn          *transaction // nil when Idle
}

// NewAssembler creates an Assembler that emits committed transactions to
// producer, resolving column metadata for row events through tables.
func NewAssembler(producer Producer, tables TableInfoProvider, opts ...AssemblerOption) *Assembler {
	a := &Assembler{
		producer: producer,
		tables:   tables,
		logger:   logging.NewNop(),
		metrics:  metrics.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}

	return a
}

// OnEvent advances the state machine by one binlog event.
//
// It returns an error for the fatal UnknownOpcode case (§7) and, on
// commit, whatever error Producer.Send returns; every other documented
// error condition (unknown table-id, unrecognized event type) is handled
// by logging and continuing, per spec.
func (a *Assembler) OnEvent(ctx context.Context, e *replication.BinlogEvent) error {
	category := Classify(e)

	switch category {
	case CategoryRotate:
		a.handleRotate(e)
		return nil

	case CategoryIgnorable:
		return nil

	case CategoryTxnStart:
		a.startOrUpdateTransaction(e)
		return nil

	case CategoryTxnCommit:
		if a.txn == nil {
			return nil
		}
		return a.commitTransaction(ctx, e)

	case CategoryTxnRollback:
		if a.txn == nil {
			return nil
		}
		a.rollbackTransaction()
		return nil

	case CategoryTableMap:
		if a.txn == nil {
			return nil
		}
		a.recordTableMap(e)
		return nil

	case CategoryRowMutation:
		if a.txn == nil {
			return nil
		}
		return a.handleRowMutation(ctx, e)

	default:
		a.logger.Warn("unrecognized binlog event, skipping", "event_type", e.Header.EventType.String())
		return nil
	}
}

func (a *Assembler) handleRotate(e *replication.BinlogEvent) {
	if rot, ok := e.Event.(*replication.RotateEvent); ok {
		a.currFileName = string(rot.NextLogName)
	}
	if a.txn != nil {
		a.touch(e)
	}
}

// startOrUpdateTransaction handles both txn-start events. A QueryEvent
// "BEGIN" or a GtidEvent/MariadbGTIDEvent opens a fresh transaction when
// none is in progress. When one is already in progress (a binlog stream
// with GTID mode enabled delivers the GtidEvent before BEGIN, and some
// producers emit it mid-transaction), a GTID event only updates the GTID
// in place and a BEGIN only advances the position, so pending records are
// preserved.
func (a *Assembler) startOrUpdateTransaction(e *replication.BinlogEvent) {
	gtid, hasGTID := gtidFromEvent(e)

	if a.txn != nil {
		if hasGTID {
			a.txn.gtid = gtid
		}
		a.touch(e)
		return
	}

	if !hasGTID {
		gtid = noGTID
	}

	a.txn = &transaction{
		gtid:      gtid,
		tableMap:  make(map[uint64]qualifiedTable),
		position:  e.Header.LogPos,
		timestamp: e.Header.Timestamp,
	}
}

func gtidFromEvent(e *replication.BinlogEvent) (GTID, bool) {
	switch ev := e.Event.(type) {
	case *replication.GTIDEvent:
		return GTID{SourceID: formatSourceID(ev.SID), Sequence: ev.GNO}, true
	case *replication.MariadbGTIDEvent:
		return GTID{
			SourceID: fmt.Sprintf("%d-%d", ev.GTID.DomainID, ev.GTID.ServerID),
			Sequence: int64(ev.GTID.SequenceNumber),
		}, true
	default:
		return GTID{}, false
	}
}

func (a *Assembler) touch(e *replication.BinlogEvent) {
	a.txn.position = e.Header.LogPos
	a.txn.timestamp = e.Header.Timestamp
}

func (a *Assembler) recordTableMap(e *replication.BinlogEvent) {
	a.touch(e)

	tm, ok := e.Event.(*replication.TableMapEvent)
	if !ok {
		return
	}

	a.txn.tableMap[tm.TableID] = qualifiedTable{db: string(tm.Schema), table: string(tm.Table)}
}

func (a *Assembler) commitTransaction(ctx context.Context, e *replication.BinlogEvent) error {
	a.touch(e)

	txn := a.txn
	a.txn = nil

	if len(txn.pending) == 0 {
		return nil
	}

	batch := Batch{
		Checkpoint: Checkpoint{
			SourceID: txn.gtid.SourceID,
			Sequence: txn.gtid.Sequence,
			File:     a.currFileName,
			Position: txn.position,
		},
		Records: txn.pending,
	}

	return a.producer.Send(ctx, batch, func(err error) {
		if err != nil {
			a.logger.Error("producer send failed", "error", err, "checkpoint", batch.Checkpoint.Encode())
			a.metrics.RecordProducerSendFailure()
			return
		}
		a.metrics.RecordTransactionCommitted(len(batch.Records))
	})
}

func (a *Assembler) rollbackTransaction() {
	a.txn = nil
	a.metrics.RecordTransactionRolledBack()
}

func (a *Assembler) handleRowMutation(ctx context.Context, e *replication.BinlogEvent) error {
	a.touch(e)

	opcode, err := deriveOpcode(e.Header.EventType)
	if err != nil {
		return err
	}

	rows, ok := e.Event.(*replication.RowsEvent)
	if !ok {
		return nil
	}

	qt, ok := a.txn.tableMap[rows.TableID]
	if !ok {
		a.logger.Error("unknown table id, skipping row event", "table_id", rows.TableID)
		a.metrics.RecordUnknownTableID()
		return nil
	}

	columns, err := a.tables.GetColumnList(ctx, qt.db, qt.table)
	if err != nil {
		a.logger.Error("failed to fetch column metadata, skipping row event",
			"db", qt.db, "table", qt.table, "error", err)
		return nil
	}

	gtidStr := a.txn.gtid.String()
	for _, row := range rowsForOpcode(opcode, rows.Rows) {
		a.txn.pending = append(a.txn.pending, buildChangeRecord(opcode, gtidStr, a.txn.timestamp, qt, columns, row))
	}

	return nil
}

// rowsForOpcode selects which rows of a RowsEvent carry the logical
// mutation. UPDATE events interleave before- and after-image rows two at a
// time; only the after-image (odd index) rows are emitted, per spec.md
// §4.4's "UPDATE events supply only the after-image rows".
func rowsForOpcode(opcode Opcode, rows [][]interface{}) [][]interface{} {
	if opcode != OpUpdate {
		return rows
	}

	after := make([][]interface{}, 0, len(rows)/2)
	for i := 1; i < len(rows); i += 2 {
		after = append(after, rows[i])
	}

	return after
}

func buildChangeRecord(opcode Opcode, gtid string, timestamp uint32, qt qualifiedTable, columns []ColumnInfo, row []interface{}) ChangeRecord {
	keyJSON := make(map[string]string)
	valueJSON := make(map[string]string)

	for _, col := range columns {
		if col.Ordinal < 0 || col.Ordinal >= len(row) {
			continue
		}
		val := stringifyValue(row[col.Ordinal])
		valueJSON[col.Name] = val
		if col.IsKey {
			keyJSON[col.Name] = val
		}
	}

	return ChangeRecord{
		Opcode:    opcode,
		GTID:      gtid,
		Timestamp: timestamp,
		Db:        qt.db,
		Table:     qt.table,
		KeyJSON:   keyJSON,
		ValueJSON: valueJSON,
	}
}

func stringifyValue(v interface{}) string {
	if v == nil {
		return ""
	}

	return fmt.Sprintf("%v", v)
}

// CurrentFileName returns the most recently seen binlog file name. It
// survives rollbacks and transaction boundaries, per spec.md §3.
func (a *Assembler) CurrentFileName() string {
	return a.currFileName
}

// InTransaction reports whether the Assembler currently has an open
// transaction.
func (a *Assembler) InTransaction() bool {
	return a.txn != nil
}
