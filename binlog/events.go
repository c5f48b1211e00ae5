package binlog

import (
	"strings"

	"github.com/go-mysql-org/go-mysql/replication"
)

// Category is the internal classification of a raw binlog event, collapsing
// the many replication.EventType values into the handful the transaction
// state machine actually branches on.
type Category int

const (
	CategoryIgnorable Category = iota
	CategoryRotate
	CategoryTxnStart
	CategoryTxnCommit
	CategoryTxnRollback
	CategoryTableMap
	CategoryRowMutation
	CategoryUnknown
)

// Classify maps a raw binlog event to its Category. It never inspects
// transaction state; the state machine in Assembler decides, given the
// category and whether a transaction is currently open, what to do next.
func Classify(e *replication.BinlogEvent) Category {
	switch ev := e.Event.(type) {
	case *replication.RotateEvent:
		return CategoryRotate

	case *replication.FormatDescriptionEvent:
		return CategoryIgnorable

	case *replication.GTIDEvent:
		return CategoryTxnStart

	case *replication.MariadbGTIDEvent:
		return CategoryTxnStart

	case *replication.XIDEvent:
		return CategoryTxnCommit

	case *replication.QueryEvent:
		switch strings.TrimSpace(string(ev.Query)) {
		case "BEGIN":
			return CategoryTxnStart
		case "COMMIT":
			return CategoryTxnCommit
		case "ROLLBACK":
			return CategoryTxnRollback
		default:
			return CategoryIgnorable
		}

	case *replication.TableMapEvent:
		return CategoryTableMap

	case *replication.RowsEvent:
		return rowMutationCategoryFor(e)
	}

	switch e.Header.EventType {
	case replication.STOP_EVENT, replication.HEARTBEAT_EVENT, replication.IGNORABLE_EVENT,
		replication.PREVIOUS_GTIDS_EVENT, replication.MARIADB_GTID_LIST_EVENT:
		return CategoryIgnorable
	}

	return CategoryUnknown
}

// rowMutationCategoryFor confirms a *replication.RowsEvent really is a row
// mutation; Classify already matched on the concrete type, so this always
// returns CategoryRowMutation. It exists as its own function so the
// opcode-normalization fix (see deriveOpcode) has one obvious place to live
// alongside the classification it corrects.
func rowMutationCategoryFor(_ *replication.BinlogEvent) Category {
	return CategoryRowMutation
}

// deriveOpcode maps a binlog event's header type to a ChangeRecord Opcode.
//
// The upstream EVENT_TYPE constants for DeleteRowsEvent and
// DeleteRowsEventV2 are swapped in some binlog producers (V2 reports V1's
// type and vice versa). Rather than reproduce that inversion, both are
// normalized to OpDelete here regardless of which constant actually shows
// up on the wire.
func deriveOpcode(eventType replication.EventType) (Opcode, error) {
	switch eventType {
	case replication.WRITE_ROWS_EVENTv0, replication.WRITE_ROWS_EVENTv1, replication.WRITE_ROWS_EVENTv2:
		return OpInsert, nil
	case replication.UPDATE_ROWS_EVENTv0, replication.UPDATE_ROWS_EVENTv1, replication.UPDATE_ROWS_EVENTv2:
		return OpUpdate, nil
	case replication.DELETE_ROWS_EVENTv0, replication.DELETE_ROWS_EVENTv1, replication.DELETE_ROWS_EVENTv2:
		return OpDelete, nil
	default:
		return "", &UnknownOpcodeError{EventType: eventType.String()}
	}
}
