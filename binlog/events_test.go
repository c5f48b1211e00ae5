package binlog

import (
	"testing"

	"github.com/go-mysql-org/go-mysql/replication"
	"github.com/stretchr/testify/require"
)

func eventOf(eventType replication.EventType, payload replication.Event) *replication.BinlogEvent {
	return &replication.BinlogEvent{
		Header: &replication.EventHeader{EventType: eventType},
		Event:  payload,
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		e    *replication.BinlogEvent
		want Category
	}{
		{
			name: "rotate",
			e:    eventOf(replication.ROTATE_EVENT, &replication.RotateEvent{NextLogName: []byte("bin.002")}),
			want: CategoryRotate,
		},
		{
			name: "format description is ignorable",
			e:    eventOf(replication.FORMAT_DESCRIPTION_EVENT, &replication.FormatDescriptionEvent{}),
			want: CategoryIgnorable,
		},
		{
			name: "gtid event starts a transaction",
			e:    eventOf(replication.GTID_EVENT, &replication.GTIDEvent{}),
			want: CategoryTxnStart,
		},
		{
			name: "mariadb gtid event starts a transaction",
			e:    eventOf(replication.MARIADB_GTID_EVENT, &replication.MariadbGTIDEvent{}),
			want: CategoryTxnStart,
		},
		{
			name: "xid event commits",
			e:    eventOf(replication.XID_EVENT, &replication.XIDEvent{XID: 99}),
			want: CategoryTxnCommit,
		},
		{
			name: "query BEGIN starts a transaction",
			e:    eventOf(replication.QUERY_EVENT, &replication.QueryEvent{Query: []byte("BEGIN")}),
			want: CategoryTxnStart,
		},
		{
			name: "query COMMIT commits",
			e:    eventOf(replication.QUERY_EVENT, &replication.QueryEvent{Query: []byte("COMMIT")}),
			want: CategoryTxnCommit,
		},
		{
			name: "query ROLLBACK rolls back",
			e:    eventOf(replication.QUERY_EVENT, &replication.QueryEvent{Query: []byte("ROLLBACK")}),
			want: CategoryTxnRollback,
		},
		{
			name: "other query is ignorable",
			e:    eventOf(replication.QUERY_EVENT, &replication.QueryEvent{Query: []byte("CREATE TABLE t (id INT)")}),
			want: CategoryIgnorable,
		},
		{
			name: "table map",
			e:    eventOf(replication.TABLE_MAP_EVENT, &replication.TableMapEvent{TableID: 7}),
			want: CategoryTableMap,
		},
		{
			name: "write rows is a row mutation",
			e:    eventOf(replication.WRITE_ROWS_EVENTv2, &replication.RowsEvent{TableID: 7}),
			want: CategoryRowMutation,
		},
		{
			name: "heartbeat is ignorable",
			e:    eventOf(replication.HEARTBEAT_EVENT, nil),
			want: CategoryIgnorable,
		},
		{
			name: "unrecognized event type",
			e:    eventOf(replication.EventType(0xfe), nil),
			want: CategoryUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Classify(tt.e))
		})
	}
}

func TestDeriveOpcode(t *testing.T) {
	tests := []struct {
		name      string
		eventType replication.EventType
		want      Opcode
		wantErr   bool
	}{
		{name: "write v1 is insert", eventType: replication.WRITE_ROWS_EVENTv1, want: OpInsert},
		{name: "write v2 is insert", eventType: replication.WRITE_ROWS_EVENTv2, want: OpInsert},
		{name: "update v1 is update", eventType: replication.UPDATE_ROWS_EVENTv1, want: OpUpdate},
		{name: "update v2 is update", eventType: replication.UPDATE_ROWS_EVENTv2, want: OpUpdate},
		{name: "delete v1 normalizes to delete", eventType: replication.DELETE_ROWS_EVENTv1, want: OpDelete},
		{name: "delete v2 normalizes to delete", eventType: replication.DELETE_ROWS_EVENTv2, want: OpDelete},
		{name: "unrecognized event type is fatal", eventType: replication.QUERY_EVENT, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := deriveOpcode(tt.eventType)
			if tt.wantErr {
				require.Error(t, err)
				var unknownErr *UnknownOpcodeError
				require.ErrorAs(t, err, &unknownErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}
