package testing

import "github.com/google/uuid"

// RandomSourceIDBytes returns 16 random bytes suitable as a MySQL GTID
// source id (the SID field of a GTIDEvent), for building binlog test
// fixtures that need a valid-looking but otherwise arbitrary source id
// without hardcoding one.
//
// Example:
//
//	sid := partitest.RandomSourceIDBytes()
//	ev := &replication.GTIDEvent{SID: sid, GNO: 1}
func RandomSourceIDBytes() []byte {
	id := uuid.New()
	return id[:]
}
