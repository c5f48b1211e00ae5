// Package binlog assembles MySQL binary-log events into whole transactions
// and emits them as self-describing change records to a downstream
// producer.
//
// An Assembler is fed events one at a time via OnEvent, in the order a
// replication.BinlogSyncer delivers them. It tracks whether a transaction is
// currently open, the table-id-to-name map scoped to that transaction, and
// the pending change records accumulated since the transaction started. On
// commit it hands the whole batch to a Producer in one call; on rollback it
// discards the batch without calling the Producer at all.
//
// Column metadata (which columns exist, which are key columns) is not
// carried by the binlog stream itself; the Assembler asks its
// TableInfoProvider for it on every row event. NewCachedTableInfoProvider
// wraps a provider so that each table is looked up only once.
//
// The Assembler does not connect to MySQL or to the downstream producer
// itself; both are supplied by the caller. binlog.NATSProducer and
// binlog.SchemaTableInfoProvider are the concrete implementations this
// module ships, but any Producer/TableInfoProvider pair works.
//
// Example:
//
//	asm := binlog.NewAssembler(producer, tableInfoProvider, binlog.WithLogger(logger))
//	for {
//	    ev, err := syncer.GetEvent(ctx)
//	    if err != nil {
//	        break
//	    }
//	    if err := asm.OnEvent(ctx, ev); err != nil {
//	        log.Fatal(err)
//	    }
//	}
package binlog
