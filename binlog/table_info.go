package binlog

import "context"

// TableInfoProvider resolves column metadata for a table. Implementations
// are free to cache results indefinitely. Nothing in this package
// invalidates cached column metadata on a schema change: the cache behind
// NewCachedTableInfoProvider keeps every entry for the process lifetime.
type TableInfoProvider interface {
	GetColumnList(ctx context.Context, db, table string) ([]ColumnInfo, error)
}
