package binlog

import (
	"context"

	"github.com/puzpuzpuz/xsync/v3"
)

// tableInfoCache wraps a TableInfoProvider with a read-through,
// concurrency-safe cache keyed by "db.table", per spec.md §5's
// "read-through and may be populated lazily... safe for concurrent reads
// with single-writer semantics" requirement.
//
// Entries never expire: schema-change invalidation is out of scope (spec.md
// §9), a known limitation until a schema-event listener is added.
type tableInfoCache struct {
	source TableInfoProvider
	cache  *xsync.MapOf[string, []ColumnInfo]
}

// newTableInfoCache wraps source with an in-memory cache.
func newTableInfoCache(source TableInfoProvider) *tableInfoCache {
	return &tableInfoCache{
		source: source,
		cache:  xsync.NewMapOf[string, []ColumnInfo](),
	}
}

var _ TableInfoProvider = (*tableInfoCache)(nil)

// GetColumnList returns the cached column list for db.table, fetching and
// caching it from source on first access.
func (c *tableInfoCache) GetColumnList(ctx context.Context, db, table string) ([]ColumnInfo, error) {
	key := cacheKey(db, table)

	if cols, ok := c.cache.Load(key); ok {
		return cols, nil
	}

	cols, err := c.source.GetColumnList(ctx, db, table)
	if err != nil {
		return nil, err
	}

	actual, _ := c.cache.LoadOrStore(key, cols)

	return actual, nil
}

// invalidate drops a single table's cached columns, for callers that do
// add a schema-event listener later.
func (c *tableInfoCache) invalidate(db, table string) {
	c.cache.Delete(cacheKey(db, table))
}

func cacheKey(db, table string) string {
	return db + "." + table
}
