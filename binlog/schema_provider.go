package binlog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-mysql-org/go-mysql/schema"
)

// SchemaTableInfoProvider resolves column metadata by querying MySQL's
// information_schema through a *sql.DB, the concrete "table info provider"
// collaborator of spec.md §6. Callers normally wrap this in
// newTableInfoCache (via NewCachedTableInfoProvider) rather than using it
// directly, since every call here is a round trip to the database.
type SchemaTableInfoProvider struct {
	db *sql.DB
}

var _ TableInfoProvider = (*SchemaTableInfoProvider)(nil)

// NewSchemaTableInfoProvider creates a provider backed by db.
func NewSchemaTableInfoProvider(db *sql.DB) *SchemaTableInfoProvider {
	return &SchemaTableInfoProvider{db: db}
}

// GetColumnList queries information_schema for table's columns, via
// go-mysql's schema.Table, and reshapes them into ColumnInfo, marking a
// column as a key column if it appears in the table's primary key.
func (p *SchemaTableInfoProvider) GetColumnList(_ context.Context, db, table string) ([]ColumnInfo, error) {
	t, err := schema.NewTableFromSqlDB(p.db, db, table)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema for %s.%s: %w", db, table, err)
	}

	keyOrdinals := make(map[int]bool, len(t.PKColumns))
	for _, ord := range t.PKColumns {
		keyOrdinals[ord] = true
	}

	columns := make([]ColumnInfo, len(t.Columns))
	for i, col := range t.Columns {
		columns[i] = ColumnInfo{
			Name:    col.Name,
			IsKey:   keyOrdinals[i],
			Ordinal: i,
		}
	}

	return columns, nil
}

// NewCachedTableInfoProvider wraps a TableInfoProvider with the package's
// read-through cache, sized for process lifetime per spec.md §6 ("result is
// cacheable indefinitely").
func NewCachedTableInfoProvider(source TableInfoProvider) TableInfoProvider {
	return newTableInfoCache(source)
}
