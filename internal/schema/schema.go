// Package schema builds the immutable table whitelist the guard checks
// statements against, and the human-readable schema text handed to the
// translator prompt.
//
// A Whitelist is computed once at startup from the live catalog and never
// mutated afterwards, so it is safe for any number of concurrent readers.
package schema

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/tomventa/sqlwarden/internal/dialect"
)

// Column describes one column of a whitelisted table.
type Column struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	NotNull    bool   `json:"notNull,omitempty"`
	PrimaryKey bool   `json:"primaryKey,omitempty"`
}

// ForeignKey is a column referencing another table's column.
type ForeignKey struct {
	Column    string `json:"column"`
	RefTable  string `json:"refTable"`
	RefColumn string `json:"refColumn"`
}

// Table describes one whitelisted table.
type Table struct {
	Name        string       `json:"name"`
	Columns     []Column     `json:"columns"`
	ForeignKeys []ForeignKey `json:"foreignKeys,omitempty"`
}

// Whitelist is the closed set of tables a statement may reference.
type Whitelist struct {
	schema string
	tables []Table
	index  map[string]int
}

// New builds a Whitelist from a static table list. Table and column lookups
// are case-insensitive.
func New(schemaName string, tables []Table) *Whitelist {
	w := &Whitelist{
		schema: schemaName,
		tables: make([]Table, 0, len(tables)),
		index:  make(map[string]int, len(tables)),
	}
	for _, t := range tables {
		key := strings.ToLower(t.Name)
		if _, dup := w.index[key]; dup {
			continue
		}
		w.index[key] = len(w.tables)
		w.tables = append(w.tables, cloneTable(t))
	}
	sort.SliceStable(w.tables, func(i, j int) bool {
		return strings.ToLower(w.tables[i].Name) < strings.ToLower(w.tables[j].Name)
	})
	for i, t := range w.tables {
		w.index[strings.ToLower(t.Name)] = i
	}
	return w
}

// Schema returns the schema (or database) name the tables live in.
func (w *Whitelist) Schema() string {
	return w.schema
}

// HasTable reports whether name is whitelisted.
func (w *Whitelist) HasTable(name string) bool {
	_, ok := w.index[strings.ToLower(name)]
	return ok
}

// HasColumn reports whether table is whitelisted and has the column.
func (w *Whitelist) HasColumn(table, column string) bool {
	i, ok := w.index[strings.ToLower(table)]
	if !ok {
		return false
	}
	for _, c := range w.tables[i].Columns {
		if strings.EqualFold(c.Name, column) {
			return true
		}
	}
	return false
}

// TableNames returns the whitelisted table names in order.
func (w *Whitelist) TableNames() []string {
	names := make([]string, len(w.tables))
	for i, t := range w.tables {
		names[i] = t.Name
	}
	return names
}

// Tables returns a copy of the whitelisted tables.
func (w *Whitelist) Tables() []Table {
	out := make([]Table, len(w.tables))
	for i, t := range w.tables {
		out[i] = cloneTable(t)
	}
	return out
}

// Len returns the number of whitelisted tables.
func (w *Whitelist) Len() int {
	return len(w.tables)
}

func cloneTable(t Table) Table {
	return Table{
		Name:        t.Name,
		Columns:     append([]Column(nil), t.Columns...),
		ForeignKeys: append([]ForeignKey(nil), t.ForeignKeys...),
	}
}

// Options restricts what Load reads from the catalog.
type Options struct {
	// Include, when non-empty, limits the whitelist to these tables.
	// Names missing from the catalog are an error.
	Include []string
}

// Load reads the live catalog through d. Any failure is returned: a process
// that cannot read its catalog must not start.
func Load(ctx context.Context, db *sql.DB, d dialect.Dialect, opts Options) (*Whitelist, error) {
	var schemaName sql.NullString
	if err := db.QueryRowContext(ctx, d.SchemaNameQuery()).Scan(&schemaName); err != nil {
		return nil, fmt.Errorf("failed to read schema name: %w", err)
	}

	names, err := loadTableNames(ctx, db, d)
	if err != nil {
		return nil, err
	}

	names, err = filterInclude(names, opts.Include)
	if err != nil {
		return nil, err
	}

	tables := make([]Table, 0, len(names))
	for _, name := range names {
		t := Table{Name: name}
		if t.Columns, err = loadColumns(ctx, db, d, name); err != nil {
			return nil, err
		}
		if t.ForeignKeys, err = loadForeignKeys(ctx, db, d, name); err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}

	return New(schemaName.String, tables), nil
}

func loadTableNames(ctx context.Context, db *sql.DB, d dialect.Dialect) ([]string, error) {
	rows, err := db.QueryContext(ctx, d.TablesQuery())
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	return names, nil
}

func filterInclude(names, include []string) ([]string, error) {
	if len(include) == 0 {
		return names, nil
	}

	present := make(map[string]string, len(names))
	for _, n := range names {
		present[strings.ToLower(n)] = n
	}

	out := make([]string, 0, len(include))
	for _, want := range include {
		actual, ok := present[strings.ToLower(want)]
		if !ok {
			return nil, fmt.Errorf("included table %q does not exist", want)
		}
		out = append(out, actual)
	}
	return out, nil
}

func loadColumns(ctx context.Context, db *sql.DB, d dialect.Dialect, table string) ([]Column, error) {
	query, args := d.ColumnsQuery(table)
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var (
			c           Column
			typ         sql.NullString
			notNull, pk int
		)
		if err := rows.Scan(&c.Name, &typ, &notNull, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan column of %s: %w", table, err)
		}
		c.Type = typ.String
		c.NotNull = notNull != 0
		c.PrimaryKey = pk != 0
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}
	return cols, nil
}

func loadForeignKeys(ctx context.Context, db *sql.DB, d dialect.Dialect, table string) ([]ForeignKey, error) {
	query, args := d.ForeignKeysQuery(table)
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read foreign keys of %s: %w", table, err)
	}
	defer rows.Close()

	var fks []ForeignKey
	for rows.Next() {
		var fk ForeignKey
		if err := rows.Scan(&fk.Column, &fk.RefTable, &fk.RefColumn); err != nil {
			return nil, fmt.Errorf("failed to scan foreign key of %s: %w", table, err)
		}
		fks = append(fks, fk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read foreign keys of %s: %w", table, err)
	}
	return fks, nil
}
