// Package metadata holds the catalog of databases, tables and fields that
// structured queries are validated against.
package metadata

import (
	"slices"

	"github.com/maraichr/notebook/internal/mbql"
)

// Database features that gate notebook steps.
const (
	FeatureJoin          = "join"
	FeatureExpressions   = "expressions"
	FeatureNestedQueries = "nested-queries"
)

type Database struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	Engine   string   `json:"engine"`
	Features []string `json:"features"`
}

type Table struct {
	ID          int64  `json:"id"`
	DatabaseID  int64  `json:"db_id"`
	Schema      string `json:"schema"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

type Field struct {
	ID            int64  `json:"id"`
	TableID       int64  `json:"table_id"`
	Name          string `json:"name"`
	DisplayName   string `json:"display_name"`
	BaseType      string `json:"base_type"`
	SemanticType  string `json:"semantic_type,omitempty"`
	FKTargetField *int64 `json:"fk_target_field_id,omitempty"`
}

// Metadata is an immutable catalog. It implements mbql.Metadata.
type Metadata struct {
	databases map[int64]Database
	tables    map[int64]Table
	fields    map[int64]Field
	byTable   map[int64][]int64
}

var _ mbql.Metadata = (*Metadata)(nil)

// New indexes the given rows. Fields keep their input order within a table.
func New(dbs []Database, tables []Table, fields []Field) *Metadata {
	m := &Metadata{
		databases: make(map[int64]Database, len(dbs)),
		tables:    make(map[int64]Table, len(tables)),
		fields:    make(map[int64]Field, len(fields)),
		byTable:   make(map[int64][]int64, len(tables)),
	}
	for _, d := range dbs {
		m.databases[d.ID] = d
	}
	for _, t := range tables {
		m.tables[t.ID] = t
	}
	for _, f := range fields {
		m.fields[f.ID] = f
		m.byTable[f.TableID] = append(m.byTable[f.TableID], f.ID)
	}
	return m
}

func (m *Metadata) Database(id int64) (Database, bool) {
	d, ok := m.databases[id]
	return d, ok
}

func (m *Metadata) Table(id int64) (Table, bool) {
	t, ok := m.tables[id]
	return t, ok
}

func (m *Metadata) Field(id int64) (Field, bool) {
	f, ok := m.fields[id]
	return f, ok
}

// TableFields returns a table's fields in catalog order.
func (m *Metadata) TableFields(tableID int64) []Field {
	out := make([]Field, 0, len(m.byTable[tableID]))
	for _, id := range m.byTable[tableID] {
		out = append(out, m.fields[id])
	}
	return out
}

func (m *Metadata) FieldName(id int64) (string, bool) {
	f, ok := m.fields[id]
	return f.Name, ok
}

func (m *Metadata) TableColumns(tableID int64) ([]string, bool) {
	if _, ok := m.tables[tableID]; !ok {
		return nil, false
	}
	ids := m.byTable[tableID]
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = m.fields[id].Name
	}
	return names, true
}

// Supports reports whether a database has a feature. Unknown databases
// support everything, leaving rejection to the query engine.
func (m *Metadata) Supports(databaseID int64, feature string) bool {
	d, ok := m.databases[databaseID]
	if !ok {
		return true
	}
	return slices.Contains(d.Features, feature)
}

// FieldForDimension resolves an id-based field reference.
func (m *Metadata) FieldForDimension(d mbql.Dimension) (Field, bool) {
	id, ok := d.FieldID()
	if !ok {
		return Field{}, false
	}
	return m.Field(id)
}
