package store

import (
	"context"
	"fmt"

	"github.com/maraichr/notebook/internal/metadata"
	"github.com/maraichr/notebook/internal/store/postgres"
)

// Catalog loads every catalog row into an in-memory metadata index.
func (s *Store) Catalog(ctx context.Context) (*metadata.Metadata, error) {
	return LoadCatalog(ctx, s.Queries)
}

// LoadCatalog reads the catalog tables through q.
func LoadCatalog(ctx context.Context, q *postgres.Queries) (*metadata.Metadata, error) {
	dbRows, err := q.ListCatalogDatabases(ctx)
	if err != nil {
		return nil, fmt.Errorf("list catalog databases: %w", err)
	}
	tableRows, err := q.ListCatalogTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("list catalog tables: %w", err)
	}
	fieldRows, err := q.ListCatalogFields(ctx)
	if err != nil {
		return nil, fmt.Errorf("list catalog fields: %w", err)
	}
	return CatalogFromRows(dbRows, tableRows, fieldRows), nil
}

func CatalogFromRows(dbRows []postgres.CatalogDatabase, tableRows []postgres.CatalogTable, fieldRows []postgres.CatalogField) *metadata.Metadata {
	dbs := make([]metadata.Database, 0, len(dbRows))
	for _, d := range dbRows {
		dbs = append(dbs, metadata.Database{ID: d.ID, Name: d.Name, Engine: d.Engine, Features: d.Features})
	}
	tables := make([]metadata.Table, 0, len(tableRows))
	for _, t := range tableRows {
		tables = append(tables, metadata.Table{
			ID:          t.ID,
			DatabaseID:  t.DatabaseID,
			Schema:      t.Schema,
			Name:        t.Name,
			DisplayName: t.DisplayName,
		})
	}
	fields := make([]metadata.Field, 0, len(fieldRows))
	for _, f := range fieldRows {
		field := metadata.Field{
			ID:            f.ID,
			TableID:       f.TableID,
			Name:          f.Name,
			DisplayName:   f.DisplayName,
			BaseType:      f.BaseType,
			FKTargetField: f.FkTargetFieldID,
		}
		if f.SemanticType != nil {
			field.SemanticType = *f.SemanticType
		}
		fields = append(fields, field)
	}
	return metadata.New(dbs, tables, fields)
}
