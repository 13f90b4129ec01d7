package postgres

import (
	"context"
)

const listCatalogDatabases = `SELECT id, name, engine, features FROM catalog_databases ORDER BY id`

func (q *Queries) ListCatalogDatabases(ctx context.Context) ([]CatalogDatabase, error) {
	rows, err := q.db.Query(ctx, listCatalogDatabases)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CatalogDatabase
	for rows.Next() {
		var i CatalogDatabase
		if err := rows.Scan(&i.ID, &i.Name, &i.Engine, &i.Features); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listCatalogTables = `SELECT id, database_id, schema_name, name, display_name FROM catalog_tables ORDER BY id`

func (q *Queries) ListCatalogTables(ctx context.Context) ([]CatalogTable, error) {
	rows, err := q.db.Query(ctx, listCatalogTables)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CatalogTable
	for rows.Next() {
		var i CatalogTable
		if err := rows.Scan(&i.ID, &i.DatabaseID, &i.Schema, &i.Name, &i.DisplayName); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Field order within a table is the column order the notebook shows.
const listCatalogFields = `SELECT id, table_id, name, display_name, base_type, semantic_type, fk_target_field_id
FROM catalog_fields
ORDER BY table_id, position, id`

func (q *Queries) ListCatalogFields(ctx context.Context) ([]CatalogField, error) {
	rows, err := q.db.Query(ctx, listCatalogFields)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CatalogField
	for rows.Next() {
		var i CatalogField
		if err := rows.Scan(
			&i.ID,
			&i.TableID,
			&i.Name,
			&i.DisplayName,
			&i.BaseType,
			&i.SemanticType,
			&i.FkTargetFieldID,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
