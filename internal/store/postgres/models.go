package postgres

import (
	"time"

	"github.com/google/uuid"
)

type Question struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Description  *string   `json:"description"`
	DatabaseID   int64     `json:"database_id"`
	DatasetQuery []byte    `json:"dataset_query"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type CatalogDatabase struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	Engine   string   `json:"engine"`
	Features []string `json:"features"`
}

type CatalogTable struct {
	ID          int64  `json:"id"`
	DatabaseID  int64  `json:"db_id"`
	Schema      string `json:"schema"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

type CatalogField struct {
	ID              int64   `json:"id"`
	TableID         int64   `json:"table_id"`
	Name            string  `json:"name"`
	DisplayName     string  `json:"display_name"`
	BaseType        string  `json:"base_type"`
	SemanticType    *string `json:"semantic_type"`
	FkTargetFieldID *int64  `json:"fk_target_field_id"`
}
