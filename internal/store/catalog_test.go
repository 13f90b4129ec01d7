package store

import (
	"reflect"
	"testing"

	"github.com/maraichr/notebook/internal/metadata"
	"github.com/maraichr/notebook/internal/store/postgres"
)

func TestCatalogFromRows(t *testing.T) {
	pk := "type/PK"
	target := int64(1)
	m := CatalogFromRows(
		[]postgres.CatalogDatabase{{ID: 1, Name: "Shop", Engine: "postgres", Features: []string{metadata.FeatureJoin}}},
		[]postgres.CatalogTable{{ID: 10, DatabaseID: 1, Schema: "public", Name: "orders", DisplayName: "Orders"}},
		[]postgres.CatalogField{
			{ID: 100, TableID: 10, Name: "id", DisplayName: "ID", BaseType: "type/Integer", SemanticType: &pk},
			{ID: 101, TableID: 10, Name: "user_id", DisplayName: "User", BaseType: "type/Integer", FkTargetFieldID: &target},
		},
	)

	cols, ok := m.TableColumns(10)
	if !ok || !reflect.DeepEqual(cols, []string{"id", "user_id"}) {
		t.Errorf("unexpected columns %v (ok=%v)", cols, ok)
	}
	if f, _ := m.Field(100); f.SemanticType != pk {
		t.Errorf("semantic type not carried: %+v", f)
	}
	if f, _ := m.Field(101); f.FKTargetField == nil || *f.FKTargetField != 1 {
		t.Errorf("fk target not carried: %+v", f)
	}
	if !m.Supports(1, metadata.FeatureJoin) || m.Supports(1, metadata.FeatureNestedQueries) {
		t.Error("features should come from the database row")
	}
}
