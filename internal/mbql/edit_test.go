package mbql_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/maraichr/notebook/internal/mbql"
	"github.com/maraichr/notebook/internal/metadata"
)

func raw(s string) json.RawMessage { return json.RawMessage(s) }

func TestApply(t *testing.T) {
	base := mbql.MustParse(`{"source-table":2,"filter":["=",["field",13,null],1],"aggregation":[["count"],["sum",["field",12,null]]],"order-by":[["asc",["aggregation",1]]]}`)

	tests := []struct {
		name string
		edit mbql.Edit
		want string
	}{
		{
			name: "add filter",
			edit: mbql.Edit{Op: mbql.OpAdd, Kind: mbql.KindFilter, Clause: raw(`[">",["field",12,null],10]`)},
			want: `{"aggregation":[["count"],["sum",["field",12,null]]],"filter":["and",["=",["field",13,null],1],[">",["field",12,null],10]],"order-by":[["asc",["aggregation",1]]],"source-table":2}`,
		},
		{
			name: "replace filter",
			edit: mbql.Edit{Op: mbql.OpReplace, Kind: mbql.KindFilter, Index: 0, Clause: raw(`["=",["field",13,null],2]`)},
			want: `{"aggregation":[["count"],["sum",["field",12,null]]],"filter":["=",["field",13,null],2],"order-by":[["asc",["aggregation",1]]],"source-table":2}`,
		},
		{
			name: "remove aggregation renumbers order-by",
			edit: mbql.Edit{Op: mbql.OpRemove, Kind: mbql.KindAggregation, Index: 0},
			want: `{"aggregation":[["sum",["field",12,null]]],"filter":["=",["field",13,null],1],"order-by":[["asc",["aggregation",0]]],"source-table":2}`,
		},
		{
			name: "clear aggregation drops order-by refs",
			edit: mbql.Edit{Op: mbql.OpClear, Kind: mbql.KindAggregation},
			want: `{"filter":["=",["field",13,null],1],"source-table":2}`,
		},
		{
			name: "add expression",
			edit: mbql.Edit{Op: mbql.OpAdd, Kind: mbql.KindExpression, Name: "double", Clause: raw(`["*",["field",12,null],2]`)},
			want: `{"aggregation":[["count"],["sum",["field",12,null]]],"expressions":{"double":["*",["field",12,null],2]},"filter":["=",["field",13,null],1],"order-by":[["asc",["aggregation",1]]],"source-table":2}`,
		},
		{
			name: "set limit",
			edit: mbql.Edit{Op: mbql.OpAdd, Kind: mbql.KindLimit, Clause: raw(`10`)},
			want: `{"aggregation":[["count"],["sum",["field",12,null]]],"filter":["=",["field",13,null],1],"limit":10,"order-by":[["asc",["aggregation",1]]],"source-table":2}`,
		},
		{
			name: "add join",
			edit: mbql.Edit{Op: mbql.OpAdd, Kind: mbql.KindJoin, Clause: raw(`{"source-table":1,"alias":"Products","condition":["=",["field",15,null],["field",1,{"join-alias":"Products"}]]}`)},
			want: `{"aggregation":[["count"],["sum",["field",12,null]]],"filter":["=",["field",13,null],1],"joins":[{"alias":"Products","condition":["=",["field",15,null],["field",1,{"join-alias":"Products"}]],"source-table":1}],"order-by":[["asc",["aggregation",1]]],"source-table":2}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := base.Apply(tt.edit)
			if err != nil {
				t.Fatalf("Apply: %v", err)
			}
			if s := legacyJSON(t, got); s != tt.want {
				t.Errorf("got  %s\nwant %s", s, tt.want)
			}
		})
	}
}

func TestApply_Invalid(t *testing.T) {
	base := mbql.NewForTable(metadata.OrdersID).Add(0, mbql.KindFilter, ordersTotalFilter)

	tests := []struct {
		name string
		edit mbql.Edit
	}{
		{"stage out of range", mbql.Edit{Op: mbql.OpClear, Stage: 3, Kind: mbql.KindFilter}},
		{"unknown kind", mbql.Edit{Op: mbql.OpClear, Kind: "having"}},
		{"unknown op", mbql.Edit{Op: "upsert", Kind: mbql.KindFilter, Clause: raw(`["count"]`)}},
		{"replace out of range", mbql.Edit{Op: mbql.OpReplace, Kind: mbql.KindFilter, Index: 4, Clause: raw(`["count"]`)}},
		{"remove out of range", mbql.Edit{Op: mbql.OpRemove, Kind: mbql.KindBreakout, Index: 0}},
		{"clause not a list", mbql.Edit{Op: mbql.OpAdd, Kind: mbql.KindFilter, Clause: raw(`{"a":1}`)}},
		{"missing clause", mbql.Edit{Op: mbql.OpAdd, Kind: mbql.KindFilter}},
		{"join not an object", mbql.Edit{Op: mbql.OpAdd, Kind: mbql.KindJoin, Clause: raw(`[1]`)}},
		{"expression without name", mbql.Edit{Op: mbql.OpAdd, Kind: mbql.KindExpression, Clause: raw(`["+",1,2]`)}},
		{"remove missing expression", mbql.Edit{Op: mbql.OpRemove, Kind: mbql.KindExpression, Name: "nope"}},
		{"negative limit", mbql.Edit{Op: mbql.OpAdd, Kind: mbql.KindLimit, Clause: raw(`-1`)}},
		{"fractional limit", mbql.Edit{Op: mbql.OpAdd, Kind: mbql.KindLimit, Clause: raw(`2.5`)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := base.Apply(tt.edit)
			if !errors.Is(err, mbql.ErrInvalidEdit) {
				t.Fatalf("expected ErrInvalidEdit, got %v", err)
			}
			if !mbql.Equal(got, base) {
				t.Errorf("failed edit should return the query unchanged, got %s", got)
			}
		})
	}
}

func TestApply_NegativeStage(t *testing.T) {
	q := mbql.NewForTable(metadata.OrdersID).Add(0, mbql.KindBreakout, mbql.Clause{"field", metadata.Orders.CreatedAt, nil}).Nest()
	got, err := q.Apply(mbql.Edit{Op: mbql.OpAdd, Stage: -1, Kind: mbql.KindLimit, Clause: raw(`3`)})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if n, ok := got.Stage(1).Limit(); !ok || n != 3 {
		t.Errorf("expected limit on top stage, got %d (ok=%v)", n, ok)
	}
}
