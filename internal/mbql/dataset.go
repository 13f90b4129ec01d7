package mbql

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// QueryType distinguishes the two kinds of dataset query.
type QueryType string

const (
	TypeQuery  QueryType = "query"
	TypeNative QueryType = "native"
)

// NativeQuery is a raw query string in the database's own language.
type NativeQuery struct {
	Query        string         `json:"query"`
	TemplateTags map[string]any `json:"template-tags,omitempty"`
}

// Dataset is what a saved question stores: the database plus either a
// structured or a native query. Exactly one of Query and Native is
// meaningful, selected by Type.
type Dataset struct {
	Database int64
	Type     QueryType
	Query    Query
	Native   NativeQuery
}

// StructuredDataset wraps a structured query for a database.
func StructuredDataset(database int64, q Query) Dataset {
	return Dataset{Database: database, Type: TypeQuery, Query: q.WithDatabase(database)}
}

type datasetWire struct {
	Database int64           `json:"database"`
	Type     QueryType       `json:"type"`
	Query    json.RawMessage `json:"query,omitempty"`
	Native   *NativeQuery    `json:"native,omitempty"`
}

// ParseDataset decodes a dataset query.
func ParseDataset(data []byte) (Dataset, error) {
	var w datasetWire
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&w); err != nil {
		return Dataset{}, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	d := Dataset{Database: w.Database, Type: w.Type}
	switch w.Type {
	case TypeQuery:
		q := New()
		if len(w.Query) > 0 {
			var err error
			if q, err = Parse(w.Query); err != nil {
				return Dataset{}, err
			}
		}
		d.Query = q.WithDatabase(w.Database)
	case TypeNative:
		if w.Native == nil {
			return Dataset{}, invalid("native dataset without native query")
		}
		d.Native = *w.Native
	default:
		return Dataset{}, invalid("unknown dataset type %q", w.Type)
	}
	return d, nil
}

// MarshalJSON encodes the dataset in its wire form.
func (d Dataset) MarshalJSON() ([]byte, error) {
	w := datasetWire{Database: d.Database, Type: d.Type}
	switch d.Type {
	case TypeQuery:
		b, err := d.Query.MarshalJSON()
		if err != nil {
			return nil, err
		}
		w.Query = b
	case TypeNative:
		n := d.Native
		w.Native = &n
	default:
		return nil, invalid("unknown dataset type %q", d.Type)
	}
	return json.Marshal(w)
}

func (d *Dataset) UnmarshalJSON(data []byte) error {
	parsed, err := ParseDataset(data)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
