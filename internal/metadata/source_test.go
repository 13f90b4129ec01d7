package metadata

import (
	"context"
	"errors"
	"testing"
)

type errSource struct{ err error }

func (s errSource) Catalog(context.Context) (*Metadata, error) { return nil, s.err }

func TestWithFallback(t *testing.T) {
	sample := SampleDatabase()
	ctx := context.Background()

	got, err := WithFallback(Static(New(nil, nil, nil)), sample).Catalog(ctx)
	if err != nil || got != sample {
		t.Errorf("empty primary should fall back to sample, got %v, %v", got, err)
	}

	own := New([]Database{{ID: 9, Name: "Warehouse"}}, nil, nil)
	got, err = WithFallback(Static(own), sample).Catalog(ctx)
	if err != nil || got != own {
		t.Errorf("populated primary should win, got %v, %v", got, err)
	}

	boom := errors.New("boom")
	if _, err := WithFallback(errSource{boom}, sample).Catalog(ctx); !errors.Is(err, boom) {
		t.Errorf("primary error should propagate, got %v", err)
	}
}
