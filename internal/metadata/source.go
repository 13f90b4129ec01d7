package metadata

import "context"

// Source supplies the catalog a request validates queries against.
type Source interface {
	Catalog(ctx context.Context) (*Metadata, error)
}

// Static always returns m.
func Static(m *Metadata) Source { return staticSource{m} }

type staticSource struct{ m *Metadata }

func (s staticSource) Catalog(context.Context) (*Metadata, error) { return s.m, nil }

// WithFallback returns fallback whenever primary has no databases, so an
// unseeded installation still has the sample catalog.
func WithFallback(primary Source, fallback *Metadata) Source {
	return fallbackSource{primary: primary, fallback: fallback}
}

type fallbackSource struct {
	primary  Source
	fallback *Metadata
}

func (s fallbackSource) Catalog(ctx context.Context) (*Metadata, error) {
	m, err := s.primary.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	if m == nil || m.Empty() {
		return s.fallback, nil
	}
	return m, nil
}

// Empty reports whether the catalog has no databases.
func (m *Metadata) Empty() bool { return len(m.databases) == 0 }
