// Package question manages saved questions: a named dataset query stored in
// Postgres, bound to catalog metadata when it is read back, and optionally
// exported as a JSON snapshot to object storage.
package question

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/maraichr/notebook/internal/mbql"
	"github.com/maraichr/notebook/internal/metadata"
	"github.com/maraichr/notebook/internal/notebook"
	"github.com/maraichr/notebook/internal/store/postgres"
)

// ErrSnapshotsDisabled is returned by Export and Import when no object store
// is configured.
var ErrSnapshotsDisabled = errors.New("snapshots disabled")

// Store is the slice of the Postgres store the service uses.
type Store interface {
	ListQuestions(ctx context.Context, arg postgres.ListQuestionsParams) ([]postgres.Question, error)
	CountQuestions(ctx context.Context) (int64, error)
	GetQuestion(ctx context.Context, id uuid.UUID) (postgres.Question, error)
	CreateQuestion(ctx context.Context, arg postgres.CreateQuestionParams) (postgres.Question, error)
	UpdateQuestion(ctx context.Context, arg postgres.UpdateQuestionParams) (postgres.Question, error)
	DeleteQuestion(ctx context.Context, id uuid.UUID) error
}

// TxStore is a Store that can run a unit of work in one transaction.
// *store.Store implements it.
type TxStore interface {
	Store
	WithTx(ctx context.Context, fn func(postgres.QuestionQuerier) error) error
}

// Snapshots stores exported question documents.
type Snapshots interface {
	PutSnapshot(ctx context.Context, key string, data []byte) error
	GetSnapshot(ctx context.Context, key string) ([]byte, error)
}

type Question struct {
	ID          uuid.UUID    `json:"id"`
	Name        string       `json:"name"`
	Description *string      `json:"description"`
	Dataset     mbql.Dataset `json:"dataset_query"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func fromRow(r postgres.Question) (Question, error) {
	d, err := mbql.ParseDataset(r.DatasetQuery)
	if err != nil {
		return Question{}, fmt.Errorf("question %s: %w", r.ID, err)
	}
	return Question{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Dataset:     d,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}, nil
}

type Service struct {
	store     Store
	catalog   metadata.Source
	snapshots Snapshots
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates a question service. snapshots may be nil.
func NewService(s Store, catalog metadata.Source, snapshots Snapshots, logger *slog.Logger) *Service {
	return &Service{store: s, catalog: catalog, snapshots: snapshots, logger: logger, now: time.Now}
}

// SnapshotsEnabled reports whether Export and Import can be used.
func (s *Service) SnapshotsEnabled() bool { return s.snapshots != nil }

func (s *Service) List(ctx context.Context, limit, offset int32) ([]Question, int64, error) {
	rows, err := s.store.ListQuestions(ctx, postgres.ListQuestionsParams{Limit: limit, Offset: offset})
	if err != nil {
		return nil, 0, fmt.Errorf("list questions: %w", err)
	}
	total, err := s.store.CountQuestions(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("count questions: %w", err)
	}

	out := make([]Question, 0, len(rows))
	for _, r := range rows {
		q, err := fromRow(r)
		if err != nil {
			s.logger.Warn("skipping unreadable question", slog.String("id", r.ID.String()), slog.String("error", err.Error()))
			continue
		}
		out = append(out, q)
	}
	return out, total, nil
}

// Get loads a question. A missing question returns an error wrapping
// pgx.ErrNoRows.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Question, error) {
	r, err := s.store.GetQuestion(ctx, id)
	if err != nil {
		return Question{}, fmt.Errorf("get question %s: %w", id, err)
	}
	return fromRow(r)
}

func (s *Service) Create(ctx context.Context, name string, description *string, d mbql.Dataset) (Question, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return Question{}, fmt.Errorf("encode dataset: %w", err)
	}
	r, err := s.store.CreateQuestion(ctx, postgres.CreateQuestionParams{
		Name:         name,
		Description:  description,
		DatabaseID:   d.Database,
		DatasetQuery: data,
	})
	if err != nil {
		return Question{}, fmt.Errorf("create question: %w", err)
	}
	return fromRow(r)
}

// Modify loads a question, lets fn change it and saves the result. With a
// TxStore the row stays locked until the update commits. An error from fn
// leaves the question unchanged.
func (s *Service) Modify(ctx context.Context, id uuid.UUID, fn func(*Question) error) (Question, error) {
	tx, ok := s.store.(TxStore)
	if !ok {
		r, err := s.store.GetQuestion(ctx, id)
		if err != nil {
			return Question{}, fmt.Errorf("get question %s: %w", id, err)
		}
		return s.modify(ctx, s.store, r, fn)
	}

	var out Question
	err := tx.WithTx(ctx, func(q postgres.QuestionQuerier) error {
		r, err := q.GetQuestionForUpdate(ctx, id)
		if err != nil {
			return fmt.Errorf("get question %s: %w", id, err)
		}
		out, err = s.modify(ctx, q, r, fn)
		return err
	})
	if err != nil {
		return Question{}, err
	}
	return out, nil
}

func (s *Service) modify(ctx context.Context, st Store, r postgres.Question, fn func(*Question) error) (Question, error) {
	q, err := fromRow(r)
	if err != nil {
		return Question{}, err
	}
	if err := fn(&q); err != nil {
		return Question{}, err
	}
	return s.update(ctx, st, q)
}

func (s *Service) update(ctx context.Context, st Store, q Question) (Question, error) {
	data, err := json.Marshal(q.Dataset)
	if err != nil {
		return Question{}, fmt.Errorf("encode dataset: %w", err)
	}
	r, err := st.UpdateQuestion(ctx, postgres.UpdateQuestionParams{
		ID:           q.ID,
		Name:         q.Name,
		Description:  q.Description,
		DatabaseID:   q.Dataset.Database,
		DatasetQuery: data,
	})
	if err != nil {
		return Question{}, fmt.Errorf("update question %s: %w", q.ID, err)
	}
	return fromRow(r)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeleteQuestion(ctx, id); err != nil {
		return fmt.Errorf("delete question %s: %w", id, err)
	}
	return nil
}

// Bind attaches the current catalog to a structured dataset so that Clean
// and step derivation can resolve references.
func (s *Service) Bind(ctx context.Context, d mbql.Dataset) (mbql.Dataset, error) {
	if d.Type != mbql.TypeQuery || s.catalog == nil {
		return d, nil
	}
	m, err := s.catalog.Catalog(ctx)
	if err != nil {
		return d, fmt.Errorf("load catalog: %w", err)
	}
	if m != nil {
		d.Query = d.Query.WithMetadata(m)
	}
	return d, nil
}

// Steps binds d and derives its notebook steps.
func (s *Service) Steps(ctx context.Context, d mbql.Dataset, open notebook.OpenSteps) (mbql.Dataset, notebook.Steps, error) {
	d, err := s.Bind(ctx, d)
	if err != nil {
		return d, nil, err
	}
	return d, notebook.DeriveDataset(d, open), nil
}
