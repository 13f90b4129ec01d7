package postgres

import (
	"context"

	"github.com/google/uuid"
)

const listQuestions = `SELECT id, name, description, database_id, dataset_query, created_at, updated_at
FROM questions
ORDER BY updated_at DESC
LIMIT $1 OFFSET $2`

type ListQuestionsParams struct {
	Limit  int32 `json:"limit"`
	Offset int32 `json:"offset"`
}

func (q *Queries) ListQuestions(ctx context.Context, arg ListQuestionsParams) ([]Question, error) {
	rows, err := q.db.Query(ctx, listQuestions, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Question
	for rows.Next() {
		var i Question
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.Description,
			&i.DatabaseID,
			&i.DatasetQuery,
			&i.CreatedAt,
			&i.UpdatedAt,
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

const countQuestions = `SELECT count(*) FROM questions`

func (q *Queries) CountQuestions(ctx context.Context) (int64, error) {
	row := q.db.QueryRow(ctx, countQuestions)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const getQuestion = `SELECT id, name, description, database_id, dataset_query, created_at, updated_at
FROM questions
WHERE id = $1`

func (q *Queries) GetQuestion(ctx context.Context, id uuid.UUID) (Question, error) {
	row := q.db.QueryRow(ctx, getQuestion, id)
	var i Question
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Description,
		&i.DatabaseID,
		&i.DatasetQuery,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getQuestionForUpdate = `SELECT id, name, description, database_id, dataset_query, created_at, updated_at
FROM questions
WHERE id = $1
FOR UPDATE`

func (q *Queries) GetQuestionForUpdate(ctx context.Context, id uuid.UUID) (Question, error) {
	row := q.db.QueryRow(ctx, getQuestionForUpdate, id)
	var i Question
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Description,
		&i.DatabaseID,
		&i.DatasetQuery,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createQuestion = `INSERT INTO questions (name, description, database_id, dataset_query)
VALUES ($1, $2, $3, $4)
RETURNING id, name, description, database_id, dataset_query, created_at, updated_at`

type CreateQuestionParams struct {
	Name         string  `json:"name"`
	Description  *string `json:"description"`
	DatabaseID   int64   `json:"database_id"`
	DatasetQuery []byte  `json:"dataset_query"`
}

func (q *Queries) CreateQuestion(ctx context.Context, arg CreateQuestionParams) (Question, error) {
	row := q.db.QueryRow(ctx, createQuestion,
		arg.Name,
		arg.Description,
		arg.DatabaseID,
		arg.DatasetQuery,
	)
	var i Question
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Description,
		&i.DatabaseID,
		&i.DatasetQuery,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const updateQuestion = `UPDATE questions
SET name = $2, description = $3, database_id = $4, dataset_query = $5, updated_at = now()
WHERE id = $1
RETURNING id, name, description, database_id, dataset_query, created_at, updated_at`

type UpdateQuestionParams struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Description  *string   `json:"description"`
	DatabaseID   int64     `json:"database_id"`
	DatasetQuery []byte    `json:"dataset_query"`
}

func (q *Queries) UpdateQuestion(ctx context.Context, arg UpdateQuestionParams) (Question, error) {
	row := q.db.QueryRow(ctx, updateQuestion,
		arg.ID,
		arg.Name,
		arg.Description,
		arg.DatabaseID,
		arg.DatasetQuery,
	)
	var i Question
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Description,
		&i.DatabaseID,
		&i.DatasetQuery,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const deleteQuestion = `DELETE FROM questions WHERE id = $1`

func (q *Queries) DeleteQuestion(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteQuestion, id)
	return err
}
