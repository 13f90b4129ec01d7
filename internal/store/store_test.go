package store

import "github.com/maraichr/notebook/internal/question"

var _ question.TxStore = (*Store)(nil)
