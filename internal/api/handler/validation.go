package handler

import (
	"errors"

	"github.com/maraichr/notebook/pkg/apierr"
)

var errMissingQuery = errors.New("query is required")

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func validateName(name string) *apierr.Error {
	if name == "" {
		return apierr.NameRequired()
	}
	if len(name) > 255 {
		return apierr.NameTooLong()
	}
	return nil
}

func pageParams(limit, offset int) (int32, int32) {
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return int32(limit), int32(offset)
}
