package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrEmptyBatch       = errors.New("reviews array required")
	ErrStoreUnavailable = errors.New("analysis store unavailable")
	ErrEmptyText        = errors.New("review text required")
	ErrInvalidInput     = errors.New("invalid input")
	ErrNotConfigured    = errors.New("not configured")
)
