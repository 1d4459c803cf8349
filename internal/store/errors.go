package store

import (
	"github.com/danilshahmanov/Infotecs/internal/errors"
)

var (
	ErrNotFound        = errors.ErrNotFound
	ErrSummaryNotFound = errors.ErrSummaryNotFound
	ErrFileNotFound    = errors.ErrFileNotFound
	ErrStoreClosed     = errors.ErrStoreClosed
)

// Persistence marks err as a store failure.
var Persistence = errors.Persistence
