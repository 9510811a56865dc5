package record

import (
	"errors"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrInvalidData       = errors.New("invalid record data")
	ErrVersionConflict   = errors.New("record version conflict")
	ErrUnknownCollection = errors.New("unknown collection")
	ErrMissingParent     = errors.New("referenced record not found")
	ErrFinalized         = errors.New("record is finalized and cannot be edited")
)
