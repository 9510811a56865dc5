package approval

import (
	"errors"

	"fleetcontrol/internal/domain/record"
)

var (
	ErrForbidden         = errors.New("only the owner can approve or reject trips")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrRemoteUnavailable = errors.New("synced trip needs the remote store to change status")
	ErrVersionConflict   = record.ErrVersionConflict
	ErrTripFinalized     = record.ErrFinalized
)
