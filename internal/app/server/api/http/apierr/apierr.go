// Package apierr переводит доменные ошибки в HTTP ошибки.
package apierr

import (
	"context"
	"errors"

	"fleetcontrol/internal/domain/approval"
	"fleetcontrol/internal/domain/fleet"
	"fleetcontrol/internal/domain/record"
	"fleetcontrol/internal/domain/stats"
	docsync "fleetcontrol/internal/domain/sync"
	"fleetcontrol/internal/domain/tenant"

	"github.com/danielgtaylor/huma/v2"
)

// From превращает err в ошибку huma с HTTP статусом. nil остается nil.
func From(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case errors.Is(err, record.ErrNotFound), errors.Is(err, docsync.ErrDocumentNotFound):
		return huma.Error404NotFound(msg)
	case errors.Is(err, approval.ErrForbidden):
		return huma.Error403Forbidden(msg)
	case errors.Is(err, record.ErrVersionConflict),
		errors.Is(err, record.ErrFinalized),
		errors.Is(err, approval.ErrInvalidTransition):
		return huma.Error409Conflict(msg)
	case errors.Is(err, tenant.ErrTenantNotSet):
		return huma.Error412PreconditionFailed(msg)
	case errors.Is(err, record.ErrInvalidData),
		errors.Is(err, record.ErrUnknownCollection),
		errors.Is(err, record.ErrMissingParent),
		errors.Is(err, fleet.ErrNoRateSlab),
		errors.Is(err, stats.ErrInvalidFilter):
		return huma.Error422UnprocessableEntity(msg)
	case errors.Is(err, docsync.ErrOffline),
		errors.Is(err, approval.ErrRemoteUnavailable):
		return huma.Error503ServiceUnavailable(msg)
	case errors.Is(err, docsync.ErrRetriesExhausted):
		return huma.Error502BadGateway(msg)
	case errors.Is(err, context.DeadlineExceeded):
		return huma.Error504GatewayTimeout(msg)
	}
	return huma.Error500InternalServerError(msg)
}
