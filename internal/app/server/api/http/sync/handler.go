package sync

import (
	"context"

	"fleetcontrol/internal/app/server/api/http/apierr"
	"fleetcontrol/internal/domain/record"
	docsync "fleetcontrol/internal/domain/sync"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
)

type Handler struct {
	service    docsync.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service docsync.Servicer, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		log:        log,
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.syncPendingOp(), h.syncPending)
	huma.Register(api, h.retrySyncOp(), h.retrySync)
	huma.Register(api, h.getStatusOp(), h.getStatus)
}

func (h *Handler) syncPending(ctx context.Context, input *pendingInput) (*pendingOutput, error) {
	c := record.Collection(input.Collection)
	if _, err := record.SchemaFor(c); err != nil {
		return nil, apierr.From(err)
	}
	summary, err := h.service.SyncPending(ctx, c)
	if err != nil {
		return nil, apierr.From(err)
	}
	return &pendingOutput{Body: summary}, nil
}

func (h *Handler) retrySync(ctx context.Context, input *retryInput) (*retryOutput, error) {
	if err := h.service.RetrySync(ctx, input.ID); err != nil {
		h.log.Warn("manual retry failed", "local_id", input.ID, "error", err)
		return nil, apierr.From(err)
	}
	return &retryOutput{Body: retryResponse{ID: input.ID, Status: "Ok"}}, nil
}

func (h *Handler) getStatus(ctx context.Context, _ *struct{}) (*statusOutput, error) {
	status, err := h.service.Status(ctx)
	if err != nil {
		return nil, apierr.From(err)
	}
	return &statusOutput{Body: status}, nil
}
