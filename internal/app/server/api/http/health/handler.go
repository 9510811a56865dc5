package health

import (
	"context"
	"errors"

	docsync "fleetcontrol/internal/domain/sync"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
)

const (
	remoteOnline      = "online"
	remoteOffline     = "offline"
	remoteUnreachable = "unreachable"
)

type Checker interface {
	HealthCheck(ctx context.Context) error
}

type Handler struct {
	checker    Checker
	tenant     func() string
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(checker Checker, tenant func() string, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		checker:    checker,
		tenant:     tenant,
		log:        log,
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.healthCheckOp(), h.healthCheck)
}

// healthCheck всегда отвечает 200: локальное хранилище работает и без удаленного.
func (h *Handler) healthCheck(ctx context.Context, _ *Input) (*Output, error) {
	h.log.Debug("health check request received")

	resp := Response{Status: "OK", Remote: remoteOnline}
	if h.tenant != nil {
		resp.TenantID = h.tenant()
	}
	if err := h.checker.HealthCheck(ctx); err != nil {
		resp.Remote = remoteUnreachable
		if errors.Is(err, docsync.ErrOffline) {
			resp.Remote = remoteOffline
		} else {
			resp.Error = err.Error()
		}
	}
	return &Output{Body: resp}, nil
}
