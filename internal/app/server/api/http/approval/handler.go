package approval

import (
	"context"
	"net/http"

	"fleetcontrol/internal/app/server/api/http/apierr"
	"fleetcontrol/internal/domain/approval"
	"fleetcontrol/internal/domain/record"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
)

type approveBody struct {
	Version int `json:"version,omitempty" minimum:"0" doc:"Версия, которую видел владелец; 0 - текущая"`
}

type approveInput struct {
	ID   int64 `path:"id" example:"1" doc:"Локальный id рейса"`
	Body *approveBody `required:"false"`
}

type rejectInput struct {
	ID   int64 `path:"id" example:"1" doc:"Локальный id рейса"`
	Body struct {
		Reason  string `json:"reason" minLength:"1" doc:"Причина отказа"`
		Version int    `json:"version,omitempty" minimum:"0" doc:"Версия, которую видел владелец; 0 - текущая"`
	}
}

type output struct {
	Body *record.Record
}

type Handler struct {
	service    approval.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service approval.Servicer, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{service: service, log: log, middleware: middleware}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.op("approve-trip", "/api/v1/trips/{id}/approve", "Одобрить рейс"), h.approve)
	huma.Register(api, h.op("reject-trip", "/api/v1/trips/{id}/reject", "Отклонить рейс"), h.reject)
}

func (h *Handler) op(id, path, summary string) huma.Operation {
	return huma.Operation{
		OperationID: id,
		Method:      http.MethodPost,
		Path:        path,
		Summary:     summary,
		Description: "Только владелец. При указанной версии рейс, измененный с тех пор, вернет 409",
		Tags:        []string{"approval"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) approve(ctx context.Context, input *approveInput) (*output, error) {
	var (
		rec *record.Record
		err error
	)
	if input.Body != nil && input.Body.Version > 0 {
		rec, err = h.service.Transition(ctx, input.ID, input.Body.Version, record.StatusApproved, "")
	} else {
		rec, err = h.service.ApproveTrip(ctx, input.ID)
	}
	if err != nil {
		return nil, apierr.From(err)
	}
	return &output{Body: rec}, nil
}

func (h *Handler) reject(ctx context.Context, input *rejectInput) (*output, error) {
	var (
		rec *record.Record
		err error
	)
	if input.Body.Version > 0 {
		rec, err = h.service.Transition(ctx, input.ID, input.Body.Version, record.StatusRejected, input.Body.Reason)
	} else {
		rec, err = h.service.RejectTrip(ctx, input.ID, input.Body.Reason)
	}
	if err != nil {
		return nil, apierr.From(err)
	}
	return &output{Body: rec}, nil
}
