package tenant

import (
	"context"
	"net/http"

	"fleetcontrol/internal/app/server/api/http/apierr"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
)

type Switcher interface {
	TenantID() string
	UseTenant(tenantID string) error
}

type output struct {
	Body response
}

type response struct {
	TenantID string `json:"tenant_id" doc:"Текущий арендатор"`
}

type useInput struct {
	Body struct {
		TenantID string `json:"tenant_id" minLength:"1" doc:"Новый арендатор"`
	}
}

type Handler struct {
	switcher   Switcher
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(switcher Switcher, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{switcher: switcher, log: log, middleware: middleware}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "get-tenant",
		Method:      http.MethodGet,
		Path:        "/api/v1/tenant",
		Summary:     "Текущий арендатор",
		Tags:        []string{"tenant"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}, h.get)
	huma.Register(api, huma.Operation{
		OperationID: "use-tenant",
		Method:      http.MethodPut,
		Path:        "/api/v1/tenant",
		Summary:     "Переключить арендатора",
		Description: "Останавливает слушателей и фоновые отправки старого арендатора и запускает синхронизацию нового",
		Tags:        []string{"tenant"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}, h.use)
}

func (h *Handler) get(_ context.Context, _ *struct{}) (*output, error) {
	return &output{Body: response{TenantID: h.switcher.TenantID()}}, nil
}

func (h *Handler) use(_ context.Context, input *useInput) (*output, error) {
	if err := h.switcher.UseTenant(input.Body.TenantID); err != nil {
		return nil, apierr.From(err)
	}
	h.log.Info("tenant switched via API", "tenant_id", input.Body.TenantID)
	return &output{Body: response{TenantID: input.Body.TenantID}}, nil
}
