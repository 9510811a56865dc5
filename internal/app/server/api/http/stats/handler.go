package stats

import (
	"context"
	"net/http"

	"fleetcontrol/internal/app/server/api/http/apierr"
	"fleetcontrol/internal/domain/stats"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
)

const (
	sourceLocal  = "local"
	sourceRemote = "remote"
)

// Provider возвращает агрегатор по локальному хранилищу, а при fromRemote по удаленному.
type Provider func(fromRemote bool) (stats.Servicer, error)

type computeInput struct {
	DriverID int64  `query:"driver_id" doc:"Локальный id водителя; 0 - все водители"`
	Month    string `query:"month" pattern:"^\\d{4}-\\d{2}$" doc:"Месяц YYYY-MM; взаимоисключающий с from/to"`
	From     string `query:"from" doc:"Начало периода YYYY-MM-DD"`
	To       string `query:"to" doc:"Конец периода YYYY-MM-DD"`
	Source   string `query:"source" enum:"local,remote" default:"local" doc:"Откуда читать сырые записи"`
}

type computeOutput struct {
	Body stats.Summary
}

type publishInput struct {
	Body struct {
		DriverID int64  `json:"driver_id" minimum:"1" doc:"Локальный id водителя"`
		Month    string `json:"month" pattern:"^\\d{4}-\\d{2}$" doc:"Месяц YYYY-MM"`
		Source   string `json:"source,omitempty" enum:"local,remote" doc:"Откуда читать сырые записи"`
	}
}

type publishOutput struct {
	Body struct {
		ID     int64  `json:"id" doc:"Локальный id записи stats"`
		Status string `json:"status"`
	}
}

type Handler struct {
	provider   Provider
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(provider Provider, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{provider: provider, log: log, middleware: middleware}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "compute-stats",
		Method:      http.MethodGet,
		Path:        "/api/v1/stats",
		Summary:     "Сводка по одобренным рейсам",
		Description: "Считается из сырых записей при каждом запросе; сохраненные сводки не читаются",
		Tags:        []string{"stats"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}, h.compute)
	huma.Register(api, huma.Operation{
		OperationID: "publish-stats",
		Method:      http.MethodPost,
		Path:        "/api/v1/stats/publish",
		Summary:     "Сохранить месячную сводку водителя",
		Tags:        []string{"stats"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}, h.publish)
}

func (h *Handler) compute(ctx context.Context, input *computeInput) (*computeOutput, error) {
	if input.Month != "" && (input.From != "" || input.To != "") {
		return nil, huma.Error422UnprocessableEntity("month cannot be combined with from/to")
	}
	filter := stats.Filter{DriverID: input.DriverID, From: input.From, To: input.To}
	if input.Month != "" {
		var err error
		if filter, err = stats.MonthFilter(input.DriverID, input.Month); err != nil {
			return nil, apierr.From(err)
		}
	}

	agg, err := h.provider(input.Source == sourceRemote)
	if err != nil {
		return nil, apierr.From(err)
	}
	summary, err := agg.Compute(ctx, filter)
	if err != nil {
		return nil, apierr.From(err)
	}
	return &computeOutput{Body: summary}, nil
}

func (h *Handler) publish(ctx context.Context, input *publishInput) (*publishOutput, error) {
	agg, err := h.provider(input.Body.Source == sourceRemote)
	if err != nil {
		return nil, apierr.From(err)
	}
	id, err := agg.Publish(ctx, input.Body.DriverID, input.Body.Month)
	if err != nil {
		return nil, apierr.From(err)
	}
	out := &publishOutput{}
	out.Body.ID = id
	out.Body.Status = "Ok"
	return out, nil
}
