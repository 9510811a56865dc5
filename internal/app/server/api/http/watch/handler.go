package watch

import (
	"context"
	"net/http"

	"fleetcontrol/internal/domain/record"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"golang.org/x/exp/slog"
)

type Watcher interface {
	Watch(ctx context.Context, c record.Collection) (<-chan []*record.Record, error)
}

type input struct {
	Collection string `path:"collection" example:"trips" doc:"Коллекция"`
}

// Snapshot - полный список записей коллекции на один момент.
type Snapshot struct {
	Collection record.Collection `json:"collection"`
	Records    []*record.Record  `json:"records"`
}

// Failure завершает поток, который не удалось начать.
type Failure struct {
	Error string `json:"error"`
}

type Handler struct {
	watcher    Watcher
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(watcher Watcher, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{watcher: watcher, log: log, middleware: middleware}
}

func (h *Handler) SetupRoutes(api huma.API) {
	sse.Register(api, huma.Operation{
		OperationID: "watch-records",
		Method:      http.MethodGet,
		Path:        "/api/v1/watch/{collection}",
		Summary:     "Поток снимков коллекции",
		Description: "Отправляет полный список записей при подписке и после каждого изменения",
		Tags:        []string{"records"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}, map[string]any{
		"snapshot": Snapshot{},
		"error":    Failure{},
	}, h.stream)
}

func (h *Handler) stream(ctx context.Context, in *input, send sse.Sender) {
	c := record.Collection(in.Collection)
	snapshots, err := h.watcher.Watch(ctx, c)
	if err != nil {
		_ = send.Data(Failure{Error: err.Error()})
		return
	}
	id := 0
	for recs := range snapshots {
		id++
		if err := send(sse.Message{ID: id, Data: Snapshot{Collection: c, Records: recs}}); err != nil {
			h.log.Debug("watch client gone", "collection", c, "error", err)
			return
		}
	}
}
