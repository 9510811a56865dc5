package sync

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) syncPendingOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-pending",
		Method:      http.MethodPost,
		Path:        "/api/v1/sync/{collection}/pending",
		Summary:     "Отправить неотправленные записи коллекции",
		Tags:        []string{"sync"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) retrySyncOp() huma.Operation {
	return huma.Operation{
		OperationID: "retry-sync",
		Method:      http.MethodPost,
		Path:        "/api/v1/sync/retry/{id}",
		Summary:     "Повторить отправку записи",
		Description: "Сбрасывает счетчик попыток и отправляет запись заново",
		Tags:        []string{"sync"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) getStatusOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-status",
		Method:      http.MethodGet,
		Path:        "/api/v1/sync/status",
		Summary:     "Состояние синхронизации",
		Tags:        []string{"sync"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}
