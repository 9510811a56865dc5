package record

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

var bearer = []map[string][]string{{"bearer": {}}}

func (h *Handler) listOp() huma.Operation {
	return huma.Operation{
		OperationID: "list-records",
		Method:      http.MethodGet,
		Path:        "/api/v1/records/{collection}",
		Summary:     "Записи коллекции текущего арендатора",
		Tags:        []string{"records"},
		Security:    bearer,
		Middlewares: h.middleware,
	}
}

func (h *Handler) findOp() huma.Operation {
	return huma.Operation{
		OperationID: "get-record",
		Method:      http.MethodGet,
		Path:        "/api/v1/records/{collection}/{id}",
		Summary:     "Получить запись по локальному id",
		Tags:        []string{"records"},
		Security:    bearer,
		Middlewares: h.middleware,
	}
}

func (h *Handler) createOp() huma.Operation {
	return huma.Operation{
		OperationID:   "create-record",
		Method:        http.MethodPost,
		Path:          "/api/v1/records/{collection}",
		Summary:       "Создать запись",
		Description:   "Сохраняет запись локально и ставит ее в очередь на отправку",
		Tags:          []string{"records"},
		DefaultStatus: http.StatusCreated,
		Security:      bearer,
		Middlewares:   h.middleware,
	}
}

func (h *Handler) updateOp() huma.Operation {
	return huma.Operation{
		OperationID: "update-record",
		Method:      http.MethodPut,
		Path:        "/api/v1/records/{collection}/{id}",
		Summary:     "Изменить запись",
		Tags:        []string{"records"},
		Security:    bearer,
		Middlewares: h.middleware,
	}
}

func (h *Handler) typedOp(id, path, summary string) huma.Operation {
	return huma.Operation{
		OperationID:   id,
		Method:        http.MethodPost,
		Path:          path,
		Summary:       summary,
		Tags:          []string{"fleet"},
		DefaultStatus: http.StatusCreated,
		Security:      bearer,
		Middlewares:   h.middleware,
	}
}

func (h *Handler) createDriverOp() huma.Operation {
	return h.typedOp("create-driver", "/api/v1/drivers", "Добавить водителя")
}

func (h *Handler) createTripOp() huma.Operation {
	return h.typedOp("create-trip", "/api/v1/trips", "Добавить рейс")
}

func (h *Handler) createAdvanceOp() huma.Operation {
	return h.typedOp("create-advance", "/api/v1/advances", "Выдать аванс")
}

func (h *Handler) createFuelOp() huma.Operation {
	return h.typedOp("create-fuel", "/api/v1/fuel", "Добавить заправку")
}

func (h *Handler) createFuelRequestOp() huma.Operation {
	return h.typedOp("create-fuel-request", "/api/v1/fuel-requests", "Запросить топливо")
}
