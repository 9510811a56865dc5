package sync

import (
	docsync "fleetcontrol/internal/domain/sync"
)

type pendingInput struct {
	Collection string `path:"collection" example:"trips" doc:"Коллекция"`
}

type pendingOutput struct {
	Body docsync.PushSummary
}

type retryInput struct {
	ID int64 `path:"id" example:"1" doc:"Локальный id записи"`
}

type retryOutput struct {
	Body retryResponse
}

type retryResponse struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

type statusOutput struct {
	Body docsync.Status
}
