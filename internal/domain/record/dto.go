package record

import (
	"encoding/json"
)

type CreateRequest struct {
	Data json.RawMessage  `json:"data" doc:"Поля сущности (JSON-объект)"`
	Refs map[string]int64 `json:"refs,omitempty" doc:"Ссылки на локальные id родительских записей"`
}

// UpdateRequest сливает ключи верхнего уровня из Data и Refs с сохраненной записью.
type UpdateRequest struct {
	Data json.RawMessage  `json:"data,omitempty"`
	Refs map[string]int64 `json:"refs,omitempty"`
}

type ListResponse struct {
	Records []*Record `json:"records"`
	Total   int       `json:"total"`
}
