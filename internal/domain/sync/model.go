package sync

import (
	"encoding/json"
	"time"

	"fleetcontrol/internal/domain/record"
)

// Document - удаленная форма записи по пути tenants/{tenantId}/{collection}/{id}.
// Ссылки в Data содержат remote id (или локальный id строкой, если родитель еще не синхронизирован).
type Document struct {
	ID         string            `json:"id"`
	TenantID   string            `json:"tenantId"`
	Collection record.Collection `json:"collection"`
	Data       json.RawMessage   `json:"data"`
	Status     record.Status     `json:"status,omitempty"`
	Reason     string            `json:"reason,omitempty"`
	Version    int               `json:"version"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

// Path возвращает полный удаленный путь документа.
func (d Document) Path() string {
	return Path(d.TenantID, d.Collection) + "/" + d.ID
}

// Path возвращает удаленный путь коллекции арендатора.
func Path(tenantID string, c record.Collection) string {
	return "tenants/" + tenantID + "/" + string(c)
}

type Op string

const (
	OpEq  Op = "=="
	OpNe  Op = "!="
	OpLt  Op = "<"
	OpLte Op = "<="
	OpGt  Op = ">"
	OpGte Op = ">="
)

// Filter сравнивает поле верхнего уровня (или "status") со значением.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Query сужает чтение удаленной коллекции.
type Query struct {
	Filters []Filter
	Limit   int
}

// Where добавляет фильтр.
func (q Query) Where(field string, op Op, value any) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), Filter{Field: field, Op: op, Value: value})
	return q
}

// ReconcileResult - итог применения одного снимка.
type ReconcileResult struct {
	Collection record.Collection `json:"collection"`
	Total      int               `json:"total"`
	Unchanged  int               `json:"unchanged"`
	Updated    int               `json:"updated"`
	Linked     int               `json:"linked"`
	Inserted   int               `json:"inserted"`
	Deferred   int               `json:"deferred"`
	Skipped    int               `json:"skipped"`
	Failed     int               `json:"failed"`
	Aborted    bool              `json:"aborted"`
	At         time.Time         `json:"at"`
}

// Changed сообщает, изменил ли снимок локальное хранилище.
func (r ReconcileResult) Changed() bool {
	return r.Updated+r.Linked+r.Inserted > 0
}

// PushSummary - итог одной отправки ожидающих записей коллекции.
type PushSummary struct {
	Collection record.Collection `json:"collection"`
	Selected   int               `json:"selected"`
	Pushed     int               `json:"pushed"`
	Failed     int               `json:"failed"`
}

// Status - состояние синхронизации для оператора.
type Status struct {
	TenantID    string                    `json:"tenantId"`
	Online      bool                      `json:"online"`
	Running     bool                      `json:"running"`
	Listening   []record.Collection       `json:"listening"`
	LastSweep   time.Time                 `json:"lastSweep,omitempty"`
	Collections []record.CollectionStatus `json:"collections"`
	LastApplied []ReconcileResult         `json:"lastApplied,omitempty"`
}
