package record

import (
	"encoding/json"
	"time"
)

// Record - локальная форма, общая для всех синхронизируемых сущностей.
type Record struct {
	LocalID      int64            `json:"local_id"`
	RemoteID     string           `json:"remote_id,omitempty"`
	ClientID     string           `json:"client_id"`
	TenantID     string           `json:"tenant_id"`
	Collection   Collection       `json:"collection"`
	LogicalKey   string           `json:"logical_key"`
	Data         json.RawMessage  `json:"data"`
	Refs         map[string]int64 `json:"refs,omitempty"`
	Status       Status           `json:"status,omitempty"`
	Reason       string           `json:"reason,omitempty"`
	Version      int              `json:"version"`
	SyncAttempts int              `json:"sync_attempts"`
	Dirty        bool             `json:"dirty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// Synced сообщает, связана ли запись со своим удаленным документом.
func (r *Record) Synced() bool {
	return r.RemoteID != ""
}

// Pending сообщает, должна ли запись попасть в отправку.
func (r *Record) Pending() bool {
	return r.RemoteID == "" || r.Dirty
}

func (r *Record) Clone() *Record {
	cp := *r
	cp.Data = append(json.RawMessage(nil), r.Data...)
	if r.Refs != nil {
		cp.Refs = make(map[string]int64, len(r.Refs))
		for k, v := range r.Refs {
			cp.Refs[k] = v
		}
	}
	return &cp
}

// Fields декодирует Data в map.
func (r *Record) Fields() (map[string]any, error) {
	return decodeFields(r.Data)
}

// Decode декодирует Data в типизированную сущность.
func (r *Record) Decode(v any) error {
	return json.Unmarshal(r.Data, v)
}

// CollectionStatus - состояние синхронизации одной коллекции арендатора.
type CollectionStatus struct {
	Collection Collection `json:"collection"`
	Total      int        `json:"total"`
	Unsynced   int        `json:"unsynced"`
	Dirty      int        `json:"dirty"`
	Failing    int        `json:"failing"`
}
