package sync

import (
	"context"

	"fleetcontrol/internal/domain/record"
)

// RemoteStore - общее хранилище документов, через которое синхронизируются устройства арендатора.
type RemoteStore interface {
	// Put пишет документ под его id; при пустом id хранилище назначает его само.
	// Повторный Put того же id идемпотентен. Статус существующего документа меняет
	// только CompareAndSetStatus, а данные решенного документа не меняются:
	// такой Put возвращает record.ErrFinalized.
	Put(ctx context.Context, doc Document) (Document, error)
	Get(ctx context.Context, tenantID string, c record.Collection, id string) (*Document, error)
	Query(ctx context.Context, tenantID string, c record.Collection, q Query) ([]Document, error)
	// CompareAndSetStatus меняет статус, только если версия документа равна expectedVersion.
	CompareAndSetStatus(ctx context.Context, tenantID string, c record.Collection, id string, expectedVersion int, status record.Status, reason string) (int, error)
	// Subscribe передает полные снимки коллекции в sink до отмены подписки.
	Subscribe(ctx context.Context, tenantID string, c record.Collection, sink func([]Document)) (Subscription, error)
	Ping(ctx context.Context) error
}

// Subscription - живая подписка на коллекцию.
type Subscription interface {
	// Refresh запрашивает новый снимок, даже если удаленно ничего не менялось.
	Refresh()
	Cancel()
}
