package record

import (
	"context"
)

// Repository - локальное хранилище. Каждый метод ограничен арендатором: строка
// другого арендатора не возвращается и не изменяется.
type Repository interface {
	Insert(ctx context.Context, rec *Record) (int64, error)
	// Update перезаписывает изменяемые поля существующей строки.
	Update(ctx context.Context, rec *Record) error
	Get(ctx context.Context, tenantID string, localID int64) (*Record, error)
	GetByRemoteID(ctx context.Context, tenantID string, c Collection, remoteID string) (*Record, error)
	// GetUnlinkedByClientID и GetUnlinkedByLogicalKey находят только строки без remote id.
	GetUnlinkedByClientID(ctx context.Context, tenantID string, c Collection, clientID string) (*Record, error)
	GetUnlinkedByLogicalKey(ctx context.Context, tenantID string, c Collection, key string) (*Record, error)
	List(ctx context.Context, tenantID string, c Collection) ([]*Record, error)
	// ListPending возвращает строки без remote id или с неотправленной правкой.
	ListPending(ctx context.Context, tenantID string, c Collection) ([]*Record, error)
	ListDependents(ctx context.Context, tenantID string, parent Collection, parentID int64) ([]*Record, error)

	// LinkRemoteID проставляет remote id, только если его еще нет.
	LinkRemoteID(ctx context.Context, tenantID string, localID int64, remoteID string) (bool, error)
	// MarkPushed снимает флаг dirty, если строка все еще на отправленной версии.
	MarkPushed(ctx context.Context, tenantID string, localID int64, version int) error
	IncrementSyncAttempts(ctx context.Context, tenantID string, localID int64) (int, error)
	ResetSyncAttempts(ctx context.Context, tenantID string, localID int64) error
	// CompareAndSetStatus меняет статус и версию только при версии expectedVersion.
	CompareAndSetStatus(ctx context.Context, tenantID string, localID int64, expectedVersion int, status Status, reason string) (int, error)

	Watch(ctx context.Context, tenantID string, c Collection) (<-chan []*Record, error)
	Status(ctx context.Context, tenantID string) ([]CollectionStatus, error)
}
