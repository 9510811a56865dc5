package sync

import (
	"context"
	"errors"
	"strconv"

	"fleetcontrol/internal/domain/record"
)

// Resolver переводит ссылки между локальными и удаленными id.
type Resolver struct {
	repo record.Repository
}

func NewResolver(repo record.Repository) *Resolver {
	return &Resolver{repo: repo}
}

// RemoteFor возвращает remote id локального родителя; ok=false, если родителя нет или он не синхронизирован.
func (r *Resolver) RemoteFor(ctx context.Context, tenantID string, c record.Collection, localID int64) (string, bool, error) {
	rec, err := r.repo.Get(ctx, tenantID, localID)
	if errors.Is(err, record.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if rec.Collection != c || rec.RemoteID == "" {
		return "", false, nil
	}
	return rec.RemoteID, true, nil
}

// LocalFor возвращает локальный id строки, связанной с remoteID.
func (r *Resolver) LocalFor(ctx context.Context, tenantID string, c record.Collection, remoteID string) (int64, bool, error) {
	rec, err := r.repo.GetByRemoteID(ctx, tenantID, c, remoteID)
	if errors.Is(err, record.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return rec.LocalID, true, nil
}

// RemoteRef - значение ссылки в исходящем документе. Несинхронизированный родитель
// пишется локальным id строкой; дочерняя запись переотправляется после связывания родителя.
func (r *Resolver) RemoteRef(ctx context.Context, tenantID string, c record.Collection, localID int64) (string, error) {
	remoteID, ok, err := r.RemoteFor(ctx, tenantID, c, localID)
	if err != nil {
		return "", err
	}
	if !ok {
		return strconv.FormatInt(localID, 10), nil
	}
	return remoteID, nil
}
