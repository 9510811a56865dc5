package sync

import (
	"context"

	"fleetcontrol/internal/domain/record"
)

type Servicer interface {
	SyncPending(ctx context.Context, c record.Collection) (PushSummary, error)
	RetrySync(ctx context.Context, localID int64) error
	Status(ctx context.Context) (Status, error)
	HealthCheck(ctx context.Context) error
}

// Service открывает движок синхронизации для API и CLI.
type Service struct {
	pusher *Pusher
	worker *Worker
}

func NewService(pusher *Pusher, worker *Worker) *Service {
	return &Service{pusher: pusher, worker: worker}
}

func (s *Service) SyncPending(ctx context.Context, c record.Collection) (PushSummary, error) {
	return s.pusher.SyncPending(ctx, c)
}

func (s *Service) RetrySync(ctx context.Context, localID int64) error {
	return s.pusher.RetrySync(ctx, localID)
}

func (s *Service) Status(ctx context.Context) (Status, error) {
	return s.worker.Status(ctx)
}

func (s *Service) HealthCheck(ctx context.Context) error {
	return s.worker.HealthCheck(ctx)
}
