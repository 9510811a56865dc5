package approval

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fleetcontrol/internal/domain/record"
	"fleetcontrol/internal/domain/tenant"

	"golang.org/x/exp/slog"
)

// Remote - часть удаленного хранилища, нужная для согласования.
type Remote interface {
	CompareAndSetStatus(ctx context.Context, tenantID string, c record.Collection, id string, expectedVersion int, status record.Status, reason string) (int, error)
}

type Pusher interface {
	Push(ctx context.Context, tenantID string, localID int64) error
	Schedule(tenantID string, localID int64)
}

// Locker упорядочивает работу над одной локальной записью с отправкой и сверкой.
type Locker interface {
	Do(ctx context.Context, key int64, fn func(ctx context.Context) error) error
}

type Servicer interface {
	ApproveTrip(ctx context.Context, localID int64) (*record.Record, error)
	RejectTrip(ctx context.Context, localID int64, reason string) (*record.Record, error)
	Transition(ctx context.Context, localID int64, readVersion int, to record.Status, reason string) (*record.Record, error)
}

// Service переводит рейсы PENDING -> APPROVED | REJECTED. Каждый переход защищен
// прочитанной версией: если рейс успел измениться, возвращается ErrVersionConflict.
type Service struct {
	repo   record.Repository
	remote Remote
	pusher Pusher
	locker Locker
	tenant *tenant.Context
	log    *slog.Logger
}

// NewService создает сервис согласования. На офлайн устройстве remote и pusher равны nil.
func NewService(repo record.Repository, remote Remote, pusher Pusher, locker Locker, tc *tenant.Context, log *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		remote: remote,
		pusher: pusher,
		locker: locker,
		tenant: tc,
		log:    log.With("component", "approval"),
	}
}

func (s *Service) ApproveTrip(ctx context.Context, localID int64) (*record.Record, error) {
	return s.decide(ctx, localID, record.StatusApproved, "")
}

func (s *Service) RejectTrip(ctx context.Context, localID int64, reason string) (*record.Record, error) {
	return s.decide(ctx, localID, record.StatusRejected, reason)
}

func (s *Service) decide(ctx context.Context, localID int64, to record.Status, reason string) (*record.Record, error) {
	tenantID, err := s.tenant.Require()
	if err != nil {
		return nil, err
	}
	rec, err := s.repo.Get(ctx, tenantID, localID)
	if err != nil {
		return nil, err
	}
	return s.Transition(ctx, localID, rec.Version, to, reason)
}

// Transition применяет решение, если рейс все еще PENDING на версии readVersion.
// Синхронизированный рейс сначала решается в удаленном документе, затем локально;
// несинхронизированный решается локально и отправляется с новым статусом.
func (s *Service) Transition(ctx context.Context, localID int64, readVersion int, to record.Status, reason string) (*record.Record, error) {
	actor, ok := tenant.ActorFrom(ctx)
	if !ok || !actor.IsOwner() {
		return nil, ErrForbidden
	}
	tenantID, err := s.tenant.Require()
	if err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if err := checkTarget(to, reason); err != nil {
		return nil, err
	}

	rec, err := s.load(ctx, tenantID, localID, readVersion)
	if err != nil {
		return nil, err
	}

	// сначала обновляем удаленную копию, чтобы ее версия совпала с локальной
	if rec.Pending() && s.pusher != nil {
		if err := s.pusher.Push(ctx, tenantID, localID); err != nil {
			s.log.Warn("push before decision failed", "local_id", localID, "error", err)
		}
	}

	var schedule bool
	err = s.locker.Do(ctx, localID, func(ctx context.Context) error {
		rec, err := s.load(ctx, tenantID, localID, readVersion)
		if err != nil {
			return err
		}
		if rec.Synced() {
			return s.decideRemote(ctx, rec, to, reason)
		}
		if _, err := s.repo.CompareAndSetStatus(ctx, tenantID, localID, readVersion, to, reason); err != nil {
			return err
		}
		schedule = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if schedule && s.pusher != nil {
		s.pusher.Schedule(tenantID, localID)
	}

	s.log.Info("trip decided",
		"tenant_id", tenantID,
		"local_id", localID,
		"status", to,
		"member_id", actor.MemberID,
	)
	return s.repo.Get(ctx, tenantID, localID)
}

func (s *Service) decideRemote(ctx context.Context, rec *record.Record, to record.Status, reason string) error {
	if s.remote == nil {
		return ErrRemoteUnavailable
	}
	remoteVersion, err := s.remote.CompareAndSetStatus(ctx, rec.TenantID, rec.Collection, rec.RemoteID, rec.Version, to, reason)
	if err != nil {
		if errors.Is(err, record.ErrVersionConflict) {
			return fmt.Errorf("%w: remote is at version %d", ErrVersionConflict, remoteVersion)
		}
		return fmt.Errorf("remote status change: %w", err)
	}

	localVersion, err := s.repo.CompareAndSetStatus(ctx, rec.TenantID, rec.LocalID, rec.Version, to, reason)
	if err != nil {
		return err
	}
	// удаленный документ уже в этом статусе, отправлять нечего
	if localVersion == remoteVersion {
		return s.repo.MarkPushed(ctx, rec.TenantID, rec.LocalID, localVersion)
	}
	return nil
}

func (s *Service) load(ctx context.Context, tenantID string, localID int64, readVersion int) (*record.Record, error) {
	rec, err := s.repo.Get(ctx, tenantID, localID)
	if err != nil {
		return nil, err
	}
	schema, err := record.SchemaFor(rec.Collection)
	if err != nil {
		return nil, err
	}
	if !schema.Approval {
		return nil, fmt.Errorf("%w: %s records have no approval", ErrInvalidTransition, rec.Collection)
	}
	if rec.Version != readVersion {
		return nil, fmt.Errorf("%w: read version %d, current %d", ErrVersionConflict, readVersion, rec.Version)
	}
	if rec.Status != record.StatusPending {
		return nil, fmt.Errorf("%w: trip is %s", ErrInvalidTransition, rec.Status)
	}
	return rec, nil
}

func checkTarget(to record.Status, reason string) error {
	switch to {
	case record.StatusApproved:
		return nil
	case record.StatusRejected:
		if reason == "" {
			return fmt.Errorf("%w: rejection needs a reason", ErrInvalidTransition)
		}
		return nil
	}
	return fmt.Errorf("%w: cannot move a trip to %q", ErrInvalidTransition, to)
}
