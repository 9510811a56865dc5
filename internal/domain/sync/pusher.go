package sync

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"fleetcontrol/internal/domain/record"
	"fleetcontrol/internal/domain/tenant"

	"golang.org/x/exp/slog"
	"golang.org/x/sync/singleflight"
)

// RetryPolicy ограничивает PushWithRetry.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts: 3,
	BaseDelay:   500 * time.Millisecond,
	MaxDelay:    5 * time.Second,
}

// Delay возвращает паузу после неудачной попытки (нумерация с 1).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Pusher отправляет локальные записи в удаленное хранилище. Каждая отправка идет под
// блокировкой записи, использует client id как id документа и связывает
// полученный remote id, только если его у строки еще нет.
type Pusher struct {
	repo     record.Repository
	remote   RemoteStore
	resolver *Resolver
	tenant   *tenant.Context
	tasks    *TaskGroup
	policy   RetryPolicy
	sweeps   singleflight.Group
	log      *slog.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewPusher создает отправитель; на офлайн устройстве remote может быть nil.
func NewPusher(repo record.Repository, remote RemoteStore, resolver *Resolver, tc *tenant.Context, tasks *TaskGroup, log *slog.Logger) *Pusher {
	return &Pusher{
		repo:     repo,
		remote:   remote,
		resolver: resolver,
		tenant:   tc,
		tasks:    tasks,
		policy:   DefaultRetryPolicy,
		log:      log.With("component", "pusher"),
		sleep:    sleepCtx,
	}
}

// WithPolicy заменяет политику повторов; тесты сокращают ей задержки.
func (p *Pusher) WithPolicy(policy RetryPolicy) *Pusher {
	p.policy = policy
	return p
}

// PushWithRetry выполняет op до MaxAttempts раз с экспоненциальной паузой между попытками.
func (p *Pusher) PushWithRetry(ctx context.Context, operation string, op func(ctx context.Context) (string, error)) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= p.policy.MaxAttempts; attempt++ {
		id, err := op(ctx)
		if err == nil {
			return id, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if permanent(err) {
			return "", err
		}
		p.log.Warn("push attempt failed", "operation", operation, "attempt", attempt, "error", err)

		if attempt < p.policy.MaxAttempts {
			if err := p.sleep(ctx, p.policy.Delay(attempt)); err != nil {
				return "", err
			}
		}
	}
	return "", fmt.Errorf("%w: %s: %v", ErrRetriesExhausted, operation, lastErr)
}

// Schedule ставит отправку записи в фон. Реализует record.Scheduler.
func (p *Pusher) Schedule(tenantID string, localID int64) {
	if p.remote == nil {
		return
	}
	p.tasks.Submit(localID, func(ctx context.Context) {
		if err := p.push(ctx, tenantID, localID); err != nil && !isCancellation(err) {
			p.log.Error("scheduled push failed", "tenant_id", tenantID, "local_id", localID, "error", err)
		}
	})
}

// Push синхронно отправляет одну запись под ее блокировкой.
func (p *Pusher) Push(ctx context.Context, tenantID string, localID int64) error {
	return p.tasks.Do(ctx, localID, func(ctx context.Context) error {
		return p.push(ctx, tenantID, localID)
	})
}

// RetrySync сбрасывает счетчик попыток записи и сразу отправляет ее.
func (p *Pusher) RetrySync(ctx context.Context, localID int64) error {
	tenantID, err := p.tenant.Require()
	if err != nil {
		return err
	}
	if err := p.repo.ResetSyncAttempts(ctx, tenantID, localID); err != nil {
		return err
	}
	return p.Push(ctx, tenantID, localID)
}

// SyncPending отправляет все ожидающие записи коллекции текущего арендатора.
// Одновременные вызовы для той же коллекции делят один проход.
func (p *Pusher) SyncPending(ctx context.Context, c record.Collection) (PushSummary, error) {
	if err := c.Validate(); err != nil {
		return PushSummary{}, err
	}
	tenantID := p.tenant.Current()
	if tenantID == "" || p.remote == nil {
		return PushSummary{Collection: c}, nil
	}

	v, err, _ := p.sweeps.Do(tenantID+"/"+string(c), func() (any, error) {
		return p.sweep(ctx, tenantID, c)
	})
	if err != nil {
		return PushSummary{Collection: c}, err
	}
	return v.(PushSummary), nil
}

func (p *Pusher) sweep(ctx context.Context, tenantID string, c record.Collection) (PushSummary, error) {
	summary := PushSummary{Collection: c}
	pending, err := p.repo.ListPending(ctx, tenantID, c)
	if err != nil {
		return summary, fmt.Errorf("list pending %s: %w", c, err)
	}
	summary.Selected = len(pending)

	for _, rec := range pending {
		err := p.Push(ctx, tenantID, rec.LocalID)
		switch {
		case err == nil:
			summary.Pushed++
		case errors.Is(err, ErrTenantChanged) || ctx.Err() != nil:
			return summary, nil
		default:
			summary.Failed++
		}
	}
	if summary.Selected > 0 {
		p.log.Info("pending sweep finished",
			"tenant_id", tenantID,
			"collection", c,
			"selected", summary.Selected,
			"pushed", summary.Pushed,
			"failed", summary.Failed,
		)
	}
	return summary, nil
}

// push вызывается только под блокировкой записи.
func (p *Pusher) push(ctx context.Context, tenantID string, localID int64) error {
	if p.remote == nil {
		return ErrOffline
	}
	if !p.tenant.IsCurrent(tenantID) {
		return ErrTenantChanged
	}

	var pushed *record.Record
	operation := "push " + strconv.FormatInt(localID, 10)
	remoteID, err := p.PushWithRetry(ctx, operation, func(ctx context.Context) (string, error) {
		// перечитываем перед записью: сверка могла уже связать строку
		rec, err := p.repo.Get(ctx, tenantID, localID)
		if err != nil {
			return "", err
		}
		pushed = rec
		if !rec.Pending() {
			return rec.RemoteID, nil
		}
		doc, err := toDocument(ctx, p.resolver, rec)
		if err != nil {
			return "", err
		}
		saved, err := p.remote.Put(ctx, doc)
		if err != nil {
			return "", err
		}
		if err := p.settleStatus(ctx, rec, saved); err != nil {
			return "", err
		}
		return saved.ID, nil
	})
	if errors.Is(err, record.ErrNotFound) {
		return err
	}
	if !p.tenant.IsCurrent(tenantID) {
		p.log.Debug("discarding push result of previous tenant", "tenant_id", tenantID, "local_id", localID)
		return ErrTenantChanged
	}
	if errors.Is(err, record.ErrFinalized) && pushed != nil {
		return p.discardEdit(ctx, tenantID, pushed, err)
	}
	if err != nil {
		if isCancellation(err) {
			return err
		}
		attempts, incErr := p.repo.IncrementSyncAttempts(ctx, tenantID, localID)
		if incErr != nil {
			p.log.Error("failed to count sync attempt", "local_id", localID, "error", incErr)
		}
		p.log.Warn("record left pending", "tenant_id", tenantID, "local_id", localID, "sync_attempts", attempts, "error", err)
		return err
	}
	if pushed == nil || !pushed.Pending() {
		return nil
	}

	linked := false
	if pushed.RemoteID == "" {
		if linked, err = p.repo.LinkRemoteID(ctx, tenantID, localID, remoteID); err != nil {
			return fmt.Errorf("link remote id: %w", err)
		}
	}
	if err := p.repo.MarkPushed(ctx, tenantID, localID, pushed.Version); err != nil {
		return fmt.Errorf("mark pushed: %w", err)
	}
	p.log.Debug("record pushed", "tenant_id", tenantID, "collection", pushed.Collection, "local_id", localID, "remote_id", remoteID)

	if linked {
		p.repushDependents(ctx, tenantID, pushed.Collection, localID)
	}
	return nil
}

// repushDependents повторно отправляет дочерние записи, которые могли уйти
// с локальным id родителя до появления у него remote id.
func (p *Pusher) repushDependents(ctx context.Context, tenantID string, c record.Collection, parentID int64) {
	deps, err := p.repo.ListDependents(ctx, tenantID, c, parentID)
	if err != nil {
		p.log.Error("failed to list dependents", "collection", c, "local_id", parentID, "error", err)
		return
	}
	for _, dep := range deps {
		localID := dep.LocalID
		p.tasks.Submit(localID, func(ctx context.Context) {
			if err := p.flagDirty(ctx, tenantID, localID); err != nil {
				p.log.Error("failed to flag dependent", "local_id", localID, "error", err)
				return
			}
			if err := p.push(ctx, tenantID, localID); err != nil && !isCancellation(err) {
				p.log.Error("dependent push failed", "tenant_id", tenantID, "local_id", localID, "error", err)
			}
		})
	}
}

// settleStatus доводит статус удаленного документа до локального решения. Put меняет
// статус только при вставке, поэтому решение, принятое локально над уже существующим
// документом, переносится через CompareAndSetStatus. Если документ уже решен
// удаленно, возвращается record.ErrFinalized.
func (p *Pusher) settleStatus(ctx context.Context, rec *record.Record, saved Document) error {
	switch {
	case saved.Status == rec.Status:
		return nil
	case saved.Status.Terminal():
		return fmt.Errorf("%w: %s is %s", record.ErrFinalized, saved.Path(), saved.Status)
	case !rec.Status.Terminal():
		return nil
	}
	_, err := p.remote.CompareAndSetStatus(ctx, rec.TenantID, rec.Collection, saved.ID, saved.Version, rec.Status, rec.Reason)
	if err != nil {
		return fmt.Errorf("settle status of %s: %w", saved.Path(), err)
	}
	return nil
}

// discardEdit заменяет локальную строку копией решенного удаленного документа.
// Локальная правка теряется, вызывающий получает cause.
func (p *Pusher) discardEdit(ctx context.Context, tenantID string, pushed *record.Record, cause error) error {
	id := pushed.RemoteID
	if id == "" {
		id = pushed.ClientID
	}
	doc, err := p.remote.Get(ctx, tenantID, pushed.Collection, id)
	if err != nil {
		return fmt.Errorf("fetch decided document: %w", err)
	}
	schema, err := record.SchemaFor(pushed.Collection)
	if err != nil {
		return err
	}
	cand, err := fromDocument(ctx, p.resolver, tenantID, schema, *doc)
	if err != nil {
		return fmt.Errorf("decode decided document: %w", err)
	}

	local, err := p.repo.Get(ctx, tenantID, pushed.LocalID)
	if err != nil {
		return err
	}
	linked := local.RemoteID == ""
	cand.applyTo(local)
	local.RemoteID = id
	local.UpdatedAt = time.Now()
	if err := p.repo.Update(ctx, local); err != nil {
		return fmt.Errorf("adopt decided document: %w", err)
	}
	p.log.Warn("local edit discarded, remote document is decided",
		"tenant_id", tenantID,
		"collection", pushed.Collection,
		"local_id", pushed.LocalID,
		"status", doc.Status,
	)
	if linked {
		p.repushDependents(ctx, tenantID, pushed.Collection, pushed.LocalID)
	}
	return cause
}

func (p *Pusher) flagDirty(ctx context.Context, tenantID string, localID int64) error {
	rec, err := p.repo.Get(ctx, tenantID, localID)
	if err != nil {
		return err
	}
	if rec.Pending() {
		return nil
	}
	rec.Dirty = true
	rec.UpdatedAt = time.Now()
	return p.repo.Update(ctx, rec)
}

// permanent: ошибки, которые повтор не исправит.
func permanent(err error) bool {
	return errors.Is(err, record.ErrNotFound) ||
		errors.Is(err, record.ErrFinalized) ||
		errors.Is(err, record.ErrInvalidData) ||
		errors.Is(err, record.ErrUnknownCollection)
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrTenantChanged)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
