package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fleetcontrol/internal/domain/record"
	"fleetcontrol/internal/domain/tenant"

	"golang.org/x/exp/slog"
)

type outcome int

const (
	outcomeUnchanged outcome = iota
	outcomeUpdated
	outcomeLinked
	outcomeInserted
	outcomeSkipped
)

// Reconciler сливает удаленные снимки с локальным хранилищем. Для каждого документа
// ищет строку по remote id, затем принимает несвязанную локальную сироту (по client id,
// потом по логическому ключу) и только потом вставляет. Ошибка документа не останавливает пакет.
type Reconciler struct {
	repo     record.Repository
	resolver *Resolver
	tenant   *tenant.Context
	tasks    *TaskGroup
	log      *slog.Logger
	now      func() time.Time
}

func NewReconciler(repo record.Repository, resolver *Resolver, tc *tenant.Context, tasks *TaskGroup, log *slog.Logger) *Reconciler {
	return &Reconciler{
		repo:     repo,
		resolver: resolver,
		tenant:   tc,
		tasks:    tasks,
		log:      log.With("component", "reconciler"),
		now:      time.Now,
	}
}

// Apply сверяет один снимок tenantID/c и прерывается при смене арендатора.
func (r *Reconciler) Apply(ctx context.Context, tenantID string, c record.Collection, docs []Document) ReconcileResult {
	res := ReconcileResult{Collection: c, Total: len(docs), At: r.now()}

	schema, err := record.SchemaFor(c)
	if err != nil {
		r.log.Error("snapshot for unknown collection", "collection", c)
		res.Failed = len(docs)
		return res
	}

	for _, doc := range docs {
		if ctx.Err() != nil || !r.tenant.IsCurrent(tenantID) {
			res.Aborted = true
			r.log.Debug("snapshot aborted", "tenant_id", tenantID, "collection", c)
			break
		}
		if doc.TenantID != "" && doc.TenantID != tenantID {
			r.log.Warn("foreign document in snapshot", "tenant_id", tenantID, "doc_tenant", doc.TenantID, "id", doc.ID)
			res.Skipped++
			continue
		}

		out, err := r.applyOne(ctx, tenantID, schema, doc)
		switch {
		case errors.Is(err, ErrUnresolvedRef):
			res.Deferred++
			r.log.Debug("document deferred", "collection", c, "id", doc.ID, "error", err)
		case errors.Is(err, ErrTenantChanged):
			res.Aborted = true
		case err != nil:
			res.Failed++
			r.log.Error("failed to reconcile document", "collection", c, "id", doc.ID, "error", err)
		default:
			switch out {
			case outcomeUnchanged:
				res.Unchanged++
			case outcomeUpdated:
				res.Updated++
			case outcomeLinked:
				res.Linked++
			case outcomeInserted:
				res.Inserted++
			case outcomeSkipped:
				res.Skipped++
			}
		}
		if res.Aborted {
			break
		}
	}

	if res.Changed() || res.Deferred > 0 || res.Failed > 0 {
		r.log.Info("snapshot applied",
			"tenant_id", tenantID,
			"collection", c,
			"total", res.Total,
			"updated", res.Updated,
			"linked", res.Linked,
			"inserted", res.Inserted,
			"deferred", res.Deferred,
			"failed", res.Failed,
		)
	}
	return res
}

func (r *Reconciler) applyOne(ctx context.Context, tenantID string, schema record.Schema, doc Document) (outcome, error) {
	if doc.ID == "" {
		return 0, fmt.Errorf("%w: document without id", record.ErrInvalidData)
	}
	cand, err := fromDocument(ctx, r.resolver, tenantID, schema, doc)
	if err != nil {
		return 0, err
	}

	// 1. по remote id
	local, err := r.repo.GetByRemoteID(ctx, tenantID, schema.Collection, doc.ID)
	switch {
	case err == nil:
		return r.refresh(ctx, tenantID, local.LocalID, cand)
	case !errors.Is(err, record.ErrNotFound):
		return 0, err
	}

	// 2. сирота, созданная офлайн, отправленная, но еще не связанная
	orphan, err := r.repo.GetUnlinkedByClientID(ctx, tenantID, schema.Collection, doc.ID)
	if errors.Is(err, record.ErrNotFound) {
		orphan, err = r.repo.GetUnlinkedByLogicalKey(ctx, tenantID, schema.Collection, cand.LogicalKey)
	}
	switch {
	case err == nil:
		return r.link(ctx, tenantID, orphan.LocalID, doc.ID, cand)
	case !errors.Is(err, record.ErrNotFound):
		return 0, err
	}

	// 3. действительно новая
	if !r.tenant.IsCurrent(tenantID) {
		return 0, ErrTenantChanged
	}
	now := r.now()
	rec := &record.Record{
		RemoteID:   doc.ID,
		ClientID:   doc.ID,
		TenantID:   tenantID,
		Collection: schema.Collection,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	cand.applyTo(rec)
	if _, err := r.repo.Insert(ctx, rec); err != nil {
		return 0, err
	}
	return outcomeInserted, nil
}

// refresh перезаписывает связанную строку, если в ней нет неотправленной правки.
func (r *Reconciler) refresh(ctx context.Context, tenantID string, localID int64, cand *candidate) (outcome, error) {
	var out outcome
	err := r.tasks.Do(ctx, localID, func(ctx context.Context) error {
		local, err := r.repo.Get(ctx, tenantID, localID)
		if err != nil {
			return err
		}
		if local.Dirty {
			out = outcomeSkipped
			return nil
		}
		if cand.matches(local) {
			out = outcomeUnchanged
			return nil
		}
		if !r.tenant.IsCurrent(tenantID) {
			return ErrTenantChanged
		}
		cand.applyTo(local)
		local.UpdatedAt = r.now()
		if err := r.repo.Update(ctx, local); err != nil {
			return err
		}
		out = outcomeUpdated
		return nil
	})
	return out, err
}

// link принимает локальную сироту: она получает remote id и удаленное содержимое.
func (r *Reconciler) link(ctx context.Context, tenantID string, localID int64, remoteID string, cand *candidate) (outcome, error) {
	err := r.tasks.Do(ctx, localID, func(ctx context.Context) error {
		local, err := r.repo.Get(ctx, tenantID, localID)
		if err != nil {
			return err
		}
		if local.RemoteID != "" {
			// уже связана отправителем
			return nil
		}
		if !r.tenant.IsCurrent(tenantID) {
			return ErrTenantChanged
		}
		// локальная правка новее удаленной копии остается и будет отправлена
		if local.Version <= cand.Version {
			cand.applyTo(local)
		}
		local.RemoteID = remoteID
		local.UpdatedAt = r.now()
		return r.repo.Update(ctx, local)
	})
	if err != nil {
		return 0, err
	}
	return outcomeLinked, nil
}
