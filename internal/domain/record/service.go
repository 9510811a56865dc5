package record

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fleetcontrol/internal/domain/tenant"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"
)

// Scheduler ставит локальную запись в очередь на отправку.
type Scheduler interface {
	Schedule(tenantID string, localID int64)
}

type Servicer interface {
	Create(ctx context.Context, c Collection, req CreateRequest) (int64, error)
	Update(ctx context.Context, localID int64, req UpdateRequest) (*Record, error)
	Get(ctx context.Context, localID int64) (*Record, error)
	List(ctx context.Context, c Collection) (ListResponse, error)
}

type ServiceConfig struct {
	// OwnerTripsAutoApprove позволяет рейсам владельца миновать статус PENDING.
	OwnerTripsAutoApprove bool
}

// Service реализует createX / updateX поверх локального хранилища.
type Service struct {
	repo      Repository
	tenant    *tenant.Context
	scheduler Scheduler
	log       *slog.Logger
	config    *ServiceConfig
	now       func() time.Time
}

// NewService создает сервис записей; на офлайн устройстве scheduler может быть nil.
func NewService(repo Repository, tc *tenant.Context, scheduler Scheduler, log *slog.Logger, config *ServiceConfig) *Service {
	if config == nil {
		config = &ServiceConfig{}
	}
	return &Service{
		repo:      repo,
		tenant:    tc,
		scheduler: scheduler,
		log:       log.With("component", "record_service"),
		config:    config,
		now:       time.Now,
	}
}

// Create сохраняет запись локально и ставит ее на отправку. Возвращает локальный id.
func (s *Service) Create(ctx context.Context, c Collection, req CreateRequest) (int64, error) {
	tenantID, err := s.tenant.Require()
	if err != nil {
		return 0, err
	}
	schema, err := SchemaFor(c)
	if err != nil {
		return 0, err
	}

	fields, err := decodeFields(req.Data)
	if err != nil {
		return 0, err
	}
	stripRefFields(schema, fields)

	refs, err := s.checkRefs(ctx, tenantID, schema, nil, req.Refs)
	if err != nil {
		return 0, err
	}

	clientID := uuid.NewString()
	key, err := schema.LogicalKey(fields, refs, clientID)
	if err != nil {
		return 0, err
	}
	data, err := EncodeFields(fields)
	if err != nil {
		return 0, err
	}

	now := s.now().UTC()
	rec := &Record{
		ClientID:   clientID,
		TenantID:   tenantID,
		Collection: c,
		LogicalKey: key,
		Data:       data,
		Refs:       refs,
		Version:    1,
		Dirty:      true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if schema.Approval {
		rec.Status = StatusPending
		if actor, ok := tenant.ActorFrom(ctx); ok && actor.IsOwner() && s.config.OwnerTripsAutoApprove {
			rec.Status = StatusApproved
		}
	}

	id, err := s.repo.Insert(ctx, rec)
	if err != nil {
		s.log.Error("failed to create record", "tenant_id", tenantID, "collection", c, "error", err)
		return 0, fmt.Errorf("create record: %w", err)
	}

	s.log.Debug("record created", "tenant_id", tenantID, "collection", c, "local_id", id, "client_id", clientID)
	s.schedule(tenantID, id)
	return id, nil
}

// Update сливает запрос с записью, увеличивает версию и ставит запись на отправку.
// Обновление без изменений ничего не делает.
func (s *Service) Update(ctx context.Context, localID int64, req UpdateRequest) (*Record, error) {
	tenantID, err := s.tenant.Require()
	if err != nil {
		return nil, err
	}
	rec, err := s.repo.Get(ctx, tenantID, localID)
	if err != nil {
		return nil, err
	}
	schema, err := SchemaFor(rec.Collection)
	if err != nil {
		return nil, err
	}

	if schema.Approval && rec.Status != StatusPending {
		if actor, ok := tenant.ActorFrom(ctx); !ok || !actor.IsOwner() {
			return nil, ErrFinalized
		}
	}

	fields, err := rec.Fields()
	if err != nil {
		return nil, err
	}
	if len(req.Data) > 0 {
		patch, err := decodeFields(req.Data)
		if err != nil {
			return nil, err
		}
		stripRefFields(schema, patch)
		for k, v := range patch {
			if v == nil {
				delete(fields, k)
				continue
			}
			fields[k] = v
		}
	}

	refs, err := s.checkRefs(ctx, tenantID, schema, rec.Refs, req.Refs)
	if err != nil {
		return nil, err
	}
	key, err := schema.LogicalKey(fields, refs, rec.ClientID)
	if err != nil {
		return nil, err
	}
	data, err := EncodeFields(fields)
	if err != nil {
		return nil, err
	}
	current, err := Canonical(rec.Data)
	if err != nil {
		return nil, err
	}
	if string(current) == string(data) && SameRefs(rec.Refs, refs) {
		return rec, nil
	}

	rec.Data = data
	rec.Refs = refs
	rec.LogicalKey = key
	rec.Version++
	rec.Dirty = true
	rec.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, rec); err != nil {
		s.log.Error("failed to update record", "tenant_id", tenantID, "local_id", localID, "error", err)
		return nil, fmt.Errorf("update record: %w", err)
	}

	s.schedule(tenantID, localID)
	return rec, nil
}

// Get возвращает запись текущего арендатора.
func (s *Service) Get(ctx context.Context, localID int64) (*Record, error) {
	tenantID := s.tenant.Current()
	if tenantID == "" {
		return nil, ErrNotFound
	}
	return s.repo.Get(ctx, tenantID, localID)
}

// List возвращает все записи коллекции; без арендатора список пуст.
func (s *Service) List(ctx context.Context, c Collection) (ListResponse, error) {
	if err := c.Validate(); err != nil {
		return ListResponse{}, err
	}
	tenantID := s.tenant.Current()
	if tenantID == "" {
		return ListResponse{Records: []*Record{}}, nil
	}
	records, err := s.repo.List(ctx, tenantID, c)
	if err != nil {
		s.log.Error("failed to list records", "tenant_id", tenantID, "collection", c, "error", err)
		return ListResponse{}, fmt.Errorf("list records: %w", err)
	}
	return ListResponse{Records: records, Total: len(records)}, nil
}

func (s *Service) schedule(tenantID string, localID int64) {
	if s.scheduler != nil {
		s.scheduler.Schedule(tenantID, localID)
	}
}

// checkRefs сливает patch с base и проверяет, что все родители есть локально у арендатора.
func (s *Service) checkRefs(ctx context.Context, tenantID string, schema Schema, base, patch map[string]int64) (map[string]int64, error) {
	refs := make(map[string]int64, len(schema.Refs))
	for k, v := range base {
		refs[k] = v
	}
	for name, id := range patch {
		if _, ok := schema.Refs[name]; !ok {
			return nil, fmt.Errorf("%w: %s has no reference %q", ErrInvalidData, schema.Collection, name)
		}
		if id == 0 {
			delete(refs, name)
			continue
		}
		refs[name] = id
	}

	for name, id := range refs {
		if _, ok := patch[name]; !ok && base != nil {
			continue
		}
		parent, err := s.repo.Get(ctx, tenantID, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, fmt.Errorf("%w: %s=%d", ErrMissingParent, name, id)
			}
			return nil, err
		}
		if parent.Collection != schema.Refs[name] {
			return nil, fmt.Errorf("%w: %s=%d is not in %s", ErrMissingParent, name, id, schema.Refs[name])
		}
	}
	return refs, nil
}

func stripRefFields(schema Schema, fields map[string]any) {
	for name := range schema.Refs {
		delete(fields, name)
	}
}

// MustJSON - помощник для сборки данных запроса в коде.
func MustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
