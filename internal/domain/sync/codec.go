package sync

import (
	"context"
	"fmt"

	"fleetcontrol/internal/domain/record"
)

// candidate - удаленный документ в локальных терминах.
type candidate struct {
	Data       []byte
	Refs       map[string]int64
	LogicalKey string
	Status     record.Status
	Reason     string
	Version    int
}

// toDocument строит исходящий документ локальной записи. id документа равен remote id,
// а без связи client id, поэтому повторная отправка попадает в тот же документ.
func toDocument(ctx context.Context, resolver *Resolver, rec *record.Record) (Document, error) {
	schema, err := record.SchemaFor(rec.Collection)
	if err != nil {
		return Document{}, err
	}
	fields, err := rec.Fields()
	if err != nil {
		return Document{}, err
	}
	for _, name := range schema.RefNames() {
		localID := rec.Refs[name]
		if localID == 0 {
			continue
		}
		ref, err := resolver.RemoteRef(ctx, rec.TenantID, schema.Refs[name], localID)
		if err != nil {
			return Document{}, fmt.Errorf("resolve %s: %w", name, err)
		}
		fields[name] = ref
	}
	data, err := record.EncodeFields(fields)
	if err != nil {
		return Document{}, err
	}

	id := rec.RemoteID
	if id == "" {
		id = rec.ClientID
	}
	return Document{
		ID:         id,
		TenantID:   rec.TenantID,
		Collection: rec.Collection,
		Data:       data,
		Status:     rec.Status,
		Reason:     rec.Reason,
		Version:    rec.Version,
	}, nil
}

// fromDocument вынимает ссылочные поля из данных документа и переводит их в локальные id.
// Ссылка на отсутствующего локально родителя дает ErrUnresolvedRef.
func fromDocument(ctx context.Context, resolver *Resolver, tenantID string, schema record.Schema, doc Document) (*candidate, error) {
	var probe record.Record
	probe.Data = doc.Data
	fields, err := probe.Fields()
	if err != nil {
		return nil, err
	}

	refs := make(map[string]int64, len(schema.Refs))
	for _, name := range schema.RefNames() {
		v, ok := fields[name]
		delete(fields, name)
		if !ok || v == nil {
			continue
		}
		remoteID, isString := v.(string)
		if !isString || remoteID == "" {
			return nil, fmt.Errorf("%w: %s.%s must be a document id", record.ErrInvalidData, schema.Collection, name)
		}
		localID, found, err := resolver.LocalFor(ctx, tenantID, schema.Refs[name], remoteID)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, fmt.Errorf("%w: %s.%s=%s", ErrUnresolvedRef, schema.Collection, name, remoteID)
		}
		refs[name] = localID
	}

	data, err := record.EncodeFields(fields)
	if err != nil {
		return nil, err
	}
	key, err := schema.LogicalKey(fields, refs, doc.ID)
	if err != nil {
		return nil, err
	}
	return &candidate{
		Data:       data,
		Refs:       refs,
		LogicalKey: key,
		Status:     doc.Status,
		Reason:     doc.Reason,
		Version:    doc.Version,
	}, nil
}

// matches сообщает, что локальная строка уже совпадает с кандидатом.
func (c *candidate) matches(rec *record.Record) bool {
	local, err := record.Canonical(rec.Data)
	if err != nil {
		return false
	}
	return string(local) == string(c.Data) &&
		record.SameRefs(rec.Refs, c.Refs) &&
		rec.Status == c.Status &&
		rec.Reason == c.Reason &&
		rec.Version == c.Version &&
		rec.LogicalKey == c.LogicalKey
}

// applyTo копирует кандидата в локальную строку и снимает флаг dirty.
func (c *candidate) applyTo(rec *record.Record) {
	rec.Data = c.Data
	rec.Refs = c.Refs
	rec.LogicalKey = c.LogicalKey
	rec.Status = c.Status
	rec.Reason = c.Reason
	rec.Version = c.Version
	rec.Dirty = false
	rec.SyncAttempts = 0
}
