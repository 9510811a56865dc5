package stats

import (
	"context"

	"fleetcontrol/internal/domain/record"
	docsync "fleetcontrol/internal/domain/sync"
	"fleetcontrol/internal/domain/tenant"
)

// Source отдает исходные записи коллекции текущего арендатора с отбором по водителю.
type Source interface {
	Load(ctx context.Context, c record.Collection, f Filter) ([]*record.Record, error)
}

// LocalSource читает локальное хранилище устройства.
type LocalSource struct {
	records record.Servicer
}

func NewLocalSource(records record.Servicer) *LocalSource {
	return &LocalSource{records: records}
}

func (s *LocalSource) Load(ctx context.Context, c record.Collection, f Filter) ([]*record.Record, error) {
	list, err := s.records.List(ctx, c)
	if err != nil {
		return nil, err
	}
	if f.DriverID == 0 {
		return list.Records, nil
	}
	out := make([]*record.Record, 0, len(list.Records))
	for _, rec := range list.Records {
		if rec.Refs["driverId"] == f.DriverID {
			out = append(out, rec)
		}
	}
	return out, nil
}

// RemoteSource читает удаленное хранилище, чтобы владелец видел рейсы
// водителей, уже синхронизированные, но еще не попавшие в локальную базу.
type RemoteSource struct {
	remote   docsync.RemoteStore
	resolver *docsync.Resolver
	tenant   *tenant.Context
}

func NewRemoteSource(remote docsync.RemoteStore, resolver *docsync.Resolver, tc *tenant.Context) *RemoteSource {
	return &RemoteSource{remote: remote, resolver: resolver, tenant: tc}
}

func (s *RemoteSource) Load(ctx context.Context, c record.Collection, f Filter) ([]*record.Record, error) {
	tenantID, err := s.tenant.Require()
	if err != nil {
		return nil, err
	}

	q := docsync.Query{}
	if f.DriverID != 0 {
		driverRemoteID, ok, err := s.resolver.RemoteFor(ctx, tenantID, record.CollectionDrivers, f.DriverID)
		if err != nil {
			return nil, err
		}
		if !ok {
			// у несинхронизированного водителя удаленных записей нет
			return nil, nil
		}
		q = q.Where("driverId", docsync.OpEq, driverRemoteID)
	}
	if f.From != "" {
		q = q.Where("date", docsync.OpGte, f.From)
	}
	if f.To != "" {
		q = q.Where("date", docsync.OpLte, f.To)
	}

	docs, err := s.remote.Query(ctx, tenantID, c, q)
	if err != nil {
		return nil, err
	}

	out := make([]*record.Record, 0, len(docs))
	for _, doc := range docs {
		rec := &record.Record{
			RemoteID:   doc.ID,
			ClientID:   doc.ID,
			TenantID:   tenantID,
			Collection: c,
			Data:       doc.Data,
			Status:     doc.Status,
			Version:    doc.Version,
		}
		if f.DriverID != 0 {
			rec.Refs = map[string]int64{"driverId": f.DriverID}
		}
		out = append(out, rec)
	}
	return out, nil
}
