package sync_test

import (
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"testing"
	"time"

	"fleetcontrol/internal/domain/record"
	docsync "fleetcontrol/internal/domain/sync"
	"fleetcontrol/internal/domain/tenant"
	"fleetcontrol/internal/infrastructure/storage/sqlite"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

var fastRetry = docsync.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

// device is one installation of the app: its own local store, sharing a remote with other devices.
type device struct {
	repo       *sqlite.RecordRepository
	tenant     *tenant.Context
	tasks      *docsync.TaskGroup
	reconciler *docsync.Reconciler
	pusher     *docsync.Pusher
	records    *record.Service
}

func newDevice(t *testing.T, tenantID string, remote docsync.RemoteStore) *device {
	t.Helper()
	storage, err := sqlite.New(filepath.Join(t.TempDir(), "fleet.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := sqlite.NewRecordRepository(storage, log)
	tc := tenant.New(tenantID)
	tasks := docsync.NewTaskGroup()
	t.Cleanup(tasks.Reset)
	resolver := docsync.NewResolver(repo)

	return &device{
		repo:       repo,
		tenant:     tc,
		tasks:      tasks,
		reconciler: docsync.NewReconciler(repo, resolver, tc, tasks, log),
		pusher:     docsync.NewPusher(repo, remote, resolver, tc, tasks, log).WithPolicy(fastRetry),
		records:    record.NewService(repo, tc, nil, log, nil),
	}
}

func (d *device) create(t *testing.T, c record.Collection, data any, refs map[string]int64) int64 {
	t.Helper()
	id, err := d.records.Create(context.Background(), c, record.CreateRequest{Data: record.MustJSON(data), Refs: refs})
	require.NoError(t, err)
	return id
}

func (d *device) get(t *testing.T, localID int64) *record.Record {
	t.Helper()
	rec, err := d.repo.Get(context.Background(), d.tenant.Current(), localID)
	require.NoError(t, err)
	return rec
}

func (d *device) list(t *testing.T, c record.Collection) []*record.Record {
	t.Helper()
	recs, err := d.repo.List(context.Background(), d.tenant.Current(), c)
	require.NoError(t, err)
	return recs
}

func field(t *testing.T, raw json.RawMessage, name string) any {
	t.Helper()
	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	return fields[name]
}
