package approval_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"fleetcontrol/internal/domain/approval"
	"fleetcontrol/internal/domain/record"
	docsync "fleetcontrol/internal/domain/sync"
	"fleetcontrol/internal/domain/sync/synctest"
	"fleetcontrol/internal/domain/tenant"
	"fleetcontrol/internal/infrastructure/storage/sqlite"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

var (
	ownerCtx  = tenant.WithActor(context.Background(), tenant.Actor{MemberID: "owner-1", Role: tenant.RoleOwner})
	driverCtx = tenant.WithActor(context.Background(), tenant.Actor{MemberID: "driver-1", Role: tenant.RoleDriver})
)

type fixture struct {
	repo     *sqlite.RecordRepository
	remote   *synctest.Remote
	pusher   *docsync.Pusher
	records  *record.Service
	approval *approval.Service
}

// newFixture wires the approval service; a nil remote makes an offline device.
func newFixture(t *testing.T, remote *synctest.Remote) *fixture {
	t.Helper()
	storage, err := sqlite.New(filepath.Join(t.TempDir(), "fleet.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := sqlite.NewRecordRepository(storage, log)
	tc := tenant.New("t1")
	tasks := docsync.NewTaskGroup()
	t.Cleanup(tasks.Reset)

	f := &fixture{repo: repo, remote: remote}
	if remote != nil {
		f.pusher = docsync.NewPusher(repo, remote, docsync.NewResolver(repo), tc, tasks, log).
			WithPolicy(docsync.RetryPolicy{MaxAttempts: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond})
		f.approval = approval.NewService(repo, remote, f.pusher, tasks, tc, log)
	} else {
		f.approval = approval.NewService(repo, nil, nil, tasks, tc, log)
	}
	f.records = record.NewService(repo, tc, nil, log, nil)
	return f
}

func (f *fixture) trip(t *testing.T) int64 {
	t.Helper()
	id, err := f.records.Create(driverCtx, record.CollectionTrips, record.CreateRequest{
		Data: record.MustJSON(map[string]any{"bags": 20, "rate": 10, "date": "2024-05-02"}),
	})
	require.NoError(t, err)
	return id
}

func (f *fixture) get(t *testing.T, id int64) *record.Record {
	t.Helper()
	rec, err := f.repo.Get(context.Background(), "t1", id)
	require.NoError(t, err)
	return rec
}

func TestApproveTrip_SyncedTrip(t *testing.T) {
	// Arrange
	remote := synctest.NewRemote()
	f := newFixture(t, remote)
	id := f.trip(t)
	require.NoError(t, f.pusher.Push(context.Background(), "t1", id))
	require.Equal(t, 1, f.get(t, id).Version)

	// Act
	rec, err := f.approval.ApproveTrip(ownerCtx, id)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, record.StatusApproved, rec.Status)
	assert.Equal(t, 2, rec.Version)
	assert.False(t, rec.Dirty)

	docs := remote.Docs("t1", record.CollectionTrips)
	require.Len(t, docs, 1)
	assert.Equal(t, record.StatusApproved, docs[0].Status)
	assert.Equal(t, 2, docs[0].Version)
}

func TestApproveTrip_UnsyncedTripOffline(t *testing.T) {
	f := newFixture(t, nil)
	id := f.trip(t)

	rec, err := f.approval.ApproveTrip(ownerCtx, id)
	require.NoError(t, err)
	assert.Equal(t, record.StatusApproved, rec.Status)
	assert.Equal(t, 2, rec.Version)
	assert.True(t, rec.Pending())
	assert.False(t, rec.Synced())
}

func TestApproveTrip_UnsyncedTripPushedWithStatus(t *testing.T) {
	remote := synctest.NewRemote()
	f := newFixture(t, remote)
	id := f.trip(t)
	remote.FailPuts(1)

	rec, err := f.approval.ApproveTrip(ownerCtx, id)
	require.NoError(t, err)
	assert.Equal(t, record.StatusApproved, rec.Status)

	assert.Eventually(t, func() bool {
		docs := remote.Docs("t1", record.CollectionTrips)
		return len(docs) == 1 && docs[0].Status == record.StatusApproved && docs[0].Version == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestTransition_Rules(t *testing.T) {
	tests := []struct {
		name    string
		ctx     context.Context
		to      record.Status
		reason  string
		wantErr error
	}{
		{name: "driver cannot approve", ctx: driverCtx, to: record.StatusApproved, wantErr: approval.ErrForbidden},
		{name: "no actor", ctx: context.Background(), to: record.StatusApproved, wantErr: approval.ErrForbidden},
		{name: "reject needs reason", ctx: ownerCtx, to: record.StatusRejected, reason: "  ", wantErr: approval.ErrInvalidTransition},
		{name: "back to pending", ctx: ownerCtx, to: record.StatusPending, wantErr: approval.ErrInvalidTransition},
		{name: "reject with reason", ctx: ownerCtx, to: record.StatusRejected, reason: "wrong bags"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			id := f.trip(t)

			rec, err := f.approval.Transition(tt.ctx, id, 1, tt.to, tt.reason)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, record.StatusPending, f.get(t, id).Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, rec.Status)
			assert.Equal(t, tt.reason, rec.Reason)
		})
	}
}

func TestTransition_StaleVersion(t *testing.T) {
	f := newFixture(t, nil)
	id := f.trip(t)

	_, err := f.records.Update(driverCtx, id, record.UpdateRequest{Data: record.MustJSON(map[string]any{"bags": 25})})
	require.NoError(t, err)

	_, err = f.approval.Transition(ownerCtx, id, 1, record.StatusApproved, "")
	assert.ErrorIs(t, err, approval.ErrVersionConflict)
	assert.Equal(t, record.StatusPending, f.get(t, id).Status)
}

func TestTransition_TerminalState(t *testing.T) {
	f := newFixture(t, nil)
	id := f.trip(t)

	_, err := f.approval.RejectTrip(ownerCtx, id, "duplicate")
	require.NoError(t, err)

	_, err = f.approval.ApproveTrip(ownerCtx, id)
	assert.ErrorIs(t, err, approval.ErrInvalidTransition)

	// a driver can no longer edit the decided trip
	_, err = f.records.Update(driverCtx, id, record.UpdateRequest{Data: record.MustJSON(map[string]any{"bags": 1})})
	assert.ErrorIs(t, err, approval.ErrTripFinalized)
}

func TestTransition_NotATrip(t *testing.T) {
	f := newFixture(t, nil)
	id, err := f.records.Create(ownerCtx, record.CollectionDrivers, record.CreateRequest{Data: record.MustJSON(map[string]any{"name": "Ravi"})})
	require.NoError(t, err)

	_, err = f.approval.ApproveTrip(ownerCtx, id)
	assert.ErrorIs(t, err, approval.ErrInvalidTransition)
}

func TestApproveTrip_Concurrent(t *testing.T) {
	remote := synctest.NewRemote()
	f := newFixture(t, remote)
	id := f.trip(t)
	require.NoError(t, f.pusher.Push(context.Background(), "t1", id))

	const callers = 5
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.approval.Transition(ownerCtx, id, 1, record.StatusApproved, "")
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				return
			}
			assert.True(t, errorsIsAny(err, approval.ErrVersionConflict, approval.ErrInvalidTransition), err.Error())
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, 2, remote.Docs("t1", record.CollectionTrips)[0].Version)
	assert.Equal(t, 2, f.get(t, id).Version)
}

func TestApproveTrip_RemoteChangedElsewhere(t *testing.T) {
	remote := synctest.NewRemote()
	f := newFixture(t, remote)
	id := f.trip(t)
	require.NoError(t, f.pusher.Push(context.Background(), "t1", id))
	rec := f.get(t, id)

	// another owner device already rejected it
	_, err := remote.CompareAndSetStatus(context.Background(), "t1", record.CollectionTrips, rec.RemoteID, 1, record.StatusRejected, "dup")
	require.NoError(t, err)

	_, err = f.approval.ApproveTrip(ownerCtx, id)
	assert.ErrorIs(t, err, approval.ErrVersionConflict)
	assert.Equal(t, record.StatusPending, f.get(t, id).Status)
}

func TestTransition_SyncedTripOffline(t *testing.T) {
	remote := synctest.NewRemote()
	online := newFixture(t, remote)
	id := online.trip(t)
	require.NoError(t, online.pusher.Push(context.Background(), "t1", id))

	offline := approval.NewService(online.repo, nil, nil, docsync.NewTaskGroup(), tenant.New("t1"), slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err := offline.ApproveTrip(ownerCtx, id)
	assert.ErrorIs(t, err, approval.ErrRemoteUnavailable)
}

func errorsIsAny(err error, targets ...error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func TestPush_DriverEditOfDecidedTripIsDiscarded(t *testing.T) {
	// Arrange
	remote := synctest.NewRemote()
	f := newFixture(t, remote)
	ctx := context.Background()
	id := f.trip(t)
	require.NoError(t, f.pusher.Push(ctx, "t1", id))
	rec := f.get(t, id)

	// the owner approves on another device; this device has not seen the snapshot yet
	_, err := remote.CompareAndSetStatus(ctx, "t1", record.CollectionTrips, rec.RemoteID, 1, record.StatusApproved, "")
	require.NoError(t, err)

	_, err = f.records.Update(driverCtx, id, record.UpdateRequest{Data: record.MustJSON(map[string]any{"bags": 400})})
	require.NoError(t, err)

	// Act
	err = f.pusher.Push(ctx, "t1", id)

	// Assert
	assert.ErrorIs(t, err, record.ErrFinalized)

	docs := remote.Docs("t1", record.CollectionTrips)
	require.Len(t, docs, 1)
	assert.Equal(t, record.StatusApproved, docs[0].Status)
	assert.Equal(t, 2, docs[0].Version)
	assert.EqualValues(t, 20, fieldOf(t, docs[0].Data, "bags"))

	local := f.get(t, id)
	assert.Equal(t, record.StatusApproved, local.Status)
	assert.Equal(t, 2, local.Version)
	assert.False(t, local.Dirty)
	assert.EqualValues(t, 20, fieldOf(t, local.Data, "bags"))
}

func TestApproveTrip_OfflineAfterLostAckReachesRemote(t *testing.T) {
	// Arrange
	remote := synctest.NewRemote()
	f := newFixture(t, remote)
	ctx := context.Background()
	id := f.trip(t)

	// the document is written but the device never learns its id
	remote.LoseAcks(1)
	require.Error(t, f.pusher.Push(ctx, "t1", id))
	require.False(t, f.get(t, id).Synced())

	// the push before the decision fails, so the trip is decided locally
	remote.FailPuts(1)
	rec, err := f.approval.ApproveTrip(ownerCtx, id)
	require.NoError(t, err)
	require.Equal(t, record.StatusApproved, rec.Status)

	// Act
	require.NoError(t, f.pusher.Push(ctx, "t1", id))

	// Assert
	docs := remote.Docs("t1", record.CollectionTrips)
	require.Len(t, docs, 1)
	assert.Equal(t, record.StatusApproved, docs[0].Status)
	assert.Equal(t, 2, docs[0].Version)

	local := f.get(t, id)
	assert.Equal(t, record.StatusApproved, local.Status)
	assert.Equal(t, docs[0].ID, local.RemoteID)
	assert.False(t, local.Dirty)
}

func TestPush_ConflictingDecisionTakesRemote(t *testing.T) {
	// Arrange
	remote := synctest.NewRemote()
	f := newFixture(t, remote)
	ctx := context.Background()
	id := f.trip(t)

	remote.LoseAcks(1)
	require.Error(t, f.pusher.Push(ctx, "t1", id))
	doc := remote.Docs("t1", record.CollectionTrips)[0]

	// another owner device rejects while this one approves without reaching the remote
	_, err := remote.CompareAndSetStatus(ctx, "t1", record.CollectionTrips, doc.ID, 1, record.StatusRejected, "duplicate")
	require.NoError(t, err)
	remote.FailPuts(1)
	_, err = f.approval.ApproveTrip(ownerCtx, id)
	require.NoError(t, err)

	// Act
	// the scheduled push may have settled it already; either way the remote decision wins
	_ = f.pusher.Push(ctx, "t1", id)

	// Assert
	assert.Equal(t, record.StatusRejected, remote.Docs("t1", record.CollectionTrips)[0].Status)

	local := f.get(t, id)
	assert.Equal(t, record.StatusRejected, local.Status)
	assert.Equal(t, "duplicate", local.Reason)
	assert.Equal(t, doc.ID, local.RemoteID)
	assert.False(t, local.Pending())
}

func fieldOf(t *testing.T, raw []byte, name string) any {
	t.Helper()
	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	return fields[name]
}
