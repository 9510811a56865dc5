package sync_test

import (
	"context"
	"testing"

	"fleetcontrol/internal/domain/record"
	docsync "fleetcontrol/internal/domain/sync"
	"fleetcontrol/internal/domain/sync/synctest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func driverDoc(id, name string) docsync.Document {
	return docsync.Document{
		ID:         id,
		TenantID:   "t1",
		Collection: record.CollectionDrivers,
		Data:       record.MustJSON(map[string]any{"name": name}),
		Version:    1,
	}
}

func advanceDoc(id, driverRemoteID string, amount int) docsync.Document {
	return docsync.Document{
		ID:         id,
		TenantID:   "t1",
		Collection: record.CollectionAdvances,
		Data:       record.MustJSON(map[string]any{"driverId": driverRemoteID, "date": "2024-05-01", "amount": amount}),
		Version:    1,
	}
}

func TestReconciler_InsertThenUnchanged(t *testing.T) {
	d := newDevice(t, "t1", nil)
	ctx := context.Background()
	docs := []docsync.Document{driverDoc("drv-1", "Ravi"), driverDoc("drv-2", "Kumar")}

	res := d.reconciler.Apply(ctx, "t1", record.CollectionDrivers, docs)
	assert.Equal(t, 2, res.Inserted)
	assert.True(t, res.Changed())

	recs := d.list(t, record.CollectionDrivers)
	require.Len(t, recs, 2)
	for _, rec := range recs {
		assert.True(t, rec.Synced())
		assert.False(t, rec.Dirty)
		assert.Equal(t, rec.RemoteID, rec.ClientID)
	}

	res = d.reconciler.Apply(ctx, "t1", record.CollectionDrivers, docs)
	assert.Equal(t, 2, res.Unchanged)
	assert.False(t, res.Changed())
	assert.Len(t, d.list(t, record.CollectionDrivers), 2)
}

func TestReconciler_UpdatesChangedDocument(t *testing.T) {
	d := newDevice(t, "t1", nil)
	ctx := context.Background()

	d.reconciler.Apply(ctx, "t1", record.CollectionDrivers, []docsync.Document{driverDoc("drv-1", "Ravi")})

	changed := driverDoc("drv-1", "Ravi K")
	changed.Version = 2
	res := d.reconciler.Apply(ctx, "t1", record.CollectionDrivers, []docsync.Document{changed})
	assert.Equal(t, 1, res.Updated)

	recs := d.list(t, record.CollectionDrivers)
	require.Len(t, recs, 1)
	assert.Equal(t, "Ravi K", field(t, recs[0].Data, "name"))
	assert.Equal(t, 2, recs[0].Version)
	assert.Equal(t, "ravi k", recs[0].LogicalKey)
}

// An advance created offline is pushed, the ack is lost, and the server copy arrives
// under a server-assigned id. The local row must be adopted, not duplicated.
func TestReconciler_AdoptsOrphanByLogicalKey(t *testing.T) {
	d := newDevice(t, "t1", nil)
	ctx := context.Background()

	d.reconciler.Apply(ctx, "t1", record.CollectionDrivers, []docsync.Document{driverDoc("drv-1", "Ravi")})
	driverID := d.list(t, record.CollectionDrivers)[0].LocalID

	advID := d.create(t, record.CollectionAdvances, map[string]any{"date": "2024-05-01", "amount": 500}, map[string]int64{"driverId": driverID})
	require.False(t, d.get(t, advID).Synced())

	res := d.reconciler.Apply(ctx, "t1", record.CollectionAdvances, []docsync.Document{advanceDoc("adv-123", "drv-1", 500)})
	assert.Equal(t, 1, res.Linked)
	assert.Equal(t, 0, res.Inserted)

	recs := d.list(t, record.CollectionAdvances)
	require.Len(t, recs, 1)
	assert.Equal(t, advID, recs[0].LocalID)
	assert.Equal(t, "adv-123", recs[0].RemoteID)
	assert.False(t, recs[0].Dirty)
	assert.Equal(t, map[string]int64{"driverId": driverID}, recs[0].Refs)

	// the echo of the same document afterwards is a no-op
	res = d.reconciler.Apply(ctx, "t1", record.CollectionAdvances, []docsync.Document{advanceDoc("adv-123", "drv-1", 500)})
	assert.Equal(t, 1, res.Unchanged)
	assert.Len(t, d.list(t, record.CollectionAdvances), 1)
}

func TestReconciler_AdoptsOrphanByClientID(t *testing.T) {
	remote := synctest.NewRemote()
	d := newDevice(t, "t1", remote)
	ctx := context.Background()

	tripID := d.create(t, record.CollectionTrips, map[string]any{"bags": 20, "rate": 10}, nil)

	// every ack is lost: the document exists remotely but the row stays unlinked
	remote.LoseAcks(3)
	err := d.pusher.Push(ctx, "t1", tripID)
	require.ErrorIs(t, err, docsync.ErrRetriesExhausted)
	require.False(t, d.get(t, tripID).Synced())

	res := d.reconciler.Apply(ctx, "t1", record.CollectionTrips, remote.Docs("t1", record.CollectionTrips))
	assert.Equal(t, 1, res.Linked)

	rec := d.get(t, tripID)
	assert.Equal(t, rec.ClientID, rec.RemoteID)
	assert.False(t, rec.Pending())
	assert.Len(t, d.list(t, record.CollectionTrips), 1)
}

func TestReconciler_DefersUntilParentArrives(t *testing.T) {
	d := newDevice(t, "t1", nil)
	ctx := context.Background()
	advances := []docsync.Document{advanceDoc("adv-1", "drv-1", 500)}

	res := d.reconciler.Apply(ctx, "t1", record.CollectionAdvances, advances)
	assert.Equal(t, 1, res.Deferred)
	assert.Empty(t, d.list(t, record.CollectionAdvances))

	d.reconciler.Apply(ctx, "t1", record.CollectionDrivers, []docsync.Document{driverDoc("drv-1", "Ravi")})
	driverID := d.list(t, record.CollectionDrivers)[0].LocalID

	res = d.reconciler.Apply(ctx, "t1", record.CollectionAdvances, advances)
	assert.Equal(t, 1, res.Inserted)
	recs := d.list(t, record.CollectionAdvances)
	require.Len(t, recs, 1)
	assert.Equal(t, driverID, recs[0].Refs["driverId"])
	assert.Nil(t, field(t, recs[0].Data, "driverId"))
}

func TestReconciler_KeepsUnpushedLocalEdit(t *testing.T) {
	d := newDevice(t, "t1", nil)
	ctx := context.Background()

	d.reconciler.Apply(ctx, "t1", record.CollectionDrivers, []docsync.Document{driverDoc("drv-1", "Ravi")})
	localID := d.list(t, record.CollectionDrivers)[0].LocalID

	_, err := d.records.Update(ctx, localID, record.UpdateRequest{Data: record.MustJSON(map[string]any{"phone": "99"})})
	require.NoError(t, err)

	stale := driverDoc("drv-1", "Ravi")
	res := d.reconciler.Apply(ctx, "t1", record.CollectionDrivers, []docsync.Document{stale})
	assert.Equal(t, 1, res.Skipped)

	rec := d.get(t, localID)
	assert.True(t, rec.Dirty)
	assert.Equal(t, "99", field(t, rec.Data, "phone"))
}

func TestReconciler_ContinuesPastBadDocument(t *testing.T) {
	d := newDevice(t, "t1", nil)
	ctx := context.Background()

	bad := driverDoc("drv-bad", "x")
	bad.Data = []byte(`{"phone":"1"}`)
	res := d.reconciler.Apply(ctx, "t1", record.CollectionDrivers, []docsync.Document{bad, driverDoc("drv-1", "Ravi")})

	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, res.Inserted)
	assert.Len(t, d.list(t, record.CollectionDrivers), 1)
}

func TestReconciler_TenantBoundaries(t *testing.T) {
	d := newDevice(t, "t1", nil)
	ctx := context.Background()

	t.Run("foreign document is skipped", func(t *testing.T) {
		foreign := driverDoc("drv-x", "Other")
		foreign.TenantID = "t2"
		res := d.reconciler.Apply(ctx, "t1", record.CollectionDrivers, []docsync.Document{foreign})
		assert.Equal(t, 1, res.Skipped)
		assert.Empty(t, d.list(t, record.CollectionDrivers))
	})

	t.Run("snapshot of a previous tenant is dropped", func(t *testing.T) {
		d.tenant.Set("t2")
		res := d.reconciler.Apply(ctx, "t1", record.CollectionDrivers, []docsync.Document{driverDoc("drv-1", "Ravi")})
		assert.True(t, res.Aborted)
		assert.Equal(t, 0, res.Inserted)

		d.tenant.Set("t1")
		assert.Empty(t, d.list(t, record.CollectionDrivers))
	})
}

// Offline advance, pushed by the sweep, then seen again by the listener.
func TestReconciler_AdvanceSelfEcho(t *testing.T) {
	remote := synctest.NewRemote()
	d := newDevice(t, "t1", remote)
	ctx := context.Background()

	driverID := d.create(t, record.CollectionDrivers, map[string]any{"name": "Ravi"}, nil)
	advID := d.create(t, record.CollectionAdvances, map[string]any{"date": "2024-05-01", "amount": 500}, map[string]int64{"driverId": driverID})
	require.False(t, d.get(t, advID).Synced())

	for _, c := range []record.Collection{record.CollectionDrivers, record.CollectionAdvances} {
		_, err := d.pusher.SyncPending(ctx, c)
		require.NoError(t, err)
	}
	adv := d.get(t, advID)
	require.True(t, adv.Synced())

	res := d.reconciler.Apply(ctx, "t1", record.CollectionAdvances, remote.Docs("t1", record.CollectionAdvances))
	assert.Equal(t, 1, res.Unchanged)
	assert.Equal(t, 0, res.Inserted)

	recs := d.list(t, record.CollectionAdvances)
	require.Len(t, recs, 1)
	assert.Equal(t, adv.RemoteID, recs[0].RemoteID)
	assert.Equal(t, driverID, recs[0].Refs["driverId"])
}
