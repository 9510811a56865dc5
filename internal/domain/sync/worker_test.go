package sync_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"fleetcontrol/internal/domain/record"
	docsync "fleetcontrol/internal/domain/sync"
	"fleetcontrol/internal/domain/sync/synctest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

func (d *device) startWorker(t *testing.T, remote docsync.RemoteStore) *docsync.Worker {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	w := docsync.NewWorker(d.repo, remote, d.reconciler, d.pusher, d.tasks, d.tenant, 20*time.Millisecond, log)
	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(w.Stop)
	return w
}

func TestWorker_DevicesConverge(t *testing.T) {
	remote := synctest.NewRemote()
	owner := newDevice(t, "t1", remote)
	driver := newDevice(t, "t1", remote)

	driverID := owner.create(t, record.CollectionDrivers, map[string]any{"name": "Ravi"}, nil)
	owner.create(t, record.CollectionTrips, map[string]any{"bags": 20, "rate": 10}, map[string]int64{"driverId": driverID})

	owner.startWorker(t, remote)
	driver.startWorker(t, remote)

	assert.Eventually(t, func() bool {
		return len(driver.list(t, record.CollectionTrips)) == 1
	}, 5*time.Second, 20*time.Millisecond)

	drivers := driver.list(t, record.CollectionDrivers)
	require.Len(t, drivers, 1)
	trip := driver.list(t, record.CollectionTrips)[0]
	assert.Equal(t, drivers[0].LocalID, trip.Refs["driverId"])
	assert.Equal(t, record.StatusPending, trip.Status)

	// the owner's own echoes never duplicate its rows
	assert.Len(t, owner.list(t, record.CollectionDrivers), 1)
	assert.Len(t, owner.list(t, record.CollectionTrips), 1)
	assert.Len(t, remote.Docs("t1", record.CollectionTrips), 1)
}

func TestWorker_TenantSwitch(t *testing.T) {
	remote := synctest.NewRemote()
	d := newDevice(t, "t1", remote)
	remote.Seed(docsync.Document{ID: "drv-a", TenantID: "t1", Collection: record.CollectionDrivers, Data: record.MustJSON(map[string]any{"name": "A"})})
	remote.Seed(docsync.Document{ID: "drv-b", TenantID: "t2", Collection: record.CollectionDrivers, Data: record.MustJSON(map[string]any{"name": "B"})})

	w := d.startWorker(t, remote)

	assert.Eventually(t, func() bool { return len(d.list(t, record.CollectionDrivers)) == 1 }, 5*time.Second, 20*time.Millisecond)

	d.tenant.Set("t2")
	assert.Eventually(t, func() bool {
		recs := d.list(t, record.CollectionDrivers)
		return len(recs) == 1 && recs[0].RemoteID == "drv-b"
	}, 5*time.Second, 20*time.Millisecond)

	st, err := w.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "t2", st.TenantID)
	assert.True(t, st.Online)
	assert.True(t, st.Running)

	// t1 rows stay intact and invisible
	d.tenant.Set("t1")
	recs := d.list(t, record.CollectionDrivers)
	require.Len(t, recs, 1)
	assert.Equal(t, "drv-a", recs[0].RemoteID)
}

func TestWorker_HealthCheck(t *testing.T) {
	remote := synctest.NewRemote()
	d := newDevice(t, "t1", remote)
	w := d.startWorker(t, remote)

	assert.NoError(t, w.HealthCheck(context.Background()))
	remote.SetPingError(errors.New("down"))
	assert.Error(t, w.HealthCheck(context.Background()))

	assert.ErrorIs(t, w.Start(context.Background()), docsync.ErrWorkerRunning)
}
