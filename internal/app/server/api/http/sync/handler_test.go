package sync

import (
	"context"
	"net/http"
	"testing"

	"fleetcontrol/internal/domain/record"
	docsync "fleetcontrol/internal/domain/sync"

	"github.com/danielgtaylor/huma/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) SyncPending(ctx context.Context, c record.Collection) (docsync.PushSummary, error) {
	args := m.Called(ctx, c)
	return args.Get(0).(docsync.PushSummary), args.Error(1)
}

func (m *MockService) RetrySync(ctx context.Context, localID int64) error {
	return m.Called(ctx, localID).Error(0)
}

func (m *MockService) Status(ctx context.Context) (docsync.Status, error) {
	args := m.Called(ctx)
	return args.Get(0).(docsync.Status), args.Error(1)
}

func (m *MockService) HealthCheck(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var se huma.StatusError
	require.ErrorAs(t, err, &se)
	return se.GetStatus()
}

func TestHandler_syncPending(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		// Arrange
		svc := new(MockService)
		summary := docsync.PushSummary{Collection: record.CollectionTrips, Selected: 3, Pushed: 2, Failed: 1}
		svc.On("SyncPending", ctx, record.CollectionTrips).Return(summary, nil)
		h := NewHandler(svc, slog.Default(), nil)

		// Act
		out, err := h.syncPending(ctx, &pendingInput{Collection: "trips"})

		// Assert
		require.NoError(t, err)
		assert.Equal(t, summary, out.Body)
		svc.AssertExpectations(t)
	})

	t.Run("UnknownCollection", func(t *testing.T) {
		svc := new(MockService)
		h := NewHandler(svc, slog.Default(), nil)

		_, err := h.syncPending(ctx, &pendingInput{Collection: "cars"})

		assert.Equal(t, http.StatusUnprocessableEntity, statusOf(t, err))
		svc.AssertNotCalled(t, "SyncPending", mock.Anything, mock.Anything)
	})

	t.Run("Offline", func(t *testing.T) {
		svc := new(MockService)
		svc.On("SyncPending", ctx, record.CollectionTrips).Return(docsync.PushSummary{}, docsync.ErrOffline)
		h := NewHandler(svc, slog.Default(), nil)

		_, err := h.syncPending(ctx, &pendingInput{Collection: "trips"})

		assert.Equal(t, http.StatusServiceUnavailable, statusOf(t, err))
	})
}

func TestHandler_retrySync(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "Success"},
		{name: "Exhausted", err: docsync.ErrRetriesExhausted, wantStatus: http.StatusBadGateway},
		{name: "NotFound", err: record.ErrNotFound, wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			svc.On("RetrySync", ctx, int64(8)).Return(tt.err)
			h := NewHandler(svc, slog.Default(), nil)

			out, err := h.retrySync(ctx, &retryInput{ID: 8})

			if tt.wantStatus != 0 {
				assert.Equal(t, tt.wantStatus, statusOf(t, err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, int64(8), out.Body.ID)
		})
	}
}

func TestHandler_getStatus(t *testing.T) {
	ctx := context.Background()
	svc := new(MockService)
	svc.On("Status", ctx).Return(docsync.Status{TenantID: "t1", Online: true, Running: true}, nil)
	h := NewHandler(svc, slog.Default(), nil)

	out, err := h.getStatus(ctx, nil)

	require.NoError(t, err)
	assert.Equal(t, "t1", out.Body.TenantID)
	assert.True(t, out.Body.Online)
}
