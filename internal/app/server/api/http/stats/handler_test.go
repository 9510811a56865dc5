package stats

import (
	"context"
	"net/http"
	"testing"

	"fleetcontrol/internal/domain/stats"
	docsync "fleetcontrol/internal/domain/sync"

	"github.com/danielgtaylor/huma/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

type MockAggregator struct {
	mock.Mock
}

func (m *MockAggregator) Compute(ctx context.Context, f stats.Filter) (stats.Summary, error) {
	args := m.Called(ctx, f)
	return args.Get(0).(stats.Summary), args.Error(1)
}

func (m *MockAggregator) Publish(ctx context.Context, driverID int64, month string) (int64, error) {
	args := m.Called(ctx, driverID, month)
	return args.Get(0).(int64), args.Error(1)
}

func providerOf(agg stats.Servicer, wantRemote *bool) Provider {
	return func(fromRemote bool) (stats.Servicer, error) {
		*wantRemote = fromRemote
		return agg, nil
	}
}

func TestHandler_compute(t *testing.T) {
	ctx := context.Background()

	t.Run("Month", func(t *testing.T) {
		// Arrange
		agg := new(MockAggregator)
		filter := stats.Filter{DriverID: 2, From: "2024-02-01", To: "2024-02-29"}
		agg.On("Compute", ctx, filter).Return(stats.Summary{Filter: filter, Trips: 3, Profit: 150}, nil)
		var remote bool
		h := NewHandler(providerOf(agg, &remote), slog.Default(), nil)

		// Act
		out, err := h.compute(ctx, &computeInput{DriverID: 2, Month: "2024-02", Source: "local"})

		// Assert
		require.NoError(t, err)
		assert.False(t, remote)
		assert.Equal(t, 3, out.Body.Trips)
		assert.Equal(t, 150.0, out.Body.Profit)
		agg.AssertExpectations(t)
	})

	t.Run("Remote", func(t *testing.T) {
		agg := new(MockAggregator)
		agg.On("Compute", ctx, stats.Filter{From: "2024-01-01"}).Return(stats.Summary{}, nil)
		var remote bool
		h := NewHandler(providerOf(agg, &remote), slog.Default(), nil)

		_, err := h.compute(ctx, &computeInput{From: "2024-01-01", Source: "remote"})

		require.NoError(t, err)
		assert.True(t, remote)
	})

	t.Run("MonthAndRange", func(t *testing.T) {
		h := NewHandler(nil, slog.Default(), nil)

		_, err := h.compute(ctx, &computeInput{Month: "2024-02", From: "2024-02-01"})

		var se huma.StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, http.StatusUnprocessableEntity, se.GetStatus())
	})

	t.Run("RemoteOffline", func(t *testing.T) {
		h := NewHandler(func(bool) (stats.Servicer, error) { return nil, docsync.ErrOffline }, slog.Default(), nil)

		_, err := h.compute(ctx, &computeInput{Source: "remote"})

		var se huma.StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, http.StatusServiceUnavailable, se.GetStatus())
	})
}

func TestHandler_publish(t *testing.T) {
	ctx := context.Background()
	agg := new(MockAggregator)
	agg.On("Publish", ctx, int64(2), "2024-02").Return(int64(40), nil)
	var remote bool
	h := NewHandler(providerOf(agg, &remote), slog.Default(), nil)
	input := &publishInput{}
	input.Body.DriverID = 2
	input.Body.Month = "2024-02"

	out, err := h.publish(ctx, input)

	require.NoError(t, err)
	assert.Equal(t, int64(40), out.Body.ID)
}
