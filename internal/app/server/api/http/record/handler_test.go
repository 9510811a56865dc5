package record

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"fleetcontrol/internal/domain/fleet"
	"fleetcontrol/internal/domain/record"

	"github.com/danielgtaylor/huma/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Create(ctx context.Context, c record.Collection, req record.CreateRequest) (int64, error) {
	args := m.Called(ctx, c, req)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockService) Update(ctx context.Context, localID int64, req record.UpdateRequest) (*record.Record, error) {
	args := m.Called(ctx, localID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*record.Record), args.Error(1)
}

func (m *MockService) Get(ctx context.Context, localID int64) (*record.Record, error) {
	args := m.Called(ctx, localID)
	// Безопасное приведение nil к указателю
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*record.Record), args.Error(1)
}

func (m *MockService) List(ctx context.Context, c record.Collection) (record.ListResponse, error) {
	args := m.Called(ctx, c)
	return args.Get(0).(record.ListResponse), args.Error(1)
}

type MockFleet struct {
	mock.Mock
}

func (m *MockFleet) CreateDriver(ctx context.Context, d fleet.Driver) (int64, error) {
	args := m.Called(ctx, d)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockFleet) CreateTrip(ctx context.Context, t fleet.Trip) (int64, error) {
	args := m.Called(ctx, t)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockFleet) CreateAdvance(ctx context.Context, a fleet.Advance) (int64, error) {
	args := m.Called(ctx, a)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockFleet) CreateFuel(ctx context.Context, f fleet.Fuel) (int64, error) {
	args := m.Called(ctx, f)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockFleet) CreateFuelRequest(ctx context.Context, f fleet.FuelRequest) (int64, error) {
	args := m.Called(ctx, f)
	return args.Get(0).(int64), args.Error(1)
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var se huma.StatusError
	require.ErrorAs(t, err, &se)
	return se.GetStatus()
}

func TestHandler_Create(t *testing.T) {
	ctx := context.Background()
	req := record.CreateRequest{Data: json.RawMessage(`{"name":"Ravi"}`)}

	tests := []struct {
		name       string
		serviceErr error
		wantStatus int
	}{
		{name: "Success"},
		{name: "InvalidData", serviceErr: fmt.Errorf("%w: name is required", record.ErrInvalidData), wantStatus: http.StatusUnprocessableEntity},
		{name: "UnknownCollection", serviceErr: record.ErrUnknownCollection, wantStatus: http.StatusUnprocessableEntity},
		{name: "MissingParent", serviceErr: record.ErrMissingParent, wantStatus: http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			svc := new(MockService)
			svc.On("Create", ctx, record.CollectionDrivers, req).Return(int64(7), tt.serviceErr)
			h := NewHandler(svc, nil, slog.Default(), nil)

			// Act
			out, err := h.create(ctx, &createInput{Collection: "drivers", Body: req})

			// Assert
			if tt.wantStatus != 0 {
				assert.Equal(t, tt.wantStatus, statusOf(t, err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, int64(7), out.Body.ID)
			svc.AssertExpectations(t)
		})
	}
}

func TestHandler_Find(t *testing.T) {
	ctx := context.Background()
	trip := &record.Record{LocalID: 3, Collection: record.CollectionTrips}

	t.Run("Success", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Get", ctx, int64(3)).Return(trip, nil)
		h := NewHandler(svc, nil, slog.Default(), nil)

		out, err := h.find(ctx, &findInput{Collection: "trips", ID: 3})

		require.NoError(t, err)
		assert.Same(t, trip, out.Body)
	})

	t.Run("WrongCollection", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Get", ctx, int64(3)).Return(trip, nil)
		h := NewHandler(svc, nil, slog.Default(), nil)

		_, err := h.find(ctx, &findInput{Collection: "drivers", ID: 3})

		assert.Equal(t, http.StatusNotFound, statusOf(t, err))
	})

	t.Run("NotFound", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Get", ctx, int64(9)).Return(nil, record.ErrNotFound)
		h := NewHandler(svc, nil, slog.Default(), nil)

		_, err := h.find(ctx, &findInput{Collection: "trips", ID: 9})

		assert.Equal(t, http.StatusNotFound, statusOf(t, err))
	})
}

func TestHandler_Update(t *testing.T) {
	ctx := context.Background()
	trip := &record.Record{LocalID: 3, Collection: record.CollectionTrips}
	req := record.UpdateRequest{Data: json.RawMessage(`{"bags":12}`)}

	t.Run("Success", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Get", ctx, int64(3)).Return(trip, nil)
		svc.On("Update", ctx, int64(3), req).Return(trip, nil)
		h := NewHandler(svc, nil, slog.Default(), nil)

		out, err := h.update(ctx, &updateInput{Collection: "trips", ID: 3, Body: req})

		require.NoError(t, err)
		assert.Equal(t, "Ok", out.Body.Status)
		svc.AssertExpectations(t)
	})

	t.Run("Finalized", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Get", ctx, int64(3)).Return(trip, nil)
		svc.On("Update", ctx, int64(3), req).Return(nil, record.ErrFinalized)
		h := NewHandler(svc, nil, slog.Default(), nil)

		_, err := h.update(ctx, &updateInput{Collection: "trips", ID: 3, Body: req})

		assert.Equal(t, http.StatusConflict, statusOf(t, err))
	})
}

func TestHandler_CreateTrip(t *testing.T) {
	// Arrange
	ctx := context.Background()
	fl := new(MockFleet)
	fl.On("CreateTrip", ctx, fleet.Trip{DriverID: 1, CompanyID: 2, Date: "2024-05-02", Bags: 10, Km: 30}).Return(int64(11), nil)
	h := NewHandler(nil, fl, slog.Default(), nil)
	input := &createTripInput{}
	input.Body.DriverID = 1
	input.Body.CompanyID = 2
	input.Body.Date = "2024-05-02"
	input.Body.Bags = 10
	input.Body.Km = 30

	// Act
	out, err := h.createTrip(ctx, input)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, int64(11), out.Body.ID)
	fl.AssertExpectations(t)
}

func TestHandler_CreateTrip_NoRateSlab(t *testing.T) {
	ctx := context.Background()
	fl := new(MockFleet)
	fl.On("CreateTrip", ctx, mock.Anything).Return(int64(0), fleet.ErrNoRateSlab)
	h := NewHandler(nil, fl, slog.Default(), nil)

	_, err := h.createTrip(ctx, &createTripInput{})

	assert.Equal(t, http.StatusUnprocessableEntity, statusOf(t, err))
}

func TestHandler_CreateAdvance(t *testing.T) {
	ctx := context.Background()
	fl := new(MockFleet)
	fl.On("CreateAdvance", ctx, fleet.Advance{DriverID: 1, Date: "2024-05-02", Amount: 123}).Return(int64(5), nil)
	h := NewHandler(nil, fl, slog.Default(), nil)
	input := &createAdvanceInput{Body: moneyBody{DriverID: 1, Date: "2024-05-02", Amount: 123}}

	out, err := h.createAdvance(ctx, input)

	require.NoError(t, err)
	assert.Equal(t, int64(5), out.Body.ID)
}
