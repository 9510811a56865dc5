package approval

import (
	"context"
	"net/http"
	"testing"

	"fleetcontrol/internal/domain/approval"
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

func (m *MockService) ApproveTrip(ctx context.Context, localID int64) (*record.Record, error) {
	args := m.Called(ctx, localID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*record.Record), args.Error(1)
}

func (m *MockService) RejectTrip(ctx context.Context, localID int64, reason string) (*record.Record, error) {
	args := m.Called(ctx, localID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*record.Record), args.Error(1)
}

func (m *MockService) Transition(ctx context.Context, localID int64, readVersion int, to record.Status, reason string) (*record.Record, error) {
	args := m.Called(ctx, localID, readVersion, to, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*record.Record), args.Error(1)
}

func TestHandler_approve(t *testing.T) {
	ctx := context.Background()
	approved := &record.Record{LocalID: 4, Status: record.StatusApproved, Version: 2}

	tests := []struct {
		name       string
		input      *approveInput
		setup      func(m *MockService)
		wantStatus int
	}{
		{
			name:  "current version",
			input: &approveInput{ID: 4},
			setup: func(m *MockService) {
				m.On("ApproveTrip", ctx, int64(4)).Return(approved, nil)
			},
		},
		{
			name: "read version",
			input: &approveInput{ID: 4, Body: &approveBody{Version: 1}},
			setup: func(m *MockService) {
				m.On("Transition", ctx, int64(4), 1, record.StatusApproved, "").Return(approved, nil)
			},
		},
		{
			name:  "driver",
			input: &approveInput{ID: 4},
			setup: func(m *MockService) {
				m.On("ApproveTrip", ctx, int64(4)).Return(nil, approval.ErrForbidden)
			},
			wantStatus: http.StatusForbidden,
		},
		{
			name:  "stale",
			input: &approveInput{ID: 4},
			setup: func(m *MockService) {
				m.On("ApproveTrip", ctx, int64(4)).Return(nil, approval.ErrVersionConflict)
			},
			wantStatus: http.StatusConflict,
		},
		{
			name:  "remote down",
			input: &approveInput{ID: 4},
			setup: func(m *MockService) {
				m.On("ApproveTrip", ctx, int64(4)).Return(nil, approval.ErrRemoteUnavailable)
			},
			wantStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			svc := new(MockService)
			tt.setup(svc)
			h := NewHandler(svc, slog.Default(), nil)

			// Act
			out, err := h.approve(ctx, tt.input)

			// Assert
			if tt.wantStatus != 0 {
				var se huma.StatusError
				require.ErrorAs(t, err, &se)
				assert.Equal(t, tt.wantStatus, se.GetStatus())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, record.StatusApproved, out.Body.Status)
			svc.AssertExpectations(t)
		})
	}
}

func TestHandler_reject(t *testing.T) {
	// Arrange
	ctx := context.Background()
	svc := new(MockService)
	rejected := &record.Record{LocalID: 4, Status: record.StatusRejected, Reason: "wrong bags"}
	svc.On("RejectTrip", ctx, int64(4), "wrong bags").Return(rejected, nil)
	h := NewHandler(svc, slog.Default(), nil)
	input := &rejectInput{ID: 4}
	input.Body.Reason = "wrong bags"

	// Act
	out, err := h.reject(ctx, input)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "wrong bags", out.Body.Reason)
	svc.AssertExpectations(t)
}
