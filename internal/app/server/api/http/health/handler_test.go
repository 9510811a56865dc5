package health

import (
	"context"
	"errors"
	"testing"

	docsync "fleetcontrol/internal/domain/sync"

	"github.com/danielgtaylor/huma/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/exp/slog"
)

type MockChecker struct {
	mock.Mock
}

func (m *MockChecker) HealthCheck(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func TestHandler_healthCheck(t *testing.T) {
	tests := []struct {
		name       string
		checkErr   error
		wantRemote string
		wantError  string
	}{
		{name: "remote reachable", wantRemote: "online"},
		{name: "offline device", checkErr: docsync.ErrOffline, wantRemote: "offline"},
		{name: "remote down", checkErr: errors.New("dial tcp: refused"), wantRemote: "unreachable", wantError: "dial tcp: refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			checker := new(MockChecker)
			checker.On("HealthCheck", mock.Anything).Return(tt.checkErr)
			handler := NewHandler(checker, func() string { return "t1" }, slog.Default(), huma.Middlewares{})

			// Act
			output, err := handler.healthCheck(context.Background(), &Input{})

			// Assert
			assert.NoError(t, err)
			assert.Equal(t, "OK", output.Body.Status)
			assert.Equal(t, "t1", output.Body.TenantID)
			assert.Equal(t, tt.wantRemote, output.Body.Remote)
			assert.Equal(t, tt.wantError, output.Body.Error)
			checker.AssertExpectations(t)
		})
	}
}
