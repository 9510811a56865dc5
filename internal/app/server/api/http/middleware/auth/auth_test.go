package auth

import (
	"context"
	"io"
	"net/http"
	"testing"

	"fleetcontrol/internal/domain/tenant"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"golang.org/x/exp/slog"
)

type whoOutput struct {
	Body struct {
		MemberID string `json:"member_id"`
	}
}

func setup(t *testing.T, token string) humatest.TestAPI {
	_, api := humatest.New(t)
	mw := New(token, tenant.Actor{MemberID: "owner-1", Role: tenant.RoleOwner}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	huma.Register(api, huma.Operation{
		Method:      http.MethodGet,
		Path:        "/who",
		Middlewares: huma.Middlewares{mw.Middleware()},
	}, func(ctx context.Context, _ *struct{}) (*whoOutput, error) {
		out := &whoOutput{}
		if actor, ok := tenant.ActorFrom(ctx); ok {
			out.Body.MemberID = actor.MemberID
		}
		return out, nil
	})
	return api
}

func TestAuth_Middleware(t *testing.T) {
	tests := []struct {
		name       string
		token      string
		header     []any
		wantStatus int
	}{
		{name: "valid token", token: "s3cret", header: []any{"Authorization: Bearer s3cret"}, wantStatus: http.StatusOK},
		{name: "wrong token", token: "s3cret", header: []any{"Authorization: Bearer nope"}, wantStatus: http.StatusUnauthorized},
		{name: "missing header", token: "s3cret", wantStatus: http.StatusUnauthorized},
		{name: "no token configured", token: "", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			api := setup(t, tt.token)

			// Act
			resp := api.Get("/who", tt.header...)

			// Assert
			assert.Equal(t, tt.wantStatus, resp.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Contains(t, resp.Body.String(), "owner-1")
			}
		})
	}
}

func TestDigest(t *testing.T) {
	assert.Len(t, Digest("token"), 32)
	assert.Equal(t, Digest("token"), Digest("token"))
	assert.NotEqual(t, Digest("token"), Digest("token2"))
}
