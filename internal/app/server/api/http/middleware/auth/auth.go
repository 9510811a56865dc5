package auth

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"fleetcontrol/internal/domain/tenant"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/exp/slog"
)

// Auth проверяет токен API устройства и добавляет участника устройства в контекст запроса.
// В памяти хранится только blake2b хеш токена.
type Auth struct {
	digest []byte
	actor  tenant.Actor
	log    *slog.Logger
}

// New создает middleware. Пустой токен отключает проверку (локальная разработка).
func New(token string, actor tenant.Actor, log *slog.Logger) *Auth {
	a := &Auth{
		actor: actor,
		log:   log.With("component", "auth_middleware"),
	}
	if token != "" {
		a.digest = Digest(token)
	}
	return a
}

// Digest возвращает blake2b-256 хеш токена.
func Digest(token string) []byte {
	sum := blake2b.Sum256([]byte(token))
	return sum[:]
}

func (a *Auth) Middleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if a.digest != nil {
			header := ctx.Header("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || subtle.ConstantTimeCompare(Digest(token), a.digest) != 1 {
				a.log.Warn("unauthorized request", "path", ctx.URL().Path, "remote_addr", ctx.RemoteAddr())
				unauthorized(ctx, a.log)
				return
			}
		}
		next(huma.WithContext(ctx, tenant.WithActor(ctx.Context(), a.actor)))
	}
}

func unauthorized(ctx huma.Context, log *slog.Logger) {
	ctx.SetHeader("Content-Type", "application/json")
	ctx.SetStatus(http.StatusUnauthorized)
	if err := json.NewEncoder(ctx.BodyWriter()).Encode(map[string]string{"error": "Unauthorized"}); err != nil {
		log.Error("failed to encode response", "error", err)
	}
}
