package logger

import (
	"time"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
)

// Logger пишет строку лога на каждый запрос к API устройства
type Logger struct {
	log    *slog.Logger
	tenant func() string
}

// New создает middleware; tenant возвращает текущего арендатора для поля лога.
func New(log *slog.Logger, tenant func() string) *Logger {
	return &Logger{
		log:    log.With(slog.String("component", "http_logger")),
		tenant: tenant,
	}
}

func (l *Logger) Middleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		start := time.Now()
		method, path := ctx.Method(), ctx.URL().Path

		next(ctx)

		status := ctx.Status()
		attrs := []any{
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)),
			slog.String("remote_addr", ctx.RemoteAddr()),
		}
		if l.tenant != nil {
			attrs = append(attrs, slog.String("tenant_id", l.tenant()))
		}
		if status >= 500 {
			l.log.Error("HTTP request", attrs...)
			return
		}
		l.log.Info("HTTP request", attrs...)
	}
}
