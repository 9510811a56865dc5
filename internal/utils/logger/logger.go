package logger

import (
	"io"
	"os"

	"golang.org/x/exp/slog"
	"gopkg.in/natefinch/lumberjack.v2"

	"fleetcontrol/internal/config"
	"fleetcontrol/internal/utils/logger/prettyslog"
)

// New создает логгер в зависимости от окружения
func New(env string) *slog.Logger {
	return NewWithOutput(env, os.Stdout)
}

// NewWithFile пишет логи в файл с ротацией; в local дополнительно дублирует в stdout.
func NewWithFile(env, path string) *slog.Logger {
	if path == "" {
		return New(env)
	}
	rotated := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    20, // MB
		MaxBackups: 5,
		MaxAge:     14,
		Compress:   true,
	}
	var out io.Writer = rotated
	if env == config.EnvLocal {
		out = io.MultiWriter(os.Stdout, rotated)
	}
	return NewWithOutput(env, out)
}

func NewWithOutput(env string, out io.Writer) *slog.Logger {
	var log *slog.Logger

	switch env {
	case config.EnvLocal:
		log = setupPrettySlog(out)
	case config.EnvDev:
		log = slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case config.EnvProd:
		log = slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		log = slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	return log
}

func setupPrettySlog(out io.Writer) *slog.Logger {
	opts := prettyslog.Options{
		SlogOpts: &slog.HandlerOptions{Level: slog.LevelDebug},
	}
	return slog.New(opts.NewHandler(out))
}

// Discard возвращает логгер, который ничего не пишет (для тестов)
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}
