package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"fleetcontrol/internal/app/agent"
	"fleetcontrol/internal/app/server/api"
	"fleetcontrol/internal/config"
	"fleetcontrol/internal/utils/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	conf := config.MustLoad()
	log := logger.NewWithFile(conf.Env, conf.Logger.LogFile)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := agent.New(ctx, conf, log)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              conf.Server.RunAddress,
		Handler:           api.New(app, conf.Server.APIToken, log),
		ReadHeaderTimeout: 5 * time.Second,
	}
	if conf.Server.APIToken == "" {
		log.Warn("API_TOKEN не задан, API устройства доступно без авторизации")
	}

	app.Go(func() {
		log.Info("HTTP сервер запущен", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP сервер остановлен с ошибкой", "error", err)
			cancel()
		}
	})
	app.Go(func() {
		<-app.Done()
		shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
		defer stop()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Ошибка остановки HTTP сервера", "error", err)
		}
	})

	return app.Run(ctx)
}
