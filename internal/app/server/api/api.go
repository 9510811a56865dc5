// Device API: локальный агент устройства.
//
//GET  /api/v1/health                      # Состояние агента (публичный)
//GET  /api/v1/tenant                      # Текущий арендатор (auth)
//PUT  /api/v1/tenant                      # Переключить арендатора (auth)
//GET  /api/v1/records/{collection}        # Список записей (auth)
//POST /api/v1/records/{collection}        # Создать запись (auth)
//GET  /api/v1/records/{collection}/{id}   # Получить запись (auth)
//PUT  /api/v1/records/{collection}/{id}   # Изменить запись (auth)
//POST /api/v1/drivers|trips|advances|fuel|fuel-requests  # Типизированное создание (auth)
//POST /api/v1/trips/{id}/approve          # Одобрить рейс (auth, владелец)
//POST /api/v1/trips/{id}/reject           # Отклонить рейс (auth, владелец)
//POST /api/v1/sync/{collection}/pending   # Отправить неотправленные (auth)
//POST /api/v1/sync/retry/{id}             # Повторить отправку (auth)
//GET  /api/v1/sync/status                 # Состояние синхронизации (auth)
//GET  /api/v1/stats                       # Сводка (auth)
//POST /api/v1/stats/publish               # Сохранить сводку (auth)
//GET  /api/v1/watch/{collection}          # SSE поток снимков (auth)

package api

import (
	"fleetcontrol/internal/app/agent"
	approvalAPI "fleetcontrol/internal/app/server/api/http/approval"
	healthAPI "fleetcontrol/internal/app/server/api/http/health"
	"fleetcontrol/internal/app/server/api/http/middleware"
	"fleetcontrol/internal/app/server/api/http/middleware/auth"
	"fleetcontrol/internal/app/server/api/http/middleware/logger"
	recordAPI "fleetcontrol/internal/app/server/api/http/record"
	statsAPI "fleetcontrol/internal/app/server/api/http/stats"
	syncAPI "fleetcontrol/internal/app/server/api/http/sync"
	tenantAPI "fleetcontrol/internal/app/server/api/http/tenant"
	watchAPI "fleetcontrol/internal/app/server/api/http/watch"
	"fleetcontrol/internal/domain/stats"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/exp/slog"
)

type Handlers struct {
	Health   *healthAPI.Handler
	Tenant   *tenantAPI.Handler
	Record   *recordAPI.Handler
	Approval *approvalAPI.Handler
	Sync     *syncAPI.Handler
	Stats    *statsAPI.Handler
	Watch    *watchAPI.Handler
}

// New создает *chi.Mux со всеми операциями API устройства
func New(app *agent.App, token string, log *slog.Logger) *chi.Mux {
	mux := chi.NewMux()
	mux.Use(chimw.Recoverer)

	config := huma.DefaultConfig("FleetControl device API", "1.0.0")
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {Type: "http", Scheme: "bearer"},
	}

	API := humachi.New(mux, config)

	h := handlers(app, token, log)
	h.Health.SetupRoutes(API)
	h.Tenant.SetupRoutes(API)
	h.Record.SetupRoutes(API)
	h.Approval.SetupRoutes(API)
	h.Sync.SetupRoutes(API)
	h.Stats.SetupRoutes(API)
	h.Watch.SetupRoutes(API)

	return mux
}

func handlers(app *agent.App, token string, log *slog.Logger) *Handlers {
	authMW := auth.New(token, app.Actor(), log)
	loggerMW := logger.New(log, app.TenantID)
	middlewares := middleware.NewContainer()

	protected := func() huma.Middlewares {
		return middlewares.Add(loggerMW.Middleware(), authMW.Middleware()).GetAllAndClear()
	}

	statsProvider := func(fromRemote bool) (stats.Servicer, error) {
		agg, err := app.Stats(fromRemote)
		if err != nil {
			return nil, err
		}
		return agg, nil
	}

	return &Handlers{
		Health:   healthAPI.NewHandler(app.Sync, app.TenantID, log, middlewares.Add(loggerMW.Middleware()).GetAllAndClear()),
		Tenant:   tenantAPI.NewHandler(app, log, protected()),
		Record:   recordAPI.NewHandler(app.Records, app.Fleet, log, protected()),
		Approval: approvalAPI.NewHandler(app.Approval, log, protected()),
		Sync:     syncAPI.NewHandler(app.Sync, log, protected()),
		Stats:    statsAPI.NewHandler(statsProvider, log, protected()),
		Watch:    watchAPI.NewHandler(app, log, protected()),
	}
}
