package agent

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"fleetcontrol/internal/config"
	"fleetcontrol/internal/domain/approval"
	"fleetcontrol/internal/domain/fleet"
	"fleetcontrol/internal/domain/record"
	"fleetcontrol/internal/domain/stats"
	docsync "fleetcontrol/internal/domain/sync"
	"fleetcontrol/internal/domain/tenant"
	"fleetcontrol/internal/infrastructure/storage/postgres"
	"fleetcontrol/internal/infrastructure/storage/sqlite"

	"golang.org/x/exp/slog"
)

// App связывает локальное хранилище, удаленное хранилище и движок синхронизации одного устройства.
type App struct {
	config *config.Config
	log    *slog.Logger

	local     *sqlite.Storage
	remoteDB  *postgres.Storage
	documents *postgres.DocumentStore
	remote    docsync.RemoteStore

	Tenant   *tenant.Context
	Repo     record.Repository
	Records  *record.Service
	Fleet    *fleet.Service
	Approval *approval.Service
	Sync     *docsync.Service

	tasks    *docsync.TaskGroup
	resolver *docsync.Resolver
	pusher   *docsync.Pusher
	worker   *docsync.Worker

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	done      chan struct{}
	once      sync.Once
	closeOnce sync.Once
}

type Option func(*App)

// WithRemoteStore подменяет удаленное хранилище Postgres, например in-memory хранилищем в тестах.
func WithRemoteStore(remote docsync.RemoteStore) Option {
	return func(a *App) {
		a.remote = remote
	}
}

func New(ctx context.Context, cfg *config.Config, log *slog.Logger, opts ...Option) (*App, error) {
	a := &App{config: cfg, log: log, done: make(chan struct{})}
	for _, opt := range opts {
		opt(a)
	}

	local, err := sqlite.New(cfg.DB.LocalPath)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации локального хранилища: %w", err)
	}
	a.local = local

	if a.remote == nil && cfg.RemoteEnabled() {
		remoteDB, err := postgres.New(ctx, cfg.DB.DatabaseURI)
		if err != nil {
			_ = local.Close()
			return nil, fmt.Errorf("ошибка подключения к удаленному хранилищу: %w", err)
		}
		a.remoteDB = remoteDB
		a.documents = postgres.NewDocumentStore(remoteDB, log)
		a.remote = a.documents
	}

	a.Tenant = tenant.New(cfg.Device.TenantID)
	repo := sqlite.NewRecordRepository(local, log)
	a.Repo = repo
	a.tasks = docsync.NewTaskGroup()
	a.resolver = docsync.NewResolver(repo)

	reconciler := docsync.NewReconciler(repo, a.resolver, a.Tenant, a.tasks, log)
	a.pusher = docsync.NewPusher(repo, a.remote, a.resolver, a.Tenant, a.tasks, log)
	a.worker = docsync.NewWorker(repo, a.remote, reconciler, a.pusher, a.tasks, a.Tenant, cfg.Sync.Interval, log)

	a.Records = record.NewService(repo, a.Tenant, a.pusher, log, &record.ServiceConfig{
		OwnerTripsAutoApprove: cfg.Sync.OwnerTripsAutoApprove,
	})
	a.Fleet = fleet.NewService(a.Records)
	if a.remote != nil {
		a.Approval = approval.NewService(repo, a.remote, a.pusher, a.tasks, a.Tenant, log)
	} else {
		a.Approval = approval.NewService(repo, nil, nil, a.tasks, a.Tenant, log)
	}
	a.Sync = docsync.NewService(a.pusher, a.worker)

	return a, nil
}

// Online сообщает, настроено ли удаленное хранилище.
func (a *App) Online() bool {
	return a.remote != nil
}

// Actor - участник, от имени которого работает устройство.
func (a *App) Actor() tenant.Actor {
	return tenant.Actor{MemberID: a.config.Device.MemberID, Role: tenant.Role(a.config.Device.Role)}
}

// WithActor добавляет участника устройства в ctx.
func (a *App) WithActor(ctx context.Context) context.Context {
	return tenant.WithActor(ctx, a.Actor())
}

// Stats возвращает агрегатор по локальному хранилищу, а при fromRemote по удаленному.
func (a *App) Stats(fromRemote bool) (*stats.Aggregator, error) {
	source := stats.Source(stats.NewLocalSource(a.Records))
	if fromRemote {
		if a.remote == nil {
			return nil, docsync.ErrOffline
		}
		source = stats.NewRemoteSource(a.remote, a.resolver, a.Tenant)
	}
	return stats.NewAggregator(source, a.Records, a.log), nil
}

// Watch отдает записи коллекции c текущего арендатора, пока ctx не завершен.
func (a *App) Watch(ctx context.Context, c record.Collection) (<-chan []*record.Record, error) {
	if _, err := record.SchemaFor(c); err != nil {
		return nil, err
	}
	tenantID, err := a.Tenant.Require()
	if err != nil {
		return nil, err
	}
	return a.Repo.Watch(ctx, tenantID, c)
}

// TenantID возвращает активного арендатора или пустую строку.
func (a *App) TenantID() string {
	return a.Tenant.Current()
}

// UseTenant переключает арендатора и сохраняет его в файл конфигурации.
func (a *App) UseTenant(tenantID string) error {
	if tenantID == "" {
		return tenant.ErrTenantNotSet
	}
	if err := a.config.SaveTenant(tenantID); err != nil {
		return err
	}
	a.Tenant.Set(tenantID)
	return nil
}

// Start запускает воркер синхронизации и наблюдение за конфигурацией.
func (a *App) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if err := a.worker.Start(ctx); err != nil && !errors.Is(err, docsync.ErrWorkerRunning) {
		cancel()
		return err
	}
	a.config.WatchTenant(func(tenantID string) {
		a.log.Info("Арендатор изменен в файле конфигурации", "tenant_id", tenantID)
		a.Tenant.Set(tenantID)
	})

	a.log.Info("Агент запущен",
		"tenant_id", a.Tenant.Current(),
		"online", a.Online(),
		"env", a.config.Env,
	)
	return nil
}

// Run запускает приложение и блокируется до сигнала завершения или отмены ctx.
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		a.log.Info("Получен сигнал завершения", "signal", sig.String())
	case <-ctx.Done():
	}
	a.Shutdown()
	return nil
}

// Done закрывается в начале Shutdown.
func (a *App) Done() <-chan struct{} {
	return a.done
}

// Go запускает fn в фоне; Shutdown дожидается его завершения.
func (a *App) Go(fn func()) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		fn()
	}()
}

func (a *App) Shutdown() {
	a.log.Info("Завершение работы агента...")
	a.once.Do(func() { close(a.done) })
	if a.cancel != nil {
		a.cancel()
	}
	a.worker.Stop()
	a.wg.Wait()
	a.tasks.Reset()
	a.release()
	a.log.Info("Агент завершил работу")
}

// Close освобождает хранилища без остановки воркера, для разовых команд CLI.
// Перед этим дожидается отправок из очереди.
func (a *App) Close() {
	a.once.Do(func() { close(a.done) })
	a.tasks.Wait()
	a.release()
}

func (a *App) release() {
	a.closeOnce.Do(func() {
		a.Tenant.Close()
		if a.documents != nil {
			a.documents.Close()
		}
		if a.remoteDB != nil {
			a.remoteDB.Close()
		}
		if err := a.local.Close(); err != nil {
			a.log.Error("Ошибка закрытия локального хранилища", "error", err)
		}
	})
}
