package sync

import (
	"context"
	"sort"
	"sync"
	"time"

	"fleetcontrol/internal/domain/record"
	"fleetcontrol/internal/domain/tenant"

	"golang.org/x/exp/slog"
	"golang.org/x/sync/errgroup"
)

// Worker держит устройство в синхронизации: по подписке на каждую коллекцию
// текущего арендатора и периодическая отправка ожидающих записей, родители первыми.
// Смена арендатора снимает подписки, отменяет отправки и запускает все заново.
type Worker struct {
	repo       record.Repository
	remote     RemoteStore
	reconciler *Reconciler
	pusher     *Pusher
	tasks      *TaskGroup
	tenant     *tenant.Context
	interval   time.Duration
	log        *slog.Logger

	mu          sync.Mutex
	running     bool
	stopCh      chan struct{}
	doneCh      chan struct{}
	kick        chan struct{}
	unsubscribe func()
	listeners   map[record.Collection]Subscription
	listenTo    string
	deferred    map[record.Collection]int
	lastApplied map[record.Collection]ReconcileResult
	lastSweep   time.Time
}

func NewWorker(repo record.Repository, remote RemoteStore, reconciler *Reconciler, pusher *Pusher, tasks *TaskGroup, tc *tenant.Context, interval time.Duration, log *slog.Logger) *Worker {
	return &Worker{
		repo:        repo,
		remote:      remote,
		reconciler:  reconciler,
		pusher:      pusher,
		tasks:       tasks,
		tenant:      tc,
		interval:    interval,
		log:         log.With("component", "sync_worker"),
		kick:        make(chan struct{}, 1),
		listeners:   make(map[record.Collection]Subscription),
		deferred:    make(map[record.Collection]int),
		lastApplied: make(map[record.Collection]ReconcileResult),
	}
}

// Start запускает подписки и периодическую отправку в фоне.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return ErrWorkerRunning
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	w.unsubscribe = w.tenant.Subscribe(w.onTenantChange)
	w.startListeners(w.tenant.Current())
	w.Kick()

	go w.run(ctx)
	w.log.Info("sync worker started", "tenant_id", w.tenant.Current(), "interval", w.interval, "online", w.remote != nil)
	return nil
}

// Stop останавливает воркер и ждет текущую работу.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	w.mu.Unlock()

	<-w.doneCh
	if w.unsubscribe != nil {
		w.unsubscribe()
	}
	w.stopListeners()
	w.tasks.Reset()
	w.log.Info("sync worker stopped")
}

// Kick запрашивает немедленную отправку.
func (w *Worker) Kick() {
	select {
	case w.kick <- struct{}{}:
	default:
	}
}

// HealthCheck проверяет доступность удаленного хранилища.
func (w *Worker) HealthCheck(ctx context.Context) error {
	if w.remote == nil {
		return ErrOffline
	}
	return w.remote.Ping(ctx)
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
		case <-w.kick:
		}
		w.ensureListeners()
		if _, err := w.SweepAll(ctx); err != nil {
			w.log.Error("sweep failed", "error", err)
		}
	}
}

// SweepAll отправляет ожидающие записи всех коллекций, родителей раньше детей.
func (w *Worker) SweepAll(ctx context.Context) ([]PushSummary, error) {
	tenantID, scope := w.tenant.Scope()
	if tenantID == "" || w.remote == nil {
		return nil, nil
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(scope, cancel)
	defer stop()

	var summaries []PushSummary
	for _, c := range record.Collections() {
		s, err := w.pusher.SyncPending(ctx, c)
		if err != nil {
			return summaries, err
		}
		summaries = append(summaries, s)
		if ctx.Err() != nil {
			break
		}
	}

	w.mu.Lock()
	w.lastSweep = time.Now()
	w.mu.Unlock()
	return summaries, nil
}

// Status возвращает состояние подписок и счетчики коллекций текущего арендатора.
func (w *Worker) Status(ctx context.Context) (Status, error) {
	tenantID := w.tenant.Current()
	st := Status{TenantID: tenantID, Online: w.remote != nil}

	w.mu.Lock()
	st.Running = w.running
	st.LastSweep = w.lastSweep
	for c := range w.listeners {
		st.Listening = append(st.Listening, c)
	}
	for _, res := range w.lastApplied {
		st.LastApplied = append(st.LastApplied, res)
	}
	w.mu.Unlock()

	sort.Slice(st.Listening, func(i, j int) bool { return st.Listening[i] < st.Listening[j] })
	sort.Slice(st.LastApplied, func(i, j int) bool { return st.LastApplied[i].Collection < st.LastApplied[j].Collection })

	if tenantID == "" {
		return st, nil
	}
	cs, err := w.repo.Status(ctx, tenantID)
	if err != nil {
		return st, err
	}
	st.Collections = cs
	return st, nil
}

func (w *Worker) onTenantChange(old, current string) {
	w.log.Info("tenant switched", "from", old, "to", current)
	w.stopListeners()
	w.tasks.Reset()

	w.mu.Lock()
	w.deferred = make(map[record.Collection]int)
	w.lastApplied = make(map[record.Collection]ReconcileResult)
	w.mu.Unlock()

	w.startListeners(current)
	w.Kick()
}

func (w *Worker) startListeners(tenantID string) {
	if tenantID == "" || w.remote == nil {
		return
	}
	w.mu.Lock()
	w.listenTo = tenantID
	w.mu.Unlock()
	w.ensureListeners()
}

// ensureListeners подписывает коллекции без живой подписки, повторяя прошлые неудачи.
func (w *Worker) ensureListeners() {
	if w.remote == nil {
		return
	}
	tenantID, scope := w.tenant.Scope()

	w.mu.Lock()
	if tenantID == "" || tenantID != w.listenTo {
		w.mu.Unlock()
		return
	}
	var missing []record.Collection
	for _, c := range record.Collections() {
		if _, ok := w.listeners[c]; !ok {
			missing = append(missing, c)
		}
	}
	w.mu.Unlock()

	var (
		g   errgroup.Group
		mu  sync.Mutex
		got = make(map[record.Collection]Subscription, len(missing))
	)
	for _, c := range missing {
		g.Go(func() error {
			sub, err := w.remote.Subscribe(scope, tenantID, c, w.sink(scope, tenantID, c))
			if err != nil {
				w.log.Warn("failed to subscribe", "tenant_id", tenantID, "collection", c, "error", err)
				return nil
			}
			mu.Lock()
			got[c] = sub
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.tenant.IsCurrent(tenantID) || tenantID != w.listenTo {
		for _, sub := range got {
			sub.Cancel()
		}
		return
	}
	for c, sub := range got {
		if _, dup := w.listeners[c]; dup {
			sub.Cancel()
			continue
		}
		w.listeners[c] = sub
	}
}

func (w *Worker) stopListeners() {
	w.mu.Lock()
	listeners := w.listeners
	w.listeners = make(map[record.Collection]Subscription)
	w.listenTo = ""
	w.mu.Unlock()

	for _, sub := range listeners {
		sub.Cancel()
	}
}

func (w *Worker) sink(ctx context.Context, tenantID string, c record.Collection) func([]Document) {
	return func(docs []Document) {
		if !w.tenant.IsCurrent(tenantID) {
			return
		}
		res := w.reconciler.Apply(ctx, tenantID, c, docs)

		w.mu.Lock()
		w.lastApplied[c] = res
		w.deferred[c] = res.Deferred
		var retry []Subscription
		if res.Changed() {
			for _, child := range dependentsOf(c) {
				if w.deferred[child] > 0 {
					if sub, ok := w.listeners[child]; ok {
						retry = append(retry, sub)
					}
				}
			}
		}
		w.mu.Unlock()

		// отложенные из-за родителя дочерние записи получают новый снимок
		for _, sub := range retry {
			sub.Refresh()
		}
	}
}

// dependentsOf возвращает коллекции, ссылающиеся на c.
func dependentsOf(c record.Collection) []record.Collection {
	var out []record.Collection
	for _, child := range record.Collections() {
		schema, err := record.SchemaFor(child)
		if err != nil {
			continue
		}
		for _, parent := range schema.Refs {
			if parent == c {
				out = append(out, child)
				break
			}
		}
	}
	return out
}
