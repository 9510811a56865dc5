package postgres

import (
	"context"
	"fmt"
	"sync"
	"time"

	docsync "fleetcontrol/internal/domain/sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"
)

const (
	notifyChannel     = "fleet_documents"
	reconnectDelay    = time.Second
	maxReconnectDelay = 30 * time.Second
)

// пауза перед повторной загрузкой снимка после ошибки
var (
	snapshotRetryDelay    = 500 * time.Millisecond
	maxSnapshotRetryDelay = 30 * time.Second
)

// notifyHub держит одно LISTEN соединение и раздает уведомления
// подпискам по ключу "tenant/collection".
type notifyHub struct {
	pool *pgxpool.Pool
	log  *slog.Logger

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
	subs    map[string]map[int]*subscription
	nextID  int
}

func newNotifyHub(pool *pgxpool.Pool, log *slog.Logger) *notifyHub {
	return &notifyHub{
		pool: pool,
		log:  log,
		subs: make(map[string]map[int]*subscription),
	}
}

func (h *notifyHub) start() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.started {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	h.started = true
	h.cancel = cancel
	h.done = make(chan struct{})
	go h.listen(ctx)
	return nil
}

func (h *notifyHub) close() {
	h.mu.Lock()
	if !h.started {
		h.mu.Unlock()
		return
	}
	h.started = false
	h.cancel()
	done := h.done
	h.mu.Unlock()
	<-done
}

// listen держит LISTEN соединение и переподключается с паузой. После каждого
// (пере)подключения все подписки обновляются: уведомления могли потеряться.
func (h *notifyHub) listen(ctx context.Context) {
	defer close(h.done)
	delay := reconnectDelay
	for {
		err := h.listenOnce(ctx)
		if ctx.Err() != nil {
			return
		}
		h.log.Warn("notification listener dropped", "error", err, "retry_in", delay)
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}

func (h *notifyHub) listenOnce(ctx context.Context) error {
	conn, err := h.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listen connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	h.refreshAll()

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		h.dispatch(n.Payload)
	}
}

func (h *notifyHub) dispatch(key string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subs[key] {
		sub.Refresh()
	}
}

func (h *notifyHub) refreshAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, subs := range h.subs {
		for _, sub := range subs {
			sub.Refresh()
		}
	}
}

func (h *notifyHub) subscribe(ctx context.Context, key string, load func(context.Context) ([]docsync.Document, error), sink func([]docsync.Document)) *subscription {
	ctx, cancel := context.WithCancel(ctx)
	sub := &subscription{signal: make(chan struct{}, 1), cancel: cancel}

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	if h.subs[key] == nil {
		h.subs[key] = make(map[int]*subscription)
	}
	h.subs[key][id] = sub
	h.mu.Unlock()

	sub.Refresh()
	go func() {
		defer func() {
			h.mu.Lock()
			delete(h.subs[key], id)
			if len(h.subs[key]) == 0 {
				delete(h.subs, key)
			}
			h.mu.Unlock()
		}()
		var backoff time.Duration
		for {
			if !waitSignal(ctx, sub, backoff) {
				return
			}
			docs, err := load(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				backoff = nextSnapshotRetry(backoff)
				h.log.Warn("snapshot load failed", "key", key, "retry_in", backoff, "error", err)
				continue
			}
			backoff = 0
			sink(docs)
		}
	}()
	return sub
}

// waitSignal ждет уведомления; после неудачной загрузки повтор происходит и без него, по таймеру.
func waitSignal(ctx context.Context, sub *subscription, backoff time.Duration) bool {
	var retry <-chan time.Time
	if backoff > 0 {
		t := time.NewTimer(backoff)
		defer t.Stop()
		retry = t.C
	}
	select {
	case <-ctx.Done():
		return false
	case <-sub.signal:
	case <-retry:
	}
	return true
}

func nextSnapshotRetry(d time.Duration) time.Duration {
	if d == 0 {
		return snapshotRetryDelay
	}
	d *= 2
	if d > maxSnapshotRetryDelay {
		return maxSnapshotRetryDelay
	}
	return d
}

// subscription отдает снимки последовательно; пачка уведомлений сводится к одной загрузке.
type subscription struct {
	signal chan struct{}
	cancel context.CancelFunc
}

func (s *subscription) Refresh() {
	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *subscription) Cancel() {
	s.cancel()
}
