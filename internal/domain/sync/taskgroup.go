package sync

import (
	"context"
	"sync"
)

// TaskGroup упорядочивает работу по локальной записи. По ключу выполняется не больше одной задачи,
// а если задача по ключу уже ждет в очереди, вторая не ставится.
// Reset отменяет все текущие задачи при смене арендатора.
type TaskGroup struct {
	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	slots  map[int64]*slot
}

type slot struct {
	mu     sync.Mutex
	refs   int
	queued bool
}

func NewTaskGroup() *TaskGroup {
	g := &TaskGroup{slots: make(map[int64]*slot)}
	g.ctx, g.cancel = context.WithCancel(context.Background())
	return g
}

// Submit выполняет fn асинхронно под блокировкой ключа. Возвращает false, если задача
// по ключу уже ждет.
func (g *TaskGroup) Submit(key int64, fn func(ctx context.Context)) bool {
	g.mu.Lock()
	if s, ok := g.slots[key]; ok && s.queued {
		g.mu.Unlock()
		return false
	}
	s := g.acquireLocked(key)
	s.queued = true
	ctx := g.ctx
	g.wg.Add(1)
	g.mu.Unlock()

	go func() {
		defer g.wg.Done()
		defer g.release(key)

		s.mu.Lock()
		defer s.mu.Unlock()

		g.mu.Lock()
		s.queued = false
		g.mu.Unlock()

		if ctx.Err() == nil {
			fn(ctx)
		}
	}()
	return true
}

// Do выполняет fn синхронно под блокировкой ключа. Контекст fn
// отменяется вместе с ctx или с группой.
func (g *TaskGroup) Do(ctx context.Context, key int64, fn func(ctx context.Context) error) error {
	g.mu.Lock()
	s := g.acquireLocked(key)
	groupCtx := g.ctx
	g.mu.Unlock()
	defer g.release(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(groupCtx, cancel)
	defer stop()

	if err := runCtx.Err(); err != nil {
		return err
	}
	return fn(runCtx)
}

// Reset отменяет ждущие и выполняемые задачи и дожидается их завершения.
func (g *TaskGroup) Reset() {
	g.mu.Lock()
	g.cancel()
	g.ctx, g.cancel = context.WithCancel(context.Background())
	g.mu.Unlock()
	g.wg.Wait()
}

// Wait ждет завершения всех поставленных задач.
func (g *TaskGroup) Wait() {
	g.wg.Wait()
}

func (g *TaskGroup) acquireLocked(key int64) *slot {
	s, ok := g.slots[key]
	if !ok {
		s = &slot{}
		g.slots[key] = s
	}
	s.refs++
	return s
}

func (g *TaskGroup) release(key int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s := g.slots[key]
	s.refs--
	if s.refs == 0 {
		delete(g.slots, key)
	}
}
