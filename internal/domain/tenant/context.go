package tenant

import (
	"context"
	"sync"
)

// Observer получает уведомление о смене арендатора
type Observer func(old, current string)

// Context хранит текущего арендатора (tenant). Все пути удаленного хранилища и
// фильтры локального строятся от него. Смена арендатора отменяет контекст
// предыдущего (Scope), поэтому вся работа, запущенная под старым арендатором,
// останавливается.
type Context struct {
	mu        sync.RWMutex
	current   string
	scope     context.Context
	cancel    context.CancelFunc
	observers map[int]Observer
	nextID    int
}

// New создает контекст арендатора; пустой id означает, что арендатор еще неизвестен (до входа).
func New(id string) *Context {
	c := &Context{observers: make(map[int]Observer)}
	c.scope, c.cancel = context.WithCancel(context.Background())
	c.current = id
	return c
}

func (c *Context) Current() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// IsSet сообщает, выбран ли арендатор
func (c *Context) IsSet() bool {
	return c.Current() != ""
}

func (c *Context) IsCurrent(id string) bool {
	return id != "" && c.Current() == id
}

// Scope возвращает текущего арендатора и контекст, который отменяется при его смене.
func (c *Context) Scope() (string, context.Context) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current, c.scope
}

// Require возвращает текущего арендатора или ErrTenantNotSet (для операций записи).
func (c *Context) Require() (string, error) {
	id := c.Current()
	if id == "" {
		return "", ErrTenantNotSet
	}
	return id, nil
}

// Set переключает арендатора. Повторная установка того же значения ничего не делает.
func (c *Context) Set(id string) {
	c.mu.Lock()
	old := c.current
	if old == id {
		c.mu.Unlock()
		return
	}
	c.cancel()
	c.scope, c.cancel = context.WithCancel(context.Background())
	c.current = id

	observers := make([]Observer, 0, len(c.observers))
	for i := 0; i < c.nextID; i++ {
		if fn, ok := c.observers[i]; ok {
			observers = append(observers, fn)
		}
	}
	c.mu.Unlock()

	for _, fn := range observers {
		fn(old, id)
	}
}

// Subscribe регистрирует наблюдателя; возвращаемая функция отписывает его и идемпотентна.
func (c *Context) Subscribe(fn Observer) (cancel func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.observers[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.observers, id)
			c.mu.Unlock()
		})
	}
}

// Close отменяет текущий scope; используется при остановке приложения
func (c *Context) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancel()
}
