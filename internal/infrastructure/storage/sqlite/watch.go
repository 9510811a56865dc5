package sqlite

import (
	"context"
	"sync"

	"fleetcontrol/internal/domain/record"
)

type watchKey struct {
	tenantID   string
	collection record.Collection
}

// watchers раздает сигналы об изменениях подписчикам Watch
type watchers struct {
	mu     sync.Mutex
	nextID int
	subs   map[watchKey]map[int]chan struct{}
}

func newWatchers() *watchers {
	return &watchers{subs: make(map[watchKey]map[int]chan struct{})}
}

func (w *watchers) add(key watchKey) (int, chan struct{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.nextID
	w.nextID++
	ch := make(chan struct{}, 1)
	if w.subs[key] == nil {
		w.subs[key] = make(map[int]chan struct{})
	}
	w.subs[key][id] = ch
	return id, ch
}

func (w *watchers) remove(key watchKey, id int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.subs[key], id)
	if len(w.subs[key]) == 0 {
		delete(w.subs, key)
	}
}

func (w *watchers) notify(tenantID string, c record.Collection) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, ch := range w.subs[watchKey{tenantID: tenantID, collection: c}] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Watch отдает полный список коллекции: сразу и после
// каждой локальной записи в нее. Пачки записей сводятся в одну. Канал закрывается
// по завершении ctx.
func (r *RecordRepository) Watch(ctx context.Context, tenantID string, c record.Collection) (<-chan []*record.Record, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	key := watchKey{tenantID: tenantID, collection: c}
	id, signal := r.watchers.add(key)
	signal <- struct{}{}

	out := make(chan []*record.Record)
	go func() {
		defer close(out)
		defer r.watchers.remove(key, id)

		for {
			select {
			case <-ctx.Done():
				return
			case <-signal:
			}

			records, err := r.List(ctx, tenantID, c)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				r.log.Warn("watch: failed to list records", "tenant_id", tenantID, "collection", c, "error", err)
				continue
			}

			select {
			case out <- records:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
