// Package synctest - in-memory удаленное хранилище документов для тестов.
package synctest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"fleetcontrol/internal/domain/record"
	docsync "fleetcontrol/internal/domain/sync"

	"github.com/google/uuid"
)

var ErrInjected = errors.New("injected remote failure")

type collectionKey struct {
	tenantID   string
	collection record.Collection
}

// Remote ведет себя как общее хранилище: идемпотентный Put по id,
// статус меняется только через CompareAndSetStatus, подписки на снимки по коллекциям.
type Remote struct {
	mu       sync.Mutex
	docs     map[collectionKey]map[string]docsync.Document
	subs     map[collectionKey]map[int]*subscription
	nextSub  int
	failPuts int
	loseAcks int
	puts     int
	pingErr  error
}

func NewRemote() *Remote {
	return &Remote{
		docs: make(map[collectionKey]map[string]docsync.Document),
		subs: make(map[collectionKey]map[int]*subscription),
	}
}

// FailPuts: следующие n вызовов Put завершаются ошибкой без записи.
func (r *Remote) FailPuts(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failPuts = n
}

// LoseAcks: следующие n вызовов Put пишут документ, но возвращают ошибку.
func (r *Remote) LoseAcks(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loseAcks = n
}

func (r *Remote) SetPingError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pingErr = err
}

// Puts возвращает число вызовов Put, дошедших до хранилища.
func (r *Remote) Puts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.puts
}

// Docs возвращает документы коллекции по порядку id.
func (r *Remote) Docs(tenantID string, c record.Collection) []docsync.Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked(collectionKey{tenantID, c})
}

// Seed пишет документ как другое устройство, минуя имитацию сбоев.
func (r *Remote) Seed(doc docsync.Document) docsync.Document {
	r.mu.Lock()
	saved, _ := r.putLocked(doc)
	r.mu.Unlock()
	r.notify(collectionKey{doc.TenantID, doc.Collection})
	return saved
}

func (r *Remote) Put(ctx context.Context, doc docsync.Document) (docsync.Document, error) {
	if err := ctx.Err(); err != nil {
		return docsync.Document{}, err
	}
	if doc.TenantID == "" {
		return docsync.Document{}, fmt.Errorf("%w: tenant id is required", record.ErrInvalidData)
	}

	r.mu.Lock()
	r.puts++
	if r.failPuts > 0 {
		r.failPuts--
		r.mu.Unlock()
		return docsync.Document{}, ErrInjected
	}
	saved, err := r.putLocked(doc)
	if err != nil {
		r.mu.Unlock()
		return saved, err
	}
	lost := r.loseAcks > 0
	if lost {
		r.loseAcks--
	}
	r.mu.Unlock()

	r.notify(collectionKey{doc.TenantID, doc.Collection})
	if lost {
		return docsync.Document{}, ErrInjected
	}
	return saved, nil
}

// putLocked сохраняет статус и причину существующего документа и не меняет
// данные решенного документа.
func (r *Remote) putLocked(doc docsync.Document) (docsync.Document, error) {
	key := collectionKey{doc.TenantID, doc.Collection}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	data, err := record.Canonical(doc.Data)
	if err == nil {
		doc.Data = data
	}
	docs, ok := r.docs[key]
	if !ok {
		docs = make(map[string]docsync.Document)
		r.docs[key] = docs
	}

	cur, exists := docs[doc.ID]
	switch {
	case !exists:
		if doc.Version < 1 {
			doc.Version = 1
		}
	case string(cur.Data) != string(doc.Data) && cur.Status.Terminal():
		return cur, fmt.Errorf("%w: %s is %s", record.ErrFinalized, cur.Path(), cur.Status)
	case string(cur.Data) != string(doc.Data):
		doc.Status, doc.Reason = cur.Status, cur.Reason
		doc.Version = cur.Version + 1
	default:
		doc = cur
	}
	doc.UpdatedAt = time.Now()
	docs[doc.ID] = doc
	return doc, nil
}

func (r *Remote) Get(ctx context.Context, tenantID string, c record.Collection, id string) (*docsync.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[collectionKey{tenantID, c}][id]
	if !ok {
		return nil, docsync.ErrDocumentNotFound
	}
	return &doc, nil
}

func (r *Remote) Query(ctx context.Context, tenantID string, c record.Collection, q docsync.Query) ([]docsync.Document, error) {
	r.mu.Lock()
	all := r.snapshotLocked(collectionKey{tenantID, c})
	r.mu.Unlock()

	var out []docsync.Document
	for _, doc := range all {
		ok, err := matches(doc, q.Filters)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, doc)
		}
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

func (r *Remote) CompareAndSetStatus(ctx context.Context, tenantID string, c record.Collection, id string, expectedVersion int, status record.Status, reason string) (int, error) {
	key := collectionKey{tenantID, c}
	r.mu.Lock()
	doc, ok := r.docs[key][id]
	if !ok {
		r.mu.Unlock()
		return 0, docsync.ErrDocumentNotFound
	}
	if doc.Version != expectedVersion {
		r.mu.Unlock()
		return doc.Version, record.ErrVersionConflict
	}
	doc.Status, doc.Reason = status, reason
	doc.Version++
	doc.UpdatedAt = time.Now()
	r.docs[key][id] = doc
	r.mu.Unlock()

	r.notify(key)
	return doc.Version, nil
}

func (r *Remote) Ping(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pingErr
}

func (r *Remote) Subscribe(ctx context.Context, tenantID string, c record.Collection, sink func([]docsync.Document)) (docsync.Subscription, error) {
	key := collectionKey{tenantID, c}
	sub := &subscription{
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}

	r.mu.Lock()
	id := r.nextSub
	r.nextSub++
	if r.subs[key] == nil {
		r.subs[key] = make(map[int]*subscription)
	}
	r.subs[key][id] = sub
	r.mu.Unlock()

	sub.cancel = func() {
		r.mu.Lock()
		delete(r.subs[key], id)
		r.mu.Unlock()
	}
	sub.Refresh()

	go func() {
		defer sub.Cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case <-sub.done:
				return
			case <-sub.signal:
			}
			r.mu.Lock()
			docs := r.snapshotLocked(key)
			r.mu.Unlock()
			sink(docs)
		}
	}()
	return sub, nil
}

func (r *Remote) notify(key collectionKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sub := range r.subs[key] {
		sub.Refresh()
	}
}

func (r *Remote) snapshotLocked(key collectionKey) []docsync.Document {
	out := make([]docsync.Document, 0, len(r.docs[key]))
	for _, doc := range r.docs[key] {
		out = append(out, doc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type subscription struct {
	signal chan struct{}
	done   chan struct{}
	once   sync.Once
	cancel func()
}

func (s *subscription) Refresh() {
	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *subscription) Cancel() {
	s.once.Do(func() {
		close(s.done)
		s.cancel()
	})
}

func matches(doc docsync.Document, filters []docsync.Filter) (bool, error) {
	var fields map[string]any
	if len(filters) > 0 {
		rec := record.Record{Data: doc.Data}
		f, err := rec.Fields()
		if err != nil {
			return false, err
		}
		fields = f
	}
	for _, f := range filters {
		var got any
		if f.Field == "status" {
			got = string(doc.Status)
		} else {
			got = fields[f.Field]
		}
		ok, err := compare(got, f.Op, f.Value)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func compare(got any, op docsync.Op, want any) (bool, error) {
	c := order(fmt.Sprint(got), fmt.Sprint(want))
	switch op {
	case docsync.OpEq:
		return c == 0, nil
	case docsync.OpNe:
		return c != 0, nil
	case docsync.OpLt:
		return c < 0, nil
	case docsync.OpLte:
		return c <= 0, nil
	case docsync.OpGt:
		return c > 0, nil
	case docsync.OpGte:
		return c >= 0, nil
	}
	return false, fmt.Errorf("unsupported operator %q", op)
}

// order сравнивает как числа, если обе стороны числа, иначе как строки.
func order(a, b string) int {
	x, errX := strconv.ParseFloat(a, 64)
	y, errY := strconv.ParseFloat(b, 64)
	if errX == nil && errY == nil {
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	}
	return strings.Compare(a, b)
}
