package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"
)

// Memory is an in-process Store used by tests. Documents are held as JSON so
// decoding behaves like the remote store: what comes back is what was
// serialized, not a shared pointer. Transactions are serialized on a single
// mutex, which makes the transactional join paths behave like their
// server-side counterparts under concurrent calls.
type Memory struct {
	mu      sync.Mutex
	txMu    sync.Mutex
	docs    map[string][]byte
	subs    map[int]*memSub
	nextSub int
}

type memSub struct {
	q        Query
	onChange func([]Doc)
}

func NewMemory() *Memory {
	return &Memory{
		docs: make(map[string][]byte),
		subs: make(map[int]*memSub),
	}
}

func (m *Memory) Get(_ context.Context, path string, out any) (bool, error) {
	m.mu.Lock()
	raw, ok := m.docs[path]
	m.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return true, nil
}

func (m *Memory) Set(_ context.Context, path string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	m.mu.Lock()
	m.docs[path] = raw
	notify := m.pendingNotifications(collectionOf(path))
	m.mu.Unlock()
	runNotifications(notify)
	return nil
}

func (m *Memory) Update(_ context.Context, path string, fields map[string]any) error {
	m.mu.Lock()
	err := m.applyUpdate(path, fields)
	var notify []func()
	if err == nil {
		notify = m.pendingNotifications(collectionOf(path))
	}
	m.mu.Unlock()
	runNotifications(notify)
	return err
}

func (m *Memory) Delete(_ context.Context, path string) error {
	m.mu.Lock()
	delete(m.docs, path)
	notify := m.pendingNotifications(collectionOf(path))
	m.mu.Unlock()
	runNotifications(notify)
	return nil
}

// Batch applies all ops or none. Updates are validated against existing
// documents before anything is written.
func (m *Memory) Batch(_ context.Context, ops []WriteOp) error {
	m.mu.Lock()
	for _, op := range ops {
		if op.Fields != nil && !op.Delete {
			if _, ok := m.docs[op.Path]; !ok {
				m.mu.Unlock()
				return fmt.Errorf("batch update %s: %w", op.Path, ErrNotFound)
			}
		}
	}
	collections := make(map[string]bool)
	for _, op := range ops {
		collections[collectionOf(op.Path)] = true
		switch {
		case op.Delete:
			delete(m.docs, op.Path)
		case op.Fields != nil:
			if err := m.applyUpdate(op.Path, op.Fields); err != nil {
				m.mu.Unlock()
				return err
			}
		default:
			raw, err := json.Marshal(op.Value)
			if err != nil {
				m.mu.Unlock()
				return fmt.Errorf("batch set %s: %w", op.Path, err)
			}
			m.docs[op.Path] = raw
		}
	}
	var notify []func()
	for col := range collections {
		notify = append(notify, m.pendingNotifications(col)...)
	}
	m.mu.Unlock()
	runNotifications(notify)
	return nil
}

func (m *Memory) Query(_ context.Context, q Query) ([]Doc, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runQuery(q), nil
}

// Subscribe registers a listener and delivers the current result set
// immediately, matching the remote store's initial snapshot behavior.
func (m *Memory) Subscribe(_ context.Context, q Query, onChange func(docs []Doc)) (func(), error) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = &memSub{q: q, onChange: onChange}
	initial := m.runQuery(q)
	m.mu.Unlock()

	onChange(initial)
	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}, nil
}

// RunTransaction serializes all transactions on one mutex: reads inside the
// callback observe committed state, writes buffer until the callback returns
// without error.
func (m *Memory) RunTransaction(_ context.Context, fn func(tx Tx) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	tx := &memoryTx{store: m, staged: make(map[string]*[]byte)}
	if err := fn(tx); err != nil {
		return err
	}

	m.mu.Lock()
	collections := make(map[string]bool)
	for path, raw := range tx.staged {
		collections[collectionOf(path)] = true
		if raw == nil {
			delete(m.docs, path)
		} else {
			m.docs[path] = *raw
		}
	}
	var notify []func()
	for col := range collections {
		notify = append(notify, m.pendingNotifications(col)...)
	}
	m.mu.Unlock()
	runNotifications(notify)
	return nil
}

type memoryTx struct {
	store  *Memory
	staged map[string]*[]byte // nil entry means delete
}

func (t *memoryTx) Get(path string, out any) (bool, error) {
	if raw, ok := t.staged[path]; ok {
		if raw == nil {
			return false, nil
		}
		return true, json.Unmarshal(*raw, out)
	}
	return t.store.Get(context.Background(), path, out)
}

func (t *memoryTx) Docs(q Query) ([]Doc, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	return t.store.runQuery(q), nil
}

func (t *memoryTx) Set(path string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("tx set %s: %w", path, err)
	}
	t.staged[path] = &raw
	return nil
}

func (t *memoryTx) Update(path string, fields map[string]any) error {
	var current map[string]any
	found, err := t.Get(path, &current)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("tx update %s: %w", path, ErrNotFound)
	}
	applyFields(current, fields)
	raw, err := json.Marshal(current)
	if err != nil {
		return fmt.Errorf("tx update %s: %w", path, err)
	}
	t.staged[path] = &raw
	return nil
}

func (t *memoryTx) Delete(path string) error {
	t.staged[path] = nil
	return nil
}

// callers must hold m.mu
func (m *Memory) applyUpdate(path string, fields map[string]any) error {
	raw, ok := m.docs[path]
	if !ok {
		return fmt.Errorf("update %s: %w", path, ErrNotFound)
	}
	var current map[string]any
	if err := json.Unmarshal(raw, &current); err != nil {
		return fmt.Errorf("update %s: %w", path, err)
	}
	applyFields(current, fields)
	updated, err := json.Marshal(current)
	if err != nil {
		return fmt.Errorf("update %s: %w", path, err)
	}
	m.docs[path] = updated
	return nil
}

func applyFields(doc map[string]any, fields map[string]any) {
	for k, v := range fields {
		switch sv := v.(type) {
		case arrayUnionValue:
			existing, _ := doc[k].([]any)
			for _, add := range sv.Values {
				norm := normalize(add)
				present := false
				for _, e := range existing {
					if reflect.DeepEqual(e, norm) {
						present = true
						break
					}
				}
				if !present {
					existing = append(existing, norm)
				}
			}
			doc[k] = existing
		case incrementValue:
			n, _ := doc[k].(float64)
			doc[k] = n + float64(sv.N)
		case serverTimestampValue:
			doc[k] = time.Now().UTC().Format(time.RFC3339Nano)
		default:
			doc[k] = normalize(v)
		}
	}
}

// normalize round-trips a value through JSON so stored and compared values
// share one representation.
func normalize(v any) any {
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return v
	}
	return out
}

// callers must hold m.mu
func (m *Memory) runQuery(q Query) []Doc {
	type row struct {
		id   string
		raw  []byte
		data map[string]any
	}
	var rows []row
	for path, raw := range m.docs {
		if collectionOf(path) != q.Collection {
			continue
		}
		var data map[string]any
		if err := json.Unmarshal(raw, &data); err != nil {
			continue
		}
		if !matches(data, q.Filters) {
			continue
		}
		rows = append(rows, row{id: docIDOf(path), raw: raw, data: data})
	}

	if q.OrderBy != "" {
		sort.SliceStable(rows, func(i, j int) bool {
			c := compareValues(rows[i].data[q.OrderBy], rows[j].data[q.OrderBy])
			if q.Desc {
				return c > 0
			}
			return c < 0
		})
	} else {
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].id < rows[j].id })
	}
	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}

	docs := make([]Doc, 0, len(rows))
	for _, r := range rows {
		raw := append([]byte(nil), r.raw...)
		docs = append(docs, Doc{ID: r.id, decode: func(out any) error {
			return json.Unmarshal(raw, out)
		}})
	}
	return docs
}

func matches(data map[string]any, filters []Filter) bool {
	for _, f := range filters {
		got := data[f.Field]
		switch f.Op {
		case "==":
			if compareValues(got, f.Value) != 0 {
				return false
			}
		case "!=":
			if compareValues(got, f.Value) == 0 {
				return false
			}
		case "<":
			if compareValues(got, f.Value) >= 0 {
				return false
			}
		case "<=":
			if compareValues(got, f.Value) > 0 {
				return false
			}
		case ">":
			if compareValues(got, f.Value) <= 0 {
				return false
			}
		case ">=":
			if compareValues(got, f.Value) < 0 {
				return false
			}
		case "array-contains":
			arr, ok := got.([]any)
			if !ok {
				return false
			}
			found := false
			for _, e := range arr {
				if compareValues(e, f.Value) == 0 {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func compareValues(a, b any) int {
	// time comparisons: either side may be a time.Time while the stored side
	// is its RFC3339 JSON form
	if at, bt, ok := asTimes(a, b); ok {
		switch {
		case at.Before(bt):
			return -1
		case at.After(bt):
			return 1
		default:
			return 0
		}
	}
	if af, ok := asFloat(a); ok {
		if bf, ok := asFloat(b); ok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
	}
	as := fmt.Sprintf("%v", normalize(a))
	bs := fmt.Sprintf("%v", normalize(b))
	return strings.Compare(as, bs)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func asTimes(a, b any) (time.Time, time.Time, bool) {
	at, aok := asTime(a)
	bt, bok := asTime(b)
	if (aok && bok) && (isTime(a) || isTime(b)) {
		return at, bt, true
	}
	return time.Time{}, time.Time{}, false
}

func isTime(v any) bool {
	switch v.(type) {
	case time.Time, *time.Time:
		return true
	}
	return false
}

func asTime(v any) (time.Time, bool) {
	switch tv := v.(type) {
	case time.Time:
		return tv, true
	case *time.Time:
		if tv == nil {
			return time.Time{}, false
		}
		return *tv, true
	case string:
		if t, err := time.Parse(time.RFC3339Nano, tv); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// callers must hold m.mu
func (m *Memory) pendingNotifications(collection string) []func() {
	var notify []func()
	for _, sub := range m.subs {
		if sub.q.Collection != collection {
			continue
		}
		docs := m.runQuery(sub.q)
		cb := sub.onChange
		notify = append(notify, func() { cb(docs) })
	}
	return notify
}

func runNotifications(notify []func()) {
	for _, fn := range notify {
		fn()
	}
}

func collectionOf(path string) string {
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return ""
	}
	return path[:i]
}

func docIDOf(path string) string {
	i := strings.LastIndex(path, "/")
	return path[i+1:]
}
