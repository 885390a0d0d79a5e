package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"conferencecentral/internal/domain"

	"github.com/google/uuid"
)

type storeID struct {
	kind string
	id   string
}

func idOf(k domain.Key) storeID {
	return storeID{kind: k.Kind, id: k.ID}
}

type entity struct {
	key     domain.Key
	version int64
	seq     uint64
	data    []byte
}

type entityStore struct {
	mu          sync.RWMutex
	entities    map[storeID]entity
	seq         uint64
	maxAttempts int
}

// NewEntityStore returns an in-process EntityStore. Transactions read a
// snapshot, buffer writes and validate versions at commit; a conflicting
// transaction is re-run up to maxAttempts times.
func NewEntityStore(maxAttempts int) domain.EntityStore {
	return &entityStore{
		entities:    make(map[storeID]entity),
		maxAttempts: maxAttempts,
	}
}

func (s *entityStore) lookup(key domain.Key) (entity, bool) {
	e, ok := s.entities[idOf(key)]
	if !ok || e.key != key {
		return entity{}, false
	}
	return e, true
}

func (s *entityStore) Get(ctx context.Context, key domain.Key, dst any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	e, ok := s.lookup(key)
	s.mu.RUnlock()
	if !ok {
		return domain.ErrNotFound
	}
	return json.Unmarshal(e.data, dst)
}

func (s *entityStore) GetMulti(ctx context.Context, keys []domain.Key) ([]domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Record, 0, len(keys))
	for _, k := range keys {
		if e, ok := s.lookup(k); ok {
			out = append(out, domain.Record{Key: e.key, Version: e.version, Data: e.data})
		}
	}
	return out, nil
}

func (s *entityStore) Put(ctx context.Context, key domain.Key, src any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key.Kind == "" || key.ID == "" {
		return domain.ErrInvalidKey
	}
	data, err := json.Marshal(src)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.write(key, data)
	return nil
}

// write stores data under key; callers hold s.mu.
func (s *entityStore) write(key domain.Key, data []byte) {
	id := idOf(key)
	e, ok := s.entities[id]
	if !ok {
		s.seq++
		e = entity{seq: s.seq}
	}
	e.key = key
	e.version++
	e.data = data
	s.entities[id] = e
}

func (s *entityStore) Delete(ctx context.Context, key domain.Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lookup(key); ok {
		delete(s.entities, idOf(key))
	}
	return nil
}

func (s *entityStore) AllocateID(_ context.Context, kind string, parent *domain.Key) (domain.Key, error) {
	if kind == "" {
		return domain.Key{}, fmt.Errorf("%w: kind is required", domain.ErrInvalidInput)
	}
	if parent != nil {
		return domain.NewChildKey(*parent, kind, uuid.NewString()), nil
	}
	return domain.NewKey(kind, uuid.NewString()), nil
}

func (s *entityStore) Query(ctx context.Context, q domain.Query) ([]domain.Record, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	matched := make([]entity, 0)
	for _, e := range s.entities {
		if e.key.Kind != q.Kind {
			continue
		}
		if q.Ancestor != nil && !e.key.IsChildOf(*q.Ancestor) {
			continue
		}
		matched = append(matched, e)
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].seq < matched[j].seq })
	recs := make([]domain.Record, 0, len(matched))
	for _, e := range matched {
		recs = append(recs, domain.Record{Key: e.key, Version: e.version, Data: e.data})
	}
	return q.ApplyInProcess(recs)
}

func (s *entityStore) RunInTransaction(ctx context.Context, fn func(ctx context.Context, tx domain.Tx) error) error {
	return domain.RetryOnTxConflict(ctx, s.maxAttempts, func(ctx context.Context) error {
		tx := &transaction{
			store:  s,
			reads:  make(map[storeID]int64),
			writes: make(map[storeID]pendingWrite),
		}
		if err := fn(ctx, tx); err != nil {
			return err
		}
		return s.commit(tx)
	})
}

func (s *entityStore) commit(tx *transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, version := range tx.reads {
		current := int64(0)
		if e, ok := s.entities[id]; ok {
			current = e.version
		}
		if current != version {
			return domain.ErrTxConflict
		}
	}
	for _, id := range tx.order {
		w := tx.writes[id]
		s.write(w.key, w.data)
	}
	return nil
}

type pendingWrite struct {
	key  domain.Key
	data []byte
}

// transaction records the version of every entity it observes (0 when
// absent) and buffers writes until commit.
type transaction struct {
	store  *entityStore
	reads  map[storeID]int64
	writes map[storeID]pendingWrite
	order  []storeID
}

func (tx *transaction) observe(key domain.Key) (entity, bool) {
	tx.store.mu.RLock()
	defer tx.store.mu.RUnlock()
	id := idOf(key)
	e, ok := tx.store.entities[id]
	if _, seen := tx.reads[id]; !seen {
		if ok {
			tx.reads[id] = e.version
		} else {
			tx.reads[id] = 0
		}
	}
	if !ok || e.key != key {
		return entity{}, false
	}
	return e, true
}

func (tx *transaction) Get(ctx context.Context, key domain.Key, dst any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if w, ok := tx.writes[idOf(key)]; ok && w.key == key {
		return json.Unmarshal(w.data, dst)
	}
	e, ok := tx.observe(key)
	if !ok {
		return domain.ErrNotFound
	}
	if e.version != tx.reads[idOf(key)] {
		return domain.ErrTxConflict
	}
	return json.Unmarshal(e.data, dst)
}

func (tx *transaction) Put(ctx context.Context, key domain.Key, src any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key.Kind == "" || key.ID == "" {
		return domain.ErrInvalidKey
	}
	data, err := json.Marshal(src)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	tx.observe(key)
	id := idOf(key)
	if _, ok := tx.writes[id]; !ok {
		tx.order = append(tx.order, id)
	}
	tx.writes[id] = pendingWrite{key: key, data: data}
	return nil
}
