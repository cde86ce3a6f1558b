package db

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"site-ingest/pkg/domain"
)

// MemoryStore keeps records and events in process memory. It backs the
// "memory" store backend and the tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]domain.ContentRecord
	byKey   map[domain.IdentityKey][]string
	order   []string
	events  []domain.ChangeEvent
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]domain.ContentRecord),
		byKey:   make(map[domain.IdentityKey][]string),
	}
}

func (m *MemoryStore) FindByKey(_ context.Context, key domain.IdentityKey) (*domain.ContentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := m.byKey[key]
	switch len(ids) {
	case 0:
		return nil, nil
	case 1:
		rec := cloneRecord(m.records[ids[0]])
		return &rec, nil
	default:
		return nil, errors.Wrapf(ErrDuplicateIdentity, "%d records for %s", len(ids), key)
	}
}

func (m *MemoryStore) Insert(_ context.Context, record domain.ContentRecord) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := record.Key()
	if len(m.byKey[key]) > 0 {
		return "", errors.Wrapf(ErrDuplicateIdentity, "insert %s", key)
	}
	m.put(record)
	return m.order[len(m.order)-1], nil
}

// Seed stores records without the uniqueness check, for setting up fixtures,
// including ones that violate the identity invariant. Records without an id get one.
func (m *MemoryStore) Seed(records ...domain.ContentRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		m.put(r)
	}
}

func (m *MemoryStore) put(record domain.ContentRecord) {
	rec := cloneRecord(record)
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	m.records[rec.ID] = rec
	m.byKey[rec.Key()] = append(m.byKey[rec.Key()], rec.ID)
	m.order = append(m.order, rec.ID)
}

func (m *MemoryStore) Update(_ context.Context, id string, fields domain.ContentUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return errors.Wrapf(ErrNotFound, "update %s", id)
	}
	rec.Content = fields.Content
	rec.Metadata = cloneMetadata(fields.Metadata)
	rec.LastScrapedAt = fields.LastScrapedAt
	m.records[id] = rec
	return nil
}

func (m *MemoryStore) LogChange(_ context.Context, event domain.ChangeEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	m.events = append(m.events, event)
	return nil
}

func (m *MemoryStore) Recent(_ context.Context, limit int) ([]domain.ContentRecord, error) {
	all := m.Records()
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].LastScrapedAt.After(all[j].LastScrapedAt)
	})
	if limit >= 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (m *MemoryStore) EnsureSchema(context.Context) error { return nil }

// Records returns every stored record in insertion order.
func (m *MemoryStore) Records() []domain.ContentRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.ContentRecord, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, cloneRecord(m.records[id]))
	}
	return out
}

// Events returns the change log in append order.
func (m *MemoryStore) Events() []domain.ChangeEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.ChangeEvent, len(m.events))
	copy(out, m.events)
	return out
}

func cloneRecord(r domain.ContentRecord) domain.ContentRecord {
	r.Metadata = cloneMetadata(r.Metadata)
	return r
}

func cloneMetadata(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
