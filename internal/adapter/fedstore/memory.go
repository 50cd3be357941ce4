package fedstore

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/example/marketplace-service/internal/apub"
	"github.com/example/marketplace-service/internal/domain"
)

// MemoryStore — реализация Store в памяти. Используется в тестах и для
// локальной разработки без базы.
type MemoryStore struct {
	mu    sync.RWMutex
	colls map[apub.Kind]map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{colls: map[apub.Kind]map[string]Record{
		apub.KindActor:    {},
		apub.KindObject:   {},
		apub.KindActivity: {},
	}}
}

var _ Store = (*MemoryStore)(nil)

func (m *MemoryStore) Get(_ context.Context, kind apub.Kind, id string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.colls[kind][id]
	if !ok {
		return Record{}, domain.ErrNotFound
	}
	return rec, nil
}

func (m *MemoryStore) Put(_ context.Context, kind apub.Kind, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	if prev, ok := m.colls[kind][rec.ID]; ok {
		rec.CreatedAt = prev.CreatedAt
	} else {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	m.colls[kind][rec.ID] = rec
	return nil
}

func (m *MemoryStore) Find(_ context.Context, kind apub.Kind, q Query) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Record
	for _, rec := range m.colls[kind] {
		if q.Type != "" && rec.Type != q.Type {
			continue
		}
		if !matches(rec.Data, q) {
			continue
		}
		out = append(out, rec)
	}

	sort.Slice(out, func(i, j int) bool {
		return published(out[i].Data) > published(out[j].Data)
	})

	if q.Offset > 0 {
		if q.Offset >= len(out) {
			return nil, nil
		}
		out = out[q.Offset:]
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func matches(data []byte, q Query) bool {
	if len(q.Fields) == 0 && len(q.AnyOf) == 0 {
		return true
	}
	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		return false
	}
	for k, want := range q.Fields {
		if s, _ := body[k].(string); s != want {
			return false
		}
	}
	if len(q.AnyOf) > 0 {
		matched := false
		for k, want := range q.AnyOf {
			if s, _ := body[k].(string); s == want {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

func published(data []byte) string {
	var body struct {
		Published string `json:"published"`
	}
	_ = json.Unmarshal(data, &body)
	return body.Published
}
