package inbox

import (
	"container/list"
	"context"
	"sync"
)

// Memory is a bounded in-process Deduper. The oldest ids are forgotten first.
type Memory struct {
	mu    sync.Mutex
	limit int
	order *list.List
	ids   map[string]*list.Element
}

func NewMemory(limit int) *Memory {
	if limit <= 0 {
		limit = 10000
	}
	return &Memory{limit: limit, order: list.New(), ids: make(map[string]*list.Element, limit)}
}

func (m *Memory) Seen(_ context.Context, eventID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ids[eventID]; ok {
		return true, nil
	}
	m.ids[eventID] = m.order.PushBack(eventID)
	if m.order.Len() > m.limit {
		oldest := m.order.Front()
		m.order.Remove(oldest)
		delete(m.ids, oldest.Value.(string))
	}
	return false, nil
}

var _ Deduper = (*Memory)(nil)
