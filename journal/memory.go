package journal

import (
	"sync"

	"github.com/tradepost-labs/tradepost/build"
)

// MemJournal is a memory journal, mostly used for testing.
type MemJournal struct {
	EventTypeRegistry

	entries map[string][]*Event
	closed  chan struct{}

	lk sync.Mutex
}

var _ Journal = (*MemJournal)(nil)

func NewMemoryJournal() *MemJournal {
	return &MemJournal{
		EventTypeRegistry: NewEventTypeRegistry(nil),

		entries: make(map[string][]*Event, 16),
		closed:  make(chan struct{}),
	}
}

// Entries returns the journaled entries for the provided system.
func (m *MemJournal) Entries(system string) []*Event {
	m.lk.Lock()
	defer m.lk.Unlock()

	entries := m.entries[system]
	cpy := make([]*Event, len(entries))
	copy(cpy, entries)
	return cpy
}

func (m *MemJournal) RecordEvent(evtType EventType, supplier func() interface{}) {
	if !evtType.Enabled() {
		return
	}

	select {
	case <-m.closed:
		return
	default:
	}

	entry := &Event{
		EventType: evtType,
		Timestamp: build.Clock.Now(),
		Data:      supplier(),
	}

	m.lk.Lock()
	defer m.lk.Unlock()

	m.entries[evtType.System] = append(m.entries[evtType.System], entry)
}

func (m *MemJournal) Close() error {
	m.lk.Lock()
	defer m.lk.Unlock()

	select {
	case <-m.closed:
	default:
		close(m.closed)
	}
	return nil
}
