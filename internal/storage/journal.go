package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"aura_go/internal/event"
)

// Journal assigns global sequence numbers, persists events WAL-first relative
// to durability, and fans them out to subscribers (the event feed). All
// engines share one Journal so the event log is totally ordered.
//
// A nil-store Journal is valid: sequencing and fan-out still work, nothing is
// persisted. Tests and the scenario runner use that mode.
type Journal struct {
	store *EventStore
	seq   uint64

	mu    sync.RWMutex
	sinks []func(event.Event)
}

// NewJournal creates a journal continuing after startSeq (0 for a fresh log).
func NewJournal(store *EventStore, startSeq uint64) *Journal {
	return &Journal{store: store, seq: startSeq}
}

// Subscribe registers a sink invoked for every appended event. Sinks must not
// block; slow consumers are the sink's problem, not the settlement path's.
func (j *Journal) Subscribe(fn func(event.Event)) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.sinks = append(j.sinks, fn)
}

// LastSeq returns the last assigned sequence number.
func (j *Journal) LastSeq() uint64 {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.seq
}

// Append stamps the event built by build with the next sequence number and
// timestamp, persists it, and fans it out. Engines call this only after an
// operation has fully validated and applied; a persistence failure at that
// point means the journal can no longer mirror reality, so it halts the
// process rather than continue on a diverged log.
func (j *Journal) Append(ctx context.Context, now time.Time, build func(event.BaseEvent) event.Event) event.Event {
	j.mu.Lock()
	j.seq++
	base := event.BaseEvent{Seq: j.seq, Ts: now.UnixMicro()}
	ev := build(base)

	if j.store != nil {
		if err := j.store.SaveEvent(ctx, ev); err != nil {
			j.mu.Unlock()
			panic(fmt.Sprintf("PERSISTENCE_FAILURE: %v", err))
		}
	}
	sinks := j.sinks
	j.mu.Unlock()

	for _, fn := range sinks {
		fn(ev)
	}
	return ev
}
