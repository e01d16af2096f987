// Package recorder provides the in-memory decision log used by backtests and
// tests. The durable SQLite log lives under internal/adapters/sqlite.
package recorder

import (
	"context"
	"sync"

	"signalPilot/internal/domain"
)

// Memory is an append-only in-memory decision log.
type Memory struct {
	mu      sync.Mutex
	records []*domain.DecisionRecord
}

// NewMemory creates an empty in-memory decision log.
func NewMemory() *Memory {
	return &Memory{}
}

// Record appends one decision.
func (m *Memory) Record(_ context.Context, rec *domain.DecisionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *rec
	clone.Snapshot = rec.Snapshot.Clone()
	m.records = append(m.records, &clone)
	return nil
}

// Records returns all recorded decisions in append order.
func (m *Memory) Records() []*domain.DecisionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.DecisionRecord, len(m.records))
	copy(out, m.records)
	return out
}

// ByTransition filters recorded decisions by section.
func (m *Memory) ByTransition(section domain.Section) []*domain.DecisionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.DecisionRecord
	for _, rec := range m.records {
		if rec.Transition == section {
			out = append(out, rec)
		}
	}
	return out
}
