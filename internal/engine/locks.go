package engine

import (
	"fmt"
	"sync"
	"time"

	"signalPilot/internal/ports"
)

// SymbolLock describes who holds a symbol and since when.
type SymbolLock struct {
	HeldBy     string
	AcquiredAt time.Time
}

// LockManager grants at most one strategy exclusive control of a symbol while
// a signal/position lifecycle is in progress. Acquisition is an atomic
// compare-and-set: it succeeds only when no lock exists.
type LockManager struct {
	mu    sync.Mutex
	locks map[string]SymbolLock
	clock ports.Clock
}

// NewLockManager creates an empty lock manager.
func NewLockManager(clk ports.Clock) *LockManager {
	return &LockManager{
		locks: make(map[string]SymbolLock),
		clock: clk,
	}
}

// TryAcquire attempts to take the symbol for the strategy. It returns false
// when any strategy, including the caller, already holds the lock.
func (m *LockManager) TryAcquire(symbol, strategyID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, held := m.locks[symbol]; held {
		return false
	}
	m.locks[symbol] = SymbolLock{HeldBy: strategyID, AcquiredAt: m.clock.Now()}
	return true
}

// Release frees the symbol. The caller must be the current holder.
func (m *LockManager) Release(symbol, strategyID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, held := m.locks[symbol]
	if !held || lock.HeldBy != strategyID {
		return fmt.Errorf("%w: symbol %s, strategy %s", ports.ErrLockNotHeld, symbol, strategyID)
	}
	delete(m.locks, symbol)
	return nil
}

// HolderOf returns the strategy currently holding the symbol, if any.
func (m *LockManager) HolderOf(symbol string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, held := m.locks[symbol]
	return lock.HeldBy, held
}
