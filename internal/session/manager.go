// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package session

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/orbis-labs/fabcore/pkg/fab"
)

// managedCore wraps one FABCore with the bookkeeping a fleet manager needs
// but the pure core (§5, no I/O, no background goroutines) must never
// carry itself: last-access time for idle eviction, and the token claim
// currently held against the shared TokenPool so Release can hand it back
// exactly once.
type managedCore struct {
	core         *fab.FABCore
	lastAccessed int64 // UnixNano, updated on every GetOrCreate
	claimed      int64 // tokens currently reserved in the fleet TokenPool
}

// Manager hosts many independent FABCore instances, one per session, and
// arbitrates the fleet-wide token budget between them. It never mutates a
// FABCore's internal state directly; all tick operations still go through
// the core's own InitTick/Fill/Mix/Step.
type Manager struct {
	cores     sync.Map // session id -> *managedCore
	pool      *TokenPool
	newConfig func(sessionID string) fab.Config
}

// NewManager creates a fleet manager backed by a token pool of the given
// total capacity. newConfig customizes per-session FABCore construction
// (envelope mode, hysteresis tuning); pass nil to use fab.DefaultConfig
// with the session id filled in.
func NewManager(tokenCapacity int64, newConfig func(sessionID string) fab.Config) *Manager {
	if newConfig == nil {
		newConfig = func(sessionID string) fab.Config {
			cfg := fab.DefaultConfig()
			cfg.SessionID = sessionID
			return cfg
		}
	}
	return &Manager{pool: NewTokenPool(tokenCapacity), newConfig: newConfig}
}

// GetOrCreate returns the FABCore for sessionID, creating it on first use.
// The common case (session already hosted) performs no allocation.
func (m *Manager) GetOrCreate(sessionID string) *fab.FABCore {
	if actual, ok := m.cores.Load(sessionID); ok {
		mc := actual.(*managedCore)
		atomic.StoreInt64(&mc.lastAccessed, idleClock().UnixNano())
		return mc.core
	}

	now := idleClock().UnixNano()
	fresh := &managedCore{core: fab.New(m.newConfig(sessionID)), lastAccessed: now}
	if actual, loaded := m.cores.LoadOrStore(sessionID, fresh); loaded {
		mc := actual.(*managedCore)
		atomic.StoreInt64(&mc.lastAccessed, now)
		return mc.core
	}
	return fresh.core
}

// AdmitTick reserves n tokens from the fleet pool on behalf of sessionID's
// upcoming tick. It returns false if the fleet-wide budget cannot absorb
// the request, in which case the caller should skip init_tick for this
// tick rather than over-subscribe shared capacity.
func (m *Manager) AdmitTick(sessionID string, n int64) bool {
	actual, ok := m.cores.Load(sessionID)
	if !ok {
		return false
	}
	if !m.pool.TryReserve(n) {
		return false
	}
	mc := actual.(*managedCore)
	atomic.AddInt64(&mc.claimed, n)
	return true
}

// SettleTick releases a session's currently claimed tokens back to the
// fleet pool, called once mix()+step() for the tick have completed.
func (m *Manager) SettleTick(sessionID string) {
	actual, ok := m.cores.Load(sessionID)
	if !ok {
		return
	}
	mc := actual.(*managedCore)
	n := atomic.SwapInt64(&mc.claimed, 0)
	m.pool.Release(n)
}

// ForEach iterates every hosted session. f must not call GetOrCreate or
// Delete for the same manager; doing so from within Range is undefined per
// sync.Map's own contract.
func (m *Manager) ForEach(f func(sessionID string, core *fab.FABCore)) {
	m.cores.Range(func(key, value any) bool {
		mc := value.(*managedCore)
		f(key.(string), mc.core)
		return true
	})
}

// Delete evicts a session, releasing any tokens it still holds.
func (m *Manager) Delete(sessionID string) {
	if v, ok := m.cores.LoadAndDelete(sessionID); ok {
		mc := v.(*managedCore)
		m.pool.Release(atomic.SwapInt64(&mc.claimed, 0))
	}
}

// EvictIdle removes every session whose last tick activity is older than
// maxAge, releasing its claimed tokens. It returns the evicted session ids.
func (m *Manager) EvictIdle(maxAge time.Duration) []string {
	cutoff := idleClock().Add(-maxAge).UnixNano()
	var evicted []string
	m.cores.Range(func(key, value any) bool {
		mc := value.(*managedCore)
		if atomic.LoadInt64(&mc.lastAccessed) < cutoff {
			evicted = append(evicted, key.(string))
		}
		return true
	})
	for _, id := range evicted {
		m.Delete(id)
	}
	return evicted
}

// TokenPool exposes the fleet-wide pool for read-only inspection (e.g. by
// telemetry exporters).
func (m *Manager) TokenPool() *TokenPool { return m.pool }
