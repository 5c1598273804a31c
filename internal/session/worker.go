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
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/orbis-labs/fabcore/internal/telemetry/fabmetrics"
	"github.com/orbis-labs/fabcore/pkg/fab"
)

// SnapshotStore externalizes a session's diagnostics snapshot, e.g. to
// Redis, Postgres, or a Kafka topic. Implementations live under
// internal/snapshot.
type SnapshotStore interface {
	PutSnapshot(ctx context.Context, sessionID string, snap fab.Snapshot) error
}

// SnapshotWorker periodically calls mix() on every session hosted by a
// Manager and forwards the resulting snapshot to a SnapshotStore, and
// separately sweeps for sessions idle longer than evictionAge.
type SnapshotWorker struct {
	manager          *Manager
	store            SnapshotStore
	snapshotInterval time.Duration
	evictionAge      time.Duration
	evictionInterval time.Duration
	logger           *slog.Logger

	stopCh  chan struct{}
	wg      sync.WaitGroup
	stopped uint32
}

// NewSnapshotWorker configures a worker. store may be nil, in which case
// snapshots are taken (keeping the core's own diagnostics counters moving)
// but not externalized.
func NewSnapshotWorker(manager *Manager, store SnapshotStore, snapshotInterval, evictionAge, evictionInterval time.Duration, logger *slog.Logger) *SnapshotWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotWorker{
		manager:          manager,
		store:            store,
		snapshotInterval: snapshotInterval,
		evictionAge:      evictionAge,
		evictionInterval: evictionInterval,
		logger:           logger,
		stopCh:           make(chan struct{}),
	}
}

// Start launches the background snapshot and eviction loops.
func (w *SnapshotWorker) Start() {
	w.logger.Info("starting fab session worker")
	w.wg.Add(2)
	go func() {
		defer w.wg.Done()
		w.snapshotLoop()
	}()
	go func() {
		defer w.wg.Done()
		w.evictionLoop()
	}()
}

// Stop gracefully stops the worker, waiting for in-flight cycles to drain.
func (w *SnapshotWorker) Stop() {
	if !atomic.CompareAndSwapUint32(&w.stopped, 0, 1) {
		return
	}
	w.logger.Info("stopping fab session worker")
	close(w.stopCh)
	w.wg.Wait()
}

func (w *SnapshotWorker) snapshotLoop() {
	ticker := time.NewTicker(w.snapshotInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			w.runSnapshotCycle()
		case <-w.stopCh:
			w.runSnapshotCycle()
			return
		}
	}
}

func (w *SnapshotWorker) runSnapshotCycle() {
	fabmetrics.ObserveFleetAvailableTokens(w.manager.TokenPool().Available())

	var failures int
	w.manager.ForEach(func(sessionID string, core *fab.FABCore) {
		snap, err := core.Mix()
		if err != nil {
			// Sessions that have not had InitTick are not mix-able;
			// skip rather than treat as a failure.
			return
		}
		fabmetrics.Observe(sessionID, snap)
		if w.store == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), w.snapshotInterval)
		if err := w.store.PutSnapshot(ctx, sessionID, snap); err != nil {
			failures++
			w.logger.Warn("snapshot externalization failed", "session", sessionID, "error", err)
		}
		cancel()
	})
	if failures > 0 {
		w.logger.Warn("snapshot cycle completed with failures", "failures", failures)
	}
}

func (w *SnapshotWorker) evictionLoop() {
	ticker := time.NewTicker(w.evictionInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			evicted := w.manager.EvictIdle(w.evictionAge)
			for _, id := range evicted {
				fabmetrics.DeleteSession(id)
			}
			if len(evicted) > 0 {
				w.logger.Info("evicted idle sessions", "count", len(evicted))
			}
		case <-w.stopCh:
			return
		}
	}
}
