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

// Package pgstore externalizes fab.Snapshot values to Postgres.
//
// Reference schema:
//
//	CREATE TABLE IF NOT EXISTS fab_snapshots (
//	  session_id        TEXT NOT NULL,
//	  tick              BIGINT NOT NULL,
//	  mode              TEXT NOT NULL,
//	  global_precision  TEXT NOT NULL,
//	  stream_precision  TEXT NOT NULL,
//	  global_size       INT NOT NULL,
//	  stream_size       INT NOT NULL,
//	  payload           JSONB NOT NULL,
//	  captured_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
//	  PRIMARY KEY (session_id, tick)
//	);
package pgstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/orbis-labs/fabcore/pkg/fab"
)

// Execer abstracts the minimal pgx surface needed to write a snapshot row.
// *pgxpool.Pool satisfies this directly, so production code passes a real
// pool while tests substitute a recording fake.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// Store writes snapshots to a `fab_snapshots` table, keyed by
// (session_id, tick) so a retried write for the same tick is a no-op.
type Store struct {
	pool           Execer
	defaultTimeout time.Duration
}

// New wraps an existing pgx connection pool (or any Execer).
func New(pool Execer) *Store {
	return &Store{pool: pool, defaultTimeout: 10 * time.Second}
}

// PutSnapshot implements session.SnapshotStore.
func (s *Store) PutSnapshot(ctx context.Context, sessionID string, snap fab.Snapshot) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); !ok && s.defaultTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.defaultTimeout)
		defer cancel()
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot for %s: %w", sessionID, err)
	}

	const stmt = `
INSERT INTO fab_snapshots (session_id, tick, mode, global_precision, stream_precision, global_size, stream_size, payload)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (session_id, tick) DO NOTHING
`
	_, err = s.pool.Exec(ctx, stmt,
		sessionID,
		snap.Diagnostics.Counters.Ticks,
		snap.Mode.String(),
		string(snap.GlobalPrecision),
		string(snap.StreamPrecision),
		snap.GlobalSize,
		snap.StreamSize,
		payload,
	)
	if err != nil {
		return fmt.Errorf("insert fab_snapshots session=%s tick=%d: %w", sessionID, snap.Diagnostics.Counters.Ticks, err)
	}
	return nil
}
