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

// Package snapshot provides externalization adapters for fab.Snapshot, one
// per backend (Redis, Postgres, Kafka). Every adapter satisfies
// session.SnapshotStore. The Redis and Postgres adapters treat a
// re-delivered snapshot for the same (session, tick) pair as a no-op; the
// Kafka adapter publishes every snapshot and leaves deduplication to its
// consumers.
package snapshot

import "time"

// Entry is the adapter-facing, backend-agnostic shape of one externalized
// snapshot write.
//
// Fields:
//   - SessionID: the FABCore session the snapshot belongs to.
//   - Tick: the diagnostics tick counter at capture time, used as the
//     idempotency key: a retried write for the same (SessionID, Tick) must
//     not double-apply.
//   - Mode, GlobalPrecision, StreamPrecision, GlobalSize, StreamSize: the
//     externalized fields of fab.Snapshot worth indexing on without
//     deserializing the full payload.
//   - Payload: the JSON-encoded fab.Snapshot, stored verbatim for replay.
//   - CapturedAt: wall-clock time the snapshot was taken.
type Entry struct {
	SessionID       string
	Tick            int64
	Mode            string
	GlobalPrecision string
	StreamPrecision string
	GlobalSize      int
	StreamSize      int
	Payload         []byte
	CapturedAt      time.Time
}
