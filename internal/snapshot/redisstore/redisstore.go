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

// Package redisstore externalizes fab.Snapshot values to Redis.
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/orbis-labs/fabcore/pkg/fab"
)

// Evaler abstracts the minimal surface needed from a Redis client, so tests
// can substitute a recording fake without a live server.
type Evaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error)
}

// GoRedisEvaler adapts *redis.Client to Evaler.
type GoRedisEvaler struct{ client *redis.Client }

// NewGoRedisEvaler dials (lazily; go-redis connects on first command) a
// client against addr, e.g. "127.0.0.1:6379".
func NewGoRedisEvaler(addr string) *GoRedisEvaler {
	return &GoRedisEvaler{client: redis.NewClient(&redis.Options{Addr: addr})}
}

func (g *GoRedisEvaler) Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error) {
	return g.client.Eval(ctx, script, keys, args...).Result()
}

// idempotentSet overwrites the latest-snapshot key only when no marker for
// this exact (session, tick) pair exists yet: SETNX creates the marker, and
// only on success is the latest key set (last write wins, with no tick
// comparison; the tick counter is monotonic per session). A retried
// externalization of the same tick therefore does nothing and does not
// re-trigger downstream key-space notification subscribers.
const idempotentSet = `
local latestKey = KEYS[1]
local markerKey = KEYS[2]
local payload = ARGV[1]
local ttlSeconds = tonumber(ARGV[2])

local set = redis.call('SETNX', markerKey, 1)
if set == 1 then
  redis.call('SET', latestKey, payload)
  if ttlSeconds and ttlSeconds > 0 then
    redis.call('EXPIRE', markerKey, ttlSeconds)
  end
  return 1
else
  return 0
end
`

// Store writes snapshots keyed by session id, deduplicated per tick.
type Store struct {
	client    Evaler
	markerTTL time.Duration
}

// New returns a Store. markerTTL bounds how long per-tick idempotency
// markers are retained; 0 defaults to 24h.
func New(client Evaler, markerTTL time.Duration) *Store {
	if markerTTL <= 0 {
		markerTTL = 24 * time.Hour
	}
	return &Store{client: client, markerTTL: markerTTL}
}

func latestKey(sessionID string) string { return fmt.Sprintf("fab:snapshot:%s", sessionID) }
func markerKey(sessionID string, tick int) string {
	return fmt.Sprintf("fab:snapshot-marker:%s:%d", sessionID, tick)
}

// PutSnapshot implements session.SnapshotStore.
func (s *Store) PutSnapshot(ctx context.Context, sessionID string, snap fab.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot for %s: %w", sessionID, err)
	}
	tick := snap.Diagnostics.Counters.Ticks
	keys := []string{latestKey(sessionID), markerKey(sessionID, tick)}
	args := []interface{}{string(payload), int(s.markerTTL.Seconds())}
	if _, err := s.client.Eval(ctx, idempotentSet, keys, args...); err != nil {
		return fmt.Errorf("redis eval session=%s tick=%d: %w", sessionID, tick, err)
	}
	return nil
}
