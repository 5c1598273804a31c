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

	"github.com/dgryski/go-rendezvous"
)

// ShardRouter assigns a session id to one of a fixed set of shard names
// using rendezvous (highest random weight) hashing, so that adding or
// removing a shard remaps only the sessions owned by the changed shard
// rather than reshuffling the whole fleet.
type ShardRouter struct {
	mu     sync.RWMutex
	shards []string
	rdv    *rendezvous.Rendezvous
}

// NewShardRouter builds a router over the given shard names. Each name
// typically addresses one fabd process or one Manager instance.
func NewShardRouter(shards []string) *ShardRouter {
	cp := append([]string(nil), shards...)
	return &ShardRouter{shards: cp, rdv: rendezvous.New(cp, hashString)}
}

func hashString(s string) uint64 {
	var h uint64 = 14695981039346656037
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= 1099511628211
	}
	return h
}

// ShardFor returns the shard owning sessionID.
func (r *ShardRouter) ShardFor(sessionID string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rdv.Lookup(sessionID)
}

// AddShard grows the ring, remapping only the keys rendezvous hashing
// assigns to the new shard.
func (r *ShardRouter) AddShard(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shards = append(r.shards, name)
	r.rdv = rendezvous.New(r.shards, hashString)
}

// RemoveShard shrinks the ring, remapping the keys that had been owned by
// the removed shard onto the remaining ones.
func (r *ShardRouter) RemoveShard(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.shards[:0:0]
	for _, s := range r.shards {
		if s != name {
			out = append(out, s)
		}
	}
	r.shards = out
	r.rdv = rendezvous.New(r.shards, hashString)
}

// Shards returns the current shard set.
func (r *ShardRouter) Shards() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.shards...)
}
