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

package fab

import (
	"encoding/binary"
	"hash/fnv"
	"math/rand"
)

// sessionSeed computes a stable 64-bit seed from a session id. Cached once
// per FABCore at construction, per §4.1.
func sessionSeed(sessionID string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(sessionID))
	return h.Sum64()
}

// combineSeeds mixes a slice seed, a cached session seed, and a tick index
// into a single 64-bit seed. The mix is a sequential FNV-1a fold, which is
// stable across versions and platforms: the same three inputs always
// produce the same output (§4.1, I7).
func combineSeeds(zSeed string, sessionSeed uint64, tick int64) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(zSeed))
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], sessionSeed)
	_, _ = h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], uint64(tick))
	_, _ = h.Write(buf[:])
	return h.Sum64()
}

// newTickRNG constructs a deterministic RNG for a single fill call. The RNG
// is only used for tie-breaking among candidates that cannot otherwise be
// ordered; no selection set depends on it when scores are distinct (§4.1).
func newTickRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewSource(int64(seed)))
}
