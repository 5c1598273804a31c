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

import "testing"

func slice(nodes ...ZNode) ZSlice {
	return ZSlice{
		Nodes:  nodes,
		Quotas: Budgets{Tokens: 4096, Nodes: 256, Edges: 0, TimeMs: 30},
		Seed:   "seed",
		ZV:     "v1",
	}
}

func TestValidateSlice_DuplicateID(t *testing.T) {
	z := slice(ZNode{ID: "a", Score: 0.1}, ZNode{ID: "a", Score: 0.2})
	ok, reason := ValidateSlice(z)
	if ok || reason == "" {
		t.Fatalf("expected duplicate id to be rejected, got ok=%v reason=%q", ok, reason)
	}
}

func TestValidateSlice_ScoreOutOfRange(t *testing.T) {
	z := slice(ZNode{ID: "a", Score: 1.5})
	if ok, _ := ValidateSlice(z); ok {
		t.Fatalf("expected out-of-range score to be rejected")
	}
}

func TestValidateSlice_EdgeUnknownNode(t *testing.T) {
	z := slice(ZNode{ID: "a", Score: 0.5})
	z.Edges = []ZEdge{{Src: "a", Dst: "ghost", Weight: 0.5}}
	if ok, _ := ValidateSlice(z); ok {
		t.Fatalf("expected edge referencing unknown node to be rejected")
	}
}

func TestValidateSlice_Empty(t *testing.T) {
	z := slice()
	if ok, reason := ValidateSlice(z); !ok {
		t.Fatalf("expected empty slice to validate, got reason %q", reason)
	}
}

func TestSelectTopKForStream_TieBreakByID(t *testing.T) {
	z := slice(
		ZNode{ID: "b", Score: 0.5},
		ZNode{ID: "a", Score: 0.5},
		ZNode{ID: "c", Score: 0.5},
	)
	ids, _ := SelectTopKForStream(z, 2, nil)
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Fatalf("expected deterministic id tie-break [a b], got %v", ids)
	}
}

func TestSelectTopKForStream_KGreaterThanCandidates(t *testing.T) {
	z := slice(ZNode{ID: "a", Score: 0.5}, ZNode{ID: "b", Score: 0.1})
	ids, _ := SelectTopKForStream(z, 10, nil)
	if len(ids) != 2 {
		t.Fatalf("expected all candidates returned when k > n, got %v", ids)
	}
}

func TestSelectTopKForGlobal_ExcludesStream(t *testing.T) {
	z := slice(ZNode{ID: "a", Score: 0.9}, ZNode{ID: "b", Score: 0.5}, ZNode{ID: "c", Score: 0.1})
	exclude := map[string]struct{}{"a": {}}
	ids := SelectTopKForGlobal(z, 10, exclude, nil)
	for _, id := range ids {
		if id == "a" {
			t.Fatalf("excluded id %q leaked into global selection: %v", id, ids)
		}
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 remaining ids, got %v", ids)
	}
}
