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

func TestWindow_SelfSlotReservedTruncates(t *testing.T) {
	w := newWindow("stream", 4, PrecisionCold, true)
	nodes := []ZNode{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}}
	w.setNodes(nodes)
	if w.Size() != 3 {
		t.Fatalf("expected self-slot reservation to cap fill at cap-1=3, got %d", w.Size())
	}
}

func TestWindow_ScoreVariance_EmptyAndSingle(t *testing.T) {
	w := newWindow("stream", 4, PrecisionCold, false)
	if v := w.ScoreVariance(); v != 0.0 {
		t.Fatalf("empty window variance = %v, want 0.0", v)
	}
	w.setNodes([]ZNode{{ID: "a", Score: 0.5}})
	if v := w.ScoreVariance(); v != 0.0 {
		t.Fatalf("single-node window variance = %v, want 0.0", v)
	}
}

func TestWindow_ScoreVariance_NonZero(t *testing.T) {
	w := newWindow("stream", 4, PrecisionCold, false)
	w.setNodes([]ZNode{{ID: "a", Score: 0.1}, {ID: "b", Score: 0.9}})
	if v := w.ScoreVariance(); v <= 0 {
		t.Fatalf("expected non-zero variance for spread scores, got %v", v)
	}
}
