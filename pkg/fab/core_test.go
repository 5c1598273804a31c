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
	"fmt"
	"testing"
)

func nodesWithScores(n int, lo, hi float64) []ZNode {
	out := make([]ZNode, n)
	for i := 0; i < n; i++ {
		frac := float64(i) / float64(maxInt(1, n-1))
		out[i] = ZNode{ID: fmt.Sprintf("n%03d", i), Score: lo + frac*(hi-lo)}
	}
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func TestCore_RequiresInitTickBeforeFillMixStep(t *testing.T) {
	c := New(DefaultConfig())
	if err := c.Fill(ZSlice{}); err != ErrNotInitialized {
		t.Fatalf("Fill before InitTick: got %v, want ErrNotInitialized", err)
	}
	if _, err := c.Mix(); err != ErrNotInitialized {
		t.Fatalf("Mix before InitTick: got %v, want ErrNotInitialized", err)
	}
	if _, err := c.Step(Metrics{}); err != ErrNotInitialized {
		t.Fatalf("Step before InitTick: got %v, want ErrNotInitialized", err)
	}
}

func TestCore_InitTick_RejectsNonPositiveNodes(t *testing.T) {
	c := New(DefaultConfig())
	err := c.InitTick(FAB0, Budgets{Nodes: 0})
	var invalid *InvalidBudgetError
	if err == nil {
		t.Fatalf("expected InvalidBudgetError for nodes=0")
	}
	if _, ok := err.(*InvalidBudgetError); !ok {
		t.Fatalf("got %T, want *InvalidBudgetError", err)
	}
	_ = invalid
}

func TestCore_EmptySlice_YieldsEmptyWindows(t *testing.T) {
	c := New(DefaultConfig())
	if err := c.InitTick(FAB0, Budgets{Nodes: 32, Tokens: 4096}); err != nil {
		t.Fatal(err)
	}
	if err := c.Fill(ZSlice{Quotas: Budgets{Nodes: 32}, Seed: "s"}); err != nil {
		t.Fatalf("fill with empty slice should succeed: %v", err)
	}
	snap, err := c.Mix()
	if err != nil {
		t.Fatal(err)
	}
	if snap.GlobalSize != 0 || snap.StreamSize != 0 {
		t.Fatalf("expected empty windows, got global=%d stream=%d", snap.GlobalSize, snap.StreamSize)
	}
	if snap.Diagnostics.Derived.SelectedDiversity != 0.0 {
		t.Fatalf("expected selected_diversity=0.0 for empty stream, got %v", snap.Diagnostics.Derived.SelectedDiversity)
	}
}

func TestCore_InvalidSlice_LeavesStateUnchanged(t *testing.T) {
	c := New(DefaultConfig())
	if err := c.InitTick(FAB0, Budgets{Nodes: 32}); err != nil {
		t.Fatal(err)
	}
	good := ZSlice{Nodes: nodesWithScores(4, 0.8, 0.9), Quotas: Budgets{Nodes: 32}, Seed: "s"}
	if err := c.Fill(good); err != nil {
		t.Fatal(err)
	}
	snapBefore, _ := c.Mix()

	bad := ZSlice{Nodes: []ZNode{{ID: "dup", Score: 0.5}, {ID: "dup", Score: 0.6}}, Quotas: Budgets{Nodes: 32}, Seed: "s"}
	if err := c.Fill(bad); err == nil {
		t.Fatalf("expected InvalidSliceError for duplicate ids")
	}

	snapAfter, _ := c.Mix()
	if snapBefore.StreamSize != snapAfter.StreamSize {
		t.Fatalf("state changed after a rejected fill: before=%d after=%d", snapBefore.StreamSize, snapAfter.StreamSize)
	}
}

func TestCore_Invariants_WindowsDisjointAndWithinBudget(t *testing.T) {
	c := New(DefaultConfig())
	budgets := Budgets{Nodes: 40, Tokens: 4096}
	if err := c.InitTick(FAB0, budgets); err != nil {
		t.Fatal(err)
	}
	z := ZSlice{Nodes: nodesWithScores(100, 0.0, 1.0), Quotas: budgets, Seed: "seed-inv"}
	if err := c.Fill(z); err != nil {
		t.Fatal(err)
	}
	snap, _ := c.Mix()

	if snap.GlobalSize+snap.StreamSize > budgets.Nodes {
		t.Fatalf("I1 violated: global+stream=%d > budgets.nodes=%d", snap.GlobalSize+snap.StreamSize, budgets.Nodes)
	}
	if snap.StreamSize > MaxStreamNodes {
		t.Fatalf("I2 violated: stream size %d > 128", snap.StreamSize)
	}
	if snap.GlobalSize > MaxGlobalNodes {
		t.Fatalf("I2 violated: global size %d > 256", snap.GlobalSize)
	}
	if snap.GlobalPrecision != PrecisionCold {
		t.Fatalf("I4 violated: global precision = %v, want cold", snap.GlobalPrecision)
	}

	globalIDs := c.global.IDs()
	for _, n := range c.stream.Nodes {
		if _, dup := globalIDs[n.ID]; dup {
			t.Fatalf("I3 violated: node %q present in both windows", n.ID)
		}
	}
}

func TestCore_Determinism_AcrossBudgets(t *testing.T) {
	z := ZSlice{Nodes: nodesWithScores(100, 0.0, 1.0), Seed: "zs-1"}

	for _, nodes := range []int{8, 16, 32, 64} {
		budgets := Budgets{Nodes: nodes, Tokens: 4096}
		z.Quotas = budgets

		run := func() ([]string, float64) {
			c := New(Config{SessionID: "sid-1", EnvelopeMode: EnvelopeLegacy, Hysteresis: DefaultHysteresisConfig, HoldMs: 1500})
			if err := c.InitTick(FAB0, budgets); err != nil {
				t.Fatal(err)
			}
			if err := c.Fill(z); err != nil {
				t.Fatal(err)
			}
			snap, _ := c.Mix()
			ids := make([]string, len(c.stream.Nodes))
			for i, n := range c.stream.Nodes {
				ids[i] = n.ID
			}
			return ids, snap.Diagnostics.Derived.SelectedDiversity
		}

		ids1, div1 := run()
		ids2, div2 := run()

		if len(ids1) != len(ids2) {
			t.Fatalf("nodes=%d: stream size differs across runs: %d vs %d", nodes, len(ids1), len(ids2))
		}
		for i := range ids1 {
			if ids1[i] != ids2[i] {
				t.Fatalf("nodes=%d: stream id list differs at %d: %q vs %q", nodes, i, ids1[i], ids2[i])
			}
		}
		if div1 != div2 {
			t.Fatalf("nodes=%d: selected_diversity differs: %v vs %v", nodes, div1, div2)
		}
	}
}

func TestCore_Mix_IdempotentExceptMixesCounter(t *testing.T) {
	c := New(DefaultConfig())
	if err := c.InitTick(FAB0, Budgets{Nodes: 16}); err != nil {
		t.Fatal(err)
	}
	if err := c.Fill(ZSlice{Nodes: nodesWithScores(10, 0.5, 0.6), Quotas: Budgets{Nodes: 16}, Seed: "s"}); err != nil {
		t.Fatal(err)
	}

	s1, _ := c.Mix()
	s2, _ := c.Mix()

	s1.Diagnostics.Counters.Mixes = 0
	s2.Diagnostics.Counters.Mixes = 0
	if s1 != s2 {
		t.Fatalf("mix() is not idempotent modulo mixes counter: %+v vs %+v", s1, s2)
	}
}

func TestCore_FullTickCycle_S1Upgrade(t *testing.T) {
	c := New(Config{EnvelopeMode: EnvelopeHysteresis, Hysteresis: HysteresisConfig{DwellTime: 3, RateLimitTicks: 5, MinStreamForUpgrade: 8}})
	budgets := Budgets{Nodes: 32, Tokens: 4096}
	z := ZSlice{Nodes: nodesWithScores(32, 0.85, 0.95), Quotas: budgets, Seed: "s1"}

	var snap Snapshot
	for tick := 1; tick <= 10; tick++ {
		if err := c.InitTick(FAB0, budgets); err != nil {
			t.Fatal(err)
		}
		if err := c.Fill(z); err != nil {
			t.Fatal(err)
		}
		if _, err := c.Step(Metrics{}); err != nil {
			t.Fatal(err)
		}
		snap, _ = c.Mix()
		if tick <= 3 && snap.StreamPrecision != PrecisionCold {
			t.Fatalf("tick %d: precision=%v, want cold", tick, snap.StreamPrecision)
		}
		if tick >= 4 && snap.StreamPrecision != PrecisionHot {
			t.Fatalf("tick %d: precision=%v, want hot", tick, snap.StreamPrecision)
		}
	}
	if snap.Diagnostics.Counters.EnvelopeChanges != 1 {
		t.Fatalf("envelope_changes = %d, want 1", snap.Diagnostics.Counters.EnvelopeChanges)
	}
	if snap.Diagnostics.Derived.ChangesPer1k != 100.0 {
		t.Fatalf("changes_per_1k = %v, want 100.0", snap.Diagnostics.Derived.ChangesPer1k)
	}
}

// TestCore_FullTickCycle_S6Diversity reproduces scenario S6: two score
// clusters should both be represented in the stream window after MMR, and
// selected_diversity should be clearly non-zero.
func TestCore_FullTickCycle_S6Diversity(t *testing.T) {
	c := New(DefaultConfig())
	budgets := Budgets{Nodes: 16, Tokens: 4096}
	var nodes []ZNode
	for i := 0; i < 20; i++ {
		nodes = append(nodes, ZNode{ID: fmt.Sprintf("hi%02d", i), Score: 0.9, Vec: []float64{1, 0}})
	}
	for i := 0; i < 20; i++ {
		nodes = append(nodes, ZNode{ID: fmt.Sprintf("lo%02d", i), Score: 0.7, Vec: []float64{0, 1}})
	}
	z := ZSlice{Nodes: nodes, Quotas: budgets, Seed: "s6"}

	if err := c.InitTick(FAB0, budgets); err != nil {
		t.Fatal(err)
	}
	if err := c.Fill(z); err != nil {
		t.Fatal(err)
	}
	snap, _ := c.Mix()

	var hiCount, loCount int
	for _, n := range c.stream.Nodes {
		if n.Score > 0.8 {
			hiCount++
		} else {
			loCount++
		}
	}
	if hiCount < 3 || loCount < 3 {
		t.Fatalf("expected both clusters represented, got hi=%d lo=%d", hiCount, loCount)
	}
	if snap.Diagnostics.Derived.SelectedDiversity <= 0.001 {
		t.Fatalf("selected_diversity = %v, want > 0.001", snap.Diagnostics.Derived.SelectedDiversity)
	}
}
