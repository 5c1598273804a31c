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

// Counters are plain, monotonically advancing event counts. No atomics are
// used: a FABCore is single-threaded per instance (§5, §9).
type Counters struct {
	Ticks            int
	Fills            int
	Mixes            int
	EnvelopeChanges  int
	ModeTransitions  int
	RebalanceEvents  int
}

// Gauges are point-in-time values as of the last mix().
type Gauges struct {
	Mode            FabMode
	GlobalPrecision Precision
	StreamPrecision Precision
	StableTicks     int
	StreamSize      int
	GlobalSize      int
}

// Derived metrics are computed fresh at every mix() call from the current
// counters, gauges, and the last rebalance outcome.
type Derived struct {
	ChangesPer1k      float64
	SelectedDiversity float64
	MMRNodesPenalized int
	MMRAvgPenalty     float64
	MMRMaxSimilarity  float64
}

// DiagnosticsSnapshot is the stable-shape value embedded in Snapshot.
type DiagnosticsSnapshot struct {
	Counters Counters
	Gauges   Gauges
	Derived  Derived
}

// diagnostics accumulates the counters and the most recent rebalance
// outcome across the lifetime of a FABCore instance.
type diagnostics struct {
	counters    Counters
	lastMMR     MMRStats
	mmrEverRun  bool
}

func newDiagnostics() *diagnostics {
	return &diagnostics{}
}

func (d *diagnostics) recordTick()           { d.counters.Ticks++ }
func (d *diagnostics) recordFill()           { d.counters.Fills++ }
func (d *diagnostics) recordMix()            { d.counters.Mixes++ }
func (d *diagnostics) recordEnvelopeChange() { d.counters.EnvelopeChanges++ }
func (d *diagnostics) recordModeTransition() { d.counters.ModeTransitions++ }

func (d *diagnostics) recordRebalance(r rebalanceResult) {
	if !r.applied {
		return
	}
	d.counters.RebalanceEvents++
	d.lastMMR = r.stats
	d.mmrEverRun = true
}

// snapshot computes the full DiagnosticsSnapshot from current state, the
// current mode/windows, and the last recorded rebalance outcome.
func (d *diagnostics) snapshot(mode FabMode, stableTicks int, global, stream *Window) DiagnosticsSnapshot {
	gauges := Gauges{
		Mode:            mode,
		GlobalPrecision: global.Precision,
		StreamPrecision: stream.Precision,
		StableTicks:     stableTicks,
		StreamSize:      stream.Size(),
		GlobalSize:      global.Size(),
	}

	ticksDenominator := d.counters.Ticks
	if ticksDenominator < 1 {
		ticksDenominator = 1
	}
	derived := Derived{
		ChangesPer1k:      float64(d.counters.EnvelopeChanges) * 1000.0 / float64(ticksDenominator),
		SelectedDiversity: stream.ScoreVariance(),
	}
	if d.mmrEverRun {
		derived.MMRNodesPenalized = d.lastMMR.NodesPenalized
		derived.MMRAvgPenalty = d.lastMMR.AvgPenalty
		derived.MMRMaxSimilarity = d.lastMMR.MaxSimilarity
	}

	return DiagnosticsSnapshot{
		Counters: d.counters,
		Gauges:   gauges,
		Derived:  derived,
	}
}
