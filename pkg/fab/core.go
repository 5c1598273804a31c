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
	"crypto/rand"
	"encoding/hex"
)

// Config bundles the constructor-time options of §6.
type Config struct {
	// SessionID, if empty, is generated once and cached as SessionSeed.
	SessionID string
	// EnvelopeMode selects legacy direct-assign or hysteresis-gated
	// precision. Default is EnvelopeLegacy per §6.
	EnvelopeMode EnvelopeMode
	Hysteresis   HysteresisConfig
	// HoldMs is advisory only; the core never gates transitions on it (§4.7, §9).
	HoldMs int
}

// DefaultConfig mirrors the §6 configuration defaults.
func DefaultConfig() Config {
	return Config{
		EnvelopeMode: EnvelopeLegacy,
		Hysteresis:   DefaultHysteresisConfig,
		HoldMs:       1500,
	}
}

// FABCore is the orchestrator of §4.9. One instance is owned by exactly one
// logical caller at a time (§5); it performs no I/O and holds no
// background goroutines.
type FABCore struct {
	sessionID    string
	sessionSeedV uint64
	envelopeMode EnvelopeMode
	hysteresis   HysteresisConfig
	holdMs       int

	initialized bool
	budgets     Budgets
	global      *Window
	stream      *Window

	hyst *hysteresisState
	sm   *stateMachine
	diag *diagnostics

	tickIndex int64
}

// New constructs a FABCore for a session. If cfg.SessionID is empty, a
// random id is generated once and its seed is cached for the lifetime of
// the instance (§4.1).
func New(cfg Config) *FABCore {
	sid := cfg.SessionID
	if sid == "" {
		sid = randomSessionID()
	}
	return &FABCore{
		sessionID:    sid,
		sessionSeedV: sessionSeed(sid),
		envelopeMode: cfg.EnvelopeMode,
		hysteresis:   cfg.Hysteresis,
		holdMs:       cfg.HoldMs,
		hyst:         newHysteresisState(PrecisionCold),
		sm:           newStateMachine(),
		diag:         newDiagnostics(),
	}
}

func randomSessionID() string {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand failing is unrecoverable for this purpose; fall back
		// to a fixed, clearly-marked id rather than panicking the caller.
		return "session-fallback"
	}
	return hex.EncodeToString(buf[:])
}

// SessionID returns the session id in effect for this core.
func (c *FABCore) SessionID() string { return c.sessionID }

// InitTick fixes the capacity envelope for the upcoming tick (§4.9).
// budgets.Nodes must be positive.
func (c *FABCore) InitTick(mode FabMode, budgets Budgets) error {
	if budgets.Nodes <= 0 {
		return &InvalidBudgetError{Reason: "budgets.nodes must be > 0"}
	}

	streamCap := min(budgets.Nodes, MaxStreamNodes)
	globalCap := budgets.Nodes - streamCap
	if globalCap > MaxGlobalNodes {
		globalCap = MaxGlobalNodes
	}
	if globalCap < 0 {
		globalCap = 0
	}

	if !c.initialized {
		c.global = newWindow("global", globalCap, PrecisionCold, true)
		c.stream = newWindow("stream", streamCap, PrecisionCold, true)
		c.sm.mode = mode
		c.initialized = true
	} else {
		c.global.CapNodes = globalCap
		c.stream.CapNodes = streamCap
		c.global.Precision = PrecisionCold // I4, always
		// Caller-asserted mode resync; step() is the sole authority on
		// subsequent transitions but init_tick may re-synchronize it, e.g.
		// after a process restart that replays the last known mode.
		c.sm.mode = mode
	}

	c.budgets = budgets
	// Re-truncate existing contents defensively if a shrinking budget would
	// otherwise violate I1/I2 before the next fill() replaces them.
	c.global.setNodes(c.global.Nodes)
	c.stream.setNodes(c.stream.Nodes)

	c.tickIndex++
	return nil
}

// Fill consumes a validated Z-slice and (re)populates both windows for the
// current tick (§4.9).
func (c *FABCore) Fill(z ZSlice) error {
	if !c.initialized {
		return ErrNotInitialized
	}
	if err := validateSlice(z); err != nil {
		return &InvalidSliceError{Reason: err.Error()}
	}

	combined := combineSeeds(z.Seed, c.sessionSeedV, c.tickIndex)
	rng := newTickRNG(combined)

	streamIDs, rebalance := SelectTopKForStream(z, c.stream.effectiveCap(), rng)
	streamSet := make(map[string]struct{}, len(streamIDs))
	for _, id := range streamIDs {
		streamSet[id] = struct{}{}
	}
	globalIDs := SelectTopKForGlobal(z, c.global.effectiveCap(), streamSet, rng)

	byID := make(map[string]ZNode, len(z.Nodes))
	for _, n := range z.Nodes {
		byID[n.ID] = n
	}

	streamNodes := make([]ZNode, 0, len(streamIDs))
	for _, id := range streamIDs {
		streamNodes = append(streamNodes, byID[id])
	}
	globalNodes := make([]ZNode, 0, len(globalIDs))
	for _, id := range globalIDs {
		globalNodes = append(globalNodes, byID[id])
	}

	c.stream.setNodes(streamNodes)
	c.global.setNodes(globalNodes)

	avgScore := c.stream.AvgScore()
	var newPrecision Precision
	var changed bool
	switch c.envelopeMode {
	case EnvelopeLegacy:
		newPrecision = AssignPrecision(avgScore)
		changed = newPrecision != c.stream.Precision
	default:
		newPrecision, changed = c.hyst.step(c.hysteresis, c.tickIndex, avgScore, c.stream.Size())
	}
	c.stream.Precision = newPrecision
	c.global.Precision = PrecisionCold // I4

	c.diag.recordFill()
	if changed {
		c.diag.recordEnvelopeChange()
	}
	c.diag.recordRebalance(rebalance)

	return nil
}

// Mix returns an immutable snapshot of the current tick's state (§4.9).
func (c *FABCore) Mix() (Snapshot, error) {
	if !c.initialized {
		return Snapshot{}, ErrNotInitialized
	}
	snap := Snapshot{
		Mode:            c.sm.mode,
		GlobalSize:      c.global.Size(),
		StreamSize:      c.stream.Size(),
		GlobalPrecision: c.global.Precision,
		StreamPrecision: c.stream.Precision,
		StableTicks:     c.sm.stableTicks,
		Diagnostics:     c.diag.snapshot(c.sm.mode, c.sm.stableTicks, c.global, c.stream),
	}
	c.diag.recordMix()
	return snap, nil
}

// StepResult is returned by Step.
type StepResult struct {
	Mode        FabMode
	StableTicks int
}

// Step applies the operational mode transitions of §4.7 and advances the
// tick counter (§4.9).
func (c *FABCore) Step(metrics Metrics) (StepResult, error) {
	if !c.initialized {
		return StepResult{}, ErrNotInitialized
	}
	mode, stableTicks, transitioned := c.sm.step(metrics)
	if transitioned {
		c.diag.recordModeTransition()
	}
	c.diag.recordTick()
	return StepResult{Mode: mode, StableTicks: stableTicks}, nil
}
