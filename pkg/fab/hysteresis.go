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

import "math"

// EnvelopeMode selects whether fill drives the Stream precision through the
// hysteresis controller or assigns it directly from the score bands.
type EnvelopeMode int

const (
	EnvelopeLegacy EnvelopeMode = iota
	EnvelopeHysteresis
)

// HysteresisConfig configures the anti-oscillation controller of §4.4.
type HysteresisConfig struct {
	DwellTime            int
	RateLimitTicks       int
	MinStreamForUpgrade  int
}

// DefaultHysteresisConfig mirrors the §6 configuration defaults.
var DefaultHysteresisConfig = HysteresisConfig{
	DwellTime:           3,
	RateLimitTicks:      1000,
	MinStreamForUpgrade: 8,
}

// sentinelNeverChanged is the initial last_change_tick value: far enough in
// the past that the very first transition is never held by the rate
// limiter, regardless of how ticks are numbered by the caller.
const sentinelNeverChanged = math.MinInt64 / 2

// hysteresisState is the per-layer state machine of §4.4: {current, target,
// dwell_remaining, last_change_tick}. There is exactly one instance, owned
// by the Stream window, since Global precision is permanently cold (I4).
type hysteresisState struct {
	current        Precision
	target         Precision
	dwellRemaining int
	lastChangeTick int64
}

func newHysteresisState(initial Precision) *hysteresisState {
	return &hysteresisState{
		current:        initial,
		target:         initial,
		dwellRemaining: 0,
		lastChangeTick: sentinelNeverChanged,
	}
}

// step applies one tick of the controller and returns the resulting current
// precision and whether it changed relative to the precision held before
// this call. See §4.4 rules 1-5 and the §9 open-question resolution: the
// tiny-sample guard blocks upgrades only, while the rate limiter and dwell
// apply uniformly to upgrades and downgrades.
func (s *hysteresisState) step(cfg HysteresisConfig, tick int64, avgScore float64, streamSize int) (Precision, bool) {
	proposed := AssignPrecision(avgScore)

	// Tiny-sample guard (rule 2): blocks upgrades only. Level(-1) for an
	// unknown precision is always <= any known level, so an unknown
	// current/proposed never trips the ">" comparison spuriously (rule 5).
	if streamSize < cfg.MinStreamForUpgrade && Level(proposed) > Level(s.current) {
		proposed = s.current
	}

	// Rate limit (rule 3): holds current unconditionally, including dwell
	// progress, until rate_limit_ticks have elapsed since the last commit.
	if tick-s.lastChangeTick < int64(cfg.RateLimitTicks) {
		return s.current, false
	}

	// Dwell (rule 4).
	before := s.current
	if proposed == s.target {
		s.dwellRemaining--
		if s.dwellRemaining <= 0 {
			s.current = s.target
			s.dwellRemaining = cfg.DwellTime
			s.lastChangeTick = tick
		}
	} else {
		s.target = proposed
		s.dwellRemaining = cfg.DwellTime
	}
	return s.current, s.current != before
}
