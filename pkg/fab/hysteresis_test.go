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

// TestHysteresis_UpgradeUnderDwellAndRateLimit reproduces scenario S1 from
// the core's testable properties: a steady run of high scores should reach
// hot on the fourth tick (dwell=3) and never flap again (rate_limit=5).
func TestHysteresis_UpgradeUnderDwellAndRateLimit(t *testing.T) {
	cfg := HysteresisConfig{DwellTime: 3, RateLimitTicks: 5, MinStreamForUpgrade: 8}
	hs := newHysteresisState(PrecisionCold)

	var changes int
	var got []Precision
	for tick := int64(1); tick <= 10; tick++ {
		p, changed := hs.step(cfg, tick, 0.9, 32)
		got = append(got, p)
		if changed {
			changes++
		}
	}

	for i := 0; i < 3; i++ {
		if got[i] != PrecisionCold {
			t.Fatalf("tick %d: got %v, want cold", i+1, got[i])
		}
	}
	for i := 3; i < 10; i++ {
		if got[i] != PrecisionHot {
			t.Fatalf("tick %d: got %v, want hot", i+1, got[i])
		}
	}
	if changes != 1 {
		t.Fatalf("envelope_changes = %d, want 1", changes)
	}
}

// TestHysteresis_TinySampleGuardBlocksUpgradeOnly reproduces scenario S2:
// a stream permanently below min_stream_for_upgrade must never upgrade.
func TestHysteresis_TinySampleGuardBlocksUpgradeOnly(t *testing.T) {
	cfg := HysteresisConfig{DwellTime: 3, RateLimitTicks: 5, MinStreamForUpgrade: 8}
	hs := newHysteresisState(PrecisionCold)

	for tick := int64(1); tick <= 10; tick++ {
		p, _ := hs.step(cfg, tick, 0.9, 4)
		if p != PrecisionCold {
			t.Fatalf("tick %d: got %v, want cold (tiny-sample guard)", tick, p)
		}
	}
}

// TestHysteresis_TinySampleGuardNonIncreasing checks the §8 property: while
// the stream stays below the threshold at every tick, level(precision)
// never increases, regardless of starting precision.
func TestHysteresis_TinySampleGuardNonIncreasing(t *testing.T) {
	cfg := HysteresisConfig{DwellTime: 1, RateLimitTicks: 1, MinStreamForUpgrade: 8}
	hs := newHysteresisState(PrecisionWarmHigh)

	prevLevel := Level(PrecisionWarmHigh)
	for tick := int64(1); tick <= 20; tick++ {
		p, _ := hs.step(cfg, tick, 0.95, 2)
		if Level(p) > prevLevel {
			t.Fatalf("tick %d: precision level increased from %d to %d under tiny-sample guard", tick, prevLevel, Level(p))
		}
		prevLevel = Level(p)
	}
}

// TestHysteresis_RateLimitBlocksFlapping ensures that once a commit has
// happened, no further commit can occur before rate_limit_ticks elapse,
// even if the proposed precision keeps changing.
func TestHysteresis_RateLimitBlocksFlapping(t *testing.T) {
	cfg := HysteresisConfig{DwellTime: 1, RateLimitTicks: 5, MinStreamForUpgrade: 0}
	hs := newHysteresisState(PrecisionCold)

	// Tick 1 only sets the target to hot; with dwell=1 the commit to hot
	// happens on tick 2.
	p, changed := hs.step(cfg, 1, 0.95, 32)
	if p != PrecisionCold || changed {
		t.Fatalf("tick 1: got (%v, %v), want (cold, false)", p, changed)
	}
	p, changed = hs.step(cfg, 2, 0.95, 32)
	if p != PrecisionHot || !changed {
		t.Fatalf("tick 2: got (%v, %v), want (hot, true)", p, changed)
	}

	// Alternate proposed precision every tick; none of these may commit
	// until tick - lastChangeTick >= 5.
	for tick := int64(3); tick < 7; tick++ {
		score := 0.1
		if tick%2 == 0 {
			score = 0.95
		}
		_, changed := hs.step(cfg, tick, score, 32)
		if changed {
			t.Fatalf("tick %d: unexpected change while rate-limited", tick)
		}
	}
}

// TestHysteresis_LegacyBypass checks the direct score-to-precision
// assignment that legacy mode uses in place of the controller: an average
// of 0.9 maps straight to hot, with no dwell and no tiny-sample guard.
func TestHysteresis_LegacyBypass(t *testing.T) {
	got := AssignPrecision(0.9)
	if got != PrecisionHot {
		t.Fatalf("legacy direct-assign(0.9) = %v, want hot", got)
	}
}
