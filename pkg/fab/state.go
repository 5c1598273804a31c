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

// stateMachine drives the FAB0/FAB1/FAB2 mode transitions of §4.7. The
// stable-tick counter advances while a mode holds and resets on any
// transition, matching the worked example in §8 scenario S3: the tick that
// satisfies the stability requirement is the same tick the promotion fires
// on, so stable_ticks is advanced before the promotion check rather than
// only on ticks where nothing happens (see DESIGN.md for this resolution).
type stateMachine struct {
	mode        FabMode
	stableTicks int
}

func newStateMachine() *stateMachine {
	return &stateMachine{mode: FAB0, stableTicks: 0}
}

// step applies one metrics observation and returns the resulting mode,
// stable-tick count, and whether a transition fired.
func (sm *stateMachine) step(metrics Metrics) (FabMode, int, bool) {
	m := metrics.Clamped()

	switch sm.mode {
	case FAB0:
		if m.SelfPresence >= 0.8 && m.Stress < 0.7 && m.ErrorRate <= 0.05 {
			sm.mode = FAB1
			sm.stableTicks = 0
			return sm.mode, sm.stableTicks, true
		}
		return sm.mode, sm.stableTicks, false

	case FAB1:
		if m.Stress > 0.9 {
			sm.mode = FAB0
			sm.stableTicks = 0
			return sm.mode, sm.stableTicks, true
		}
		sm.stableTicks++
		if sm.stableTicks >= 3 && m.Stress < 0.5 && m.ErrorRate <= 0.05 {
			sm.mode = FAB2
			sm.stableTicks = 0
			return sm.mode, sm.stableTicks, true
		}
		return sm.mode, sm.stableTicks, false

	case FAB2:
		if m.Stress > 0.7 || m.ErrorRate > 0.05 {
			sm.mode = FAB1
			sm.stableTicks = 0
			return sm.mode, sm.stableTicks, true
		}
		sm.stableTicks++
		return sm.mode, sm.stableTicks, false

	default:
		return sm.mode, sm.stableTicks, false
	}
}
