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

// BackpressureBand classifies instantaneous token load.
type BackpressureBand int

const (
	BackpressureOK BackpressureBand = iota
	BackpressureSlow
	BackpressureReject
)

func (b BackpressureBand) String() string {
	switch b {
	case BackpressureOK:
		return "ok"
	case BackpressureSlow:
		return "slow"
	case BackpressureReject:
		return "reject"
	default:
		return "unknown"
	}
}

// DefaultOKThreshold and DefaultRejectThreshold are the §6 configuration
// defaults for Classify.
const (
	DefaultOKThreshold     = 2000
	DefaultRejectThreshold = 5000
)

// Classify buckets a token count into {ok, slow, reject} using half-open
// bands: [0, okThreshold) = ok, [okThreshold, rejectThreshold) = slow,
// [rejectThreshold, inf) = reject. Pure function, no hidden state (§4.2).
func Classify(tokens, okThreshold, rejectThreshold int) BackpressureBand {
	switch {
	case tokens < okThreshold:
		return BackpressureOK
	case tokens < rejectThreshold:
		return BackpressureSlow
	default:
		return BackpressureReject
	}
}
