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

// AssignPrecision maps an average stream score to a precision tag using
// the monotone non-decreasing bands of §4.3. Callers in legacy envelope
// mode use this directly; the hysteresis controller (§4.4) uses it as the
// "proposed" precision on every fill.
func AssignPrecision(avgScore float64) Precision {
	switch {
	case avgScore >= 0.80:
		return PrecisionHot
	case avgScore >= 0.60:
		return PrecisionWarmHigh
	case avgScore >= 0.40:
		return PrecisionWarmLow
	default:
		return PrecisionCold
	}
}
