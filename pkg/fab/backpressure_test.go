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

func TestClassify_Boundaries(t *testing.T) {
	cases := []struct {
		tokens int
		want   BackpressureBand
	}{
		{0, BackpressureOK},
		{1999, BackpressureOK},
		{2000, BackpressureSlow},
		{4999, BackpressureSlow},
		{5000, BackpressureReject},
		{1_000_000, BackpressureReject},
	}
	for _, tc := range cases {
		if got := Classify(tc.tokens, DefaultOKThreshold, DefaultRejectThreshold); got != tc.want {
			t.Errorf("Classify(%d) = %v, want %v", tc.tokens, got, tc.want)
		}
	}
}

func TestClassify_InjectableThresholds(t *testing.T) {
	if got := Classify(10, 5, 20); got != BackpressureSlow {
		t.Errorf("Classify(10, ok=5, reject=20) = %v, want slow", got)
	}
	if got := Classify(4, 5, 20); got != BackpressureOK {
		t.Errorf("Classify(4, ok=5, reject=20) = %v, want ok", got)
	}
}
