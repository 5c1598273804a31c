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

package fabmetrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/orbis-labs/fabcore/pkg/fab"
)

func TestObserve_NoOpWhenDisabled(t *testing.T) {
	Enable(false)
	snap := fab.Snapshot{}
	snap.Diagnostics.Counters.Ticks = 5
	Observe("disabled-session", snap)
	if got := testutil.ToFloat64(ticksTotal.WithLabelValues("disabled-session")); got != 0 {
		t.Fatalf("expected no-op when disabled, got ticks=%v", got)
	}
}

func TestObserve_SetsGaugesFromSnapshot(t *testing.T) {
	Enable(true)
	defer Enable(false)

	snap := fab.Snapshot{StreamPrecision: fab.PrecisionHot}
	snap.Diagnostics.Counters.Ticks = 10
	snap.Diagnostics.Counters.EnvelopeChanges = 2
	snap.Diagnostics.Gauges.StreamSize = 7
	snap.Diagnostics.Gauges.StreamPrecision = fab.PrecisionHot
	snap.Diagnostics.Derived.ChangesPer1k = 200.0

	Observe("s1", snap)

	if got := testutil.ToFloat64(ticksTotal.WithLabelValues("s1")); got != 10 {
		t.Fatalf("ticksTotal = %v, want 10", got)
	}
	if got := testutil.ToFloat64(streamSize.WithLabelValues("s1")); got != 7 {
		t.Fatalf("streamSize = %v, want 7", got)
	}
	if got := testutil.ToFloat64(streamPrecisionLevel.WithLabelValues("s1")); got != 3 {
		t.Fatalf("streamPrecisionLevel = %v, want 3 (hot)", got)
	}
	if got := testutil.ToFloat64(changesPer1k.WithLabelValues("s1")); got != 200.0 {
		t.Fatalf("changesPer1k = %v, want 200.0", got)
	}
}

func TestDeleteSession_RemovesSeries(t *testing.T) {
	Enable(true)
	defer Enable(false)

	Observe("to-delete", fab.Snapshot{})
	DeleteSession("to-delete")
	if got := testutil.ToFloat64(ticksTotal.WithLabelValues("to-delete")); got != 0 {
		t.Fatalf("expected a fresh zero-value series after delete, got %v", got)
	}
}

func TestObserveFleetAvailableTokens(t *testing.T) {
	Enable(true)
	defer Enable(false)
	ObserveFleetAvailableTokens(4096)
	if got := testutil.ToFloat64(fleetAvailableTokens); got != 4096 {
		t.Fatalf("fleetAvailableTokens = %v, want 4096", got)
	}
}
