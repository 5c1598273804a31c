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

// MaxStreamNodes and MaxGlobalNodes are the hard per-window caps of I2.
const (
	MaxStreamNodes = 128
	MaxGlobalNodes = 256
)

// Window is a bounded, ordered container for one of the two working sets.
type Window struct {
	Name             string
	Nodes            []ZNode
	CapNodes         int
	Precision        Precision
	SelfSlotReserved bool
}

func newWindow(name string, capNodes int, precision Precision, selfSlotReserved bool) *Window {
	return &Window{
		Name:             name,
		Nodes:            nil,
		CapNodes:         capNodes,
		Precision:        precision,
		SelfSlotReserved: selfSlotReserved,
	}
}

// effectiveCap is the cap this core itself may fill up to. When a self slot
// is reserved, one slot is always left free for a higher layer to later
// place a [SELF] token externally (§4.8, §9); this core never writes that
// slot itself.
func (w *Window) effectiveCap() int {
	if w.SelfSlotReserved && w.CapNodes > 0 {
		return w.CapNodes - 1
	}
	return w.CapNodes
}

// setNodes replaces the window's contents, truncating to effectiveCap if
// necessary. Order is preserved as selection order, matching §4.9's "fill"
// contract ("materialises Window.nodes in selection order").
func (w *Window) setNodes(nodes []ZNode) {
	capN := w.effectiveCap()
	if capN < 0 {
		capN = 0
	}
	if len(nodes) > capN {
		nodes = nodes[:capN]
	}
	w.Nodes = nodes
}

// Size returns the number of nodes currently held.
func (w *Window) Size() int { return len(w.Nodes) }

// IDs returns the set of node ids currently held, for exclusion and
// disjointness checks (I3).
func (w *Window) IDs() map[string]struct{} {
	out := make(map[string]struct{}, len(w.Nodes))
	for _, n := range w.Nodes {
		out[n.ID] = struct{}{}
	}
	return out
}

// AvgScore returns the arithmetic mean of the window's node scores, or 0
// when empty.
func (w *Window) AvgScore() float64 {
	if len(w.Nodes) == 0 {
		return 0
	}
	var sum float64
	for _, n := range w.Nodes {
		sum += n.Score
	}
	return sum / float64(len(w.Nodes))
}

// ScoreVariance returns the population variance of the window's node
// scores, used as the "selected_diversity" derived metric (§3). 0 when the
// window has fewer than 2 nodes, per the §8 boundary behaviours.
func (w *Window) ScoreVariance() float64 {
	n := len(w.Nodes)
	if n <= 1 {
		return 0
	}
	mean := w.AvgScore()
	var sumSq float64
	for _, node := range w.Nodes {
		d := node.Score - mean
		sumSq += d * d
	}
	return sumSq / float64(n)
}
