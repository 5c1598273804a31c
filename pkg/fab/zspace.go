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
	"fmt"
	"math/rand"
	"sort"
)

// ValidateSlice is the external-facing collaborator operation of §6:
// validate_slice(z) -> (bool, string). It rejects nodes with an empty id,
// duplicate ids, out-of-range scores, mismatched vector dimensions, edges
// referencing unknown ids or weighted outside [0,1], and negative quota
// values. A quota field left at zero is accepted: an absent field and an
// explicit zero cannot be told apart.
func ValidateSlice(z ZSlice) (bool, string) {
	if err := validateSlice(z); err != nil {
		return false, err.Error()
	}
	return true, ""
}

func validateSlice(z ZSlice) error {
	if z.Quotas.Nodes < 0 || z.Quotas.Tokens < 0 || z.Quotas.Edges < 0 || z.Quotas.TimeMs < 0 {
		return fmt.Errorf("quotas must be non-negative")
	}

	seen := make(map[string]struct{}, len(z.Nodes))
	var dim int
	dimSet := false
	for _, n := range z.Nodes {
		if n.ID == "" {
			return fmt.Errorf("node missing id")
		}
		if _, dup := seen[n.ID]; dup {
			return fmt.Errorf("duplicate node id %q", n.ID)
		}
		seen[n.ID] = struct{}{}
		if n.Score < 0 || n.Score > 1 {
			return fmt.Errorf("node %q score %v out of [0,1]", n.ID, n.Score)
		}
		if n.Vec != nil {
			if !dimSet {
				dim = len(n.Vec)
				dimSet = true
			} else if len(n.Vec) != dim {
				return fmt.Errorf("node %q vector dimension %d does not match slice dimension %d", n.ID, len(n.Vec), dim)
			}
		}
	}

	for _, e := range z.Edges {
		if _, ok := seen[e.Src]; !ok {
			return fmt.Errorf("edge references unknown src %q", e.Src)
		}
		if _, ok := seen[e.Dst]; !ok {
			return fmt.Errorf("edge references unknown dst %q", e.Dst)
		}
		if e.Weight < 0 || e.Weight > 1 {
			return fmt.Errorf("edge %s->%s weight %v out of [0,1]", e.Src, e.Dst, e.Weight)
		}
	}

	return nil
}

// sortedNodes returns z.Nodes sorted by (-score, id), the deterministic
// ordering used by both top-k selectors (§4.6). The id tie-break makes the
// ordering fully deterministic even before any RNG is consulted, since node
// ids are unique within a slice.
func sortedNodes(nodes []ZNode) []ZNode {
	out := make([]ZNode, len(nodes))
	copy(out, nodes)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// rebalanceResult carries the outcome of an optional MMR pass so the
// orchestrator can fold it into diagnostics.
type rebalanceResult struct {
	applied bool
	stats   MMRStats
}

// SelectTopKForStream implements select_topk_for_stream(z, k, rng): sort by
// (-score, id), then apply MMR diversity rebalancing when there are more
// candidates than k and k > 1 (§4.6).
func SelectTopKForStream(z ZSlice, k int, rng *rand.Rand) ([]string, rebalanceResult) {
	ordered := sortedNodes(z.Nodes)
	if k > len(ordered) {
		k = len(ordered)
	}
	if k <= 0 {
		return nil, rebalanceResult{}
	}
	if len(ordered) > k && k > 1 {
		cands := make([]MMRCandidate, len(ordered))
		for i, n := range ordered {
			cands[i] = MMRCandidate{Vec: n.Vec, Score: n.Score}
		}
		idxs, stats := mmrSelect(cands, k, DefaultMMRLambda)
		ids := make([]string, len(idxs))
		for i, idx := range idxs {
			ids[i] = ordered[idx].ID
		}
		return ids, rebalanceResult{applied: true, stats: stats}
	}
	ids := make([]string, k)
	for i := 0; i < k; i++ {
		ids[i] = ordered[i].ID
	}
	return ids, rebalanceResult{}
}

// SelectTopKForGlobal implements select_topk_for_global(z, k, exclude,
// rng): same deterministic ordering as the stream selector, restricted to
// nodes not already placed in the Stream window. The Global window favors
// breadth over diversity-biased selection, so no MMR pass is applied here.
func SelectTopKForGlobal(z ZSlice, k int, exclude map[string]struct{}, rng *rand.Rand) []string {
	filtered := make([]ZNode, 0, len(z.Nodes))
	for _, n := range z.Nodes {
		if _, excluded := exclude[n.ID]; !excluded {
			filtered = append(filtered, n)
		}
	}
	ordered := sortedNodes(filtered)
	if k > len(ordered) {
		k = len(ordered)
	}
	if k <= 0 {
		return nil
	}
	ids := make([]string, k)
	for i := 0; i < k; i++ {
		ids[i] = ordered[i].ID
	}
	return ids
}
