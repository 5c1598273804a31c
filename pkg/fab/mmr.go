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

// MMRCandidate is a single (vector, score) pair considered by the
// rebalancer. Its position in the slice passed to mmrSelect ties back to
// the caller's original candidate order.
type MMRCandidate struct {
	Vec   []float64
	Score float64
}

// MMRStats carries the diversity diagnostics produced by a single
// rebalance call (§4.5).
type MMRStats struct {
	NodesPenalized int
	AvgPenalty     float64
	MaxSimilarity  float64
}

// DefaultMMRLambda is the §6 configuration default for the relevance/
// diversity trade-off.
const DefaultMMRLambda = 0.5

// mmrSelect greedily selects k indices out of candidates, maximizing
// lambda*score - (1-lambda)*max_similarity_to_selected at each step. The
// first pick is always the highest-scoring candidate (ties broken by
// caller-provided order, which Z-Space shim has already made
// deterministic). When vectors are absent (len(Vec)==0), similarity
// degenerates to closeness-of-score, per §4.5.
func mmrSelect(candidates []MMRCandidate, k int, lambda float64) ([]int, MMRStats) {
	n := len(candidates)
	if k <= 0 || n == 0 {
		return nil, MMRStats{}
	}
	if k > n {
		k = n
	}

	selected := make([]int, 0, k)
	chosen := make([]bool, n)

	first := 0
	for i := 1; i < n; i++ {
		if candidates[i].Score > candidates[first].Score {
			first = i
		}
	}
	selected = append(selected, first)
	chosen[first] = true

	var penaltySum float64
	var maxSim float64
	penalizedCount := 0

	for len(selected) < k {
		bestIdx := -1
		bestVal := math.Inf(-1)
		bestSim := 0.0
		for i := 0; i < n; i++ {
			if chosen[i] {
				continue
			}
			sim := 0.0
			for _, s := range selected {
				candSim := similarity(candidates[i], candidates[s])
				if candSim > sim {
					sim = candSim
				}
			}
			val := lambda*candidates[i].Score - (1-lambda)*sim
			if val > bestVal {
				bestVal = val
				bestIdx = i
				bestSim = sim
			}
		}
		if bestIdx == -1 {
			break
		}
		selected = append(selected, bestIdx)
		chosen[bestIdx] = true
		if bestSim > 0 {
			penalizedCount++
			penaltySum += bestSim
		}
		if bestSim > maxSim {
			maxSim = bestSim
		}
	}

	stats := MMRStats{
		NodesPenalized: penalizedCount,
		MaxSimilarity:  maxSim,
	}
	if penalizedCount > 0 {
		stats.AvgPenalty = penaltySum / float64(penalizedCount)
	}
	return selected, stats
}

// similarity computes cosine similarity between two candidates' vectors.
// When either candidate has no vector, it falls back to score closeness:
// 1 - |scoreA - scoreB|, clamped to [0,1], which degenerates naturally to
// "more similar when scores are close" as called out in §4.5.
func similarity(a, b MMRCandidate) float64 {
	if len(a.Vec) == 0 || len(b.Vec) == 0 || len(a.Vec) != len(b.Vec) {
		d := a.Score - b.Score
		if d < 0 {
			d = -d
		}
		sim := 1 - d
		if sim < 0 {
			return 0
		}
		return sim
	}
	var dot, na, nb float64
	for i := range a.Vec {
		dot += a.Vec[i] * b.Vec[i]
		na += a.Vec[i] * a.Vec[i]
		nb += b.Vec[i] * b.Vec[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	cos := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if cos < 0 {
		return 0
	}
	if cos > 1 {
		return 1
	}
	return cos
}
