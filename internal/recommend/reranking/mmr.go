// Verdant - Sustainability Action Recommendation Service
// Copyright 2026 Nudgeworks
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nudgeworks/verdant

// Package reranking implements post-processing for recommendation diversity.
package reranking

import (
	"context"
	"strings"

	"github.com/nudgeworks/verdant/internal/recommend"
)

// maxRerankSize limits slice allocations; k is also bounded by len(items).
const maxRerankSize = 10000

// MMR implements Maximal Marginal Relevance reranking over action tag sets.
// It balances relevance and diversity by iteratively selecting items that
// are both high-scoring and dissimilar to already selected items.
//
// The MMR objective is:
//
//	MMR = argmax[lambda * score(i) - (1-lambda) * max(sim(i, s)) for s in selected]
//
// Where:
//   - lambda: balance parameter (1.0 = pure relevance, 0.0 = pure diversity)
//   - score(i): combined relevance score for item i
//   - sim(i, s): Jaccard similarity of tag sets
//
// Reference:
// Carbonell, J., & Goldstein, J. (1998). "The Use of MMR, Diversity-Based
// Reranking for Reordering Documents and Producing Summaries." SIGIR 1998.
type MMR struct {
	lambda float64
}

// NewMMR creates a new MMR reranker. Lambda is clamped to [0, 1].
func NewMMR(lambda float64) *MMR {
	if lambda < 0 {
		lambda = 0
	}
	if lambda > 1 {
		lambda = 1
	}
	return &MMR{lambda: lambda}
}

// Name returns the reranker identifier.
func (m *MMR) Name() string {
	return "mmr"
}

// Rerank applies greedy MMR selection to a score-descending candidate list.
//
//nolint:gocritic // rangeValCopy: ScoredCandidate passed by value in range, acceptable for clarity
func (m *MMR) Rerank(ctx context.Context, items []recommend.ScoredCandidate, k int) []recommend.ScoredCandidate {
	if len(items) == 0 || k <= 0 {
		return items
	}

	if k > maxRerankSize {
		k = maxRerankSize
	}
	if k > len(items) {
		k = len(items)
	}

	// Pure relevance: the input is already sorted by score.
	if m.lambda >= 1.0 {
		if len(items) > k {
			return items[:k]
		}
		return items
	}

	similarities := m.buildSimilarityMatrix(items)

	selected := make([]recommend.ScoredCandidate, 0, k)
	selectedIndices := make(map[int]struct{})

	for len(selected) < k {
		// -1.0 is the objective floor: when every remaining candidate
		// scores at or below it, selection stops early rather than
		// padding out k with hopeless items.
		bestIdx := -1
		bestMMR := -1.0

		for i, item := range items {
			if _, ok := selectedIndices[i]; ok {
				continue
			}

			relevance := item.Score
			maxSim := 0.0
			for j := range selectedIndices {
				if sim := similarities[i][j]; sim > maxSim {
					maxSim = sim
				}
			}

			mmrScore := m.lambda*relevance - (1-m.lambda)*maxSim
			if mmrScore > bestMMR {
				bestMMR = mmrScore
				bestIdx = i
			}
		}

		if bestIdx < 0 {
			break
		}

		selected = append(selected, items[bestIdx])
		selectedIndices[bestIdx] = struct{}{}
	}

	return selected
}

// buildSimilarityMatrix computes pairwise tag-based similarity.
func (m *MMR) buildSimilarityMatrix(items []recommend.ScoredCandidate) [][]float64 {
	n := len(items)
	similarities := make([][]float64, n)
	for i := range similarities {
		similarities[i] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			sim := computeTagSimilarity(items[i].Item.Tags, items[j].Item.Tags)
			similarities[i][j] = sim
			similarities[j][i] = sim
		}
	}

	return similarities
}

// computeTagSimilarity computes Jaccard similarity between tag lists.
func computeTagSimilarity(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}

	setA := make(map[string]struct{}, len(a))
	for _, t := range a {
		setA[strings.ToLower(t)] = struct{}{}
	}

	setB := make(map[string]struct{}, len(b))
	for _, t := range b {
		setB[strings.ToLower(t)] = struct{}{}
	}

	intersection := 0
	for t := range setA {
		if _, ok := setB[t]; ok {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}

	return float64(intersection) / float64(union)
}

// Ensure MMR implements the interface.
var _ recommend.Reranker = (*MMR)(nil)
