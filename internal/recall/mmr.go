package recall

import "math"

// mmr selects up to limit candidates maximizing
// λ·relevance − (1−λ)·max-similarity-to-already-selected at each step, per
// spec.md §4.7/§9's MMR definition. Ties in score pick the candidate with
// the lower OrigIndex, matching spec.md's determinism invariant.
func mmr(candidates []Candidate, lambda float64, limit int) []Candidate {
	if limit <= 0 || len(candidates) == 0 {
		return nil
	}
	remaining := make([]Candidate, len(candidates))
	copy(remaining, candidates)

	selected := make([]Candidate, 0, limit)
	selectedSets := make([]map[string]struct{}, 0, limit)

	for len(selected) < limit && len(remaining) > 0 {
		bestIdx := -1
		var bestScore float64
		for i, c := range remaining {
			maxSim := 0.0
			cSet := canonicalNameSet(c.Doc)
			for _, s := range selectedSets {
				if sim := jaccard(cSet, s); sim > maxSim {
					maxSim = sim
				}
			}
			score := lambda*c.Relevance - (1-lambda)*maxSim
			if bestIdx == -1 || score > bestScore || (score == bestScore && c.OrigIndex < remaining[bestIdx].OrigIndex) {
				bestScore = score
				bestIdx = i
			}
		}
		chosen := remaining[bestIdx]
		selected = append(selected, chosen)
		selectedSets = append(selectedSets, canonicalNameSet(chosen.Doc))
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	return selected
}

// minMaxNormalize scales vals to [0,1]; a degenerate all-equal input (every
// value identical, including the zero-hit case) normalizes to all zeros
// rather than dividing by zero, since there is no discriminative signal to
// preserve.
func minMaxNormalize(vals []float64) []float64 {
	out := make([]float64, len(vals))
	if len(vals) == 0 {
		return out
	}
	min, max := vals[0], vals[0]
	for _, v := range vals {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if max == min {
		return out
	}
	for i, v := range vals {
		out[i] = (v - min) / (max - min)
	}
	return out
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
