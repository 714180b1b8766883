package router

import (
	"math"

	"github.com/dyluth/quorum/internal/capability"
)

// Vote score weights per component.
const (
	voteQualityWeight     = 0.4
	voteReliabilityWeight = 0.3
	voteExpertiseWeight   = 0.2
	voteConfidenceWeight  = 0.1

	// voteEpsilon treats float scores within this distance as tied.
	voteEpsilon = 1e-9
)

// voteScore combines a response's own assessment with its model's
// registry-held reliability and domain expertise.
func (r *Router) voteScore(resp *ModelResponse, domain string) float64 {
	return voteQualityWeight*resp.QualityScore +
		voteReliabilityWeight*r.registry.Reliability(resp.Result.Model) +
		voteExpertiseWeight*r.registry.Expertise(resp.Result.Model, domain) +
		voteConfidenceWeight*resp.Confidence
}

// VoteOnResponses selects the best response by weighted score. Ties break
// by lower latency, then by insertion order, so the vote is deterministic
// and reproducible: the same input list always yields the same winner.
// Returns nil only for an empty input.
func (r *Router) VoteOnResponses(responses []*ModelResponse, domain string) *ModelResponse {
	if len(responses) == 0 {
		return nil
	}

	best := responses[0]
	bestScore := r.voteScore(best, domain)

	for _, resp := range responses[1:] {
		score := r.voteScore(resp, domain)
		switch {
		case score > bestScore+voteEpsilon:
			best = resp
			bestScore = score
		case math.Abs(score-bestScore) <= voteEpsilon && resp.Result.Latency < best.Result.Latency:
			// Tied score: prefer the faster response. Insertion order wins
			// when latency is also equal, because we only replace on a
			// strictly lower latency.
			best = resp
			bestScore = score
		}
	}

	r.sink.Record(capability.Event{
		Type:      "ensemble_vote",
		Component: "router",
		Fields: map[string]any{
			"winner":     best.Result.Model,
			"vote_score": bestScore,
			"candidates": len(responses),
			"domain":     domain,
		},
	})

	return best
}
