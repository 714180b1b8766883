package protocol

import (
	"context"
	"fmt"
	"strings"

	"github.com/dyluth/quorum/internal/planner"
	"github.com/dyluth/quorum/internal/router"
)

// Consensus runs a bounded multi-round debate: every model answers, then
// each round every model revises its position having seen the others'.
// The debate stops early when positions stop moving (average similarity
// between successive rounds crosses the convergence threshold) and the
// final answer is chosen by ensemble vote over the last round.
type Consensus struct {
	rt       *router.Router
	cfg      Config
	fallback *Simple
}

// Name implements Executor.
func (c *Consensus) Name() string { return planner.ProtocolConsensus }

// Execute implements Executor.
func (c *Consensus) Execute(ctx context.Context, req *Request) (*Result, error) {
	domain := router.DetectDomain(req.Query)
	models := c.rt.Candidates(req.Query, req.Mode, c.cfg.DraftModels, req.Preferred...)
	if len(models) < 2 {
		return c.fallback.Execute(ctx, req)
	}

	openPrompt := fmt.Sprintf("State your position on the following, with reasoning:\n%s", req.Query)
	current := successful(c.rt.ExecuteModels(ctx, openPrompt, models, domain))
	if len(current) == 0 {
		return c.fallback.Execute(ctx, req)
	}

	result := &Result{
		InitialResponses:   current,
		QualityAssessments: qualities(current),
	}
	result.ConsensusNotes = append(result.ConsensusNotes,
		fmt.Sprintf("round 0: %d positions opened", len(current)))

	for round := 1; round <= c.cfg.ConsensusRounds; round++ {
		peerBlock := positionBlock(current)
		reviseModels := make([]string, len(current))
		for i, resp := range current {
			reviseModels[i] = resp.Result.Model
		}

		revisePrompt := fmt.Sprintf(
			"Here are all current positions on %q:\n%s\nRevise your position, conceding points you cannot defend.",
			req.Query, peerBlock)
		next := successful(c.rt.ExecuteModels(ctx, revisePrompt, reviseModels, domain))
		if len(next) == 0 {
			result.ConsensusNotes = append(result.ConsensusNotes,
				fmt.Sprintf("round %d: no positions survived, keeping previous round", round))
			break
		}

		sim := roundSimilarity(current, next)
		result.ConsensusNotes = append(result.ConsensusNotes,
			fmt.Sprintf("round %d: %d positions, similarity %.2f", round, len(next), sim))
		current = next

		if sim >= c.cfg.ConvergenceSimilarity {
			result.ConsensusNotes = append(result.ConsensusNotes,
				fmt.Sprintf("converged after round %d", round))
			break
		}
	}

	winner := c.rt.VoteOnResponses(current, domain)
	result.FinalResponse = winner
	result.QualityAssessments = append(result.QualityAssessments, winner.QualityScore)

	if req.Board != nil {
		for _, resp := range current {
			req.Board.Append("positions", resp.Result.Content, string(planner.RoleAnalysis))
		}
		req.Board.Set("final", winner.Result.Content, string(planner.RoleCoordinator))
	}
	return result, nil
}

func positionBlock(responses []*router.ModelResponse) string {
	var parts []string
	for i, resp := range responses {
		parts = append(parts, fmt.Sprintf("Position %d:\n%s", i+1, resp.Result.Content))
	}
	return strings.Join(parts, "\n---\n")
}

// roundSimilarity averages pairwise similarity between two rounds,
// matching positions by index (the model order is stable across rounds).
func roundSimilarity(prev, next []*router.ModelResponse) float64 {
	n := len(prev)
	if len(next) < n {
		n = len(next)
	}
	if n == 0 {
		return 0
	}
	total := 0.0
	for i := 0; i < n; i++ {
		total += similarity(prev[i].Result.Content, next[i].Result.Content)
	}
	return total / float64(n)
}
