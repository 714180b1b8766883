package protocol

import (
	"context"
	"fmt"

	"github.com/dyluth/quorum/internal/planner"
	"github.com/dyluth/quorum/internal/router"
)

// IterativeRefinement drafts once, then repeatedly asks for a sharpened
// revision of the current answer. Refinement stops when an iteration no
// longer changes the answer much (similarity above the convergence
// threshold) or the iteration bound is hit. The best-quality iteration
// wins, not necessarily the last one.
type IterativeRefinement struct {
	rt  *router.Router
	cfg Config
}

// Name implements Executor.
func (ir *IterativeRefinement) Name() string { return planner.ProtocolIterativeRefine }

// Execute implements Executor.
func (ir *IterativeRefinement) Execute(ctx context.Context, req *Request) (*Result, error) {
	current := ir.rt.ExecuteWithFallback(ctx, req.Query, "", req.Mode, req.Preferred...)

	result := &Result{
		InitialResponses:   []*router.ModelResponse{current},
		QualityAssessments: []float64{current.QualityScore},
	}

	best := current
	for i := 0; i < ir.cfg.MaxRefineIterations && current.Result.Content != ""; i++ {
		refinePrompt := fmt.Sprintf(
			"Improve the following answer to %q: fix errors, tighten reasoning, add missing specifics.\n%s",
			req.Query, current.Result.Content)

		next := ir.rt.ExecuteWithFallback(ctx, req.Query, refinePrompt, req.Mode, req.Preferred...)
		if next.Result.Content == "" {
			break
		}

		result.Improvements = append(result.Improvements, next.Result.Content)
		result.QualityAssessments = append(result.QualityAssessments, next.QualityScore)
		if next.QualityScore > best.QualityScore {
			best = next
		}

		if similarity(current.Result.Content, next.Result.Content) >= ir.cfg.ConvergenceSimilarity {
			current = next
			break
		}
		current = next
	}

	result.FinalResponse = best
	if req.Board != nil {
		req.Board.Set("final", best.Result.Content, string(planner.RoleDraft))
	}
	return result, nil
}
