package protocol

import (
	"context"

	"github.com/dyluth/quorum/internal/planner"
	"github.com/dyluth/quorum/internal/router"
)

// AdaptiveEnsemble defers entirely to the routing decision: single model
// when the query looks routine, ensemble with voting when it looks
// important. One adaptation on a failed quality check: widen the
// candidate set by one model and revote. Bounded to that single widening.
type AdaptiveEnsemble struct {
	rt *router.Router
}

// Name implements Executor.
func (a *AdaptiveEnsemble) Name() string { return planner.ProtocolAdaptiveEnsemble }

// Execute implements Executor.
func (a *AdaptiveEnsemble) Execute(ctx context.Context, req *Request) (*Result, error) {
	domain := router.DetectDomain(req.Query)
	decision := a.rt.Route(req.Query, req.Mode, req.Preferred...)

	if !decision.UseEnsemble {
		resp := a.rt.ExecuteWithFallback(ctx, req.Query, "", req.Mode, req.Preferred...)
		if req.Board != nil {
			req.Board.Set("final", resp.Result.Content, string(planner.RoleDraft))
		}
		return &Result{
			FinalResponse:      resp,
			InitialResponses:   []*router.ModelResponse{resp},
			QualityAssessments: []float64{resp.QualityScore},
		}, nil
	}

	responses := a.rt.ExecuteModels(ctx, req.Query, decision.SelectedModels, domain)
	winner := a.rt.VoteOnResponses(responses, domain)

	result := &Result{
		InitialResponses:   responses,
		QualityAssessments: qualities(responses),
	}

	if winner != nil && !winner.PassedQualityCheck {
		// One widening: add the next-best candidate not already used.
		wider := a.rt.Candidates(req.Query, req.Mode, len(decision.SelectedModels)+1, req.Preferred...)
		if extra := newcomers(wider, decision.SelectedModels); len(extra) > 0 {
			more := a.rt.ExecuteModels(ctx, req.Query, extra, domain)
			responses = append(responses, more...)
			result.InitialResponses = responses
			result.QualityAssessments = qualities(responses)
			winner = a.rt.VoteOnResponses(responses, domain)
		}
	}

	result.FinalResponse = winner
	if winner != nil {
		result.QualityAssessments = append(result.QualityAssessments, winner.QualityScore)
		if req.Board != nil {
			req.Board.Set("final", winner.Result.Content, string(planner.RoleCoordinator))
		}
	}
	return result, nil
}

// newcomers returns the IDs in wider that are not in used.
func newcomers(wider, used []string) []string {
	seen := make(map[string]bool, len(used))
	for _, id := range used {
		seen[id] = true
	}
	var extra []string
	for _, id := range wider {
		if !seen[id] {
			extra = append(extra, id)
		}
	}
	return extra
}
