package protocol

import (
	"context"
	"fmt"
	"strings"

	"github.com/dyluth/quorum/internal/planner"
	"github.com/dyluth/quorum/internal/router"
)

// CritiqueAndImprove runs four phases: concurrent drafts, sequential peer
// critiques, concurrent improvements, and a final synthesis pass. The
// critique phase starts only after every draft has settled — the router's
// join-all fan-out is the producer/consumer barrier. Bounded to
// cfg.MaxCritiqueRounds critique/improve cycles.
type CritiqueAndImprove struct {
	rt       *router.Router
	cfg      Config
	fallback *Simple
}

// Name implements Executor.
func (c *CritiqueAndImprove) Name() string { return planner.ProtocolCritiqueAndImprove }

// Execute implements Executor.
func (c *CritiqueAndImprove) Execute(ctx context.Context, req *Request) (*Result, error) {
	domain := router.DetectDomain(req.Query)
	models := c.rt.Candidates(req.Query, req.Mode, c.cfg.DraftModels, req.Preferred...)
	if len(models) == 0 {
		return c.fallback.Execute(ctx, req)
	}

	// Phase 1: drafts, fully concurrent. ExecuteModels joins all calls
	// before returning, so everything after this line runs behind the
	// draft barrier.
	draftPrompt := fmt.Sprintf("Answer the following thoroughly and accurately:\n%s", req.Query)
	drafts := successful(c.rt.ExecuteModels(ctx, draftPrompt, models, domain))
	if len(drafts) == 0 {
		// Zero drafts succeeded: degrade to the simple protocol.
		return c.fallback.Execute(ctx, req)
	}

	result := &Result{
		InitialResponses:   drafts,
		QualityAssessments: qualities(drafts),
	}

	for _, draft := range drafts {
		if req.Board != nil {
			req.Board.Append("drafts", draft.Result.Content, string(planner.RoleDraft))
		}
	}

	improved := drafts
	for round := 0; round < c.cfg.MaxCritiqueRounds; round++ {
		// Phase 2: critiques, sequential by design — each critic sees the
		// drafts as a settled set.
		critiques := make([]string, 0, len(improved))
		for i, draft := range improved {
			critic := improved[(i+1)%len(improved)].Result.Model
			critiquePrompt := fmt.Sprintf(
				"Critique the following answer to %q. Point out factual errors, gaps, and weak reasoning:\n%s",
				req.Query, draft.Result.Content)

			critique := c.rt.Call(ctx, critiquePrompt, critic, domain)
			if critique.Result.Content == "" {
				continue
			}
			critiques = append(critiques, critique.Result.Content)
			result.Critiques = append(result.Critiques, critique.Result.Content)
		}

		// Phase 3: improvements — each drafter revises with the critiques.
		if len(critiques) > 0 {
			critiqueBlock := strings.Join(critiques, "\n---\n")
			revisePrompts := make([]string, len(improved))
			reviseModels := make([]string, len(improved))
			for i, draft := range improved {
				reviseModels[i] = draft.Result.Model
				revisePrompts[i] = fmt.Sprintf(
					"Revise your answer to %q using this peer feedback.\nYour answer:\n%s\nFeedback:\n%s",
					req.Query, draft.Result.Content, critiqueBlock)
			}

			revised := make([]*router.ModelResponse, 0, len(improved))
			for i := range reviseModels {
				resp := c.rt.Call(ctx, revisePrompts[i], reviseModels[i], domain)
				if resp.Result.Content != "" {
					revised = append(revised, resp)
					result.Improvements = append(result.Improvements, resp.Result.Content)
				}
			}
			if len(revised) > 0 {
				improved = revised
			}
		}
	}

	// Phase 4: synthesis — the best available model merges the improved
	// answers into one.
	final := c.synthesize(ctx, req, domain, improved)
	result.FinalResponse = final
	result.QualityAssessments = append(result.QualityAssessments, final.QualityScore)

	if req.Board != nil {
		req.Board.Set("final", final.Result.Content, string(planner.RoleCoordinator))
	}

	return result, nil
}

func (c *CritiqueAndImprove) synthesize(ctx context.Context, req *Request, domain string, answers []*router.ModelResponse) *router.ModelResponse {
	if len(answers) == 1 {
		return answers[0]
	}

	var parts []string
	for i, a := range answers {
		parts = append(parts, fmt.Sprintf("Answer %d:\n%s", i+1, a.Result.Content))
	}
	synthPrompt := fmt.Sprintf(
		"Merge the following answers to %q into one clear, accurate final answer:\n%s",
		req.Query, strings.Join(parts, "\n\n"))

	// Synthesis follows the routing decision: important queries in accuracy
	// mode merge through an ensemble vote rather than a single model.
	synth := c.rt.ExecuteRouted(ctx, req.Query, synthPrompt, req.Mode, req.Preferred...)
	if synth.Result.Content != "" {
		return synth
	}
	// Synthesis failed entirely: vote among the improved answers instead.
	return c.rt.VoteOnResponses(answers, domain)
}
