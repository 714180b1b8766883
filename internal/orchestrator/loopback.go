package orchestrator

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/dyluth/quorum/internal/capability"
	"github.com/dyluth/quorum/internal/factcheck"
	"github.com/dyluth/quorum/internal/planner"
	"github.com/dyluth/quorum/internal/protocol"
	"github.com/dyluth/quorum/internal/router"
)

// Recovery paths. Targeted correction regenerates once against the failed
// claims; broadening rewrites the query to demand evidence and re-runs the
// whole protocol.
const (
	pathCorrection = "targeted-correction"
	pathBroaden    = "broadened-rerun"
)

// recover drives bounded loop-back recovery after a failed verification.
// A small failed-claim set gets targeted correction; anything larger (or
// an answer with no extractable claims) gets a broadened protocol re-run.
// A recovered answer replaces the original only when its verification
// score strictly improves — recovery never makes the answer worse.
func (e *Engine) recover(ctx context.Context, preq *protocol.Request, result *protocol.Result, check *factcheck.Result, answer *Answer) (*protocol.Result, *factcheck.Result) {
	for attempt := 1; attempt <= e.cfg.LoopbackMaxRetries; attempt++ {
		answer.LoopbackAttempts = attempt

		var (
			path      string
			candidate *protocol.Result
		)
		if n := len(check.FailedClaims); n > 0 && n <= e.cfg.MaxCorrectableClaims {
			path = pathCorrection
			candidate = e.regenerateWithCorrections(ctx, preq, result, check)
		} else {
			path = pathBroaden
			candidate = e.rerunBroadened(ctx, preq, check, answer)
		}

		newCheck := e.checker.Check(ctx, candidate.FinalText())
		improved := newCheck.VerificationScore > check.VerificationScore

		e.sink.Record(capability.Event{
			Type:      "loopback_attempt",
			Component: "orchestrator",
			Fields: map[string]any{
				"attempt":      attempt,
				"path":         path,
				"before_score": check.VerificationScore,
				"after_score":  newCheck.VerificationScore,
				"accepted":     improved,
			},
		})
		log.Printf("[Orchestrator] Loop-back attempt %d (%s): score %.2f -> %.2f",
			attempt, path, check.VerificationScore, newCheck.VerificationScore)

		if !improved {
			answer.annotate("recovery attempt %d (%s) did not improve verification (%.2f -> %.2f), keeping original",
				attempt, path, check.VerificationScore, newCheck.VerificationScore)
			continue
		}

		answer.annotate("recovery attempt %d (%s) improved verification %.2f -> %.2f",
			attempt, path, check.VerificationScore, newCheck.VerificationScore)
		result, check = candidate, newCheck

		if check.IsValid {
			break
		}
	}
	return result, check
}

// regenerateWithCorrections makes one regeneration call that confronts the
// model with its failed claims. A single call, not a protocol re-run: the
// answer was mostly sound, only specific claims need fixing.
func (e *Engine) regenerateWithCorrections(ctx context.Context, preq *protocol.Request, result *protocol.Result, check *factcheck.Result) *protocol.Result {
	var b strings.Builder
	fmt.Fprintf(&b, "Your previous answer to %q contained claims that failed verification:\n", preq.Query)
	for i, claim := range check.FailedClaims {
		fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, claim.Status, claim.Text)
		if claim.Evidence != "" {
			fmt.Fprintf(&b, "   Evidence: %s\n", claim.Evidence)
		}
	}
	b.WriteString("\nPrevious answer:\n")
	b.WriteString(result.FinalText())
	b.WriteString("\nRewrite the answer, correcting or removing every failed claim. Keep everything that verified.")

	resp := e.rt.ExecuteWithFallback(ctx, preq.Query, b.String(), preq.Mode, preq.Preferred...)
	if preq.Board != nil {
		preq.Board.Set("corrected", resp.Result.Content, string(planner.RoleFactCheck))
	}

	corrected := *result
	corrected.FinalResponse = resp
	corrected.QualityAssessments = append(append([]float64{}, result.QualityAssessments...), resp.QualityScore)
	return &corrected
}

// rerunBroadened re-plans and re-runs the protocol with a query rewritten
// to demand evidence, promoting the domain's strongest specialist into the
// candidate set. Whatever evidence the verifier gathered on the failed
// claims rides along in the prompt. Used when too many claims failed for
// targeted correction to be credible.
func (e *Engine) rerunBroadened(ctx context.Context, preq *protocol.Request, check *factcheck.Result, answer *Answer) *protocol.Result {
	broadened := fmt.Sprintf(
		"Answer the following with well-established, verifiable facts, citing concrete evidence for each claim:\n%s",
		preq.Query)
	if notes := evidenceNotes(check.FailedClaims); notes != "" {
		broadened += "\n\nEvidence gathered on claims that previously failed verification:\n" + notes
	}

	preferred := preq.Preferred
	if specialist := e.rt.Specialist(router.DetectDomain(preq.Query)); specialist != "" {
		preferred = append([]string{specialist}, preferred...)
	}

	replan := e.pl.CreatePlan(broadened, preq.Plan.Protocol)
	rerun := &protocol.Request{
		Query:     broadened,
		Mode:      preq.Mode,
		Plan:      replan,
		Board:     preq.Board,
		Preferred: preferred,
	}
	return e.execute(ctx, rerun, answer)
}

// evidenceNotes renders the failed claims that carry verifier evidence,
// one per line. Empty when the verifier attached no evidence.
func evidenceNotes(claims []factcheck.Claim) string {
	var b strings.Builder
	for _, claim := range claims {
		if claim.Evidence == "" {
			continue
		}
		fmt.Fprintf(&b, "- [%s] %s (evidence: %s)\n", claim.Status, claim.Text, claim.Evidence)
	}
	return b.String()
}
