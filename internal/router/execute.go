package router

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dyluth/quorum/internal/capability"
)

// Call invokes a single model with the configured timeout, assesses the
// response quality, and records the outcome in the registry. Failures are
// never returned as errors; they become zero-quality responses with a
// failure reason.
func (r *Router) Call(ctx context.Context, prompt, modelID, domain string) *ModelResponse {
	callCtx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
	defer cancel()

	start := time.Now()
	result, err := r.gen.Generate(callCtx, prompt, modelID)
	latency := time.Since(start)

	if err != nil {
		r.registry.RecordOutcome(modelID, false, latency, domain)
		return &ModelResponse{
			Result:        capability.Result{Model: modelID, Latency: latency},
			QualityScore:  0,
			FailureReason: fmt.Sprintf("provider unavailable: %v", err),
		}
	}

	quality, confidence := r.assessQuality(result.Content, modelID)
	passed := quality >= r.cfg.MinQualityThreshold
	r.registry.RecordOutcome(modelID, passed, latency, domain)

	resp := &ModelResponse{
		Result:             *result,
		QualityScore:       quality,
		Confidence:         confidence,
		PassedQualityCheck: passed,
	}
	if !passed {
		resp.FailureReason = fmt.Sprintf("quality %.2f below threshold %.2f", quality, r.cfg.MinQualityThreshold)
	}
	return resp
}

// ExecuteWithFallback calls the routed primary model and, if the response
// quality is below threshold, iterates over the fallback models keeping
// the best response seen. It never returns nil and never errors: when
// every candidate fails the least-bad response comes back annotated with
// a failure reason so the caller can decide whether to trigger loop-back
// recovery.
func (r *Router) ExecuteWithFallback(ctx context.Context, query, prompt, mode string, preferred ...string) *ModelResponse {
	decision := r.Route(query, mode, preferred...)
	return r.executeWithFallback(ctx, decision, buildPrompt(query, prompt))
}

func (r *Router) executeWithFallback(ctx context.Context, decision *RoutingDecision, prompt string) *ModelResponse {
	if decision.PrimaryModel == "" {
		return &ModelResponse{
			QualityScore:  0,
			FailureReason: "no candidate models available",
		}
	}

	best := r.Call(ctx, prompt, decision.PrimaryModel, decision.Domain)
	if best.PassedQualityCheck {
		return best
	}

	attempts := 0
	for _, fallback := range decision.FallbackModels {
		if attempts >= r.cfg.MaxFallbackAttempts {
			break
		}
		attempts++

		r.sink.Record(capability.Event{
			Type:      "fallback_attempt",
			Component: "router",
			Fields: map[string]any{
				"failed_model":   best.Result.Model,
				"fallback_model": fallback,
				"attempt":        attempts,
			},
		})

		candidate := r.Call(ctx, prompt, fallback, decision.Domain)
		if candidate.QualityScore > best.QualityScore {
			best = candidate
		}
		if best.PassedQualityCheck {
			return best
		}
	}

	if !best.PassedQualityCheck && best.FailureReason == "" {
		best.FailureReason = "all candidates failed quality check"
	}
	return best
}

// ExecuteRouted executes whatever the routing decision calls for. When the
// decision marks the query ensemble-worthy the selected models run
// concurrently and the weighted vote picks the response; otherwise the
// primary model runs with the fallback chain. Never returns nil and never
// errors, matching ExecuteWithFallback.
func (r *Router) ExecuteRouted(ctx context.Context, query, prompt, mode string, preferred ...string) *ModelResponse {
	decision := r.Route(query, mode, preferred...)
	full := buildPrompt(query, prompt)

	if decision.UseEnsemble {
		responses := r.ExecuteModels(ctx, full, decision.SelectedModels, decision.Domain)
		if winner := r.VoteOnResponses(responses, decision.Domain); winner != nil {
			return winner
		}
	}
	return r.executeWithFallback(ctx, decision, full)
}

// ExecuteModels invokes the given models concurrently on one prompt. All
// calls are dispatched before any is awaited; voting or filtering only
// proceeds after every call has settled. Individual failures surface as
// zero-quality responses in the result slice, which preserves input order.
func (r *Router) ExecuteModels(ctx context.Context, prompt string, models []string, domain string) []*ModelResponse {
	responses := make([]*ModelResponse, len(models))

	g, gctx := errgroup.WithContext(ctx)
	for i, modelID := range models {
		i, modelID := i, modelID
		g.Go(func() error {
			responses[i] = r.Call(gctx, prompt, modelID, domain)
			return nil
		})
	}
	// Workers never return errors; Wait is purely the join barrier.
	_ = g.Wait()

	return responses
}

// ExecuteEnsemble routes the query and invokes the decided ensemble
// concurrently, assessing each response independently. Falls back to a
// single-model slice when the decision does not call for an ensemble.
func (r *Router) ExecuteEnsemble(ctx context.Context, query, prompt, mode string, preferred ...string) []*ModelResponse {
	decision := r.Route(query, mode, preferred...)
	if len(decision.SelectedModels) == 0 {
		return []*ModelResponse{{QualityScore: 0, FailureReason: "no candidate models available"}}
	}
	return r.ExecuteModels(ctx, buildPrompt(query, prompt), decision.SelectedModels, decision.Domain)
}
