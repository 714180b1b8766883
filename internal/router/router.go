package router

import (
	"fmt"
	"log"
	"strings"

	"github.com/dyluth/quorum/internal/capability"
	"github.com/dyluth/quorum/internal/registry"
)

// Modes accepted by Route. Speed favors a single model; accuracy admits
// ensemble execution for important queries.
const (
	ModeSpeed    = "speed"
	ModeAccuracy = "accuracy"
)

// Router selects models for a query and executes them with fallback and
// ensemble resilience. Safe for concurrent use; all mutable state lives in
// the injected registry.
type Router struct {
	registry *registry.Registry
	gen      capability.Generator
	sink     capability.Sink
	cfg      Config
}

// New creates a router. A nil sink defaults to a no-op sink.
func New(reg *registry.Registry, gen capability.Generator, sink capability.Sink, cfg Config) *Router {
	if sink == nil {
		sink = capability.NopSink{}
	}
	return &Router{
		registry: reg,
		gen:      gen,
		sink:     sink,
		cfg:      cfg.withDefaults(),
	}
}

// Route produces a routing decision for a query: detected domain, primary
// and fallback models, and whether to run an ensemble. Preferred model IDs,
// when known to the registry, are moved to the head of the candidate list.
//
// The decision is recorded to the telemetry sink before returning.
func (r *Router) Route(query, mode string, preferred ...string) *RoutingDecision {
	domain := DetectDomain(query)
	important := isImportant(query)

	candidates := r.Candidates(query, mode, 0, preferred...)

	decision := &RoutingDecision{
		Domain: domain,
	}

	if len(candidates) == 0 {
		decision.Reasoning = "no candidate models available"
		r.recordDecision(decision)
		return decision
	}

	decision.PrimaryModel = candidates[0]
	maxFallbacks := r.cfg.MaxFallbackAttempts
	if maxFallbacks > len(candidates)-1 {
		maxFallbacks = len(candidates) - 1
	}
	decision.FallbackModels = candidates[1 : 1+maxFallbacks]

	if important && mode == ModeAccuracy && len(candidates) >= 2 {
		size := len(candidates)
		if size > r.cfg.MaxEnsembleSize {
			size = r.cfg.MaxEnsembleSize
		}
		decision.UseEnsemble = true
		decision.EnsembleSize = size
		decision.SelectedModels = candidates[:size]
		decision.Reasoning = fmt.Sprintf(
			"important query in accuracy mode: ensemble of %d over domain '%s'", size, domain)
	} else {
		decision.SelectedModels = []string{decision.PrimaryModel}
		decision.EnsembleSize = 1
		decision.Reasoning = fmt.Sprintf(
			"single model '%s' for domain '%s' (mode=%s, important=%t)",
			decision.PrimaryModel, domain, mode, important)
	}

	// Confidence reflects how strong the top candidate looks for this domain.
	if p, ok := r.registry.Profile(decision.PrimaryModel); ok {
		decision.Confidence = registry.SelectionScore(p, domain)
	}

	r.recordDecision(decision)
	return decision
}

// Candidates returns candidate model IDs for a query in selection order,
// with known preferred models promoted to the front. A limit of 0 means
// all candidates.
func (r *Router) Candidates(query, mode string, limit int, preferred ...string) []string {
	domain := DetectDomain(query)

	ranked := r.registry.SelectCandidates(domain)
	ids := make([]string, 0, len(ranked))
	for _, p := range ranked {
		ids = append(ids, p.ID)
	}

	if len(preferred) > 0 {
		ids = promote(ids, preferred)
	}

	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids
}

// promote moves the known preferred IDs to the front, keeping relative
// order of the rest. Unknown preferred IDs are logged and skipped.
func promote(ids []string, preferred []string) []string {
	known := make(map[string]bool, len(ids))
	for _, id := range ids {
		known[id] = true
	}

	head := make([]string, 0, len(preferred))
	seen := make(map[string]bool)
	for _, id := range preferred {
		if !known[id] {
			log.Printf("[Router] Warning: preferred model '%s' is not a known candidate, skipping", id)
			continue
		}
		if !seen[id] {
			head = append(head, id)
			seen[id] = true
		}
	}

	for _, id := range ids {
		if !seen[id] {
			head = append(head, id)
		}
	}
	return head
}

// Specialist returns the candidate with the highest raw expertise for a
// domain, ignoring the blended selection score. Empty when no candidates
// pass the reliability floor.
func (r *Router) Specialist(domain string) string {
	best := ""
	bestScore := -1.0
	for _, p := range r.registry.SelectCandidates(domain) {
		if e := p.Expertise(domain); e > bestScore {
			best, bestScore = p.ID, e
		}
	}
	return best
}

func (r *Router) recordDecision(d *RoutingDecision) {
	r.sink.Record(capability.Event{
		Type:      "routing_decision",
		Component: "router",
		Fields: map[string]any{
			"domain":          d.Domain,
			"primary_model":   d.PrimaryModel,
			"fallback_models": d.FallbackModels,
			"use_ensemble":    d.UseEnsemble,
			"ensemble_size":   d.EnsembleSize,
			"confidence":      d.Confidence,
			"reasoning":       d.Reasoning,
		},
	})
	log.Printf("[Router] %s", d.Reasoning)
}

// buildPrompt keeps the routed query visible to providers even when the
// caller supplies a separate prompt.
func buildPrompt(query, prompt string) string {
	if strings.TrimSpace(prompt) == "" {
		return query
	}
	return prompt
}
