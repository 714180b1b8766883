// Package protocol implements the closed set of reasoning protocols that
// turn a query into an answer: simple, critique-and-improve, and the
// advanced engines (hierarchical-role, consensus, iterative-refinement,
// adaptive-ensemble). Executors share one producer -> critique/vote ->
// converge shape; they differ in round counts and convergence detection.
// Dispatch happens through a lookup table keyed by protocol name — never
// reflection.
package protocol

import (
	"context"

	"github.com/dyluth/quorum/internal/planner"
	"github.com/dyluth/quorum/internal/router"
	"github.com/dyluth/quorum/pkg/blackboard"
)

// Request carries everything an executor needs for one run. The plan and
// board are per-request; the router is shared and stateless.
type Request struct {
	Query     string
	Mode      string
	Plan      *planner.Plan
	Board     *blackboard.Board
	Preferred []string
}

// Result is a protocol run's output: the final response plus every
// intermediate artifact, for audit and telemetry. Immutable once returned.
type Result struct {
	FinalResponse      *router.ModelResponse   `json:"final_response"`
	InitialResponses   []*router.ModelResponse `json:"initial_responses,omitempty"`
	Critiques          []string                `json:"critiques,omitempty"`
	Improvements       []string                `json:"improvements,omitempty"`
	ConsensusNotes     []string                `json:"consensus_notes,omitempty"`
	QualityAssessments []float64               `json:"quality_assessments,omitempty"`
}

// FinalText returns the final response content, or "" when the run
// produced nothing usable.
func (r *Result) FinalText() string {
	if r == nil || r.FinalResponse == nil {
		return ""
	}
	return r.FinalResponse.Result.Content
}

// Executor is one reasoning protocol. Execute must be bounded and
// deterministic given the same inputs and model outputs, and must not
// return an error for individual model failures — those degrade into
// low-quality responses.
type Executor interface {
	Name() string
	Execute(ctx context.Context, req *Request) (*Result, error)
}

// Config holds the executors' tunable bounds. The zero value is usable.
type Config struct {
	// DraftModels is how many models draft concurrently in
	// critique-and-improve. Default 3, clamped to [2,4].
	DraftModels int

	// MaxCritiqueRounds bounds critique/improve cycles. Default 1.
	MaxCritiqueRounds int

	// ConsensusRounds bounds debate rounds. Default 2.
	ConsensusRounds int

	// MaxRefineIterations bounds iterative refinement. Default 3.
	MaxRefineIterations int

	// ConvergenceSimilarity stops consensus/refinement early when
	// successive outputs are at least this similar. Default 0.8.
	ConvergenceSimilarity float64
}

func (c Config) withDefaults() Config {
	if c.DraftModels == 0 {
		c.DraftModels = 3
	}
	if c.DraftModels < 2 {
		c.DraftModels = 2
	}
	if c.DraftModels > 4 {
		c.DraftModels = 4
	}
	if c.MaxCritiqueRounds == 0 {
		c.MaxCritiqueRounds = 1
	}
	if c.ConsensusRounds == 0 {
		c.ConsensusRounds = 2
	}
	if c.MaxRefineIterations == 0 {
		c.MaxRefineIterations = 3
	}
	if c.ConvergenceSimilarity == 0 {
		c.ConvergenceSimilarity = 0.8
	}
	return c
}

// Table builds the executor lookup table. Keys are the planner's protocol
// names; a test asserts the two sets stay in agreement.
func Table(rt *router.Router, cfg Config) map[string]Executor {
	cfg = cfg.withDefaults()
	simple := &Simple{rt: rt}
	return map[string]Executor{
		planner.ProtocolSimple:             simple,
		planner.ProtocolCritiqueAndImprove: &CritiqueAndImprove{rt: rt, cfg: cfg, fallback: simple},
		planner.ProtocolHierarchicalRole:   &HierarchicalRole{rt: rt, fallback: simple},
		planner.ProtocolConsensus:          &Consensus{rt: rt, cfg: cfg, fallback: simple},
		planner.ProtocolIterativeRefine:    &IterativeRefinement{rt: rt, cfg: cfg},
		planner.ProtocolAdaptiveEnsemble:   &AdaptiveEnsemble{rt: rt},
	}
}

// successful filters out responses that failed outright or carry no
// content. Order is preserved.
func successful(responses []*router.ModelResponse) []*router.ModelResponse {
	kept := make([]*router.ModelResponse, 0, len(responses))
	for _, resp := range responses {
		if resp != nil && resp.Result.Content != "" {
			kept = append(kept, resp)
		}
	}
	return kept
}

// qualities projects the quality scores out of a response list.
func qualities(responses []*router.ModelResponse) []float64 {
	scores := make([]float64, 0, len(responses))
	for _, resp := range responses {
		scores = append(scores, resp.QualityScore)
	}
	return scores
}
