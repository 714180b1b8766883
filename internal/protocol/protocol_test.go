package protocol

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/quorum/internal/capability"
	"github.com/dyluth/quorum/internal/planner"
	"github.com/dyluth/quorum/internal/registry"
	"github.com/dyluth/quorum/internal/router"
	"github.com/dyluth/quorum/pkg/blackboard"
)

// captureSink counts telemetry events by type, for assertions.
type captureSink struct {
	mu     sync.Mutex
	counts map[string]int
}

func (s *captureSink) Record(e capability.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.counts == nil {
		s.counts = make(map[string]int)
	}
	s.counts[e.Type]++
}

func (s *captureSink) count(eventType string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[eventType]
}

func testRouter(gen capability.Generator) *router.Router {
	return testRouterWithSink(gen, nil)
}

func testRouterWithSink(gen capability.Generator, sink capability.Sink) *router.Router {
	profiles := []*registry.ModelProfile{
		{
			ID:                "alpha",
			DomainExpertise:   map[string]float64{"general": 0.9},
			ReliabilityWeight: 0.9,
			SuccessRate:       0.9,
		},
		{
			ID:                "beta",
			DomainExpertise:   map[string]float64{"general": 0.8},
			ReliabilityWeight: 0.8,
			SuccessRate:       0.8,
		},
		{
			ID:                "gamma",
			DomainExpertise:   map[string]float64{"general": 0.7},
			ReliabilityWeight: 0.7,
			SuccessRate:       0.7,
		},
	}
	return router.New(registry.New(profiles, nil), gen, sink, router.Config{})
}

func testRequest(query, mode string) *Request {
	return &Request{
		Query: query,
		Mode:  mode,
		Plan:  planner.New().CreatePlan(query, ""),
		Board: blackboard.New(),
	}
}

func TestTableCoversEveryPlannerProtocol(t *testing.T) {
	table := Table(testRouter(capability.NewScripted()), Config{})

	require.Len(t, table, len(planner.ValidProtocols))
	for _, name := range planner.ValidProtocols {
		executor, ok := table[name]
		require.True(t, ok, "missing executor for protocol %q", name)
		assert.Equal(t, name, executor.Name())
	}
}

func TestSimpleExecutor(t *testing.T) {
	gen := capability.NewScripted().
		Reply("alpha", "Four. Two plus two equals four, with complete certainty.")
	table := Table(testRouter(gen), Config{})

	req := testRequest("What is 2+2?", router.ModeSpeed)
	result, err := table[planner.ProtocolSimple].Execute(context.Background(), req)

	require.NoError(t, err)
	require.NotNil(t, result.FinalResponse)
	assert.Contains(t, result.FinalText(), "Four")
	assert.Len(t, result.InitialResponses, 1)

	final, ok := req.Board.Get("final")
	require.True(t, ok)
	assert.Equal(t, result.FinalText(), final)
}

func TestCritiqueAndImprovePhases(t *testing.T) {
	gen := capability.NewScripted()
	rt := testRouter(gen)
	table := Table(rt, Config{DraftModels: 3})

	req := testRequest("Compare the two architectures and explain the tradeoffs involved here", router.ModeAccuracy)
	result, err := table[planner.ProtocolCritiqueAndImprove].Execute(context.Background(), req)

	require.NoError(t, err)
	require.NotNil(t, result.FinalResponse)
	assert.NotEmpty(t, result.FinalText())

	// Drafts from all three models, critiques for each draft, improvements
	// from each drafter.
	assert.Len(t, result.InitialResponses, 3)
	assert.Len(t, result.Critiques, 3)
	assert.Len(t, result.Improvements, 3)

	// Drafts were accumulated on the board under one key.
	assert.Len(t, req.Board.GetList("drafts"), 3)
}

func TestCritiqueAndImproveZeroDraftsFallsBackToSimple(t *testing.T) {
	boom := errors.New("all providers down")
	gen := capability.NewScripted().
		Fail("alpha", boom).
		Fail("beta", boom).
		Fail("gamma", boom)
	table := Table(testRouter(gen), Config{})

	req := testRequest("Compare things and analyze them, then summarize the findings", router.ModeAccuracy)
	result, err := table[planner.ProtocolCritiqueAndImprove].Execute(context.Background(), req)

	require.NoError(t, err, "total failure must degrade, not error")
	require.NotNil(t, result.FinalResponse)
	assert.False(t, result.FinalResponse.PassedQualityCheck)
	assert.NotEmpty(t, result.FinalResponse.FailureReason)
}

func TestHierarchicalRoleExecutesPlanTree(t *testing.T) {
	gen := capability.NewScripted()
	table := Table(testRouter(gen), Config{})

	query := "Compare the economic and social impacts of remote work, then verify the claims and summarize"
	req := testRequest(query, router.ModeAccuracy)
	require.True(t, req.Plan.Complex)

	result, err := table[planner.ProtocolHierarchicalRole].Execute(context.Background(), req)

	require.NoError(t, err)
	require.NotNil(t, result.FinalResponse)
	assert.NotEmpty(t, result.FinalText())

	// One response per plan node.
	assert.Len(t, result.InitialResponses, len(req.Plan.Nodes))

	// Every non-root node wrote its result to the board before its parent ran.
	for i := range req.Plan.Nodes {
		node := &req.Plan.Nodes[i]
		if node.Parent == planner.NoParent {
			continue
		}
		_, ok := req.Board.Get(nodeKey(node.ID))
		assert.True(t, ok, "node %d result missing from board", node.ID)
	}
}

func TestHierarchicalRoleEnsemblesImportantNodes(t *testing.T) {
	gen := capability.NewScripted()
	sink := &captureSink{}
	table := Table(testRouterWithSink(gen, sink), Config{})

	query := "Compare the economic and social impacts of remote work, then verify the claims and summarize"
	req := testRequest(query, router.ModeAccuracy)
	require.True(t, req.Plan.Complex)

	result, err := table[planner.ProtocolHierarchicalRole].Execute(context.Background(), req)

	require.NoError(t, err)
	require.NotNil(t, result.FinalResponse)
	assert.GreaterOrEqual(t, sink.count("ensemble_vote"), 1,
		"important nodes in accuracy mode must vote over an ensemble")
}

func TestCritiqueSynthesisEnsemblesInAccuracyMode(t *testing.T) {
	gen := capability.NewScripted()
	sink := &captureSink{}
	table := Table(testRouterWithSink(gen, sink), Config{DraftModels: 3})

	req := testRequest("Compare the two architectures and explain the tradeoffs involved here", router.ModeAccuracy)
	result, err := table[planner.ProtocolCritiqueAndImprove].Execute(context.Background(), req)

	require.NoError(t, err)
	require.NotNil(t, result.FinalResponse)
	assert.GreaterOrEqual(t, sink.count("ensemble_vote"), 1,
		"synthesis must follow the ensemble verdict in accuracy mode")
}

func TestHierarchicalRoleSimplePlanDegradesToSimple(t *testing.T) {
	gen := capability.NewScripted().
		Reply("alpha", "A direct answer, no tree required for this one at all.")
	table := Table(testRouter(gen), Config{})

	req := testRequest("What is 2+2?", router.ModeSpeed)
	result, err := table[planner.ProtocolHierarchicalRole].Execute(context.Background(), req)

	require.NoError(t, err)
	assert.Len(t, result.InitialResponses, 1)
}

func TestConsensusConvergesEarly(t *testing.T) {
	// Models repeat identical positions, so round similarity is 1.0 and the
	// debate converges after the first revision round.
	fixed := "Remote work increases productivity for focused tasks in most studied cases."
	gen := capability.NewScripted().
		Reply("alpha", fixed).Reply("beta", fixed).Reply("gamma", fixed)
	table := Table(testRouter(gen), Config{ConsensusRounds: 5})

	req := testRequest("Analyze the impact of remote work, then summarize it?", router.ModeAccuracy)
	result, err := table[planner.ProtocolConsensus].Execute(context.Background(), req)

	require.NoError(t, err)
	require.NotNil(t, result.FinalResponse)
	assert.Contains(t, result.ConsensusNotes[len(result.ConsensusNotes)-1], "converged")

	// Opening round + one revision round per model, not five.
	assert.Equal(t, 6, gen.TotalCalls())
}

func TestConsensusBoundedRounds(t *testing.T) {
	// Unscripted models echo their distinct prompts, so positions keep
	// changing and the debate must stop at the round bound.
	gen := capability.NewScripted()
	table := Table(testRouter(gen), Config{ConsensusRounds: 2, ConvergenceSimilarity: 0.99})

	req := testRequest("Analyze the impact of remote work, then summarize it?", router.ModeAccuracy)
	result, err := table[planner.ProtocolConsensus].Execute(context.Background(), req)

	require.NoError(t, err)
	require.NotNil(t, result.FinalResponse)
	// Opening round + exactly two revision rounds across three models.
	assert.Equal(t, 9, gen.TotalCalls())
}

func TestIterativeRefinementStopsOnConvergence(t *testing.T) {
	stable := "The final answer remains the same after another careful revision pass."
	gen := capability.NewScripted().Reply("alpha", stable, stable, stable, stable)
	table := Table(testRouter(gen), Config{MaxRefineIterations: 5})

	req := testRequest("What is 2+2?", router.ModeSpeed)
	result, err := table[planner.ProtocolIterativeRefine].Execute(context.Background(), req)

	require.NoError(t, err)
	require.NotNil(t, result.FinalResponse)
	// Draft + first refinement, which matched the draft exactly and stopped.
	assert.Equal(t, 2, gen.Calls("alpha"))
	assert.Len(t, result.Improvements, 1)
}

func TestIterativeRefinementBounded(t *testing.T) {
	gen := capability.NewScripted().Reply("alpha",
		"Entirely different opening words on every single iteration pass one.",
		"Completely fresh unrelated phrasing arrives during the second round here.",
		"Novel vocabulary appears once more throughout this third revision text.",
		"Yet another batch of brand new terms fills the fourth refinement.",
		"Still more never-seen tokens compose the fifth distinct variant.",
	)
	table := Table(testRouter(gen), Config{MaxRefineIterations: 3, ConvergenceSimilarity: 0.95})

	req := testRequest("What is 2+2?", router.ModeSpeed)
	result, err := table[planner.ProtocolIterativeRefine].Execute(context.Background(), req)

	require.NoError(t, err)
	// Draft + at most three refinements.
	assert.LessOrEqual(t, gen.Calls("alpha"), 4)
	assert.LessOrEqual(t, len(result.Improvements), 3)
}

func TestAdaptiveEnsembleFollowsRoutingDecision(t *testing.T) {
	gen := capability.NewScripted()
	table := Table(testRouter(gen), Config{})

	// Routine query in speed mode: single model.
	req := testRequest("What is 2+2?", router.ModeSpeed)
	result, err := table[planner.ProtocolAdaptiveEnsemble].Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, result.InitialResponses, 1)

	// Important query in accuracy mode: ensemble plus vote.
	gen = capability.NewScripted()
	table = Table(testRouter(gen), Config{})
	req = testRequest("Compare the two proposals carefully, then evaluate the risks?", router.ModeAccuracy)
	result, err = table[planner.ProtocolAdaptiveEnsemble].Execute(context.Background(), req)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(result.InitialResponses), 2)
	require.NotNil(t, result.FinalResponse)
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, similarity("the same text", "the same text"))
	assert.Equal(t, 0.0, similarity("alpha beta", "gamma delta"))
	assert.Equal(t, 1.0, similarity("", ""))

	partial := similarity("remote work helps focus", "remote work hurts focus")
	assert.Greater(t, partial, 0.0)
	assert.Less(t, partial, 1.0)
}
