package planner

import (
	"fmt"
	"log"
	"strings"
)

// Protocol names form a closed set. The protocol package's executor table
// is keyed by these same strings; a test there asserts the sets agree.
const (
	ProtocolSimple             = "simple"
	ProtocolCritiqueAndImprove = "critique-and-improve"
	ProtocolHierarchicalRole   = "hierarchical-role"
	ProtocolConsensus          = "consensus"
	ProtocolIterativeRefine    = "iterative-refinement"
	ProtocolAdaptiveEnsemble   = "adaptive-ensemble"
)

// ValidProtocols lists every protocol the planner may select or accept as
// a caller preference.
var ValidProtocols = []string{
	ProtocolSimple,
	ProtocolCritiqueAndImprove,
	ProtocolHierarchicalRole,
	ProtocolConsensus,
	ProtocolIterativeRefine,
	ProtocolAdaptiveEnsemble,
}

// MaxDepth bounds hierarchical decomposition so plan construction always
// terminates. Depth 2 allows root -> sub-task -> sub-sub-task.
const MaxDepth = 2

// enumerators signal multi-step intent ("first do X, then Y, finally Z").
var enumerators = []string{"first", "then", "finally", "secondly", "lastly", "step by step"}

// analysisVerbs signal analytical work worth decomposing.
var analysisVerbs = []string{
	"analyze", "analyse", "compare", "contrast", "evaluate", "assess",
	"critique", "investigate", "examine", "synthesize",
}

// verificationTerms signal the caller wants claims checked.
var verificationTerms = []string{"verify", "fact-check", "fact check", "validate", "accurate", "evidence"}

// Planner classifies queries and builds plans. Thresholds are tunable
// parameters, not load-bearing constants.
type Planner struct {
	maxDepth            int
	complexityThreshold int
}

// New creates a planner with default bounds.
func New() *Planner {
	return &Planner{
		maxDepth:            MaxDepth,
		complexityThreshold: 2,
	}
}

// complexityIndicators counts the heuristic signals of query complexity:
// word count, multiple questions, explicit enumerators, analysis verbs.
func complexityIndicators(query string) int {
	lowered := strings.ToLower(query)
	indicators := 0

	if len(strings.Fields(query)) > 50 {
		indicators++
	}
	if strings.Count(query, "?") >= 2 {
		indicators++
	}
	for _, e := range enumerators {
		if containsWord(lowered, e) {
			indicators++
			break
		}
	}
	for _, v := range analysisVerbs {
		if strings.Contains(lowered, v) {
			indicators++
			break
		}
	}
	return indicators
}

// containsWord matches whole words so "then" does not fire on "authentic".
func containsWord(text, word string) bool {
	if strings.Contains(word, " ") {
		return strings.Contains(text, word)
	}
	for _, field := range strings.FieldsFunc(text, func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	}) {
		if field == word {
			return true
		}
	}
	return false
}

// ClassifyComplexity reports whether a query is complex: at least two
// complexity indicators present.
func (pl *Planner) ClassifyComplexity(query string) bool {
	return complexityIndicators(query) >= pl.complexityThreshold
}

// SelectProtocol returns the preferred protocol when it is supplied and
// valid; otherwise "simple" for simple queries and "critique-and-improve"
// — the richer default, since higher quality is preferred when uncertain —
// for complex ones.
func (pl *Planner) SelectProtocol(query, preferred string) string {
	if preferred != "" {
		for _, name := range ValidProtocols {
			if preferred == name {
				return preferred
			}
		}
		log.Printf("[Planner] Warning: unknown preferred protocol '%s', selecting automatically", preferred)
	}

	if pl.ClassifyComplexity(query) {
		return ProtocolCritiqueAndImprove
	}
	return ProtocolSimple
}

// CreatePlan builds the plan for a query. Simple queries get a single
// Draft node. Complex queries get a Coordinator root with children
// decomposed from detected sub-intents (Research, Analysis, FactCheck);
// the Research branch recurses one further level into Retrieval and
// FactCheck, bounded by MaxDepth.
func (pl *Planner) CreatePlan(query, preferred string) *Plan {
	complex := pl.ClassifyComplexity(query)

	plan := &Plan{
		Query:    query,
		Protocol: pl.SelectProtocol(query, preferred),
		Complex:  complex,
	}

	if !complex {
		plan.Nodes = append(plan.Nodes, Node{
			ID:               0,
			Parent:           NoParent,
			Role:             RoleDraft,
			Description:      "answer the query directly",
			SubQuery:         query,
			InheritedContext: query,
			Depth:            0,
		})
		return plan
	}

	root := plan.addRoot(RoleCoordinator, "coordinate sub-tasks and synthesize the final answer")

	research := plan.addChild(root, RoleResearch,
		fmt.Sprintf("Gather background facts and source material for: %s", query),
		"collect the factual basis", pl.maxDepth)

	lowered := strings.ToLower(query)

	if containsAny(lowered, analysisVerbs) {
		plan.addChild(root, RoleAnalysis,
			fmt.Sprintf("Analyze the gathered material and develop the argument for: %s", query),
			"develop the analytical core", pl.maxDepth)
	} else {
		plan.addChild(root, RoleDraft,
			fmt.Sprintf("Draft a direct answer for: %s", query),
			"draft the answer body", pl.maxDepth)
	}

	if containsAny(lowered, verificationTerms) {
		plan.addChild(root, RoleFactCheck,
			fmt.Sprintf("Identify claims that need verification in answers to: %s", query),
			"flag claims needing verification", pl.maxDepth)
	}

	// The research branch recurses one level: targeted retrieval plus a
	// check of what was retrieved. addChild truncates silently at MaxDepth.
	if research != NoParent {
		plan.addChild(research, RoleRetrieval,
			fmt.Sprintf("Retrieve specific supporting evidence for: %s", query),
			"retrieve supporting evidence", pl.maxDepth)
		plan.addChild(research, RoleFactCheck,
			"Cross-check the retrieved evidence for consistency",
			"cross-check retrieved evidence", pl.maxDepth)
	}

	return plan
}

func containsAny(text string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}
