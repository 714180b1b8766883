package router

import "strings"

// Domain keyword tables. These are illustrative heuristics, not load-bearing
// classifiers; tune them per deployment rather than assuming they generalize.
var domainKeywords = map[string][]string{
	"medical":   {"medical", "medicine", "patient", "diagnosis", "symptom", "treatment", "disease", "clinical", "drug", "dosage"},
	"legal":     {"legal", "law", "court", "contract", "liability", "statute", "regulation", "lawsuit", "plaintiff", "jurisdiction"},
	"technical": {"code", "software", "algorithm", "database", "server", "api", "programming", "debug", "deploy", "kubernetes"},
	"financial": {"finance", "financial", "stock", "investment", "market", "revenue", "tax", "interest rate", "portfolio", "economic"},
}

// imperativeVerbs signal an analytical or comparative task, which raises
// query importance.
var imperativeVerbs = []string{
	"compare", "analyze", "analyse", "evaluate", "assess", "summarize",
	"summarise", "explain", "contrast", "critique", "investigate", "verify",
}

// DetectDomain classifies a query into a domain by keyword presence.
// The domain with the most keyword hits wins; ties resolve in a fixed
// order so classification is deterministic. Returns "general" when no
// domain keywords appear.
func DetectDomain(query string) string {
	lowered := strings.ToLower(query)

	// Fixed iteration order for deterministic ties.
	order := []string{"medical", "legal", "technical", "financial"}

	best := "general"
	bestHits := 0
	for _, domain := range order {
		hits := 0
		for _, kw := range domainKeywords[domain] {
			if strings.Contains(lowered, kw) {
				hits++
			}
		}
		if hits > bestHits {
			best = domain
			bestHits = hits
		}
	}
	return best
}

// importanceScore counts heuristic indicators that a query is important or
// complex: length, question marks, and imperative analysis verbs.
func importanceScore(query string) int {
	lowered := strings.ToLower(query)
	score := 0

	if len(strings.Fields(query)) > 30 {
		score++
	}
	if strings.Count(query, "?") >= 2 {
		score++
	}
	for _, verb := range imperativeVerbs {
		if strings.Contains(lowered, verb) {
			score++
			break
		}
	}
	return score
}

// isImportant reports whether a query crosses the importance threshold
// that, combined with accuracy mode, triggers ensemble execution.
func isImportant(query string) bool {
	return importanceScore(query) >= 1
}
