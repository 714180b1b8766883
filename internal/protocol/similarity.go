package protocol

import "strings"

// similarity computes token-set Jaccard overlap between two texts, in
// [0,1]. Cheap, symmetric, and deterministic — good enough for detecting
// that successive protocol rounds have stopped changing the answer.
func similarity(a, b string) float64 {
	tokensA := tokenSet(a)
	tokensB := tokenSet(b)
	if len(tokensA) == 0 && len(tokensB) == 0 {
		return 1
	}
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	intersection := 0
	for tok := range tokensA {
		if tokensB[tok] {
			intersection++
		}
	}
	union := len(tokensA) + len(tokensB) - intersection
	return float64(intersection) / float64(union)
}

func tokenSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		tok = strings.Trim(tok, ".,;:!?\"'()")
		if tok != "" {
			set[tok] = true
		}
	}
	return set
}
