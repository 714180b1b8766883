package factcheck

import (
	"context"
	"strings"
	"unicode"
)

// factualIndicators mark sentences likely to assert a checkable fact.
var factualIndicators = []string{
	" is ", " are ", " was ", " were ", " has ", " have ",
	"percent", "%", "according to", "studies", "in 19", "in 20",
}

// hedgeWords mark assertions too soft to verify.
var hedgeWords = []string{
	"might", "could", "perhaps", "possibly", "allegedly", "arguably",
	"some say", "it seems", "i think", "probably",
}

// KeywordExtractor is a heuristic claim extractor: it splits text into
// sentences and keeps those that look like factual assertions. It stands
// in for an LLM-backed extraction collaborator and is deterministic, which
// the tests rely on.
type KeywordExtractor struct {
	// MaxClaims caps extracted claims per answer; 0 means 10.
	MaxClaims int
}

// ExtractClaims implements Extractor.
func (e *KeywordExtractor) ExtractClaims(_ context.Context, text string) ([]Claim, error) {
	maxClaims := e.MaxClaims
	if maxClaims == 0 {
		maxClaims = 10
	}

	var claims []Claim
	for _, sentence := range splitSentences(text) {
		if len(claims) >= maxClaims {
			break
		}
		if isFactual(sentence) {
			claims = append(claims, Claim{Text: sentence, Status: StatusUnknown})
		}
	}
	return claims, nil
}

func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for _, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			s := strings.TrimSpace(current.String())
			if s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// isFactual keeps sentences with a factual indicator or a number, long
// enough to carry an assertion.
func isFactual(sentence string) bool {
	if len(strings.Fields(sentence)) < 4 {
		return false
	}
	lowered := strings.ToLower(sentence)

	for _, indicator := range factualIndicators {
		if strings.Contains(lowered, indicator) {
			return true
		}
	}
	for _, r := range sentence {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// HedgeVerifier is a deterministic offline verifier: hedged claims are
// unknown, everything else verifies. It stands in for an evidence-lookup
// collaborator when none is wired.
type HedgeVerifier struct{}

// VerifyClaim implements Verifier.
func (HedgeVerifier) VerifyClaim(_ context.Context, claim Claim) (Claim, error) {
	lowered := strings.ToLower(claim.Text)
	for _, hedge := range hedgeWords {
		if strings.Contains(lowered, hedge) {
			claim.Status = StatusUnknown
			claim.Evidence = "hedged assertion, no evidence consulted"
			return claim, nil
		}
	}
	claim.Status = StatusVerified
	claim.Evidence = "no contradicting evidence found"
	return claim, nil
}

// ScriptedVerifier resolves claims by substring lookup, for tests. Claims
// matching no rule get Default (or unknown when Default is empty).
type ScriptedVerifier struct {
	// Rules maps a substring of the claim text to the status it receives.
	Rules map[string]Status

	// Evidence optionally attaches evidence text, keyed by the same
	// substring as the matching rule.
	Evidence map[string]string

	// Default applies when no rule matches.
	Default Status
}

// VerifyClaim implements Verifier.
func (v *ScriptedVerifier) VerifyClaim(_ context.Context, claim Claim) (Claim, error) {
	for needle, status := range v.Rules {
		if strings.Contains(claim.Text, needle) {
			claim.Status = status
			claim.Evidence = v.Evidence[needle]
			return claim, nil
		}
	}
	if v.Default != "" {
		claim.Status = v.Default
	} else {
		claim.Status = StatusUnknown
	}
	return claim, nil
}
