// Package factcheck extracts factual claims from an answer and scores how
// well they verify against available evidence. Claim extraction and
// evidence lookup are external collaborators consumed through narrow
// interfaces; heuristic implementations live here for offline use and
// tests.
package factcheck

import (
	"context"
	"fmt"
	"log"
)

// Status is the verification outcome for one claim.
type Status string

const (
	StatusVerified  Status = "verified"
	StatusContested Status = "contested"
	StatusUnknown   Status = "unknown"
)

// Claim is one discrete factual assertion extracted from an answer.
type Claim struct {
	Text     string `json:"text"`
	Status   Status `json:"status"`
	Evidence string `json:"evidence,omitempty"`
}

// Extractor pulls discrete factual claims out of free text.
type Extractor interface {
	ExtractClaims(ctx context.Context, text string) ([]Claim, error)
}

// Verifier resolves one claim against available evidence.
type Verifier interface {
	VerifyClaim(ctx context.Context, claim Claim) (Claim, error)
}

// DefaultThreshold is the verification score below which an answer is
// considered invalid.
const DefaultThreshold = 0.6

// Result is the outcome of checking one answer. It is derived
// deterministically from the claim list at construction time and never
// mutated afterwards.
type Result struct {
	Claims            []Claim `json:"claims"`
	VerificationScore float64 `json:"verification_score"`
	FailedClaims      []Claim `json:"failed_claims"`
	IsValid           bool    `json:"is_valid"`
	UnknownCount      int     `json:"unknown_count"`
}

// NewResult derives a result from a claim list. The score is the verified
// fraction; validity requires the score to meet the threshold and zero
// contested claims. An answer with no extractable claims scores 0 but has
// nothing contested, so it is invalid on score alone.
func NewResult(claims []Claim, threshold float64) *Result {
	verified := 0
	contested := 0
	unknown := 0
	var failed []Claim

	for _, c := range claims {
		switch c.Status {
		case StatusVerified:
			verified++
		case StatusContested:
			contested++
			failed = append(failed, c)
		default:
			unknown++
			failed = append(failed, c)
		}
	}

	total := len(claims)
	score := float64(verified) / float64(max(1, total))

	return &Result{
		Claims:            claims,
		VerificationScore: score,
		FailedClaims:      failed,
		IsValid:           score >= threshold && contested == 0,
		UnknownCount:      unknown,
	}
}

// Checker runs extraction then verification over an answer.
type Checker struct {
	extractor Extractor
	verifier  Verifier
	threshold float64
}

// NewChecker creates a checker. A threshold of 0 uses DefaultThreshold.
func NewChecker(extractor Extractor, verifier Verifier, threshold float64) *Checker {
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	return &Checker{
		extractor: extractor,
		verifier:  verifier,
		threshold: threshold,
	}
}

// Threshold returns the configured validity threshold.
func (c *Checker) Threshold() float64 {
	return c.threshold
}

// Check extracts claims from the answer and verifies each. Collaborator
// failures degrade rather than propagate: an extraction error yields an
// empty-claim result, and a verification error leaves that claim unknown.
func (c *Checker) Check(ctx context.Context, answer string) *Result {
	claims, err := c.extractor.ExtractClaims(ctx, answer)
	if err != nil {
		log.Printf("[FactCheck] Warning: claim extraction failed: %v", err)
		return NewResult(nil, c.threshold)
	}

	checked := make([]Claim, 0, len(claims))
	for _, claim := range claims {
		verified, err := c.verifier.VerifyClaim(ctx, claim)
		if err != nil {
			log.Printf("[FactCheck] Warning: verification failed for claim %q: %v", truncate(claim.Text, 60), err)
			claim.Status = StatusUnknown
			claim.Evidence = fmt.Sprintf("verification unavailable: %v", err)
			checked = append(checked, claim)
			continue
		}
		checked = append(checked, verified)
	}

	return NewResult(checked, c.threshold)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
