package factcheck

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewResultSpecScenario(t *testing.T) {
	// 2 verified of 3 total, 0 contested: score 0.667, valid.
	claims := []Claim{
		{Text: "a", Status: StatusVerified},
		{Text: "b", Status: StatusVerified},
		{Text: "c", Status: StatusUnknown},
	}

	result := NewResult(claims, DefaultThreshold)

	assert.InDelta(t, 2.0/3.0, result.VerificationScore, 1e-9)
	assert.True(t, result.IsValid)
	assert.Equal(t, 1, result.UnknownCount)
	assert.Len(t, result.FailedClaims, 1)
}

func TestNewResultContestedClaimInvalidates(t *testing.T) {
	// High score but one contested claim: invalid.
	claims := []Claim{
		{Text: "a", Status: StatusVerified},
		{Text: "b", Status: StatusVerified},
		{Text: "c", Status: StatusVerified},
		{Text: "d", Status: StatusContested},
	}

	result := NewResult(claims, DefaultThreshold)

	assert.InDelta(t, 0.75, result.VerificationScore, 1e-9)
	assert.False(t, result.IsValid, "contested claims always invalidate")
	assert.Len(t, result.FailedClaims, 1)
}

func TestNewResultBelowThreshold(t *testing.T) {
	claims := []Claim{
		{Text: "a", Status: StatusVerified},
		{Text: "b", Status: StatusUnknown},
		{Text: "c", Status: StatusUnknown},
	}

	result := NewResult(claims, DefaultThreshold)
	assert.InDelta(t, 1.0/3.0, result.VerificationScore, 1e-9)
	assert.False(t, result.IsValid)
}

func TestNewResultIdempotent(t *testing.T) {
	claims := []Claim{
		{Text: "a", Status: StatusVerified},
		{Text: "b", Status: StatusContested},
		{Text: "c", Status: StatusUnknown},
	}

	first := NewResult(claims, DefaultThreshold)
	second := NewResult(claims, DefaultThreshold)

	assert.Equal(t, first.VerificationScore, second.VerificationScore)
	assert.Equal(t, first.IsValid, second.IsValid)
	assert.Equal(t, first.UnknownCount, second.UnknownCount)
	assert.Equal(t, first.FailedClaims, second.FailedClaims)
}

func TestNewResultEmptyClaims(t *testing.T) {
	result := NewResult(nil, DefaultThreshold)
	assert.Equal(t, 0.0, result.VerificationScore)
	assert.False(t, result.IsValid)
}

func TestKeywordExtractor(t *testing.T) {
	e := &KeywordExtractor{}
	claims, err := e.ExtractClaims(context.Background(),
		"The Eiffel Tower is 330 meters tall. It was completed in 1889. Nice, right? Please enjoy.")
	require.NoError(t, err)
	require.Len(t, claims, 2)
	assert.Contains(t, claims[0].Text, "330 meters")
	assert.Contains(t, claims[1].Text, "1889")
}

func TestKeywordExtractorCapsClaims(t *testing.T) {
	e := &KeywordExtractor{MaxClaims: 1}
	claims, err := e.ExtractClaims(context.Background(),
		"The tower is 330 meters tall. The bridge is 2737 meters long.")
	require.NoError(t, err)
	assert.Len(t, claims, 1)
}

func TestHedgeVerifier(t *testing.T) {
	v := HedgeVerifier{}

	firm, err := v.VerifyClaim(context.Background(), Claim{Text: "Water boils at 100 degrees Celsius."})
	require.NoError(t, err)
	assert.Equal(t, StatusVerified, firm.Status)

	hedged, err := v.VerifyClaim(context.Background(), Claim{Text: "This might possibly be true."})
	require.NoError(t, err)
	assert.Equal(t, StatusUnknown, hedged.Status)
}

func TestCheckerEndToEnd(t *testing.T) {
	checker := NewChecker(
		&KeywordExtractor{},
		&ScriptedVerifier{
			Rules:   map[string]Status{"1889": StatusVerified, "330": StatusContested},
			Default: StatusUnknown,
		},
		0,
	)

	result := checker.Check(context.Background(),
		"The Eiffel Tower is 330 meters tall. It was completed in 1889.")

	require.Len(t, result.Claims, 2)
	assert.False(t, result.IsValid, "a contested claim invalidates the answer")
	assert.Equal(t, 0.5, result.VerificationScore)
}

type failingExtractor struct{}

func (failingExtractor) ExtractClaims(context.Context, string) ([]Claim, error) {
	return nil, errors.New("extraction service down")
}

type failingVerifier struct{}

func (failingVerifier) VerifyClaim(_ context.Context, c Claim) (Claim, error) {
	return c, errors.New("evidence service down")
}

func TestCheckerDegradesOnCollaboratorFailure(t *testing.T) {
	// Extraction failure yields an empty, invalid result — not a panic or error.
	checker := NewChecker(failingExtractor{}, HedgeVerifier{}, 0)
	result := checker.Check(context.Background(), "anything")
	assert.NotNil(t, result)
	assert.Empty(t, result.Claims)
	assert.False(t, result.IsValid)

	// Verification failure leaves the claim unknown.
	checker = NewChecker(&KeywordExtractor{}, failingVerifier{}, 0)
	result = checker.Check(context.Background(), "The tower is 330 meters tall and impressive.")
	require.Len(t, result.Claims, 1)
	assert.Equal(t, StatusUnknown, result.Claims[0].Status)
	assert.Equal(t, 1, result.UnknownCount)
}
