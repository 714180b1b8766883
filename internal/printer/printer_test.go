package printer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dyluth/quorum/internal/factcheck"
	"github.com/dyluth/quorum/internal/orchestrator"
)

func TestError(t *testing.T) {
	t.Run("returns error with title", func(t *testing.T) {
		err := Error("Test Error", "This is a test error", []string{})
		require.Error(t, err)
		require.Equal(t, "Test Error", err.Error())
	})

	t.Run("returns error with title when including suggestions", func(t *testing.T) {
		err := Error("Test Error", "Explanation", []string{"Try this fix"})
		require.Error(t, err)
		require.Equal(t, "Test Error", err.Error())
	})

	t.Run("returns error with title for multiple suggestions", func(t *testing.T) {
		err := Error("Test Error", "Explanation", []string{
			"First option",
			"Second option",
		})
		require.Error(t, err)
		require.Equal(t, "Test Error", err.Error())
	})
}

func TestAnswerDoesNotPanic(t *testing.T) {
	// Rendering is cosmetic; these just pin down that every answer shape
	// renders without panicking.
	answers := []*orchestrator.Answer{
		{},
		{
			FinalText: "Four.",
			Protocol:  "simple",
			Mode:      "speed",
			FactCheck: &factcheck.Result{IsValid: true, VerificationScore: 1},
		},
		{
			Protocol:         "consensus",
			Mode:             "accuracy",
			Degraded:         true,
			LoopbackAttempts: 1,
			Annotations:      []string{"verification failed"},
			FactCheck: &factcheck.Result{
				VerificationScore: 0.25,
				FailedClaims:      []factcheck.Claim{{Text: "The moon is cheese.", Status: factcheck.StatusContested}},
				Claims:            []factcheck.Claim{{Text: "The moon is cheese.", Status: factcheck.StatusContested}},
			},
		},
	}

	for _, a := range answers {
		Answer(a, true)
		Answer(a, false)
	}
}
