package orchestrator

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/quorum/internal/capability"
	"github.com/dyluth/quorum/internal/factcheck"
	"github.com/dyluth/quorum/internal/router"
)

func TestLoopbackTargetedCorrectionAccepted(t *testing.T) {
	// First answer has one contested claim; the corrected answer drops it.
	gen := capability.NewScripted().Reply("alpha",
		"The moon is made of cheese. The earth is round and orbits the sun.",
		"The earth is round and orbits the sun. Water is a compound of hydrogen and oxygen.",
	)
	verifier := &factcheck.ScriptedVerifier{
		Rules:   map[string]factcheck.Status{"cheese": factcheck.StatusContested},
		Default: factcheck.StatusVerified,
	}
	e := newTestEngine(gen, verifier, Config{})

	answer := e.Orchestrate(context.Background(), Request{Query: "What is 2+2?", Mode: router.ModeSpeed})

	assert.Equal(t, 1, answer.LoopbackAttempts)
	assert.False(t, answer.Degraded)
	assert.NotContains(t, answer.FinalText, "cheese")

	require.NotNil(t, answer.FactCheck)
	assert.True(t, answer.FactCheck.IsValid)
	assert.Equal(t, 1.0, answer.FactCheck.VerificationScore)

	// One original call plus exactly one regeneration.
	assert.Equal(t, 2, gen.Calls("alpha"))

	// The correction left an audit trail on the scratchpad.
	assert.Contains(t, answer.Scratchpad, "corrected")
}

func TestLoopbackCorrectionPromptCarriesEvidence(t *testing.T) {
	gen := capability.NewScripted().Reply("alpha",
		"The moon is made of cheese. The earth is round and orbits the sun.",
		"The earth is round and orbits the sun. Water is a compound of hydrogen and oxygen.",
	)
	verifier := &factcheck.ScriptedVerifier{
		Rules:    map[string]factcheck.Status{"cheese": factcheck.StatusContested},
		Evidence: map[string]string{"cheese": "lunar samples are basaltic rock, not dairy"},
		Default:  factcheck.StatusVerified,
	}
	e := newTestEngine(gen, verifier, Config{})

	answer := e.Orchestrate(context.Background(), Request{Query: "What is 2+2?", Mode: router.ModeSpeed})

	assert.False(t, answer.Degraded)

	// The regeneration prompt confronts the model with the failed claim and
	// the evidence the verifier gathered against it.
	prompts := gen.Prompts("alpha")
	require.Len(t, prompts, 2)
	assert.Contains(t, prompts[1], "The moon is made of cheese.")
	assert.Contains(t, prompts[1], "lunar samples are basaltic rock, not dairy")
}

func TestLoopbackRejectedWhenNoImprovement(t *testing.T) {
	// Both the original and the regenerated answer carry the same contested
	// claim, so recovery must keep the original.
	original := "The moon is made of cheese and rocks."
	gen := capability.NewScripted().Reply("alpha",
		original,
		"The moon is made of cheese and dust.",
	)
	verifier := &factcheck.ScriptedVerifier{
		Rules:   map[string]factcheck.Status{"cheese": factcheck.StatusContested},
		Default: factcheck.StatusVerified,
	}
	e := newTestEngine(gen, verifier, Config{})

	answer := e.Orchestrate(context.Background(), Request{Query: "What is 2+2?", Mode: router.ModeSpeed})

	assert.Equal(t, original, answer.FinalText, "rejected recovery must not replace the answer")
	assert.True(t, answer.Degraded)
	assert.Equal(t, 1, answer.LoopbackAttempts)
	assert.Equal(t, 2, gen.Calls("alpha"), "recovery is bounded to one attempt")

	found := false
	for _, a := range answer.Annotations {
		if strings.Contains(a, "keeping original") {
			found = true
		}
	}
	assert.True(t, found, "annotations should record the rejected attempt: %v", answer.Annotations)
}

func TestLoopbackBroadensWhenTooManyClaimsFail(t *testing.T) {
	// Four contested claims exceed the correction budget, so recovery
	// broadens the query and re-runs the protocol end to end.
	gen := capability.NewScripted().Reply("alpha",
		"Zork is a planet near here. Zork is larger than Earth. Zork is made of iron. Zork is visible at night.",
		"The earth is round and orbits the sun.",
	)
	verifier := &factcheck.ScriptedVerifier{
		Rules:   map[string]factcheck.Status{"Zork": factcheck.StatusContested},
		Default: factcheck.StatusVerified,
	}
	e := newTestEngine(gen, verifier, Config{MaxCorrectableClaims: 3})

	answer := e.Orchestrate(context.Background(), Request{Query: "What is 2+2?", Mode: router.ModeSpeed})

	assert.Equal(t, 1, answer.LoopbackAttempts)
	assert.False(t, answer.Degraded)
	assert.NotContains(t, answer.FinalText, "Zork")
	assert.True(t, answer.FactCheck.IsValid)
}

func TestLoopbackBroadenedPromptCarriesEvidence(t *testing.T) {
	gen := capability.NewScripted().Reply("alpha",
		"Zork is a planet near here. Zork is larger than Earth. Zork is made of iron. Zork is visible at night.",
		"The earth is round and orbits the sun.",
	)
	verifier := &factcheck.ScriptedVerifier{
		Rules:    map[string]factcheck.Status{"Zork": factcheck.StatusContested},
		Evidence: map[string]string{"Zork": "no body by that name appears in any astronomical catalog"},
		Default:  factcheck.StatusVerified,
	}
	e := newTestEngine(gen, verifier, Config{MaxCorrectableClaims: 3})

	answer := e.Orchestrate(context.Background(), Request{Query: "What is 2+2?", Mode: router.ModeSpeed})

	assert.False(t, answer.Degraded)

	// The broadened re-run demands verifiable facts and carries the
	// verifier's evidence along.
	prompts := gen.Prompts("alpha")
	require.Len(t, prompts, 2)
	assert.Contains(t, prompts[1], "verifiable facts")
	assert.Contains(t, prompts[1], "no body by that name appears in any astronomical catalog")
}

func TestLoopbackRetryBound(t *testing.T) {
	// Every answer stays contested; with the retry bound raised the engine
	// makes exactly that many attempts, no more.
	gen := capability.NewScripted().
		Reply("alpha", "The moon is made of cheese today.")
	verifier := &factcheck.ScriptedVerifier{
		Rules:   map[string]factcheck.Status{"cheese": factcheck.StatusContested},
		Default: factcheck.StatusVerified,
	}
	e := newTestEngine(gen, verifier, Config{LoopbackMaxRetries: 2})

	answer := e.Orchestrate(context.Background(), Request{Query: "What is 2+2?", Mode: router.ModeSpeed})

	assert.Equal(t, 2, answer.LoopbackAttempts)
	assert.True(t, answer.Degraded)
	// Original call plus one regeneration per attempt.
	assert.Equal(t, 3, gen.Calls("alpha"))
}
