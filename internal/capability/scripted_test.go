package capability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScriptedRepliesInOrder(t *testing.T) {
	gen := NewScripted().Reply("model-a", "first", "second")

	r1, err := gen.Generate(context.Background(), "q", "model-a")
	require.NoError(t, err)
	assert.Equal(t, "first", r1.Content)

	r2, err := gen.Generate(context.Background(), "q", "model-a")
	require.NoError(t, err)
	assert.Equal(t, "second", r2.Content)

	// Last reply repeats once the queue is exhausted.
	r3, err := gen.Generate(context.Background(), "q", "model-a")
	require.NoError(t, err)
	assert.Equal(t, "second", r3.Content)

	assert.Equal(t, 3, gen.Calls("model-a"))
}

func TestScriptedRecordsPrompts(t *testing.T) {
	gen := NewScripted().Reply("model-a", "ok")

	_, err := gen.Generate(context.Background(), "first prompt", "model-a")
	require.NoError(t, err)
	_, err = gen.Generate(context.Background(), "second prompt", "model-a")
	require.NoError(t, err)

	assert.Equal(t, []string{"first prompt", "second prompt"}, gen.Prompts("model-a"))
	assert.Empty(t, gen.Prompts("model-b"))
}

func TestScriptedUnscriptedModelEchoes(t *testing.T) {
	gen := NewScripted()

	result, err := gen.Generate(context.Background(), "what is 2+2?", "model-b")
	require.NoError(t, err)
	assert.Contains(t, result.Content, "model-b")
	assert.Contains(t, result.Content, "what is 2+2?")
	assert.Greater(t, result.Tokens, 0)
}

func TestScriptedFailure(t *testing.T) {
	boom := errors.New("provider unavailable")
	gen := NewScripted().Fail("model-c", boom)

	_, err := gen.Generate(context.Background(), "q", "model-c")
	assert.ErrorIs(t, err, boom)
}

func TestScriptedDelayRespectsContext(t *testing.T) {
	gen := NewScripted().Delay("slow", time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := gen.Generate(ctx, "q", "slow")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
