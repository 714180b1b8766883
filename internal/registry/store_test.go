package registry

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	store, err := NewStore(&redis.Options{Addr: mr.Addr()}, "test")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

func TestNewStoreRequiresInstanceName(t *testing.T) {
	_, err := NewStore(&redis.Options{}, "")
	assert.Error(t, err)
}

func TestSaveAndLoadProfiles(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	original := &ModelProfile{
		ID:                "gpt-smart",
		DomainExpertise:   map[string]float64{"general": 0.8, "technical": 0.9},
		ReliabilityWeight: 0.75,
		SuccessRate:       0.91,
		AvgLatency:        1200 * time.Millisecond,
		TotalQueries:      42,
		SuccessfulQueries: 38,
	}

	require.NoError(t, store.SaveProfile(ctx, original))

	profiles, err := store.LoadProfiles(ctx)
	require.NoError(t, err)
	require.Len(t, profiles, 1)

	loaded := profiles[0]
	assert.Equal(t, original.ID, loaded.ID)
	assert.Equal(t, original.DomainExpertise, loaded.DomainExpertise)
	assert.Equal(t, original.ReliabilityWeight, loaded.ReliabilityWeight)
	assert.Equal(t, original.SuccessRate, loaded.SuccessRate)
	assert.Equal(t, original.AvgLatency, loaded.AvgLatency)
	assert.Equal(t, original.TotalQueries, loaded.TotalQueries)
	assert.Equal(t, original.SuccessfulQueries, loaded.SuccessfulQueries)
}

func TestSaveProfileIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	p := &ModelProfile{
		ID:                "m",
		DomainExpertise:   map[string]float64{"general": 0.5},
		ReliabilityWeight: 0.5,
	}

	require.NoError(t, store.SaveProfile(ctx, p))
	require.NoError(t, store.SaveProfile(ctx, p))

	profiles, err := store.LoadProfiles(ctx)
	require.NoError(t, err)
	assert.Len(t, profiles, 1)
}

func TestLoadProfilesSkipsCorruptEntries(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveProfile(ctx, &ModelProfile{
		ID:                "good",
		DomainExpertise:   map[string]float64{"general": 0.5},
		ReliabilityWeight: 0.5,
	}))

	// A hash with a mangled numeric field, as a partial write could leave.
	require.NoError(t, store.rdb.HSet(ctx, modelKey("test", "bad"), map[string]any{
		"id":                 "bad",
		"reliability_weight": "not-a-number",
	}).Err())
	require.NoError(t, store.rdb.SAdd(ctx, modelIndexKey("test"), "bad").Err())

	profiles, err := store.LoadProfiles(ctx)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, "good", profiles[0].ID)
}

func TestLoadProfilesEmptyInstance(t *testing.T) {
	store := newTestStore(t)

	profiles, err := store.LoadProfiles(context.Background())
	require.NoError(t, err)
	assert.Empty(t, profiles)
}

func TestRestoreFromStoreMergesLearnedFields(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Persisted profile has learned state from a previous run.
	require.NoError(t, store.SaveProfile(ctx, &ModelProfile{
		ID:                "gpt-smart",
		DomainExpertise:   map[string]float64{"general": 0.1}, // stale, config wins
		ReliabilityWeight: 0.1,                                // stale, config wins
		SuccessRate:       0.42,
		AvgLatency:        900 * time.Millisecond,
		TotalQueries:      10,
		SuccessfulQueries: 4,
	}))

	r := New([]*ModelProfile{{
		ID:                "gpt-smart",
		DomainExpertise:   map[string]float64{"general": 0.8},
		ReliabilityWeight: 0.9,
		SuccessRate:       0.5,
	}}, store)

	restored := r.RestoreFromStore(ctx)
	assert.Equal(t, 1, restored)

	p, ok := r.Profile("gpt-smart")
	require.True(t, ok)
	assert.Equal(t, 0.42, p.SuccessRate, "learned success rate restored")
	assert.Equal(t, 900*time.Millisecond, p.AvgLatency)
	assert.Equal(t, 10, p.TotalQueries)
	assert.Equal(t, 0.8, p.DomainExpertise["general"], "static expertise stays from config")
	assert.Equal(t, 0.9, p.ReliabilityWeight, "static reliability stays from config")
}

func TestRecordOutcomeWritesThroughToStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	r := New([]*ModelProfile{{
		ID:                "m",
		DomainExpertise:   map[string]float64{"general": 0.5},
		ReliabilityWeight: 0.5,
		SuccessRate:       0.5,
	}}, store)

	r.RecordOutcome("m", true, 50*time.Millisecond, "general")

	// Write-through is asynchronous; poll briefly.
	deadline := time.Now().Add(2 * time.Second)
	for {
		profiles, err := store.LoadProfiles(ctx)
		require.NoError(t, err)
		if len(profiles) == 1 {
			assert.Equal(t, 1, profiles[0].TotalQueries)
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("profile was never persisted")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
