package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store persists model profiles in Redis so routing quality survives
// process restarts. All keys are namespaced by instance name so multiple
// engine instances can share one Redis server.
//
// Profiles are stored as hashes at quorum:{instance}:model:{id}, with an
// index set at quorum:{instance}:models listing known IDs.
type Store struct {
	rdb          *redis.Client
	instanceName string
}

// NewStore creates a profile store for the given instance.
// Returns an error if instanceName is empty.
func NewStore(redisOpts *redis.Options, instanceName string) (*Store, error) {
	if instanceName == "" {
		return nil, fmt.Errorf("instance name cannot be empty")
	}
	return &Store{
		rdb:          redis.NewClient(redisOpts),
		instanceName: instanceName,
	}, nil
}

// Close closes the Redis connection. Implements io.Closer.
func (s *Store) Close() error {
	return s.rdb.Close()
}

// Ping verifies Redis connectivity. Useful for health checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// modelKey returns the hash key for one profile.
func modelKey(instance, modelID string) string {
	return fmt.Sprintf("quorum:%s:model:%s", instance, modelID)
}

// modelIndexKey returns the set key listing all persisted model IDs.
func modelIndexKey(instance string) string {
	return fmt.Sprintf("quorum:%s:models", instance)
}

// profileToHash converts a profile to a flat Redis hash. The expertise map
// is JSON-encoded into a single field.
func profileToHash(p *ModelProfile) (map[string]any, error) {
	expertise, err := json.Marshal(p.DomainExpertise)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal domain expertise: %w", err)
	}
	return map[string]any{
		"id":                 p.ID,
		"domain_expertise":   string(expertise),
		"reliability_weight": strconv.FormatFloat(p.ReliabilityWeight, 'f', -1, 64),
		"success_rate":       strconv.FormatFloat(p.SuccessRate, 'f', -1, 64),
		"avg_latency_ms":     strconv.FormatInt(p.AvgLatency.Milliseconds(), 10),
		"total_queries":      strconv.Itoa(p.TotalQueries),
		"successful_queries": strconv.Itoa(p.SuccessfulQueries),
	}, nil
}

// hashToProfile converts a Redis hash back into a profile.
func hashToProfile(hash map[string]string) (*ModelProfile, error) {
	id := hash["id"]
	if id == "" {
		return nil, fmt.Errorf("profile hash missing id field")
	}

	expertise := make(map[string]float64)
	if raw := hash["domain_expertise"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &expertise); err != nil {
			return nil, fmt.Errorf("failed to unmarshal domain expertise: %w", err)
		}
	}

	reliability, err := strconv.ParseFloat(hash["reliability_weight"], 64)
	if err != nil {
		return nil, fmt.Errorf("invalid reliability_weight: %w", err)
	}
	successRate, err := strconv.ParseFloat(hash["success_rate"], 64)
	if err != nil {
		return nil, fmt.Errorf("invalid success_rate: %w", err)
	}
	latencyMs, err := strconv.ParseInt(hash["avg_latency_ms"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid avg_latency_ms: %w", err)
	}
	totalQueries, err := strconv.Atoi(hash["total_queries"])
	if err != nil {
		return nil, fmt.Errorf("invalid total_queries: %w", err)
	}
	successfulQueries, err := strconv.Atoi(hash["successful_queries"])
	if err != nil {
		return nil, fmt.Errorf("invalid successful_queries: %w", err)
	}

	return &ModelProfile{
		ID:                id,
		DomainExpertise:   expertise,
		ReliabilityWeight: reliability,
		SuccessRate:       successRate,
		AvgLatency:        time.Duration(latencyMs) * time.Millisecond,
		TotalQueries:      totalQueries,
		SuccessfulQueries: successfulQueries,
	}, nil
}

// SaveProfile writes one profile and adds it to the instance index.
// Idempotent: writing the same profile twice is safe.
func (s *Store) SaveProfile(ctx context.Context, p *ModelProfile) error {
	hash, err := profileToHash(p)
	if err != nil {
		return fmt.Errorf("failed to serialize profile: %w", err)
	}

	key := modelKey(s.instanceName, p.ID)
	if err := s.rdb.HSet(ctx, key, hash).Err(); err != nil {
		return fmt.Errorf("failed to write profile to Redis: %w", err)
	}

	if err := s.rdb.SAdd(ctx, modelIndexKey(s.instanceName), p.ID).Err(); err != nil {
		return fmt.Errorf("failed to index profile: %w", err)
	}

	return nil
}

// LoadProfiles reads every persisted profile for this instance. Profiles
// that fail to deserialize are skipped; an index entry with no hash is
// ignored (eviction may have removed it).
func (s *Store) LoadProfiles(ctx context.Context) ([]*ModelProfile, error) {
	ids, err := s.rdb.SMembers(ctx, modelIndexKey(s.instanceName)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read model index: %w", err)
	}

	profiles := make([]*ModelProfile, 0, len(ids))
	for _, id := range ids {
		hash, err := s.rdb.HGetAll(ctx, modelKey(s.instanceName, id)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read profile '%s': %w", id, err)
		}
		if len(hash) == 0 {
			continue
		}
		p, err := hashToProfile(hash)
		if err != nil {
			// Skip corrupt entries rather than failing startup.
			log.Printf("[Registry] Warning: skipping corrupt profile '%s': %v", id, err)
			continue
		}
		profiles = append(profiles, p)
	}

	return profiles, nil
}
