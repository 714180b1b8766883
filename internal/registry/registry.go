// Package registry tracks model profiles — capability scores, historical
// success rate, and latency — and ranks candidate models for the router.
//
// Profiles are the only state shared across concurrent requests. Updates
// use an exponential moving average so each write is a small nudge rather
// than an authoritative assignment; concurrent writers do not need a
// transaction.
package registry

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"
)

// Selection score weights: domain expertise dominates, then observed
// success rate, then the static reliability weight.
const (
	expertiseWeight   = 0.5
	successRateWeight = 0.3
	reliabilityWeight = 0.2

	// emaRetention keeps 90% of history per update so recent performance
	// dominates without discarding the past.
	emaRetention = 0.9

	// DefaultMinReliability excludes models below this reliability floor
	// from candidate selection.
	DefaultMinReliability = 0.2
)

// ModelProfile describes one model's routing-relevant characteristics.
// Mutated after every completed call via RecordOutcome; owned exclusively
// by the Registry.
type ModelProfile struct {
	ID                string             `json:"id"`
	DomainExpertise   map[string]float64 `json:"domain_expertise"`
	ReliabilityWeight float64            `json:"reliability_weight"`
	SuccessRate       float64            `json:"success_rate"`
	AvgLatency        time.Duration      `json:"avg_latency"`
	TotalQueries      int                `json:"total_queries"`
	SuccessfulQueries int                `json:"successful_queries"`
}

// Expertise returns the profile's expertise score for a domain, or the
// "general" score when the domain is unknown to the profile.
func (p *ModelProfile) Expertise(domain string) float64 {
	if score, ok := p.DomainExpertise[domain]; ok {
		return score
	}
	return p.DomainExpertise["general"]
}

// clone returns a deep copy so callers can never mutate registry state.
func (p *ModelProfile) clone() *ModelProfile {
	expertise := make(map[string]float64, len(p.DomainExpertise))
	for k, v := range p.DomainExpertise {
		expertise[k] = v
	}
	copied := *p
	copied.DomainExpertise = expertise
	return &copied
}

// Registry holds all model profiles and answers candidate-selection
// queries. It is safe for concurrent use.
type Registry struct {
	mu             sync.RWMutex
	profiles       map[string]*ModelProfile
	order          []string // insertion order, for deterministic tie-breaking
	store          *Store   // optional write-through persistence
	minReliability float64
}

// New creates a registry seeded with the given profiles. Profiles persist
// across requests for the life of the process; pass a Store to also persist
// them across restarts.
func New(profiles []*ModelProfile, store *Store) *Registry {
	r := &Registry{
		profiles:       make(map[string]*ModelProfile, len(profiles)),
		store:          store,
		minReliability: DefaultMinReliability,
	}
	for _, p := range profiles {
		r.add(p.clone())
	}
	return r
}

// SetMinReliability overrides the reliability floor used by SelectCandidates.
func (r *Registry) SetMinReliability(floor float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.minReliability = floor
}

func (r *Registry) add(p *ModelProfile) {
	if _, exists := r.profiles[p.ID]; !exists {
		r.order = append(r.order, p.ID)
	}
	r.profiles[p.ID] = p
}

// RestoreFromStore merges persisted profiles from the store over the seeded
// ones, so learned success rates and latencies survive process restarts.
// Profiles present only in the store are added. Returns the number of
// profiles restored; store errors are logged, never fatal.
func (r *Registry) RestoreFromStore(ctx context.Context) int {
	if r.store == nil {
		return 0
	}

	persisted, err := r.store.LoadProfiles(ctx)
	if err != nil {
		log.Printf("[Registry] Warning: could not restore profiles from store: %v", err)
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	restored := 0
	for _, p := range persisted {
		if seeded, exists := r.profiles[p.ID]; exists {
			// Learned fields come from the store; static expertise and
			// reliability stay authoritative in configuration.
			seeded.SuccessRate = p.SuccessRate
			seeded.AvgLatency = p.AvgLatency
			seeded.TotalQueries = p.TotalQueries
			seeded.SuccessfulQueries = p.SuccessfulQueries
		} else {
			r.add(p.clone())
		}
		restored++
	}

	if restored > 0 {
		log.Printf("[Registry] Restored %d model profiles from store", restored)
	}
	return restored
}

// Profile returns a copy of the profile for id, or (nil, false) if unknown.
func (r *Registry) Profile(id string) (*ModelProfile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, exists := r.profiles[id]
	if !exists {
		return nil, false
	}
	return p.clone(), true
}

// Profiles returns copies of every profile in insertion order.
func (r *Registry) Profiles() []*ModelProfile {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*ModelProfile, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.profiles[id].clone())
	}
	return out
}

// Reliability returns the reliability weight for a model, or 0 if unknown.
func (r *Registry) Reliability(id string) float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if p, exists := r.profiles[id]; exists {
		return p.ReliabilityWeight
	}
	return 0
}

// Expertise returns a model's expertise for a domain, or 0 if unknown.
func (r *Registry) Expertise(id, domain string) float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if p, exists := r.profiles[id]; exists {
		return p.Expertise(domain)
	}
	return 0
}

// SelectionScore computes the weighted ranking score used by
// SelectCandidates. Exposed for the router's telemetry reasoning.
func SelectionScore(p *ModelProfile, domain string) float64 {
	return expertiseWeight*p.Expertise(domain) +
		successRateWeight*p.SuccessRate +
		reliabilityWeight*p.ReliabilityWeight
}

// SelectCandidates returns profile copies ordered by descending selection
// score. Models below the minimum reliability floor are excluded. Ties keep
// insertion order, so selection is deterministic and reproducible.
func (r *Registry) SelectCandidates(domain string) []*ModelProfile {
	r.mu.RLock()
	defer r.mu.RUnlock()

	candidates := make([]*ModelProfile, 0, len(r.order))
	for _, id := range r.order {
		p := r.profiles[id]
		if p.ReliabilityWeight < r.minReliability {
			continue
		}
		candidates = append(candidates, p.clone())
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return SelectionScore(candidates[i], domain) > SelectionScore(candidates[j], domain)
	})

	return candidates
}

// RecordOutcome updates a model's profile after a completed call using an
// exponential moving average. Unknown model IDs are logged warnings and
// otherwise no-ops: the registry must never abort a live request over a
// bookkeeping failure.
func (r *Registry) RecordOutcome(modelID string, success bool, latency time.Duration, domain string) {
	r.mu.Lock()

	p, exists := r.profiles[modelID]
	if !exists {
		r.mu.Unlock()
		log.Printf("[Registry] Warning: outcome recorded for unknown model '%s', ignoring", modelID)
		return
	}

	sample := 0.0
	if success {
		sample = 1.0
		p.SuccessfulQueries++
	}
	p.TotalQueries++
	p.SuccessRate = p.SuccessRate*emaRetention + sample*(1-emaRetention)

	if p.AvgLatency == 0 {
		p.AvgLatency = latency
	} else {
		p.AvgLatency = time.Duration(float64(p.AvgLatency)*emaRetention + float64(latency)*(1-emaRetention))
	}

	snapshot := p.clone()
	store := r.store
	r.mu.Unlock()

	if store != nil {
		// Fire-and-forget write-through: persistence must never block or
		// fail the request path.
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := store.SaveProfile(ctx, snapshot); err != nil {
				log.Printf("[Registry] Warning: failed to persist profile '%s': %v", modelID, err)
			}
		}()
	}
}
