// Package config loads and validates quorum.yml, the engine's single
// configuration file: the model roster, router thresholds, protocol
// bounds, recovery limits, and optional Redis persistence.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dyluth/quorum/internal/orchestrator"
	"github.com/dyluth/quorum/internal/protocol"
	"github.com/dyluth/quorum/internal/registry"
	"github.com/dyluth/quorum/internal/router"
)

// QuorumConfig represents the top-level quorum.yml configuration.
type QuorumConfig struct {
	Version      string              `yaml:"version"`
	Models       []Model             `yaml:"models"`
	Router       *RouterConfig       `yaml:"router,omitempty"`
	Protocols    *ProtocolConfig     `yaml:"protocols,omitempty"`
	Orchestrator *OrchestratorConfig `yaml:"orchestrator,omitempty"`
	Redis        *RedisConfig        `yaml:"redis,omitempty"`
}

// Model seeds one model profile. Order in the file is selection
// tie-breaking order, so models is a list, not a map.
type Model struct {
	ID        string             `yaml:"id"`
	Expertise map[string]float64 `yaml:"expertise,omitempty"`

	// Reliability is the starting reliability weight in [0,1].
	// Default 0.8; learned outcomes move it from there.
	Reliability *float64 `yaml:"reliability,omitempty"`

	// SuccessRate is the starting success rate in [0,1]. Default 0.5,
	// a neutral prior.
	SuccessRate *float64 `yaml:"success_rate,omitempty"`

	// AvgLatencyMS seeds the latency estimate used for vote tie-breaking.
	AvgLatencyMS *int `yaml:"avg_latency_ms,omitempty"`
}

// RouterConfig overrides the router's default thresholds.
type RouterConfig struct {
	MinQualityThreshold *float64 `yaml:"min_quality_threshold,omitempty"` // Default 0.5
	MaxFallbackAttempts *int     `yaml:"max_fallback_attempts,omitempty"` // Default 2
	MaxEnsembleSize     *int     `yaml:"max_ensemble_size,omitempty"`     // Default 4
	CallTimeoutSeconds  *int     `yaml:"call_timeout_seconds,omitempty"`  // Default 30
}

// ProtocolConfig overrides the protocol executors' bounds.
type ProtocolConfig struct {
	DraftModels           *int     `yaml:"draft_models,omitempty"`           // Default 3, clamped to [2,4]
	ConsensusRounds       *int     `yaml:"consensus_rounds,omitempty"`       // Default 2
	MaxRefineIterations   *int     `yaml:"max_refine_iterations,omitempty"`  // Default 3
	ConvergenceSimilarity *float64 `yaml:"convergence_similarity,omitempty"` // Default 0.8
}

// OrchestratorConfig specifies recovery behavior.
type OrchestratorConfig struct {
	LoopbackMaxRetries    *int     `yaml:"loopback_max_retries,omitempty"`   // Default 1
	MaxCorrectableClaims  *int     `yaml:"max_correctable_claims,omitempty"` // Default 3
	VerificationThreshold *float64 `yaml:"verification_threshold,omitempty"` // Default 0.6
}

// RedisConfig enables profile persistence across restarts. Persistence is
// off when this section is absent.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	Instance string `yaml:"instance"` // Key namespace; required when addr is set
}

// Validate performs strict validation and fills in defaults.
func (c *QuorumConfig) Validate() error {
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if len(c.Models) == 0 {
		return fmt.Errorf("no models defined")
	}

	seen := make(map[string]bool, len(c.Models))
	for i := range c.Models {
		if err := c.Models[i].validate(); err != nil {
			return err
		}
		if seen[c.Models[i].ID] {
			return fmt.Errorf("duplicate model id '%s'", c.Models[i].ID)
		}
		seen[c.Models[i].ID] = true
	}

	if c.Router != nil {
		if err := c.Router.validate(); err != nil {
			return err
		}
	}
	if c.Protocols != nil {
		if err := c.Protocols.validate(); err != nil {
			return err
		}
	}
	if c.Orchestrator != nil {
		if err := c.Orchestrator.validate(); err != nil {
			return err
		}
	}
	if c.Redis != nil {
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis.addr is required when the redis section is present")
		}
		if c.Redis.Instance == "" {
			return fmt.Errorf("redis.instance is required when the redis section is present")
		}
	}

	return nil
}

func (m *Model) validate() error {
	if m.ID == "" {
		return fmt.Errorf("model with empty id")
	}
	for domain, score := range m.Expertise {
		if score < 0 || score > 1 {
			return fmt.Errorf("model '%s': expertise for domain '%s' must be in [0,1], got %g", m.ID, domain, score)
		}
	}
	if m.Reliability != nil && (*m.Reliability < 0 || *m.Reliability > 1) {
		return fmt.Errorf("model '%s': reliability must be in [0,1], got %g", m.ID, *m.Reliability)
	}
	if m.SuccessRate != nil && (*m.SuccessRate < 0 || *m.SuccessRate > 1) {
		return fmt.Errorf("model '%s': success_rate must be in [0,1], got %g", m.ID, *m.SuccessRate)
	}
	if m.AvgLatencyMS != nil && *m.AvgLatencyMS < 0 {
		return fmt.Errorf("model '%s': avg_latency_ms must be >= 0, got %d", m.ID, *m.AvgLatencyMS)
	}
	return nil
}

func (r *RouterConfig) validate() error {
	if r.MinQualityThreshold != nil && (*r.MinQualityThreshold < 0 || *r.MinQualityThreshold > 1) {
		return fmt.Errorf("router.min_quality_threshold must be in [0,1], got %g", *r.MinQualityThreshold)
	}
	if r.MaxFallbackAttempts != nil && *r.MaxFallbackAttempts < 0 {
		return fmt.Errorf("router.max_fallback_attempts must be >= 0, got %d", *r.MaxFallbackAttempts)
	}
	if r.MaxEnsembleSize != nil && (*r.MaxEnsembleSize < 2 || *r.MaxEnsembleSize > 4) {
		return fmt.Errorf("router.max_ensemble_size must be in [2,4], got %d", *r.MaxEnsembleSize)
	}
	if r.CallTimeoutSeconds != nil && *r.CallTimeoutSeconds < 1 {
		return fmt.Errorf("router.call_timeout_seconds must be >= 1, got %d", *r.CallTimeoutSeconds)
	}
	return nil
}

func (p *ProtocolConfig) validate() error {
	if p.DraftModels != nil && (*p.DraftModels < 2 || *p.DraftModels > 4) {
		return fmt.Errorf("protocols.draft_models must be in [2,4], got %d", *p.DraftModels)
	}
	if p.ConsensusRounds != nil && *p.ConsensusRounds < 1 {
		return fmt.Errorf("protocols.consensus_rounds must be >= 1, got %d", *p.ConsensusRounds)
	}
	if p.MaxRefineIterations != nil && *p.MaxRefineIterations < 1 {
		return fmt.Errorf("protocols.max_refine_iterations must be >= 1, got %d", *p.MaxRefineIterations)
	}
	if p.ConvergenceSimilarity != nil && (*p.ConvergenceSimilarity <= 0 || *p.ConvergenceSimilarity > 1) {
		return fmt.Errorf("protocols.convergence_similarity must be in (0,1], got %g", *p.ConvergenceSimilarity)
	}
	return nil
}

func (o *OrchestratorConfig) validate() error {
	if o.LoopbackMaxRetries != nil && *o.LoopbackMaxRetries < 1 {
		return fmt.Errorf("orchestrator.loopback_max_retries must be >= 1, got %d", *o.LoopbackMaxRetries)
	}
	if o.MaxCorrectableClaims != nil && *o.MaxCorrectableClaims < 1 {
		return fmt.Errorf("orchestrator.max_correctable_claims must be >= 1, got %d", *o.MaxCorrectableClaims)
	}
	if o.VerificationThreshold != nil && (*o.VerificationThreshold <= 0 || *o.VerificationThreshold > 1) {
		return fmt.Errorf("orchestrator.verification_threshold must be in (0,1], got %g", *o.VerificationThreshold)
	}
	return nil
}

// Load reads and validates quorum.yml from the specified path.
func Load(path string) (*QuorumConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config QuorumConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Profiles converts the model roster into registry seed profiles,
// preserving file order.
func (c *QuorumConfig) Profiles() []*registry.ModelProfile {
	profiles := make([]*registry.ModelProfile, 0, len(c.Models))
	for _, m := range c.Models {
		p := &registry.ModelProfile{
			ID:                m.ID,
			DomainExpertise:   m.Expertise,
			ReliabilityWeight: 0.8,
			SuccessRate:       0.5,
		}
		if p.DomainExpertise == nil {
			p.DomainExpertise = map[string]float64{"general": 0.5}
		}
		if m.Reliability != nil {
			p.ReliabilityWeight = *m.Reliability
		}
		if m.SuccessRate != nil {
			p.SuccessRate = *m.SuccessRate
		}
		if m.AvgLatencyMS != nil {
			p.AvgLatency = time.Duration(*m.AvgLatencyMS) * time.Millisecond
		}
		profiles = append(profiles, p)
	}
	return profiles
}

// RouterConfig builds the router configuration, zero-valued fields
// deferring to the router's own defaults.
func (c *QuorumConfig) RouterConfig() router.Config {
	var cfg router.Config
	if c.Router == nil {
		return cfg
	}
	if c.Router.MinQualityThreshold != nil {
		cfg.MinQualityThreshold = *c.Router.MinQualityThreshold
	}
	if c.Router.MaxFallbackAttempts != nil {
		cfg.MaxFallbackAttempts = *c.Router.MaxFallbackAttempts
	}
	if c.Router.MaxEnsembleSize != nil {
		cfg.MaxEnsembleSize = *c.Router.MaxEnsembleSize
	}
	if c.Router.CallTimeoutSeconds != nil {
		cfg.CallTimeout = time.Duration(*c.Router.CallTimeoutSeconds) * time.Second
	}
	return cfg
}

// ProtocolConfig builds the protocol executor configuration.
func (c *QuorumConfig) ProtocolConfig() protocol.Config {
	var cfg protocol.Config
	if c.Protocols == nil {
		return cfg
	}
	if c.Protocols.DraftModels != nil {
		cfg.DraftModels = *c.Protocols.DraftModels
	}
	if c.Protocols.ConsensusRounds != nil {
		cfg.ConsensusRounds = *c.Protocols.ConsensusRounds
	}
	if c.Protocols.MaxRefineIterations != nil {
		cfg.MaxRefineIterations = *c.Protocols.MaxRefineIterations
	}
	if c.Protocols.ConvergenceSimilarity != nil {
		cfg.ConvergenceSimilarity = *c.Protocols.ConvergenceSimilarity
	}
	return cfg
}

// EngineConfig builds the orchestrator configuration.
func (c *QuorumConfig) EngineConfig() orchestrator.Config {
	var cfg orchestrator.Config
	if c.Orchestrator == nil {
		return cfg
	}
	if c.Orchestrator.LoopbackMaxRetries != nil {
		cfg.LoopbackMaxRetries = *c.Orchestrator.LoopbackMaxRetries
	}
	if c.Orchestrator.MaxCorrectableClaims != nil {
		cfg.MaxCorrectableClaims = *c.Orchestrator.MaxCorrectableClaims
	}
	return cfg
}

// VerificationThreshold returns the configured fact-check threshold, or 0
// to defer to the checker's default.
func (c *QuorumConfig) VerificationThreshold() float64 {
	if c.Orchestrator != nil && c.Orchestrator.VerificationThreshold != nil {
		return *c.Orchestrator.VerificationThreshold
	}
	return 0
}
