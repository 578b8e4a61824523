package flight

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Fleet size limits.
const (
	MinAgents = 8
	MaxAgents = 16
)

// Formation strategy names.
const (
	StrategyGeometric = "geometric"
	StrategyZonal     = "zonal"
)

// ErrInvalidConfig is wrapped by every configuration rejection.
var ErrInvalidConfig = errors.New("invalid configuration")

//go:embed config.schema.json
var configSchema string

type Config struct {
	// Fleet
	AgentCount int    `json:"agentCount" toml:"agentCount"`
	Strategy   string `json:"strategy" toml:"strategy"`

	// Flight volume
	MinHeight             float64 `json:"minHeight" toml:"minHeight"`
	MaxHeight             float64 `json:"maxHeight" toml:"maxHeight"`
	MaxDistanceFromCenter float64 `json:"maxDistanceFromCenter" toml:"maxDistanceFromCenter"`

	// Field rectangle (X spans the width, Z the length), goals keep FieldMargin inside it
	FieldWidth  float64 `json:"fieldWidth" toml:"fieldWidth"`
	FieldLength float64 `json:"fieldLength" toml:"fieldLength"`
	FieldMargin float64 `json:"fieldMargin" toml:"fieldMargin"`

	// Potential field
	RepulsionRadius float64 `json:"repulsionRadius" toml:"repulsionRadius"`
	RepulsionForce  float64 `json:"repulsionForce" toml:"repulsionForce"`
	BoundaryForce   float64 `json:"boundaryForce" toml:"boundaryForce"`
	AttractionForce float64 `json:"attractionForce" toml:"attractionForce"`
	NoiseScale      float64 `json:"noiseScale" toml:"noiseScale"`
	Gravity         float64 `json:"gravity" toml:"gravity"`

	// Primary tracking agents orbit the target centroid in their own height band
	PrimaryTrackingIndices []int      `json:"primaryTrackingIndices" toml:"primaryTrackingIndices"`
	PrimaryHeightBand      [2]float64 `json:"primaryHeightBand" toml:"primaryHeightBand"`

	// Control
	ControlRate            float64 `json:"controlRate" toml:"controlRate"`       // Hz
	ReplanInterval         float64 `json:"replanInterval" toml:"replanInterval"` // seconds
	MaxSpeed               float64 `json:"maxSpeed" toml:"maxSpeed"`
	MaxAcceleration        float64 `json:"maxAcceleration" toml:"maxAcceleration"`
	UseTrajectoryOptimizer bool    `json:"useTrajectoryOptimizer" toml:"useTrajectoryOptimizer"`
}

func DefaultConfig() *Config {
	return &Config{
		AgentCount:             12,
		Strategy:               StrategyGeometric,
		MinHeight:              5,
		MaxHeight:              20,
		MaxDistanceFromCenter:  40,
		FieldWidth:             48.8,
		FieldLength:            109.7,
		FieldMargin:            5,
		RepulsionRadius:        15,
		RepulsionForce:         50,
		BoundaryForce:          12,
		AttractionForce:        0.8,
		NoiseScale:             0.2,
		Gravity:                9.81,
		PrimaryTrackingIndices: []int{0, 1, 2, 3},
		PrimaryHeightBand:      [2]float64{5, 10},
		ControlRate:            60,
		ReplanInterval:         0.5,
		MaxSpeed:               10,
		MaxAcceleration:        8,
		UseTrajectoryOptimizer: true,
	}
}

// TimeStep is the fixed control period in seconds.
func (c *Config) TimeStep() float64 {
	if c.ControlRate <= 0 {
		return 1.0 / 60
	}
	return 1 / c.ControlRate
}

// IsPrimary reports whether the agent index belongs to the primary tracking set.
func (c *Config) IsPrimary(index int) bool {
	for _, p := range c.PrimaryTrackingIndices {
		if p == index {
			return true
		}
	}
	return false
}

// Validate enforces the cross-field rules the schema cannot express.
func (c *Config) Validate() error {
	if err := ValidateAgentCount(c.AgentCount); err != nil {
		return err
	}
	for name, v := range map[string]float64{
		"minHeight":             c.MinHeight,
		"maxHeight":             c.MaxHeight,
		"maxDistanceFromCenter": c.MaxDistanceFromCenter,
		"repulsionRadius":       c.RepulsionRadius,
		"controlRate":           c.ControlRate,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s must be finite, got %v", ErrInvalidConfig, name, v)
		}
	}
	if c.MinHeight >= c.MaxHeight {
		return fmt.Errorf("%w: minHeight %.2f must be below maxHeight %.2f", ErrInvalidConfig, c.MinHeight, c.MaxHeight)
	}
	if c.MaxDistanceFromCenter <= 0 {
		return fmt.Errorf("%w: maxDistanceFromCenter must be positive, got %.2f", ErrInvalidConfig, c.MaxDistanceFromCenter)
	}
	if c.RepulsionRadius <= 0 {
		return fmt.Errorf("%w: repulsionRadius must be positive, got %.2f", ErrInvalidConfig, c.RepulsionRadius)
	}
	lo, hi := c.PrimaryHeightBand[0], c.PrimaryHeightBand[1]
	if lo > hi {
		return fmt.Errorf("%w: primaryHeightBand [%.2f, %.2f] is inverted", ErrInvalidConfig, lo, hi)
	}
	if lo < c.MinHeight || hi > c.MaxHeight {
		return fmt.Errorf("%w: primaryHeightBand [%.2f, %.2f] outside flight band [%.2f, %.2f]",
			ErrInvalidConfig, lo, hi, c.MinHeight, c.MaxHeight)
	}
	for _, idx := range c.PrimaryTrackingIndices {
		if idx < 0 {
			return fmt.Errorf("%w: negative primary tracking index %d", ErrInvalidConfig, idx)
		}
	}
	switch c.Strategy {
	case StrategyGeometric, StrategyZonal:
	default:
		return fmt.Errorf("%w: unknown strategy %q", ErrInvalidConfig, c.Strategy)
	}
	return nil
}

// ValidateAgentCount rejects fleet sizes outside [MinAgents, MaxAgents].
func ValidateAgentCount(n int) error {
	if n < MinAgents || n > MaxAgents {
		return fmt.Errorf("%w: agentCount %d outside [%d, %d]", ErrInvalidConfig, n, MinAgents, MaxAgents)
	}
	return nil
}

// LoadConfig loads a JSON or TOML configuration file on top of the defaults,
// validates it against the embedded schema and then checks the cross-field rules.
func LoadConfig(configFile string) (*Config, error) {
	b, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	cfg := DefaultConfig()
	switch strings.ToLower(filepath.Ext(configFile)) {
	case ".toml":
		if _, err := toml.Decode(string(b), cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config toml: %w", err)
		}
		// the schema speaks JSON, so validate the merged struct in that form
		if b, err = json.Marshal(cfg); err != nil {
			return nil, fmt.Errorf("failed to re-encode config: %w", err)
		}
		if err := validateSchema(b); err != nil {
			return nil, err
		}
	case ".json", "":
		if err := validateSchema(b); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported config format %q", ErrInvalidConfig, filepath.Ext(configFile))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateSchema(doc []byte) error {
	sch, err := jsonschema.CompileString("config.schema.json", configSchema)
	if err != nil {
		return fmt.Errorf("failed to compile schema: %w", err)
	}

	var v interface{}
	if err := json.Unmarshal(doc, &v); err != nil {
		return fmt.Errorf("failed to decode config json: %w", err)
	}
	if err := sch.Validate(v); err != nil {
		return fmt.Errorf("%w: config validation failed: %w", ErrInvalidConfig, err)
	}
	return nil
}
