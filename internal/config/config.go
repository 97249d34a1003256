package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultWidth          = 1240
	DefaultHeight         = 1350
	DefaultRadius         = 2.5
	DefaultCharge         = -15.0
	DefaultBatchSize      = 10
	DefaultBatchInterval  = 30
	DefaultFrameInterval  = 16
	DefaultAlphaDecay     = 0.9772
	DefaultAlphaMin       = 0.1
	DefaultVelocityDecay  = 0.6
	DefaultPhaseDecay     = 0.5
	DefaultSettleFraction = 1.0 / 3
	DefaultPhaseFraction  = 1.0 / 6
	DefaultSynthetic      = 600
)

// Resolver names understood by the scene registry.
const (
	ResolverInit     = "init"
	ResolverCategory = "category"
	ResolverCountry  = "country"
)

type Config struct {
	Seed       int64            `yaml:"seed"`
	Settle     bool             `yaml:"settle"`
	Stage      StageConfig      `yaml:"stage"`
	Dataset    DatasetConfig    `yaml:"dataset"`
	Simulation SimulationConfig `yaml:"simulation"`
	Forces     ForcesConfig     `yaml:"forces"`
	Phases     []PhaseConfig    `yaml:"phases"`
}

type StageConfig struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

type DatasetConfig struct {
	// Path to a JSON record file; empty generates Synthetic records.
	Path      string `yaml:"path,omitempty"`
	Synthetic int    `yaml:"synthetic"`
}

type SimulationConfig struct {
	AlphaDecay      float64 `yaml:"alpha_decay"`
	AlphaMin        float64 `yaml:"alpha_min"`
	VelocityDecay   float64 `yaml:"velocity_decay"`
	FrameIntervalMs int     `yaml:"frame_interval_ms"`
}

type ForcesConfig struct {
	Radius              float64 `yaml:"radius"`
	Charge              float64 `yaml:"charge"`
	DistanceMaxFraction float64 `yaml:"distance_max_fraction"`
	Theta               float64 `yaml:"theta"`
	LinkStrength        float64 `yaml:"link_strength"`
	LinkDistance        float64 `yaml:"link_distance"`
	Center              float64 `yaml:"center"`
	CollidePadding      float64 `yaml:"collide_padding"`
	CollideIterations   int     `yaml:"collide_iterations"`
	// Extra collide passes run while bare radii overlap by more than
	// CollideTolerance, up to CollideMaxPasses passes in all.
	CollideTolerance    float64 `yaml:"collide_tolerance"`
	CollideMaxPasses    int     `yaml:"collide_max_passes"`
	BoundsPadding       float64 `yaml:"bounds_padding"`
}

// PhaseConfig describes one transition phase. Nil tuning fields keep the
// value of the previous phase.
type PhaseConfig struct {
	Name                string   `yaml:"name"`
	Resolver            string   `yaml:"resolver"`
	BatchSize           int      `yaml:"batch_size"`
	BatchIntervalMs     int      `yaml:"batch_interval_ms"`
	VelocityDecay       *float64 `yaml:"velocity_decay,omitempty"`
	DistanceMaxFraction *float64 `yaml:"distance_max_fraction,omitempty"`
	Colorize            bool     `yaml:"colorize,omitempty"`
}

func (p PhaseConfig) BatchInterval() time.Duration {
	return time.Duration(p.BatchIntervalMs) * time.Millisecond
}

func (s SimulationConfig) FrameInterval() time.Duration {
	return time.Duration(s.FrameIntervalMs) * time.Millisecond
}

func ptr(v float64) *float64 { return &v }

func DefaultPhases() []PhaseConfig {
	return []PhaseConfig{
		{
			Name:                "category",
			Resolver:            ResolverCategory,
			BatchSize:           DefaultBatchSize,
			BatchIntervalMs:     DefaultBatchInterval,
			VelocityDecay:       ptr(DefaultPhaseDecay),
			DistanceMaxFraction: ptr(DefaultPhaseFraction),
			Colorize:            true,
		},
		{
			Name:                "country",
			Resolver:            ResolverCountry,
			BatchSize:           DefaultBatchSize,
			BatchIntervalMs:     DefaultBatchInterval,
			VelocityDecay:       ptr(DefaultPhaseDecay),
			DistanceMaxFraction: ptr(DefaultPhaseFraction),
		},
	}
}

func DefaultConfig() *Config {
	return &Config{
		Seed:   1,
		Settle: true,
		Stage: StageConfig{
			Width:  DefaultWidth,
			Height: DefaultHeight,
		},
		Dataset: DatasetConfig{
			Synthetic: DefaultSynthetic,
		},
		Simulation: SimulationConfig{
			AlphaDecay:      DefaultAlphaDecay,
			AlphaMin:        DefaultAlphaMin,
			VelocityDecay:   DefaultVelocityDecay,
			FrameIntervalMs: DefaultFrameInterval,
		},
		Forces: ForcesConfig{
			Radius:              DefaultRadius,
			Charge:              DefaultCharge,
			DistanceMaxFraction: DefaultSettleFraction,
			Theta:               0.9,
			LinkStrength:        1,
			LinkDistance:        0,
			Center:              0.1,
			CollidePadding:      2,
			CollideIterations:   4,
			CollideTolerance:    0.25,
			CollideMaxPasses:    64,
			BoundsPadding:       2,
		},
		Phases: DefaultPhases(),
	}
}

// Load reads a YAML file over the defaults.
func Load(path string) (*Config, error) {
	return LoadOver(path, DefaultConfig())
}

// LoadOver reads a YAML file over base, which is modified in place.
func LoadOver(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, base); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return base, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Phases = make([]PhaseConfig, len(c.Phases))
	for i, p := range c.Phases {
		if p.VelocityDecay != nil {
			p.VelocityDecay = ptr(*p.VelocityDecay)
		}
		if p.DistanceMaxFraction != nil {
			p.DistanceMaxFraction = ptr(*p.DistanceMaxFraction)
		}
		out.Phases[i] = p
	}
	return &out
}

func (c *Config) Validate() error {
	if c.Stage.Width <= 0 || c.Stage.Height <= 0 {
		return fmt.Errorf("stage must have positive size, got %gx%g", c.Stage.Width, c.Stage.Height)
	}
	if c.Dataset.Path == "" && c.Dataset.Synthetic <= 0 {
		return fmt.Errorf("dataset needs a path or a positive synthetic count")
	}
	if c.Simulation.FrameIntervalMs <= 0 {
		return fmt.Errorf("frame interval must be positive, got %d", c.Simulation.FrameIntervalMs)
	}
	f := c.Forces
	if f.Radius <= 0 {
		return fmt.Errorf("radius must be positive, got %f", f.Radius)
	}
	if f.DistanceMaxFraction <= 0 || f.DistanceMaxFraction > 1 {
		return fmt.Errorf("distance max fraction must be in (0,1], got %f", f.DistanceMaxFraction)
	}
	if f.CollideIterations < 0 {
		return fmt.Errorf("collide iterations must not be negative, got %d", f.CollideIterations)
	}
	if f.CollideTolerance < 0 {
		return fmt.Errorf("collide tolerance must not be negative, got %f", f.CollideTolerance)
	}
	if f.CollideMaxPasses < f.CollideIterations {
		return fmt.Errorf("collide max passes (%d) below collide iterations (%d)", f.CollideMaxPasses, f.CollideIterations)
	}
	if len(c.Phases) == 0 {
		return fmt.Errorf("at least one phase is required")
	}
	for i, p := range c.Phases {
		if err := p.validate(); err != nil {
			return fmt.Errorf("phase %d (%s): %w", i, p.Name, err)
		}
	}
	return nil
}

func (p PhaseConfig) validate() error {
	switch p.Resolver {
	case ResolverInit, ResolverCategory, ResolverCountry:
	default:
		return fmt.Errorf("unknown resolver %q", p.Resolver)
	}
	if p.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", p.BatchSize)
	}
	if p.BatchIntervalMs <= 0 {
		return fmt.Errorf("batch interval must be positive, got %d", p.BatchIntervalMs)
	}
	if p.VelocityDecay != nil && (*p.VelocityDecay < 0 || *p.VelocityDecay > 1) {
		return fmt.Errorf("velocity decay must be in [0,1], got %f", *p.VelocityDecay)
	}
	if p.DistanceMaxFraction != nil && (*p.DistanceMaxFraction <= 0 || *p.DistanceMaxFraction > 1) {
		return fmt.Errorf("distance max fraction must be in (0,1], got %f", *p.DistanceMaxFraction)
	}
	return nil
}
