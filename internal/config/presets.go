package config

import "sort"

func preset(mutate func(c *Config)) *Config {
	c := DefaultConfig()
	mutate(c)
	return c
}

var Presets = map[string]*Config{
	"insects": preset(func(c *Config) {}),
	"quick": preset(func(c *Config) {
		c.Dataset.Synthetic = 200
		c.Simulation.AlphaDecay = 0.95
		for i := range c.Phases {
			c.Phases[i].BatchSize = 25
		}
	}),
	"dense": preset(func(c *Config) {
		c.Dataset.Synthetic = 2000
		c.Forces.CollideIterations = 2
		for i := range c.Phases {
			c.Phases[i].BatchSize = 50
		}
	}),
	"gentle": preset(func(c *Config) {
		c.Simulation.VelocityDecay = 0.7
		for i := range c.Phases {
			c.Phases[i].BatchSize = 5
			c.Phases[i].BatchIntervalMs = 60
			c.Phases[i].VelocityDecay = ptr(0.6)
		}
	}),
}

var presetInfo = map[string]string{
	"insects": "600 specimens, original pacing",
	"quick":   "200 specimens, fast decay, big batches",
	"dense":   "2000 specimens, fewer collision passes",
	"gentle":  "small slow batches, heavy damping",
}

// DescribePreset returns a one-line summary of the named preset.
func DescribePreset(name string) string {
	return presetInfo[name]
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
