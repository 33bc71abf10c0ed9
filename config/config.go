// Package config provides configuration loading and access for the fluid simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Screen    ScreenConfig    `yaml:"screen"`
	Sim       SimConfig       `yaml:"sim"`
	Fluid     FluidConfig     `yaml:"fluid"`
	Scene     SceneConfig     `yaml:"scene"`
	Heat      HeatConfig      `yaml:"heat"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings for the viewer.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// SimConfig holds stepping parameters.
type SimConfig struct {
	DT                float64 `yaml:"dt"`                 // Simulated seconds per tick
	SlowMotionFactor  float64 `yaml:"slow_motion_factor"` // DT multiplier while slow motion is on
	Backend           string  `yaml:"backend"`            // "serial" or "parallel"
	ParallelThreshold int     `yaml:"parallel_threshold"` // Below this particle count the parallel backend runs single-threaded
}

// FluidConfig holds the physical and discretization parameters of the fluid.
type FluidConfig struct {
	MaxParticles    int     `yaml:"max_particles"`
	SmoothingRadius float64 `yaml:"smoothing_radius"` // h; also the grid cell size
	GridRes         int     `yaml:"grid_res"`         // Cells per axis
	RestDensity     float64 `yaml:"rest_density"`
	ParticleMass    float64 `yaml:"particle_mass"`
	GasConstant     float64 `yaml:"gas_constant"` // Linear equation-of-state stiffness
	Viscosity       float64 `yaml:"viscosity"`
	Buoyancy        float64 `yaml:"buoyancy"`     // Lift per degree above ambient
	AmbientTemp     float64 `yaml:"ambient_temp"` // Initial particle temperature
	GravityY        float64 `yaml:"gravity_y"`
	BoundaryMargin  float64 `yaml:"boundary_margin"` // Low wall inset on every axis
	Restitution     float64 `yaml:"restitution"`     // Velocity scale on wall contact, e.g. -0.3
}

// SceneConfig holds the demo scene layout.
type SceneConfig struct {
	Origin  [3]float64   `yaml:"origin"`  // Lattice corner
	Box     [3]float64   `yaml:"box"`     // Lattice extents
	Spacing float64      `yaml:"spacing"` // Lattice step
	Pebble  PebbleConfig `yaml:"pebble"`
}

// PebbleConfig holds single heavy-particle spawn parameters.
type PebbleConfig struct {
	MassScale float64    `yaml:"mass_scale"` // Multiplier over the default particle mass
	Position  [3]float64 `yaml:"position"`
	Velocity  [3]float64 `yaml:"velocity"`
}

// HeatConfig holds heat source parameters.
type HeatConfig struct {
	Radius    float64 `yaml:"radius"`    // Disc radius in the xy plane
	Intensity float64 `yaml:"intensity"` // Temperature increment per application
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"` // Seconds of sim time per stats record
	PerfCollectorWindow int     `yaml:"perf_collector_window"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	DT32      float32 // Sim.DT as float32
	DomainMax float32 // High boundary: (GridRes - 2) * SmoothingRadius
	ScreenW32 float32
	ScreenH32 float32
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Load user config if provided
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	// Compute derived values
	cfg.computeDerived()

	return cfg, nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.DT32 = float32(c.Sim.DT)
	c.Derived.DomainMax = float32(c.Fluid.SmoothingRadius) * float32(c.Fluid.GridRes-2)
	c.Derived.ScreenW32 = float32(c.Screen.Width)
	c.Derived.ScreenH32 = float32(c.Screen.Height)
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
