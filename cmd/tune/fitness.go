package main

import (
	"math"
	"math/rand"
	"sync"

	"github.com/tsym/splash/config"
	"github.com/tsym/splash/fluid"
	"github.com/tsym/splash/telemetry"
)

// Blowup thresholds: a run whose particles exceed this speed, or whose
// densities stop being finite, counts as numerically unstable and ends early.
const (
	maxStableSpeed = 50.0
	warmupWindows  = 2 // skip the initial collapse while the lattice settles

	// Lattice origin jitter per seed, as a fraction of the particle spacing.
	seedJitter = 0.5
)

// FitnessEvaluator runs headless simulations and computes fitness.
type FitnessEvaluator struct {
	params      *ParamVector
	maxTicks    int32
	seeds       []int64
	baseConfig  *config.Config
	statsWindow float64

	mu          sync.Mutex
	lastQuality float64 // quality from most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxTicks int32, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		maxTicks:    maxTicks,
		seeds:       seeds,
		baseConfig:  baseCfg,
		statsWindow: 0.5,
	}
}

// LastQuality returns the quality score from the most recent evaluation.
func (fe *FitnessEvaluator) LastQuality() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastQuality
}

// runResult holds the results from a single simulation run.
type runResult struct {
	survivalTicks int32 // ticks before blowup (or maxTicks if stable throughout)
	windowStats   []telemetry.FrameStats
}

// Evaluate computes fitness for a parameter vector (lower = better).
// Fitness is negative survival ticks scaled by how close the settled fluid
// stays to its rest density: stable and incompressible beats merely stable.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	results := make([]*runResult, len(fe.seeds))
	var wg sync.WaitGroup

	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			results[idx] = fe.runSimulation(x, s)
		}(i, seed)
	}
	wg.Wait()

	var totalFitness, totalQuality float64
	for _, r := range results {
		quality := fe.computeQuality(r.windowStats)
		totalFitness += -(float64(r.survivalTicks) * (1.0 + 0.2*quality))
		totalQuality += quality
	}

	n := float64(len(fe.seeds))

	fe.mu.Lock()
	fe.lastQuality = totalQuality / n
	fe.mu.Unlock()

	return totalFitness / n
}

// runSimulation executes a single headless run. The seed jitters the lattice
// origin so one parameter vector is scored on slightly different drops.
func (fe *FitnessEvaluator) runSimulation(x []float64, seed int64) *runResult {
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)

	params := fluid.ParamsFromConfig(cfg)
	params.Backend = fluid.BackendSerial

	sim, err := fluid.New(params)
	if err != nil {
		return &runResult{}
	}
	defer sim.Close()

	rng := rand.New(rand.NewSource(seed))
	jitter := cfg.Scene.Spacing * seedJitter
	origin := fluid.Vec3{
		X: float32(cfg.Scene.Origin[0] + (rng.Float64()*2-1)*jitter),
		Y: float32(cfg.Scene.Origin[1] + (rng.Float64()*2-1)*jitter),
		Z: float32(cfg.Scene.Origin[2] + (rng.Float64()*2-1)*jitter),
	}
	box := fluid.Vec3{
		X: float32(cfg.Scene.Box[0]),
		Y: float32(cfg.Scene.Box[1]),
		Z: float32(cfg.Scene.Box[2]),
	}
	sim.InitLattice(origin, box, float32(cfg.Scene.Spacing))

	result := &runResult{}
	dt := cfg.Derived.DT32
	windowTicks := int32(fe.statsWindow / cfg.Sim.DT)
	if windowTicks < 1 {
		windowTicks = 1
	}

	var simTime float64
	for tick := int32(1); tick <= fe.maxTicks; tick++ {
		sim.Step(dt)
		simTime += float64(dt)

		if tick%windowTicks != 0 {
			continue
		}

		stats := telemetry.Collect(sim, tick, simTime)
		result.windowStats = append(result.windowStats, stats)

		if stats.MaxSpeed > maxStableSpeed || !isFinite(stats.DensityMean) {
			result.survivalTicks = tick
			return result
		}
	}

	result.survivalTicks = fe.maxTicks
	return result
}

// copyConfig creates a copy of the base config safe for per-run mutation.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg, _ := config.Load("")

	cfg.Screen = fe.baseConfig.Screen
	cfg.Sim = fe.baseConfig.Sim
	cfg.Fluid = fe.baseConfig.Fluid
	cfg.Scene = fe.baseConfig.Scene
	cfg.Heat = fe.baseConfig.Heat
	cfg.Telemetry = fe.baseConfig.Telemetry
	cfg.Derived = fe.baseConfig.Derived

	return cfg
}

// computeQuality scores a run ∈ [0, 1] on how incompressible and calm the
// settled fluid is: density mean near rest, narrow density spread, low
// residual kinetic energy.
func (fe *FitnessEvaluator) computeQuality(windows []telemetry.FrameStats) float64 {
	if len(windows) <= warmupWindows {
		return 0
	}
	valid := windows[warmupWindows:]
	rest := fe.baseConfig.Fluid.RestDensity

	var densitySum, spreadSum, calmSum float64
	for _, w := range valid {
		relErr := (w.DensityMean - rest) / rest
		densitySum += math.Exp(-relErr * relErr / 0.02)

		spread := (w.DensityP90 - w.DensityP10) / rest
		spreadSum += math.Exp(-spread * spread / 0.08)

		calmSum += math.Exp(-w.MaxSpeed / 2.0)
	}

	n := float64(len(valid))
	quality := 0.5*(densitySum/n) + 0.3*(spreadSum/n) + 0.2*(calmSum/n)
	return clamp01(quality)
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// clamp01 clamps x to [0, 1].
func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
