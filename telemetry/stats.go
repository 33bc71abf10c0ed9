// Package telemetry provides field statistics, per-phase timing, and CSV
// output for the fluid simulation.
package telemetry

import (
	"log/slog"
	"math"
	"sort"

	"github.com/tsym/splash/fluid"
)

// FrameStats holds aggregated fluid state sampled at the end of a stats
// window.
type FrameStats struct {
	Tick      int32   `csv:"tick"`
	SimTime   float64 `csv:"sim_time"`
	Particles int     `csv:"particles"`

	// Density distribution; the mean tracks how compressed the fluid is
	// relative to the configured rest density.
	DensityMean float64 `csv:"density_mean"`
	DensityP10  float64 `csv:"density_p10"`
	DensityP50  float64 `csv:"density_p50"`
	DensityP90  float64 `csv:"density_p90"`

	// Motion
	MaxSpeed      float64 `csv:"max_speed"`
	KineticEnergy float64 `csv:"kinetic_energy"`

	// Temperature field
	TempMean    float64 `csv:"temp_mean"`
	TempMax     float64 `csv:"temp_max"`
	HeatedCount int     `csv:"heated_count"` // particles above ambient
}

// Collect samples the simulation into a FrameStats record.
func Collect(s *fluid.Sim, tick int32, simTime float64) FrameStats {
	n := s.Count()
	stats := FrameStats{
		Tick:      tick,
		SimTime:   simTime,
		Particles: n,
	}
	if n == 0 {
		return stats
	}

	densities := make([]float64, n)
	for i, d := range s.Densities() {
		densities[i] = float64(d)
	}
	stats.DensityMean, stats.DensityP10, stats.DensityP50, stats.DensityP90 = ComputeFieldStats(densities)

	ambient := float64(s.Params().AmbientTemp)
	var tempSum float64
	for _, t := range s.Temperatures() {
		t64 := float64(t)
		tempSum += t64
		if t64 > stats.TempMax {
			stats.TempMax = t64
		}
		if t64 > ambient {
			stats.HeatedCount++
		}
	}
	stats.TempMean = tempSum / float64(n)

	masses := s.Masses()
	for i, v := range s.Velocities() {
		sq := float64(v.LenSq())
		stats.KineticEnergy += 0.5 * float64(masses[i]) * sq
		if sq > stats.MaxSpeed {
			stats.MaxSpeed = sq
		}
	}
	stats.MaxSpeed = math.Sqrt(stats.MaxSpeed)

	return stats
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// ComputeFieldStats calculates mean and percentiles of a scalar field.
func ComputeFieldStats(values []float64) (mean, p10, p50, p90 float64) {
	n := len(values)
	if n == 0 {
		return 0, 0, 0, 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(n)

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	p10 = Percentile(sorted, 0.10)
	p50 = Percentile(sorted, 0.50)
	p90 = Percentile(sorted, 0.90)

	return mean, p10, p50, p90
}

// LogValue implements slog.LogValuer for structured logging.
func (s FrameStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("tick", int(s.Tick)),
		slog.Float64("sim_time", s.SimTime),
		slog.Int("particles", s.Particles),
		slog.Float64("density_mean", s.DensityMean),
		slog.Float64("density_p10", s.DensityP10),
		slog.Float64("density_p50", s.DensityP50),
		slog.Float64("density_p90", s.DensityP90),
		slog.Float64("max_speed", s.MaxSpeed),
		slog.Float64("kinetic_energy", s.KineticEnergy),
		slog.Float64("temp_mean", s.TempMean),
		slog.Float64("temp_max", s.TempMax),
		slog.Int("heated_count", s.HeatedCount),
	)
}

// LogStats logs the window stats using slog.
func (s FrameStats) LogStats() {
	slog.Info("stats",
		"tick", s.Tick,
		"sim_time", s.SimTime,
		"particles", s.Particles,
		"density_mean", s.DensityMean,
		"density_p10", s.DensityP10,
		"density_p50", s.DensityP50,
		"density_p90", s.DensityP90,
		"max_speed", s.MaxSpeed,
		"kinetic_energy", s.KineticEnergy,
		"temp_mean", s.TempMean,
		"temp_max", s.TempMax,
		"heated_count", s.HeatedCount,
	)
}
