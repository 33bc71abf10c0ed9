package fluid

import "github.com/tsym/splash/config"

// Params holds everything needed to construct a Sim. All fields are fixed for
// the lifetime of the simulation.
type Params struct {
	MaxParticles    int
	SmoothingRadius float32 // h; also the grid cell size
	GridRes         int     // Cells per axis
	RestDensity     float32
	ParticleMass    float32
	GasConstant     float32
	Viscosity       float32
	Buoyancy        float32 // Vertical lift per degree above ambient
	AmbientTemp     float32
	Gravity         Vec3
	BoundaryMargin  float32 // Low wall position on every axis
	Restitution     float32 // Velocity scale applied on wall contact; negative to bounce

	Backend           string // BackendSerial or BackendParallel
	ParallelThreshold int
}

// DefaultParams returns parameters for a water-like fluid at h = 0.02,
// matching the embedded config defaults.
func DefaultParams() Params {
	return Params{
		MaxParticles:      40000,
		SmoothingRadius:   0.02,
		GridRes:           128,
		RestDensity:       1000.0,
		ParticleMass:      0.02,
		GasConstant:       2000.0,
		Viscosity:         0.1,
		Buoyancy:          0.02,
		AmbientTemp:       20.0,
		Gravity:           Vec3{0, -9.81, 0},
		BoundaryMargin:    0.01,
		Restitution:       -0.3,
		Backend:           BackendParallel,
		ParallelThreshold: 256,
	}
}

// ParamsFromConfig maps the loaded configuration onto engine parameters.
func ParamsFromConfig(cfg *config.Config) Params {
	f := cfg.Fluid
	return Params{
		MaxParticles:      f.MaxParticles,
		SmoothingRadius:   float32(f.SmoothingRadius),
		GridRes:           f.GridRes,
		RestDensity:       float32(f.RestDensity),
		ParticleMass:      float32(f.ParticleMass),
		GasConstant:       float32(f.GasConstant),
		Viscosity:         float32(f.Viscosity),
		Buoyancy:          float32(f.Buoyancy),
		AmbientTemp:       float32(f.AmbientTemp),
		Gravity:           Vec3{0, float32(f.GravityY), 0},
		BoundaryMargin:    float32(f.BoundaryMargin),
		Restitution:       float32(f.Restitution),
		Backend:           cfg.Sim.Backend,
		ParallelThreshold: cfg.Sim.ParallelThreshold,
	}
}

// DomainMax returns the high boundary of the container: the grid extent inset
// by two cells, matching the boundary pass.
func (p Params) DomainMax() float32 {
	return float32(p.GridRes-2) * p.SmoothingRadius
}
