// Package fluid implements a weakly-compressible SPH fluid: a fixed-capacity
// particle store, a spatial hash grid for neighbor search, poly6/spiky/
// viscosity kernels, and a four-phase step pipeline (grid rebuild, density
// and pressure, forces, integration) with a pluggable compute backend.
package fluid

import "fmt"

// Step phase names, reported to the PhaseTimer in pipeline order.
const (
	PhaseGrid      = "grid"
	PhaseDensity   = "density_pressure"
	PhaseForces    = "forces"
	PhaseIntegrate = "integrate"
)

// PhaseTimer receives phase boundaries during Step. The telemetry
// PerfCollector satisfies it.
type PhaseTimer interface {
	StartPhase(name string)
}

// Sim owns all particle and grid state for one fluid. It is not safe for
// concurrent use: Step has exclusive ownership of the store while it runs,
// and AddParticle / ApplyHeatSource / the read accessors must only be called
// between steps.
type Sim struct {
	// Timer, when set, is notified at each phase start within Step.
	Timer PhaseTimer

	p         Params
	parts     *Particles
	grid      *Grid
	kern      Kernels
	backend   Backend
	domainMax float32
}

// New creates a simulation from explicit parameters.
func New(p Params) (*Sim, error) {
	if p.MaxParticles <= 0 {
		return nil, fmt.Errorf("max particles must be positive, got %d", p.MaxParticles)
	}
	if p.SmoothingRadius <= 0 {
		return nil, fmt.Errorf("smoothing radius must be positive, got %g", p.SmoothingRadius)
	}
	if p.GridRes < 3 {
		return nil, fmt.Errorf("grid resolution must be at least 3, got %d", p.GridRes)
	}
	if p.RestDensity <= 0 {
		return nil, fmt.Errorf("rest density must be positive, got %g", p.RestDensity)
	}

	backend, err := newBackend(p.Backend, p.ParallelThreshold)
	if err != nil {
		return nil, err
	}

	return &Sim{
		p:         p,
		parts:     NewParticles(p.MaxParticles),
		grid:      NewGrid(p.SmoothingRadius, p.GridRes),
		kern:      NewKernels(p.SmoothingRadius),
		backend:   backend,
		domainMax: p.DomainMax(),
	}, nil
}

// Close releases backend resources (worker goroutines).
func (s *Sim) Close() {
	s.backend.Close()
}

// Step advances the simulation by dt seconds of simulated time. The four
// phases run strictly in order; each one completes before the next begins.
func (s *Sim) Step(dt float32) {
	s.phase(PhaseGrid)
	s.grid.Rebuild(s.parts.Pos[:s.parts.Count()])

	s.phase(PhaseDensity)
	s.backend.DensityPressure(s)

	s.phase(PhaseForces)
	s.backend.Forces(s)

	s.phase(PhaseIntegrate)
	s.backend.Integrate(s, dt)
}

func (s *Sim) phase(name string) {
	if s.Timer != nil {
		s.Timer.StartPhase(name)
	}
}

// AddParticle appends a particle at rest with default mass, rest density and
// ambient temperature. Returns its index, or false when the store is full —
// the only failure mode, and a capacity guard rather than an error.
func (s *Sim) AddParticle(pos Vec3) (int, bool) {
	return s.parts.add(pos, s.p.ParticleMass, s.p.RestDensity, s.p.AmbientTemp)
}

// SetVelocity overrides the velocity of particle i, typically right after a
// successful AddParticle.
func (s *Sim) SetVelocity(i int, v Vec3) {
	s.parts.Vel[i] = v
}

// SetMass overrides the mass of particle i.
func (s *Sim) SetMass(i int, m float32) {
	s.parts.Mass[i] = m
}

// InitLattice fills a rectangular block of particles starting at origin,
// stepping by spacing up to extents on each axis. Iteration order is fixed
// (x outer, y middle, z inner) so identical parameters reproduce identical
// layouts. Stops silently at capacity. Returns the number of particles added.
func (s *Sim) InitLattice(origin, extents Vec3, spacing float32) int {
	nx := int(extents.X / spacing)
	ny := int(extents.Y / spacing)
	nz := int(extents.Z / spacing)

	added := 0
	for i := 0; i < nx; i++ {
		for j := 0; j < ny; j++ {
			for k := 0; k < nz; k++ {
				pos := Vec3{
					X: origin.X + float32(i)*spacing,
					Y: origin.Y + float32(j)*spacing,
					Z: origin.Z + float32(k)*spacing,
				}
				if _, ok := s.AddParticle(pos); !ok {
					return added
				}
				added++
			}
		}
	}
	return added
}

// ApplyHeatSource raises the temperature of every particle whose xy distance
// to (cx, cy) is under radius. Calls accumulate; there is no cooling.
func (s *Sim) ApplyHeatSource(cx, cy, radius, intensity float32) {
	p := s.parts
	for i := 0; i < p.count; i++ {
		dx := p.Pos[i].X - cx
		dy := p.Pos[i].Y - cy
		if dx*dx+dy*dy < radius*radius {
			p.Temp[i] += intensity
		}
	}
}

// Count returns the number of live particles.
func (s *Sim) Count() int {
	return s.parts.count
}

// Positions returns the live particle positions. The slice aliases engine
// state: read-only, and only valid between steps.
func (s *Sim) Positions() []Vec3 {
	return s.parts.Pos[:s.parts.count]
}

// Temperatures returns the live particle temperatures, with the same aliasing
// caveats as Positions.
func (s *Sim) Temperatures() []float32 {
	return s.parts.Temp[:s.parts.count]
}

// Velocities returns the live particle velocities, for diagnostics.
func (s *Sim) Velocities() []Vec3 {
	return s.parts.Vel[:s.parts.count]
}

// Densities returns the live particle densities, for diagnostics.
func (s *Sim) Densities() []float32 {
	return s.parts.Density[:s.parts.count]
}

// Masses returns the live particle masses, for diagnostics.
func (s *Sim) Masses() []float32 {
	return s.parts.Mass[:s.parts.count]
}

// Params returns the construction parameters.
func (s *Sim) Params() Params {
	return s.p
}

// BackendName reports which compute backend is active.
func (s *Sim) BackendName() string {
	return s.backend.Name()
}

// DomainMax returns the high container boundary on every axis.
func (s *Sim) DomainMax() float32 {
	return s.domainMax
}
