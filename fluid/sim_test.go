package fluid

import (
	"math"
	"testing"
)

// testParams returns a small, serial configuration with a domain large enough
// that boundary clamping stays out of the way (high wall at 6.2).
func testParams() Params {
	p := DefaultParams()
	p.MaxParticles = 2000
	p.SmoothingRadius = 0.1
	p.GridRes = 64
	p.Backend = BackendSerial
	return p
}

func newTestSim(t *testing.T, p Params) *Sim {
	t.Helper()
	s, err := New(p)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{"zero max particles", func(p *Params) { p.MaxParticles = 0 }},
		{"negative smoothing radius", func(p *Params) { p.SmoothingRadius = -0.1 }},
		{"grid too small", func(p *Params) { p.GridRes = 2 }},
		{"zero rest density", func(p *Params) { p.RestDensity = 0 }},
		{"unknown backend", func(p *Params) { p.Backend = "gpu" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testParams()
			tt.mutate(&p)
			if _, err := New(p); err == nil {
				t.Error("New accepted invalid params")
			}
		})
	}
}

func TestBackendSelection(t *testing.T) {
	tests := []struct {
		backend string
		want    string
	}{
		{BackendSerial, BackendSerial},
		{BackendParallel, BackendParallel},
		{"", BackendParallel}, // default
	}

	for _, tt := range tests {
		p := testParams()
		p.Backend = tt.backend
		s := newTestSim(t, p)
		if got := s.BackendName(); got != tt.want {
			t.Errorf("backend %q: name = %q, want %q", tt.backend, got, tt.want)
		}
	}
}

func TestAddParticleCapacity(t *testing.T) {
	p := testParams()
	p.MaxParticles = 2
	s := newTestSim(t, p)

	if _, ok := s.AddParticle(Vec3{1, 1, 1}); !ok {
		t.Fatal("first add failed")
	}
	if _, ok := s.AddParticle(Vec3{2, 2, 2}); !ok {
		t.Fatal("second add failed")
	}
	if _, ok := s.AddParticle(Vec3{3, 3, 3}); ok {
		t.Error("add succeeded past capacity")
	}
	if s.Count() != 2 {
		t.Errorf("Count = %d, want 2", s.Count())
	}
}

func TestSingleParticleFreeFall(t *testing.T) {
	s := newTestSim(t, testParams())
	s.AddParticle(Vec3{3, 5, 3})

	dt := float32(1.0 / 60.0)
	s.Step(dt)

	// A lone particle sees no pair forces: exactly gravity, semi-implicit
	// Euler.
	wantVel := -9.81 * dt
	wantPos := 5 + wantVel*dt

	vel := s.Velocities()[0]
	pos := s.Positions()[0]

	if math.Abs(float64(vel.Y-wantVel)) > 1e-5 {
		t.Errorf("vel.Y = %v, want %v", vel.Y, wantVel)
	}
	if vel.X != 0 || vel.Z != 0 {
		t.Errorf("lateral velocity appeared: %+v", vel)
	}
	if math.Abs(float64(pos.Y-wantPos)) > 1e-5 {
		t.Errorf("pos.Y = %v, want %v", pos.Y, wantPos)
	}
}

func TestSingleParticleDensityIsSelfContribution(t *testing.T) {
	p := testParams()
	s := newTestSim(t, p)
	s.AddParticle(Vec3{3, 3, 3})

	s.Step(1.0 / 60.0)

	want := p.ParticleMass * s.kern.Poly6(0)
	got := s.Densities()[0]
	if math.Abs(float64(got-want))/float64(want) > 1e-5 {
		t.Errorf("density = %v, want %v", got, want)
	}
}

func TestDensityFloorSubstitutesRestDensity(t *testing.T) {
	p := testParams()
	s := newTestSim(t, p)
	idx, _ := s.AddParticle(Vec3{3, 3, 3})
	s.SetMass(idx, 0) // kernel sum collapses to zero

	s.Step(1.0 / 60.0)

	if got := s.Densities()[0]; got != p.RestDensity {
		t.Errorf("density = %v, want rest density %v", got, p.RestDensity)
	}
	if got := s.parts.Pressure[0]; got != 0 {
		t.Errorf("pressure = %v, want 0 at rest density", got)
	}
}

func TestPairForcesSymmetric(t *testing.T) {
	p := testParams()
	s := newTestSim(t, p)
	s.AddParticle(Vec3{3.00, 3, 3})
	s.AddParticle(Vec3{3.05, 3, 3})

	s.Step(1.0 / 60.0)

	a0 := s.parts.Acc[0]
	a1 := s.parts.Acc[1]

	// Equal and opposite along the separation axis.
	if math.Abs(float64(a0.X+a1.X)) > 1e-3*math.Abs(float64(a0.X)) {
		t.Errorf("pair force asymmetric: a0.X = %v, a1.X = %v", a0.X, a1.X)
	}
	if a0.X == 0 {
		t.Error("no pair force at half smoothing radius")
	}

	// The y component is gravity alone: no separation, no velocity, no heat.
	if math.Abs(float64(a0.Y-p.Gravity.Y)) > 1e-4 {
		t.Errorf("a0.Y = %v, want %v", a0.Y, p.Gravity.Y)
	}
}

func TestViscosityDragsTowardNeighborVelocity(t *testing.T) {
	p := testParams()
	p.GasConstant = 0 // isolate the viscous term
	s := newTestSim(t, p)
	i0, _ := s.AddParticle(Vec3{3.00, 3, 3})
	i1, _ := s.AddParticle(Vec3{3.05, 3, 3})
	s.SetVelocity(i1, Vec3{X: 1})

	s.Step(1.0 / 60.0)

	// The resting particle is dragged along, the mover is slowed.
	if s.parts.Acc[i0].X <= 0 {
		t.Errorf("acc[0].X = %v, want > 0", s.parts.Acc[i0].X)
	}
	if s.parts.Acc[i1].X >= 0 {
		t.Errorf("acc[1].X = %v, want < 0", s.parts.Acc[i1].X)
	}
}

func TestBuoyancyLiftsHeatedParticle(t *testing.T) {
	p := testParams()
	s := newTestSim(t, p)
	s.AddParticle(Vec3{3, 3, 3})
	s.ApplyHeatSource(3, 3, 0.5, 100) // temp: ambient + 100

	s.Step(1.0 / 60.0)

	wantLift := 100 * p.Buoyancy
	wantY := p.Gravity.Y + wantLift
	if got := s.parts.Acc[0].Y; math.Abs(float64(got-wantY)) > 1e-4 {
		t.Errorf("acc.Y = %v, want %v", got, wantY)
	}
}

func TestBoundaryRestitution(t *testing.T) {
	p := testParams()
	s := newTestSim(t, p)
	idx, _ := s.AddParticle(Vec3{3, p.BoundaryMargin + 0.001, 3})
	s.SetVelocity(idx, Vec3{Y: -5})

	dt := float32(1.0 / 60.0)
	s.Step(dt)

	pos := s.Positions()[0]
	vel := s.Velocities()[0]

	if pos.Y != p.BoundaryMargin {
		t.Errorf("pos.Y = %v, want clamped to %v", pos.Y, p.BoundaryMargin)
	}

	// Velocity flips sign and is damped by the restitution factor.
	wantVel := (-5 + p.Gravity.Y*dt) * p.Restitution
	if math.Abs(float64(vel.Y-wantVel)) > 1e-3 {
		t.Errorf("vel.Y = %v, want %v", vel.Y, wantVel)
	}
	if vel.Y <= 0 {
		t.Errorf("vel.Y = %v, want upward bounce", vel.Y)
	}
}

func TestBoundaryContainment(t *testing.T) {
	p := testParams()
	s := newTestSim(t, p)
	idx, _ := s.AddParticle(Vec3{3, 3, 3})
	s.SetVelocity(idx, Vec3{X: 100, Y: 80, Z: 60})

	lo := p.BoundaryMargin
	hi := s.DomainMax()
	for step := 0; step < 120; step++ {
		s.Step(1.0 / 60.0)
		pos := s.Positions()[0]
		for axis, v := range []float32{pos.X, pos.Y, pos.Z} {
			if v < lo || v > hi {
				t.Fatalf("step %d axis %d: pos %v outside [%v, %v]", step, axis, v, lo, hi)
			}
		}
	}
}

func TestInitLatticeLayout(t *testing.T) {
	s := newTestSim(t, testParams())

	origin := Vec3{1, 1, 1}
	added := s.InitLattice(origin, Vec3{0.06, 0.04, 0.04}, 0.02)
	if added != 3*2*2 {
		t.Fatalf("added = %d, want 12", added)
	}

	pos := s.Positions()
	approx := func(a, b float32) bool { return math.Abs(float64(a-b)) < 1e-6 }

	// x outer, y middle, z inner.
	if !approx(pos[0].X, 1) || !approx(pos[0].Y, 1) || !approx(pos[0].Z, 1) {
		t.Errorf("pos[0] = %+v, want origin", pos[0])
	}
	if !approx(pos[1].Z, 1.02) {
		t.Errorf("pos[1].Z = %v, want 1.02 (z innermost)", pos[1].Z)
	}
	if !approx(pos[2].Y, 1.02) || !approx(pos[2].Z, 1) {
		t.Errorf("pos[2] = %+v, want y step", pos[2])
	}
	last := pos[len(pos)-1]
	if !approx(last.X, 1.04) || !approx(last.Y, 1.02) || !approx(last.Z, 1.02) {
		t.Errorf("last = %+v, want lattice corner", last)
	}
}

func TestInitLatticeStopsAtCapacity(t *testing.T) {
	p := testParams()
	p.MaxParticles = 5
	s := newTestSim(t, p)

	added := s.InitLattice(Vec3{1, 1, 1}, Vec3{0.06, 0.04, 0.04}, 0.02)
	if added != 5 {
		t.Errorf("added = %d, want 5 (capacity)", added)
	}
	if s.Count() != 5 {
		t.Errorf("Count = %d, want 5", s.Count())
	}
}

func TestInitLatticeDeterministic(t *testing.T) {
	s1 := newTestSim(t, testParams())
	s2 := newTestSim(t, testParams())

	s1.InitLattice(Vec3{1, 1.2, 1}, Vec3{0.2, 0.1, 0.1}, 0.02)
	s2.InitLattice(Vec3{1, 1.2, 1}, Vec3{0.2, 0.1, 0.1}, 0.02)

	if s1.Count() != s2.Count() {
		t.Fatalf("counts differ: %d vs %d", s1.Count(), s2.Count())
	}
	p1, p2 := s1.Positions(), s2.Positions()
	for i := range p1 {
		if p1[i] != p2[i] {
			t.Fatalf("position %d differs: %+v vs %+v", i, p1[i], p2[i])
		}
	}
}

func TestApplyHeatSource(t *testing.T) {
	s := newTestSim(t, testParams())
	inside, _ := s.AddParticle(Vec3{1.0, 1.0, 3})
	deepZ, _ := s.AddParticle(Vec3{1.1, 1.0, 5}) // z is ignored: disc is in xy
	edge, _ := s.AddParticle(Vec3{1.5, 1.0, 3})  // exactly at the radius
	outside, _ := s.AddParticle(Vec3{2.0, 1.0, 3})

	ambient := s.Params().AmbientTemp
	s.ApplyHeatSource(1.0, 1.0, 0.5, 2)

	temps := s.Temperatures()
	if temps[inside] != ambient+2 {
		t.Errorf("inside temp = %v, want %v", temps[inside], ambient+2)
	}
	if temps[deepZ] != ambient+2 {
		t.Errorf("deep-z temp = %v, want %v (z must not matter)", temps[deepZ], ambient+2)
	}
	if temps[edge] != ambient {
		t.Errorf("edge temp = %v, want untouched (strict radius)", temps[edge])
	}
	if temps[outside] != ambient {
		t.Errorf("outside temp = %v, want untouched", temps[outside])
	}

	// Heat accumulates across applications.
	s.ApplyHeatSource(1.0, 1.0, 0.5, 2)
	if got := s.Temperatures()[inside]; got != ambient+4 {
		t.Errorf("after second application: %v, want %v", got, ambient+4)
	}
}

func TestSerialParallelParity(t *testing.T) {
	mk := func(backend string) *Sim {
		p := testParams()
		p.Backend = backend
		p.ParallelThreshold = 1 // force the worker pool
		s := newTestSim(t, p)
		s.InitLattice(Vec3{1, 1.2, 1}, Vec3{0.5, 0.25, 0.3}, 0.05)
		return s
	}

	serial := mk(BackendSerial)
	parallel := mk(BackendParallel)

	if serial.Count() == 0 || serial.Count() != parallel.Count() {
		t.Fatalf("counts: serial %d, parallel %d", serial.Count(), parallel.Count())
	}

	for step := 0; step < 5; step++ {
		serial.Step(1.0 / 60.0)
		parallel.Step(1.0 / 60.0)
	}

	ps, pp := serial.Positions(), parallel.Positions()
	for i := range ps {
		if ps[i] != pp[i] {
			t.Fatalf("position %d diverged: serial %+v, parallel %+v", i, ps[i], pp[i])
		}
	}

	ds, dp := serial.Densities(), parallel.Densities()
	for i := range ds {
		if ds[i] != dp[i] {
			t.Fatalf("density %d diverged: serial %v, parallel %v", i, ds[i], dp[i])
		}
	}
}

func TestStepReportsPhases(t *testing.T) {
	var phases []string
	s := newTestSim(t, testParams())
	s.Timer = phaseRecorder{&phases}
	s.AddParticle(Vec3{3, 3, 3})

	s.Step(1.0 / 60.0)

	want := []string{PhaseGrid, PhaseDensity, PhaseForces, PhaseIntegrate}
	if len(phases) != len(want) {
		t.Fatalf("phases = %v, want %v", phases, want)
	}
	for i := range want {
		if phases[i] != want[i] {
			t.Fatalf("phase %d = %q, want %q", i, phases[i], want[i])
		}
	}
}

type phaseRecorder struct {
	phases *[]string
}

func (r phaseRecorder) StartPhase(name string) {
	*r.phases = append(*r.phases, name)
}
