package fluid

const (
	// densityFloor is the raw kernel sum below which a particle is treated
	// as isolated and its density replaced by the rest density, keeping
	// every later division by density finite. Applied identically by both
	// backends.
	densityFloor = 1e-6

	// minSeparation excludes near-coincident pairs from the force pass; the
	// gradient direction is ill-conditioned there.
	minSeparation = 1e-5
)

// serialBackend runs each pass as a single scalar loop.
type serialBackend struct {
	neighbors []int32
}

func (b *serialBackend) DensityPressure(s *Sim) {
	s.densityPressureRange(0, s.parts.Count(), &b.neighbors)
}

func (b *serialBackend) Forces(s *Sim) {
	s.forcesRange(0, s.parts.Count(), &b.neighbors)
}

func (b *serialBackend) Integrate(s *Sim, dt float32) {
	s.integrateRange(0, s.parts.Count(), dt)
}

func (b *serialBackend) Name() string { return BackendSerial }

func (b *serialBackend) Close() {}

// densityPressureRange computes density and pressure for particles [i0, i1).
// The neighbor sum includes the particle itself.
func (s *Sim) densityPressureRange(i0, i1 int, scratch *[]int32) {
	p := s.parts
	for i := i0; i < i1; i++ {
		pi := p.Pos[i]
		*scratch = s.grid.NeighborsInto((*scratch)[:0], pi)

		rho := float32(0)
		for _, j := range *scratch {
			r := pi.Sub(p.Pos[j]).Len()
			rho += p.Mass[j] * s.kern.Poly6(r)
		}
		if rho < densityFloor {
			rho = s.p.RestDensity
		}

		p.Density[i] = rho
		p.Pressure[i] = s.p.GasConstant * (rho - s.p.RestDensity)
	}
}

// forcesRange accumulates pressure, viscosity, gravity, and buoyancy into the
// acceleration of particles [i0, i1).
func (s *Sim) forcesRange(i0, i1 int, scratch *[]int32) {
	p := s.parts
	for i := i0; i < i1; i++ {
		pi := p.Pos[i]
		vi := p.Vel[i]
		var fPress, fVisc Vec3

		*scratch = s.grid.NeighborsInto((*scratch)[:0], pi)
		for _, j := range *scratch {
			if int(j) == i {
				continue
			}
			rv := pi.Sub(p.Pos[j])
			r := rv.Len()
			if r >= s.kern.H || r <= minSeparation {
				continue
			}

			// Symmetric pressure average keeps the pair forces equal and
			// opposite.
			grad := s.kern.SpikyGrad(rv, r)
			fPress = fPress.Add(grad.Scale(p.Mass[j] * (p.Pressure[i] + p.Pressure[j]) / (2 * p.Density[j])))

			visc := s.p.Viscosity * p.Mass[j] / p.Density[j] * s.kern.ViscLap(r)
			fVisc = fVisc.Add(p.Vel[j].Sub(vi).Scale(visc))
		}

		// Thermal buoyancy is a body force: warm particles rise regardless
		// of neighbors. The per-mass contribution is just the lift itself.
		lift := (p.Temp[i] - s.p.AmbientTemp) * s.p.Buoyancy

		acc := fPress.Add(fVisc).Scale(1 / p.Density[i]).Add(s.p.Gravity)
		acc.Y += lift
		p.Acc[i] = acc
	}
}

// integrateRange advances particles [i0, i1) with semi-implicit Euler and
// clamps them into the container per axis, damping and inverting the
// corresponding velocity component on contact.
func (s *Sim) integrateRange(i0, i1 int, dt float32) {
	p := s.parts
	lo := s.p.BoundaryMargin
	hi := s.domainMax
	rest := s.p.Restitution

	for i := i0; i < i1; i++ {
		p.Vel[i] = p.Vel[i].Add(p.Acc[i].Scale(dt))
		p.Pos[i] = p.Pos[i].Add(p.Vel[i].Scale(dt))

		clampAxis(&p.Pos[i].X, &p.Vel[i].X, lo, hi, rest)
		clampAxis(&p.Pos[i].Y, &p.Vel[i].Y, lo, hi, rest)
		clampAxis(&p.Pos[i].Z, &p.Vel[i].Z, lo, hi, rest)
	}
}

func clampAxis(pos, vel *float32, lo, hi, restitution float32) {
	if *pos < lo {
		*pos = lo
		*vel *= restitution
	}
	if *pos > hi {
		*pos = hi
		*vel *= restitution
	}
}
