package fluid

// Particles is a fixed-capacity structure-of-arrays particle store. Growth is
// append-only; there is no deletion. Only the first Count() entries of each
// column are valid.
type Particles struct {
	Pos      []Vec3
	Vel      []Vec3
	Acc      []Vec3 // Scratch, recomputed every step
	Mass     []float32
	Density  []float32
	Pressure []float32
	Temp     []float32

	count int
}

// NewParticles allocates a store with the given fixed capacity.
func NewParticles(capacity int) *Particles {
	return &Particles{
		Pos:      make([]Vec3, capacity),
		Vel:      make([]Vec3, capacity),
		Acc:      make([]Vec3, capacity),
		Mass:     make([]float32, capacity),
		Density:  make([]float32, capacity),
		Pressure: make([]float32, capacity),
		Temp:     make([]float32, capacity),
	}
}

// Count returns the number of live particles.
func (p *Particles) Count() int {
	return p.count
}

// Cap returns the fixed capacity.
func (p *Particles) Cap() int {
	return len(p.Pos)
}

// add appends a particle at rest. Returns its index and false without any
// mutation when the store is full.
func (p *Particles) add(pos Vec3, mass, density, temp float32) (int, bool) {
	if p.count >= len(p.Pos) {
		return 0, false
	}
	n := p.count
	p.Pos[n] = pos
	p.Vel[n] = Vec3{}
	p.Acc[n] = Vec3{}
	p.Mass[n] = mass
	p.Density[n] = density
	p.Pressure[n] = 0
	p.Temp[n] = temp
	p.count = n + 1
	return n, true
}
