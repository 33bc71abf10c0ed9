package fluid

import "math"

// Kernels holds the three SPH smoothing kernels for a fixed radius h, with
// coefficients precomputed at construction. All three are exactly zero
// outside [0, h]; that truncation is what makes the 27-cell neighbor scan a
// sound stand-in for "all particles within h".
type Kernels struct {
	H float32

	poly6Co float32 // 315 / (64 pi h^9)
	spikyCo float32 // 45 / (pi h^6), gradient magnitude
	viscCo  float32 // 45 / (pi h^6)
}

// NewKernels precomputes kernel coefficients for smoothing radius h.
func NewKernels(h float32) Kernels {
	h64 := float64(h)
	h6 := math.Pow(h64, 6)
	h9 := math.Pow(h64, 9)
	return Kernels{
		H:       h,
		poly6Co: float32(315.0 / (64.0 * math.Pi * h9)),
		spikyCo: float32(45.0 / (math.Pi * h6)),
		viscCo:  float32(45.0 / (math.Pi * h6)),
	}
}

// Poly6 returns the density kernel weight at distance r.
func (k Kernels) Poly6(r float32) float32 {
	if r < 0 || r > k.H {
		return 0
	}
	x := k.H*k.H - r*r
	return k.poly6Co * x * x * x
}

// SpikyGrad returns the pressure-gradient kernel for the separation
// rv = pos_i - pos_j with |rv| = r: a vector of magnitude 45/(pi h^6)*(h-r)^2
// pointing away from the neighbor. Zero vector outside (0, h]; the direction
// is undefined at r = 0, so callers gate on a separation epsilon first.
func (k Kernels) SpikyGrad(rv Vec3, r float32) Vec3 {
	if r <= 0 || r > k.H {
		return Vec3{}
	}
	d := k.H - r
	return rv.Scale(k.spikyCo * d * d / r)
}

// ViscLap returns the viscosity laplacian kernel at distance r.
func (k Kernels) ViscLap(r float32) float32 {
	if r < 0 || r > k.H {
		return 0
	}
	return k.viscCo * (k.H - r)
}
