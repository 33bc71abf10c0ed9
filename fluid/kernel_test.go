package fluid

import (
	"math"
	"testing"
)

func TestPoly6Support(t *testing.T) {
	k := NewKernels(0.1)

	tests := []struct {
		name string
		r    float32
		zero bool
	}{
		{"at center", 0, false},
		{"inside", 0.05, false},
		{"at boundary", 0.1, false}, // (h^2 - r^2) = 0, weight is 0 but not gated
		{"outside", 0.10001, true},
		{"far outside", 1.0, true},
		{"negative", -0.01, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := k.Poly6(tt.r)
			if tt.zero && got != 0 {
				t.Errorf("Poly6(%v) = %v, want 0", tt.r, got)
			}
			if !tt.zero && got < 0 {
				t.Errorf("Poly6(%v) = %v, want >= 0", tt.r, got)
			}
		})
	}

	// Exactly zero at the support boundary.
	if got := k.Poly6(0.1); got != 0 {
		t.Errorf("Poly6(h) = %v, want 0", got)
	}
}

func TestPoly6Monotonic(t *testing.T) {
	k := NewKernels(0.1)

	prev := k.Poly6(0)
	for r := float32(0.005); r <= 0.1; r += 0.005 {
		cur := k.Poly6(r)
		if cur > prev {
			t.Fatalf("Poly6 increased from %v to %v at r=%v", prev, cur, r)
		}
		prev = cur
	}
}

func TestPoly6PeakValue(t *testing.T) {
	h := float32(0.1)
	k := NewKernels(h)

	// At r=0 the weight is 315/(64 pi h^9) * h^6.
	want := 315.0 / (64.0 * math.Pi * math.Pow(float64(h), 9)) * math.Pow(float64(h), 6)
	got := float64(k.Poly6(0))
	if math.Abs(got-want)/want > 1e-5 {
		t.Errorf("Poly6(0) = %v, want %v", got, want)
	}
}

func TestSpikyGradDirection(t *testing.T) {
	k := NewKernels(0.1)

	// Separation pointing in +x: the gradient must push i away from j,
	// i.e. also in +x.
	rv := Vec3{X: 0.05}
	grad := k.SpikyGrad(rv, 0.05)
	if grad.X <= 0 {
		t.Errorf("grad.X = %v, want > 0", grad.X)
	}
	if grad.Y != 0 || grad.Z != 0 {
		t.Errorf("grad off-axis: %+v", grad)
	}

	// Magnitude is 45/(pi h^6) (h-r)^2.
	want := 45.0 / (math.Pi * math.Pow(0.1, 6)) * math.Pow(0.1-0.05, 2)
	got := float64(grad.Len())
	if math.Abs(got-want)/want > 1e-4 {
		t.Errorf("|grad| = %v, want %v", got, want)
	}
}

func TestSpikyGradZeroCases(t *testing.T) {
	k := NewKernels(0.1)

	tests := []struct {
		name string
		rv   Vec3
		r    float32
	}{
		{"coincident", Vec3{}, 0},
		{"outside support", Vec3{X: 0.2}, 0.2},
		{"negative distance", Vec3{X: 0.05}, -0.05},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := k.SpikyGrad(tt.rv, tt.r); got != (Vec3{}) {
				t.Errorf("SpikyGrad(%+v, %v) = %+v, want zero", tt.rv, tt.r, got)
			}
		})
	}
}

func TestViscLap(t *testing.T) {
	h := float32(0.1)
	k := NewKernels(h)

	if got := k.ViscLap(0.2); got != 0 {
		t.Errorf("ViscLap outside support = %v, want 0", got)
	}
	if got := k.ViscLap(h); got != 0 {
		t.Errorf("ViscLap(h) = %v, want 0", got)
	}

	// Linear in (h - r): value at r=0 is the coefficient times h.
	want := 45.0 / (math.Pi * math.Pow(float64(h), 6)) * float64(h)
	got := float64(k.ViscLap(0))
	if math.Abs(got-want)/want > 1e-4 {
		t.Errorf("ViscLap(0) = %v, want %v", got, want)
	}

	// Closer pairs damp harder.
	if k.ViscLap(0.02) <= k.ViscLap(0.08) {
		t.Error("ViscLap should decrease with distance")
	}
}
