package fluid

import "testing"

func TestParticlesAddSequentialIndices(t *testing.T) {
	p := NewParticles(4)

	for want := 0; want < 4; want++ {
		idx, ok := p.add(Vec3{X: float32(want)}, 0.02, 1000, 20)
		if !ok {
			t.Fatalf("add %d failed below capacity", want)
		}
		if idx != want {
			t.Errorf("add returned index %d, want %d", idx, want)
		}
	}
	if p.Count() != 4 {
		t.Errorf("Count = %d, want 4", p.Count())
	}
}

func TestParticlesAddInitializesState(t *testing.T) {
	p := NewParticles(2)
	idx, ok := p.add(Vec3{1, 2, 3}, 0.05, 900, 25)
	if !ok {
		t.Fatal("add failed")
	}

	if p.Pos[idx] != (Vec3{1, 2, 3}) {
		t.Errorf("Pos = %+v", p.Pos[idx])
	}
	if p.Vel[idx] != (Vec3{}) {
		t.Errorf("Vel = %+v, want zero", p.Vel[idx])
	}
	if p.Mass[idx] != 0.05 || p.Density[idx] != 900 || p.Temp[idx] != 25 {
		t.Errorf("mass/density/temp = %v/%v/%v", p.Mass[idx], p.Density[idx], p.Temp[idx])
	}
	if p.Pressure[idx] != 0 {
		t.Errorf("Pressure = %v, want 0", p.Pressure[idx])
	}
}

func TestParticlesCapacityGuard(t *testing.T) {
	p := NewParticles(2)
	p.add(Vec3{}, 0.02, 1000, 20)
	p.add(Vec3{}, 0.02, 1000, 20)

	idx, ok := p.add(Vec3{X: 9}, 0.02, 1000, 20)
	if ok {
		t.Fatal("add succeeded past capacity")
	}
	if idx != 0 {
		t.Errorf("failed add returned index %d, want 0", idx)
	}
	if p.Count() != 2 {
		t.Errorf("Count after failed add = %d, want 2", p.Count())
	}
	// No slot may have been touched.
	for i := 0; i < 2; i++ {
		if p.Pos[i].X == 9 {
			t.Error("failed add mutated the store")
		}
	}
}
