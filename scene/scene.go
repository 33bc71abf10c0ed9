// Package scene seeds demo content into a fluid simulation.
package scene

import (
	"log/slog"

	"github.com/tsym/splash/config"
	"github.com/tsym/splash/fluid"
)

// Setup fills the demo particle block described by the scene config.
// Returns the number of particles added.
func Setup(s *fluid.Sim, sc *config.SceneConfig) int {
	added := s.InitLattice(vec3(sc.Origin), vec3(sc.Box), float32(sc.Spacing))
	slog.Info("scene seeded",
		"particles", added,
		"origin", sc.Origin,
		"box", sc.Box,
		"spacing", sc.Spacing,
	)
	return added
}

// SpawnPebble drops a single heavy particle: default mass scaled up and a
// preset initial velocity. Returns false when the store is at capacity.
func SpawnPebble(s *fluid.Sim, pos, vel fluid.Vec3, massScale float32) bool {
	idx, ok := s.AddParticle(pos)
	if !ok {
		return false
	}
	s.SetVelocity(idx, vel)
	s.SetMass(idx, s.Params().ParticleMass*massScale)
	return true
}

// SpawnConfiguredPebble spawns the pebble described by the scene config.
func SpawnConfiguredPebble(s *fluid.Sim, sc *config.SceneConfig) bool {
	return SpawnPebble(s, vec3(sc.Pebble.Position), vec3(sc.Pebble.Velocity), float32(sc.Pebble.MassScale))
}

func vec3(a [3]float64) fluid.Vec3 {
	return fluid.Vec3{X: float32(a[0]), Y: float32(a[1]), Z: float32(a[2])}
}
