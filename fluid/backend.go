package fluid

import "fmt"

// Backend names accepted in Params.Backend.
const (
	BackendSerial   = "serial"
	BackendParallel = "parallel"
)

// Backend executes the per-particle field passes of a step. Within a pass no
// particle's computation writes another particle's slot, so implementations
// may split the index range freely — but each method must not return until
// every write of its pass is visible, since the next pass reads them.
type Backend interface {
	DensityPressure(s *Sim)
	Forces(s *Sim)
	Integrate(s *Sim, dt float32)
	Name() string
	Close()
}

// newBackend selects a backend by name. Selection is explicit; there is no
// environment probing.
func newBackend(name string, threshold int) (Backend, error) {
	switch name {
	case BackendSerial:
		return &serialBackend{}, nil
	case "", BackendParallel:
		return newParallelBackend(threshold), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", name)
	}
}
