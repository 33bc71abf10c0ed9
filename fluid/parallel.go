package fluid

import (
	"runtime"
	"sync"
)

type phase uint8

const (
	phaseDensity phase = iota
	phaseForces
	phaseIntegrate
)

// workChunk is a range of particle indices for one worker to process.
type workChunk struct {
	sim        *Sim
	start, end int
	phase      phase
	dt         float32
}

// parallelBackend splits each pass across a pool of persistent workers. Every
// worker owns a neighbor scratch buffer, and the dispatcher counts completion
// signals before returning, so a pass acts as a barrier: no particle of the
// next pass is touched until every chunk of the current one has landed.
type parallelBackend struct {
	threshold  int
	numWorkers int
	scratches  [][]int32

	workChan chan workChunk
	doneChan chan struct{}
	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
}

func newParallelBackend(threshold int) *parallelBackend {
	numWorkers := runtime.GOMAXPROCS(0)
	return &parallelBackend{
		threshold:  threshold,
		numWorkers: numWorkers,
		scratches:  make([][]int32, numWorkers),
	}
}

func (b *parallelBackend) DensityPressure(s *Sim) {
	b.run(s, phaseDensity, 0)
}

func (b *parallelBackend) Forces(s *Sim) {
	b.run(s, phaseForces, 0)
}

func (b *parallelBackend) Integrate(s *Sim, dt float32) {
	b.run(s, phaseIntegrate, dt)
}

func (b *parallelBackend) Name() string { return BackendParallel }

// Close stops the worker pool. The backend cannot be used afterwards.
func (b *parallelBackend) Close() {
	if !b.running {
		return
	}
	close(b.stopChan)
	b.wg.Wait()
	close(b.workChan)
	close(b.doneChan)
	b.running = false
}

func (b *parallelBackend) start() {
	b.workChan = make(chan workChunk, b.numWorkers)
	b.doneChan = make(chan struct{}, b.numWorkers)
	b.stopChan = make(chan struct{})
	b.running = true

	for i := 0; i < b.numWorkers; i++ {
		b.wg.Add(1)
		go b.worker(i)
	}
}

func (b *parallelBackend) worker(workerID int) {
	defer b.wg.Done()
	scratch := &b.scratches[workerID]

	for {
		select {
		case <-b.stopChan:
			return
		case chunk, ok := <-b.workChan:
			if !ok {
				return
			}
			runChunk(chunk, scratch)
			b.doneChan <- struct{}{}
		}
	}
}

func runChunk(c workChunk, scratch *[]int32) {
	switch c.phase {
	case phaseDensity:
		c.sim.densityPressureRange(c.start, c.end, scratch)
	case phaseForces:
		c.sim.forcesRange(c.start, c.end, scratch)
	case phaseIntegrate:
		c.sim.integrateRange(c.start, c.end, c.dt)
	}
}

// run dispatches one pass and blocks until every chunk completes.
func (b *parallelBackend) run(s *Sim, ph phase, dt float32) {
	n := s.parts.Count()
	if n == 0 {
		return
	}

	// Goroutine dispatch costs more than it saves on small counts.
	if n < b.threshold {
		runChunk(workChunk{sim: s, start: 0, end: n, phase: ph, dt: dt}, &b.scratches[0])
		return
	}

	if !b.running {
		b.start()
	}

	chunkSize := (n + b.numWorkers - 1) / b.numWorkers
	dispatched := 0
	for w := 0; w < b.numWorkers; w++ {
		start := w * chunkSize
		end := min(start+chunkSize, n)
		if start >= end {
			continue
		}
		b.workChan <- workChunk{sim: s, start: start, end: end, phase: ph, dt: dt}
		dispatched++
	}

	for i := 0; i < dispatched; i++ {
		<-b.doneChan
	}
}
