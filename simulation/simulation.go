// Package simulation sets up and runs a mesh flood over a broadcast network.
package simulation

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sarchlab/meshflood/datarecording"
	"github.com/sarchlab/meshflood/history"
	"github.com/sarchlab/meshflood/mesh"
	"github.com/sarchlab/meshflood/monitoring"
	"github.com/sarchlab/meshflood/space"
	"github.com/sarchlab/meshflood/tracing"
	"golang.org/x/sync/errgroup"
)

// A Simulation owns the network, its nodes and the receipt history of one
// run.
type Simulation struct {
	id         string
	seed       int64
	rng        *rand.Rand
	nodeCount  int
	initialTTL int

	allocator *mesh.AddressAllocator
	network   *mesh.Network
	history   *history.Log

	stepCounter    *tracing.StepCountTracer
	hopLatency     *tracing.AverageTimeTracer
	envelopeLogger *mesh.EnvelopeLogger

	dataRecorder datarecording.DataRecorder
	execRecorder *datarecording.ExecRecorder
	monitor      *monitoring.Monitor
	monitorPort  int

	running  atomic.Bool
	killOnce sync.Once
	killCh   chan struct{}

	terminateOnce sync.Once
}

// ID returns the unique ID of the simulation.
func (s *Simulation) ID() string {
	return s.id
}

// Seed returns the seed of random node placement.
func (s *Simulation) Seed() int64 {
	return s.seed
}

// NodeCount returns the configured node count.
func (s *Simulation) NodeCount() int {
	return s.nodeCount
}

// Network returns the network of the simulation.
func (s *Simulation) Network() *mesh.Network {
	return s.network
}

// History returns the receipt log.
func (s *Simulation) History() *history.Log {
	return s.history
}

// NodesMap returns the positions and addresses of all nodes.
func (s *Simulation) NodesMap() mesh.NodesMap {
	return s.network.NodesMap()
}

// StepCounter returns the tracer counting protocol steps over all nodes.
func (s *Simulation) StepCounter() *tracing.StepCountTracer {
	return s.stepCounter
}

// HopLatency returns the tracer measuring single-hop latency.
func (s *Simulation) HopLatency() *tracing.AverageTimeTracer {
	return s.hopLatency
}

// GetDataRecorder returns the data recorder used in the simulation. It is nil
// when data recording is disabled.
func (s *Simulation) GetDataRecorder() datarecording.DataRecorder {
	return s.dataRecorder
}

// GetMonitor returns the monitor used in the simulation.
func (s *Simulation) GetMonitor() *monitoring.Monitor {
	return s.monitor
}

// MonitorURL returns the address of the monitoring server, or an empty
// string when monitoring is disabled.
func (s *Simulation) MonitorURL() string {
	if s.monitor == nil {
		return ""
	}

	return fmt.Sprintf("http://localhost:%d", s.monitorPort)
}

// AddNode builds a node at the given position and registers it with the
// network. A nil address takes the smallest free one. On error, no node is
// registered.
func (s *Simulation) AddNode(
	pos space.Position,
	addr *mesh.Address,
	schedule []mesh.SendOrder,
) (*mesh.Node, error) {
	b := mesh.MakeBuilder().
		WithAllocator(s.allocator).
		WithPosition(pos).
		WithInitialTTL(s.initialTTL).
		WithSchedule(schedule...).
		WithRecorder(s.history)

	if addr != nil {
		b = b.WithAddress(*addr)
	}

	n, err := b.Build("")
	if err != nil {
		return nil, err
	}

	n.AcceptHook(s.stepCounter)
	n.AcceptHook(s.hopLatency)
	if s.envelopeLogger != nil {
		n.AcceptHook(s.envelopeLogger)
	}

	s.network.AddNode(n)

	return n, nil
}

// PlaceRandomNodes adds n nodes at seeded random positions inside the square
// [0, extent) x [0, extent).
func (s *Simulation) PlaceRandomNodes(n int, extent float64) ([]*mesh.Node, error) {
	nodes := make([]*mesh.Node, 0, n)

	for i := 0; i < n; i++ {
		pos := space.At(s.rng.Float64()*extent, s.rng.Float64()*extent)

		node, err := s.AddNode(pos, nil, nil)
		if err != nil {
			return nodes, fmt.Errorf("placing node %d: %w", i, err)
		}

		nodes = append(nodes, node)
	}

	return nodes, nil
}

// RandInt returns a seeded random integer in [min, max].
func (s *Simulation) RandInt(min, max int) int {
	return min + s.rng.Intn(max-min+1)
}

// RunFor starts the network and every registered node, lets them run for d,
// and then kills all of them. Envelopes still in flight at that point may be
// lost. RunFor returns the errors of the node loops after all loops have
// exited. A simulation can only run once.
func (s *Simulation) RunFor(ctx context.Context, d time.Duration) error {
	if !s.running.CompareAndSwap(false, true) {
		panic("simulation already started")
	}

	var g errgroup.Group

	g.Go(func() error {
		return s.network.Run(ctx)
	})

	for _, n := range s.network.Nodes() {
		g.Go(func() error {
			return n.Run(ctx)
		})
	}

	s.waitFor(ctx, d)
	s.Kill()

	err := g.Wait()
	s.history.Flush()

	log.Printf("simulation %s finished with %d records", s.id, s.history.Len())

	return err
}

func (s *Simulation) waitFor(ctx context.Context, d time.Duration) {
	var bar *monitoring.ProgressBar
	if s.monitor != nil {
		bar = s.monitor.CreateProgressBar("Flood", uint64(d.Milliseconds()))
		defer s.monitor.CompleteProgressBar(bar)
	}

	start := time.Now()
	deadline := time.NewTimer(d)
	defer deadline.Stop()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-deadline.C:
			return
		case <-s.killCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if bar != nil {
				bar.SetFinished(uint64(time.Since(start).Milliseconds()))
			}
		}
	}
}

// Kill stops every node and the network. It can be called any number of
// times and from any goroutine.
func (s *Simulation) Kill() {
	s.killOnce.Do(func() {
		close(s.killCh)

		for _, n := range s.network.Nodes() {
			n.Kill()
		}

		s.network.Stop()
	})
}

// Terminate writes the execution information, then flushes and closes the
// data recorder. Calls after the first have no effect.
func (s *Simulation) Terminate() {
	s.terminateOnce.Do(func() {
		s.history.Flush()

		if s.dataRecorder == nil {
			return
		}

		s.execRecorder.End()
		s.dataRecorder.Close()
	})
}
