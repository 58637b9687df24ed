package simulation

import (
	"fmt"
	"log"
	"math/rand"
	"strconv"
	"time"

	"github.com/rs/xid"
	"github.com/sarchlab/meshflood/datarecording"
	"github.com/sarchlab/meshflood/history"
	"github.com/sarchlab/meshflood/mesh"
	"github.com/sarchlab/meshflood/monitoring"
	"github.com/sarchlab/meshflood/tracing"
)

// DefaultRange is the reachability range of the full-mesh flood experiment.
const DefaultRange = 15.0

// DefaultNodeCount is the node count of the full-mesh flood experiment.
const DefaultNodeCount = 25

// Builder can be used to build a simulation.
type Builder struct {
	rangeThreshold float64
	nodeCount      int
	seed           int64
	seedSet        bool
	addrMin        mesh.Address
	addrMax        mesh.Address
	initialTTL     int
	monitorOn      bool
	monitorPort    int
	recordingOn    bool
	outputFileName string
	envelopeLogger *log.Logger
	parallelIDs    bool
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{
		rangeThreshold: DefaultRange,
		nodeCount:      DefaultNodeCount,
		addrMin:        mesh.DefaultAddrMin,
		addrMax:        mesh.DefaultAddrMax,
		initialTTL:     mesh.DefaultInitialTTL,
		monitorOn:      true,
		recordingOn:    true,
	}
}

// WithRange sets the distance below which nodes hear each other.
func (b Builder) WithRange(r float64) Builder {
	b.rangeThreshold = r
	return b
}

// WithNodeCount sets the number of nodes of the flood experiment.
func (b Builder) WithNodeCount(n int) Builder {
	b.nodeCount = n
	return b
}

// WithSeed fixes the seed of random node placement. Without it, the seed is
// taken from the clock.
func (b Builder) WithSeed(seed int64) Builder {
	b.seed = seed
	b.seedSet = true

	return b
}

// WithAddressRange sets the inclusive range nodes take addresses from.
func (b Builder) WithAddressRange(min, max mesh.Address) Builder {
	b.addrMin = min
	b.addrMax = max

	return b
}

// WithInitialTTL sets the TTL of originated packets.
func (b Builder) WithInitialTTL(ttl int) Builder {
	b.initialTTL = ttl
	return b
}

// WithoutMonitoring sets the simulation to not use monitoring.
func (b Builder) WithoutMonitoring() Builder {
	b.monitorOn = false
	return b
}

// WithMonitorPort sets the port number for the monitoring server.
func (b Builder) WithMonitorPort(port int) Builder {
	b.monitorPort = port
	return b
}

// WithoutDataRecording keeps the history in memory only.
func (b Builder) WithoutDataRecording() Builder {
	b.recordingOn = false
	return b
}

// WithOutputFileName sets the custom output file name for the data recorder.
func (b Builder) WithOutputFileName(filename string) Builder {
	b.outputFileName = filename
	return b
}

// WithEnvelopeLogger prints every envelope nodes originate, hear or relay
// into the logger.
func (b Builder) WithEnvelopeLogger(logger *log.Logger) Builder {
	b.envelopeLogger = logger
	return b
}

// WithParallelIDs gives envelopes globally unique IDs instead of sequential
// numbers. It must be chosen before any envelope of the process is sent.
func (b Builder) WithParallelIDs() Builder {
	b.parallelIDs = true
	return b
}

func (b Builder) parametersMustBeValid() {
	if !b.monitorOn && b.monitorPort != 0 {
		panic("monitor port cannot be set when monitoring is disabled")
	}

	if !b.recordingOn && b.outputFileName != "" {
		panic("output file cannot be set when data recording is disabled")
	}

	if b.rangeThreshold < 0 {
		panic("range cannot be negative")
	}

	if b.nodeCount < 0 {
		panic("node count cannot be negative")
	}

	if b.initialTTL < 0 {
		panic("initial TTL cannot be negative")
	}
}

// Build builds the simulation.
func (b Builder) Build() *Simulation {
	b.parametersMustBeValid()

	if b.parallelIDs {
		mesh.UseParallelIDGenerator()
	}

	s := &Simulation{
		id:         xid.New().String(),
		nodeCount:  b.nodeCount,
		initialTTL: b.initialTTL,
		allocator:  mesh.NewAddressAllocator(b.addrMin, b.addrMax),
		network:    mesh.NewNetwork(b.rangeThreshold),
		history:    history.NewLog(),
		killCh:     make(chan struct{}),
	}

	s.stepCounter = tracing.NewStepCountTracer()
	s.hopLatency = tracing.NewAverageTimeTracer(time.Now, nil)
	if b.envelopeLogger != nil {
		s.envelopeLogger = mesh.NewEnvelopeLogger(b.envelopeLogger)
	}

	s.seed = b.seed
	if !b.seedSet {
		s.seed = time.Now().UnixNano()
	}
	s.rng = rand.New(rand.NewSource(s.seed))

	if b.recordingOn {
		outputPath := b.outputFileName
		if outputPath == "" {
			outputPath = "meshflood_sim_" + s.id
		}

		s.dataRecorder = datarecording.New(outputPath)
		s.history.AttachRecorder(s.dataRecorder)

		s.execRecorder = datarecording.NewExecRecorder(s.dataRecorder)
		s.execRecorder.Start()
		s.execRecorder.Set("Simulation ID", s.id)
		s.execRecorder.Set("Seed", strconv.FormatInt(s.seed, 10))
		s.execRecorder.Set("Range",
			strconv.FormatFloat(s.network.Range(), 'g', -1, 64))

		addrMin, addrMax := s.allocator.Range()
		s.execRecorder.Set("Address Range",
			fmt.Sprintf("[%d, %d]", addrMin, addrMax))
		s.execRecorder.Set("Node Count", strconv.Itoa(b.nodeCount))
		s.execRecorder.Set("Initial TTL", strconv.Itoa(b.initialTTL))
	}

	if b.monitorOn {
		s.monitor = monitoring.NewMonitor()
		if b.monitorPort > 0 {
			s.monitor.WithPortNumber(b.monitorPort)
		}
		s.monitor.RegisterNetwork(s.network)
		s.monitor.RegisterHistory(s.history)
		s.monitor.RegisterStepCounter(s.stepCounter)
		s.monitor.RegisterStopFunc(s.Kill)
		s.monitorPort = s.monitor.StartServer()
	}

	return s
}
