package mesh

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sarchlab/meshflood/history"
	"github.com/sarchlab/meshflood/space"
)

// ErrNoNetwork is returned when a node has to transmit or receive before it
// is attached to a network.
var ErrNoNetwork = errors.New("network is not attached")

// State is the lifecycle state of a node.
type State int32

// Lifecycle states. A node moves from connecting to running once the medium
// is listening, and stops for good when killed.
const (
	StateConnecting State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// A Recorder stores the receipt decisions of nodes.
type Recorder interface {
	Append(rec history.Record)
}

// NodeInfo is a read-only view of a node that is safe to take while the node
// runs.
type NodeInfo struct {
	Name       string
	Address    int
	X, Y       float64
	State      string
	InitialTTL int
	Dedup      bool
	Filter     bool
}

// A Node is a mesh node that originates packets on a schedule and floods the
// packets it hears.
//
// Everything except the kill flag and the state is owned by the node loop.
// Tick, Receive and ShouldAccept must not be called concurrently.
type Node struct {
	HookableBase

	name     string
	address  Address
	position space.Position

	initialTTL  int
	lastSeq     uint32
	schedule    *Schedule
	payloadFunc func(seq uint32, dst Address) []byte

	cache              *ReceiveCache
	reachabilityFilter bool

	recorder Recorder
	network  Medium
	now      func() time.Time

	state    atomic.Int32
	killed   atomic.Bool
	killCh   chan struct{}
	killOnce sync.Once
}

// Name returns the name of the node.
func (n *Node) Name() string {
	return n.name
}

// Address returns the network address of the node.
func (n *Node) Address() Address {
	return n.address
}

// Position returns the fixed position of the node.
func (n *Node) Position() space.Position {
	return n.position
}

// State returns the lifecycle state of the node.
func (n *Node) State() State {
	return State(n.state.Load())
}

// Info returns a snapshot of the node configuration and state.
func (n *Node) Info() NodeInfo {
	return NodeInfo{
		Name:       n.name,
		Address:    int(n.address),
		X:          n.position.X,
		Y:          n.position.Y,
		State:      n.State().String(),
		InitialTTL: n.initialTTL,
		Dedup:      n.cache != nil,
		Filter:     n.reachabilityFilter,
	}
}

// Attach connects the node to a medium. A node can only be attached once.
func (n *Node) Attach(m Medium) {
	if n.network != nil {
		panic(fmt.Sprintf("node %s is already attached to a network", n.name))
	}

	n.network = m
}

// Kill asks the node loop to exit. The current iteration is completed.
func (n *Node) Kill() {
	n.killed.Store(true)
	n.killOnce.Do(func() { close(n.killCh) })
}

// NextSend returns the next scheduled transmission. The second return value
// is false when the node will never originate a packet again.
func (n *Node) NextSend() (SendOrder, bool) {
	return n.schedule.Peek()
}

// Tick originates a packet if the next send order is due at elapsed. It
// reports whether a packet was published.
func (n *Node) Tick(elapsed time.Duration) (bool, error) {
	order, ok := n.NextSend()
	if !ok || elapsed < order.At {
		return false, nil
	}

	if n.network == nil {
		return false, ErrNoNetwork
	}

	n.schedule.Advance()

	n.lastSeq++
	pkt := Packet{
		TTL: n.initialTTL,
		Seq: n.lastSeq,
		Src: n.address,
		Dst: order.Dst,
	}

	if n.payloadFunc != nil {
		pkt.Payload = n.payloadFunc(pkt.Seq, pkt.Dst)
	}

	env := n.transmit(pkt)
	n.InvokeHook(HookCtx{
		Domain: n,
		Pos:    HookPosPacketOriginated,
		Item:   env,
	})

	return true, nil
}

// Receive processes an envelope delivered by the medium. Envelopes sent from
// out of range leave no trace. Heard envelopes are recorded whether accepted
// or dropped, and accepted packets with enough TTL left are relayed.
func (n *Node) Receive(env Envelope) error {
	if n.network == nil {
		return ErrNoNetwork
	}

	if n.reachabilityFilter &&
		!n.network.CanHear(env.SourcePosition, n.position) {
		return nil
	}

	heard := env.Received(n.position, env.Packet.WithTTL(env.Packet.TTL-1))
	accepted := n.ShouldAccept(heard.Packet)

	n.record(heard, accepted)
	n.InvokeHook(HookCtx{
		Domain: n,
		Pos:    HookPosEnvelopeHeard,
		Item:   heard,
		Detail: accepted,
	})

	if !accepted || heard.Packet.TTL < RelayThreshold {
		return nil
	}

	relayed := n.transmit(heard.Packet)
	n.InvokeHook(HookCtx{
		Domain: n,
		Pos:    HookPosEnvelopeRelayed,
		Item:   relayed,
	})

	return nil
}

// ShouldAccept decides whether a packet is processed. A node never accepts
// its own packets and accepts every (source, sequence) pair at most once.
func (n *Node) ShouldAccept(p Packet) bool {
	if p.Src == n.address {
		return false
	}

	if n.cache == nil {
		return true
	}

	return n.cache.Add(p.Key())
}

func (n *Node) transmit(p Packet) Envelope {
	env := Envelope{
		ID:             GetIDGenerator().Generate(),
		Packet:         p,
		Sender:         n.address,
		SourcePosition: n.position,
		SendTime:       n.now(),
	}

	n.network.Publish(env)

	return env
}

func (n *Node) record(env Envelope, accepted bool) {
	if n.recorder == nil {
		return
	}

	n.recorder.Append(history.Record{
		EnvelopeID:     env.ID,
		Reporter:       int(n.address),
		Src:            int(env.Packet.Src),
		Dst:            int(env.Packet.Dst),
		Seq:            env.Packet.Seq,
		TTL:            env.Packet.TTL,
		SourcePosition: env.SourcePosition,
		TargetPosition: *env.TargetPosition,
		Timestamp:      n.now(),
		Accepted:       accepted,
		Payload:        env.Packet.Payload,
	})
}

// Run is the node loop. It subscribes to the attached network, waits until
// the network listens, and then alternates between originating scheduled
// packets and processing received envelopes until the node is killed or the
// context is cancelled. The kill flag is checked between iterations.
func (n *Node) Run(ctx context.Context) error {
	defer n.state.Store(int32(StateStopped))

	if n.network == nil {
		log.Printf("%s: %v", n.name, ErrNoNetwork)
		return fmt.Errorf("%s: %w", n.name, ErrNoNetwork)
	}

	mailbox := n.network.Subscribe(n.address)

	select {
	case <-n.network.Ready():
	case <-n.killCh:
		return nil
	case <-ctx.Done():
		return nil
	}

	n.state.Store(int32(StateRunning))
	log.Printf("%s connected to network", n.name)

	start := n.now()
	for !n.killed.Load() {
		elapsed := n.now().Sub(start)

		fired, err := n.Tick(elapsed)
		if err != nil {
			log.Printf("%s: %v", n.name, err)
			return fmt.Errorf("%s: %w", n.name, err)
		}

		if fired {
			continue
		}

		if env, ok := mailbox.Pop(); ok {
			if err := n.Receive(env); err != nil {
				log.Printf("%s: %v", n.name, err)
				return fmt.Errorf("%s: %w", n.name, err)
			}

			continue
		}

		n.wait(ctx, mailbox, elapsed)
	}

	log.Printf("%s killed", n.name)

	return nil
}

func (n *Node) wait(ctx context.Context, mailbox *Mailbox, elapsed time.Duration) {
	var fire <-chan time.Time

	if order, ok := n.NextSend(); ok {
		timer := time.NewTimer(order.At - elapsed)
		defer timer.Stop()

		fire = timer.C
	}

	select {
	case <-mailbox.Signal():
	case <-fire:
	case <-n.killCh:
	case <-ctx.Done():
		n.Kill()
	}
}
