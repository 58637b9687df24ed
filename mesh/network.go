package mesh

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/sarchlab/meshflood/space"
)

// A Medium is the shared radio medium a node transmits on.
type Medium interface {
	// CanHear reports whether a node at target hears a transmission sent
	// from source.
	CanHear(source, target space.Position) bool

	// Subscribe returns the mailbox in which the node receives envelopes.
	Subscribe(addr Address) *Mailbox

	// Ready is closed once the medium is listening for transmissions.
	Ready() <-chan struct{}

	// Publish hands an envelope to the medium. It never blocks.
	Publish(env Envelope)
}

// NodesMap lists node coordinates and addresses, index aligned.
type NodesMap struct {
	X         []float64
	Y         []float64
	Addresses []Address
}

// Network is the broadcast bus. It delivers every published envelope to the
// mailbox of every registered node except the sender. It does not filter by
// distance; each receiver decides whether it heard the envelope.
//
// Stopping the network does not drain envelopes that were published but not
// yet delivered. Delivery is best-effort at shutdown.
type Network struct {
	rangeThreshold float64

	lock      sync.RWMutex
	nodes     []*Node
	byAddr    map[Address]*Node
	mailboxes map[Address]*Mailbox

	outbox *Mailbox

	ready     chan struct{}
	readyOnce sync.Once
	stop      chan struct{}
	stopOnce  sync.Once
}

// NewNetwork creates a network in which transmissions are heard within
// rangeThreshold.
func NewNetwork(rangeThreshold float64) *Network {
	if rangeThreshold < 0 {
		panic(fmt.Sprintf("invalid network range %f", rangeThreshold))
	}

	return &Network{
		rangeThreshold: rangeThreshold,
		byAddr:         make(map[Address]*Node),
		mailboxes:      make(map[Address]*Mailbox),
		outbox:         NewMailbox(),
		ready:          make(chan struct{}),
		stop:           make(chan struct{}),
	}
}

// Range returns the reachability threshold of the network.
func (nw *Network) Range() float64 {
	return nw.rangeThreshold
}

// AddNode registers a node and attaches the node to the network. Adding the
// same node or address twice panics.
func (nw *Network) AddNode(n *Node) {
	nw.lock.Lock()
	defer nw.lock.Unlock()

	if _, found := nw.byAddr[n.Address()]; found {
		panic(fmt.Sprintf("node %s already added to network", n.Name()))
	}

	nw.nodes = append(nw.nodes, n)
	nw.byAddr[n.Address()] = n
	nw.mailboxes[n.Address()] = NewMailbox()

	n.Attach(nw)
}

// Subscribe returns the mailbox of a registered node.
func (nw *Network) Subscribe(addr Address) *Mailbox {
	nw.lock.RLock()
	defer nw.lock.RUnlock()

	mailbox, found := nw.mailboxes[addr]
	if !found {
		panic(fmt.Sprintf("node %d is not registered", addr))
	}

	return mailbox
}

// Ready is closed once the bus loop runs.
func (nw *Network) Ready() <-chan struct{} {
	return nw.ready
}

// Publish queues an envelope for fan-out.
func (nw *Network) Publish(env Envelope) {
	select {
	case <-nw.stop:
		return
	default:
	}

	nw.outbox.Push(env)
}

// Run delivers published envelopes until the context is cancelled or Stop is
// called.
func (nw *Network) Run(ctx context.Context) error {
	nw.readyOnce.Do(func() { close(nw.ready) })

	for {
		for {
			if nw.stopped(ctx) {
				return nil
			}

			env, ok := nw.outbox.Pop()
			if !ok {
				break
			}

			nw.fanOut(env)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-nw.stop:
			return nil
		case <-nw.outbox.Signal():
		}
	}
}

func (nw *Network) stopped(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	case <-nw.stop:
		return true
	default:
		return false
	}
}

func (nw *Network) fanOut(env Envelope) {
	nw.lock.RLock()
	defer nw.lock.RUnlock()

	for addr, mailbox := range nw.mailboxes {
		if addr == env.Sender {
			continue
		}

		mailbox.Push(env)
	}
}

// Stop stops the bus loop. Envelopes still queued are discarded.
func (nw *Network) Stop() {
	nw.stopOnce.Do(func() {
		close(nw.stop)

		if pending := nw.outbox.Len(); pending > 0 {
			log.Printf("network stopped with %d undelivered envelopes", pending)
		}
	})
}

// Nodes returns the registered nodes ordered by address.
func (nw *Network) Nodes() []*Node {
	nw.lock.RLock()
	defer nw.lock.RUnlock()

	nodes := make([]*Node, len(nw.nodes))
	copy(nodes, nw.nodes)

	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].Address() < nodes[j].Address()
	})

	return nodes
}

// Node returns the node registered with the address.
func (nw *Network) Node(addr Address) (*Node, bool) {
	nw.lock.RLock()
	defer nw.lock.RUnlock()

	n, found := nw.byAddr[addr]

	return n, found
}

// NodesMap returns the positions and addresses of all nodes.
func (nw *Network) NodesMap() NodesMap {
	nodes := nw.Nodes()

	m := NodesMap{
		X:         make([]float64, 0, len(nodes)),
		Y:         make([]float64, 0, len(nodes)),
		Addresses: make([]Address, 0, len(nodes)),
	}

	for _, n := range nodes {
		m.X = append(m.X, n.Position().X)
		m.Y = append(m.Y, n.Position().Y)
		m.Addresses = append(m.Addresses, n.Address())
	}

	return m
}

// CanHear reports whether a node at target hears a transmission from source.
func (nw *Network) CanHear(source, target space.Position) bool {
	return space.InRange(source, target, nw.rangeThreshold)
}
