package mesh

import (
	"fmt"
	"time"

	"github.com/sarchlab/meshflood/space"
)

// Builder builds nodes.
type Builder struct {
	allocator   *AddressAllocator
	position    space.Position
	requested   *Address
	schedule    []SendOrder
	initialTTL  int
	payloadFunc func(seq uint32, dst Address) []byte
	noDedup     bool
	noFilter    bool
	recorder    Recorder
	clock       func() time.Time
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		initialTTL: DefaultInitialTTL,
		clock:      time.Now,
	}
}

// WithAllocator sets the allocator that assigns the node address. It is
// required.
func (b Builder) WithAllocator(a *AddressAllocator) Builder {
	b.allocator = a
	return b
}

// WithPosition sets the fixed position of the node.
func (b Builder) WithPosition(p space.Position) Builder {
	b.position = p
	return b
}

// WithAddress requests a specific address. Without it, the node gets the
// smallest free address.
func (b Builder) WithAddress(addr Address) Builder {
	b.requested = &addr
	return b
}

// WithSchedule sets the packets the node originates.
func (b Builder) WithSchedule(orders ...SendOrder) Builder {
	b.schedule = orders
	return b
}

// WithInitialTTL sets the TTL of originated packets.
func (b Builder) WithInitialTTL(ttl int) Builder {
	b.initialTTL = ttl
	return b
}

// WithPayloadFunc sets how the payload of originated packets is generated.
func (b Builder) WithPayloadFunc(f func(seq uint32, dst Address) []byte) Builder {
	b.payloadFunc = f
	return b
}

// WithoutDedupCache builds a node that does not suppress duplicates. Such a
// node relays every copy it hears until the TTL runs out.
func (b Builder) WithoutDedupCache() Builder {
	b.noDedup = true
	return b
}

// WithoutReachabilityFilter builds a node that hears every transmission
// regardless of distance.
func (b Builder) WithoutReachabilityFilter() Builder {
	b.noFilter = true
	return b
}

// WithRecorder sets where receipt decisions are recorded.
func (b Builder) WithRecorder(r Recorder) Builder {
	b.recorder = r
	return b
}

// WithClock replaces the wall clock used for timestamps and scheduling.
func (b Builder) WithClock(clock func() time.Time) Builder {
	b.clock = clock
	return b
}

func (b Builder) parametersMustBeValid() {
	if b.allocator == nil {
		panic("address allocator is not given")
	}

	if b.initialTTL < 0 {
		panic(fmt.Sprintf("invalid initial ttl %d", b.initialTTL))
	}

	if b.clock == nil {
		panic("clock is not given")
	}
}

// Build creates the node and claims its address. If the address cannot be
// claimed, no node is created.
func (b Builder) Build(name string) (*Node, error) {
	b.parametersMustBeValid()

	addr, err := b.claimAddress()
	if err != nil {
		return nil, fmt.Errorf("building %s: %w", name, err)
	}

	if name == "" {
		name = fmt.Sprintf("Node[%d]", addr)
	}

	n := &Node{
		name:               name,
		address:            addr,
		position:           b.position,
		initialTTL:         b.initialTTL,
		schedule:           NewSchedule(b.schedule),
		payloadFunc:        b.payloadFunc,
		reachabilityFilter: !b.noFilter,
		recorder:           b.recorder,
		now:                b.clock,
		killCh:             make(chan struct{}),
	}

	if !b.noDedup {
		n.cache = NewReceiveCache()
	}

	n.state.Store(int32(StateConnecting))

	return n, nil
}

func (b Builder) claimAddress() (Address, error) {
	if b.requested == nil {
		return b.allocator.Allocate()
	}

	if err := b.allocator.Request(*b.requested); err != nil {
		return 0, err
	}

	return *b.requested, nil
}
