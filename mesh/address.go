package mesh

import (
	"errors"
	"fmt"
	"sync"
)

// An Address identifies a node on the mesh.
type Address int

// The default address space of a network.
const (
	DefaultAddrMin Address = 0
	DefaultAddrMax Address = 1000
)

var (
	// ErrAddressOutOfRange is returned when a requested address is outside
	// the allocator range.
	ErrAddressOutOfRange = errors.New("address out of range")

	// ErrAddressTaken is returned when a requested address is already
	// assigned to another node.
	ErrAddressTaken = errors.New("address already assigned")

	// ErrAddressSpaceExhausted is returned when no free address is left.
	ErrAddressSpaceExhausted = errors.New("no free address left")
)

// An AddressAllocator hands out unique node addresses from [min, max].
type AddressAllocator struct {
	lock     sync.Mutex
	min, max Address
	assigned map[Address]bool
}

// NewAddressAllocator creates an allocator for the inclusive range
// [min, max].
func NewAddressAllocator(min, max Address) *AddressAllocator {
	if min > max {
		panic(fmt.Sprintf("invalid address range [%d, %d]", min, max))
	}

	return &AddressAllocator{
		min:      min,
		max:      max,
		assigned: make(map[Address]bool),
	}
}

// Range returns the bounds of the allocator.
func (a *AddressAllocator) Range() (min, max Address) {
	return a.min, a.max
}

// Allocate assigns the smallest free address.
func (a *AddressAllocator) Allocate() (Address, error) {
	a.lock.Lock()
	defer a.lock.Unlock()

	for addr := a.min; addr <= a.max; addr++ {
		if !a.assigned[addr] {
			a.assigned[addr] = true
			return addr, nil
		}
	}

	return 0, fmt.Errorf("[%d, %d]: %w", a.min, a.max, ErrAddressSpaceExhausted)
}

// Request assigns the given address.
func (a *AddressAllocator) Request(addr Address) error {
	a.lock.Lock()
	defer a.lock.Unlock()

	if addr < a.min || addr > a.max {
		return fmt.Errorf("%d not in [%d, %d]: %w",
			addr, a.min, a.max, ErrAddressOutOfRange)
	}

	if a.assigned[addr] {
		return fmt.Errorf("%d: %w", addr, ErrAddressTaken)
	}

	a.assigned[addr] = true

	return nil
}

// Release returns an address to the free pool.
func (a *AddressAllocator) Release(addr Address) {
	a.lock.Lock()
	defer a.lock.Unlock()

	delete(a.assigned, addr)
}

// IsAssigned reports whether the address is in use.
func (a *AddressAllocator) IsAssigned(addr Address) bool {
	a.lock.Lock()
	defer a.lock.Unlock()

	return a.assigned[addr]
}

// NumAssigned returns how many addresses are in use.
func (a *AddressAllocator) NumAssigned() int {
	a.lock.Lock()
	defer a.lock.Unlock()

	return len(a.assigned)
}
