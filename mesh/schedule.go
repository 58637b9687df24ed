package mesh

import (
	"sort"
	"time"
)

// A SendOrder asks a node to originate a packet to Dst once At has elapsed
// since the node started running.
type SendOrder struct {
	At  time.Duration
	Dst Address
}

// A Schedule is the ordered list of packets a node originates.
type Schedule struct {
	orders []SendOrder
	cursor int
}

// NewSchedule creates a schedule. Orders fire in ascending At order; orders
// with the same offset keep their given order.
func NewSchedule(orders []SendOrder) *Schedule {
	sorted := make([]SendOrder, len(orders))
	copy(sorted, orders)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].At < sorted[j].At
	})

	return &Schedule{orders: sorted}
}

// Peek returns the next order. The second return value is false once the
// schedule is exhausted, meaning the node never fires again.
func (s *Schedule) Peek() (SendOrder, bool) {
	if s == nil || s.cursor >= len(s.orders) {
		return SendOrder{}, false
	}

	return s.orders[s.cursor], true
}

// Advance moves past the current order.
func (s *Schedule) Advance() {
	if s == nil || s.cursor >= len(s.orders) {
		return
	}

	s.cursor++
}

// Remaining returns the number of orders that have not fired.
func (s *Schedule) Remaining() int {
	if s == nil {
		return 0
	}

	return len(s.orders) - s.cursor
}
