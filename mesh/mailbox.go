package mesh

import "sync"

// A Mailbox is an unbounded FIFO queue of envelopes. Any number of goroutines
// may push; one goroutine pops.
type Mailbox struct {
	lock   sync.Mutex
	items  []Envelope
	signal chan struct{}
}

// NewMailbox creates an empty mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{
		signal: make(chan struct{}, 1),
	}
}

// Push appends an envelope and wakes up the consumer. It never blocks.
func (m *Mailbox) Push(env Envelope) {
	m.lock.Lock()
	m.items = append(m.items, env)
	m.lock.Unlock()

	select {
	case m.signal <- struct{}{}:
	default:
	}
}

// Pop removes the oldest envelope.
func (m *Mailbox) Pop() (Envelope, bool) {
	m.lock.Lock()
	defer m.lock.Unlock()

	if len(m.items) == 0 {
		return Envelope{}, false
	}

	env := m.items[0]
	m.items[0] = Envelope{}
	m.items = m.items[1:]

	return env, true
}

// Signal receives a value after a push. A signal may be stale; consumers
// should always Pop until the mailbox is empty.
func (m *Mailbox) Signal() <-chan struct{} {
	return m.signal
}

// Len returns the number of queued envelopes.
func (m *Mailbox) Len() int {
	m.lock.Lock()
	defer m.lock.Unlock()

	return len(m.items)
}
