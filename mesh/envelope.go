package mesh

import (
	"time"

	"github.com/sarchlab/meshflood/space"
)

// An Envelope is a packet in flight, together with the physical metadata the
// radio layer attaches to it.
type Envelope struct {
	ID     string
	Packet Packet

	// Sender is the node that transmitted this copy. It differs from
	// Packet.Src once the packet is relayed.
	Sender         Address
	SourcePosition space.Position

	// TargetPosition is nil while the envelope is in flight and is set by
	// the receiver when it hears the envelope.
	TargetPosition *space.Position

	SendTime time.Time
}

// Received returns the copy of the envelope as heard at target, carrying the
// given packet.
func (e Envelope) Received(target space.Position, p Packet) Envelope {
	e.TargetPosition = &target
	e.Packet = p

	return e
}
