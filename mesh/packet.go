package mesh

import "fmt"

// DefaultInitialTTL is the TTL of a freshly originated packet.
const DefaultInitialTTL = 14

// RelayThreshold is the minimum TTL, after the receiver decrements it, for a
// packet to be relayed again.
const RelayThreshold = 2

// A PacketKey identifies one originated transmission, no matter how many
// times it is relayed.
type PacketKey struct {
	Src Address
	Seq uint32
}

// A Packet is the network PDU flooded through the mesh. Packets are treated
// as immutable once published; receivers work on copies.
type Packet struct {
	IVI uint8
	NID uint8
	CTL uint8
	TTL int
	Seq uint32
	Src Address
	Dst Address

	Payload []byte

	// NetMIC is carried but never computed or verified.
	NetMIC []byte
}

// Key returns the (source, sequence) pair of the packet.
func (p Packet) Key() PacketKey {
	return PacketKey{Src: p.Src, Seq: p.Seq}
}

// WithTTL returns a copy of the packet with a different TTL.
func (p Packet) WithTTL(ttl int) Packet {
	p.TTL = ttl
	return p
}

func (p Packet) String() string {
	return fmt.Sprintf("NetPDU[%d->%d][SEQ:%d][TTL:%d][Data:%s]",
		p.Src, p.Dst, p.Seq, p.TTL, p.Payload)
}
