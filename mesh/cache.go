package mesh

// A ReceiveCache remembers the (source, sequence) pairs a node has accepted.
// Entries are never evicted during a run. The cache is owned by a single node
// loop and is not safe for concurrent use.
type ReceiveCache struct {
	seen map[Address]map[uint32]struct{}
}

// NewReceiveCache creates an empty cache.
func NewReceiveCache() *ReceiveCache {
	return &ReceiveCache{
		seen: make(map[Address]map[uint32]struct{}),
	}
}

// Add stores the pair. It returns false if the pair was already present.
func (c *ReceiveCache) Add(key PacketKey) bool {
	seqs, ok := c.seen[key.Src]
	if !ok {
		seqs = make(map[uint32]struct{})
		c.seen[key.Src] = seqs
	}

	if _, found := seqs[key.Seq]; found {
		return false
	}

	seqs[key.Seq] = struct{}{}

	return true
}
