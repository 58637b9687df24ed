package simulation

import (
	"fmt"
	"time"

	"github.com/sarchlab/meshflood/mesh"
	"github.com/sarchlab/meshflood/space"
)

// FloodSchedule returns the send schedule of the flood origin. It sends three
// packets to dst, one at 3s and two at 10s.
func FloodSchedule(dst mesh.Address) []mesh.SendOrder {
	return []mesh.SendOrder{
		{At: 3 * time.Second, Dst: dst},
		{At: 10 * time.Second, Dst: dst},
		{At: 10 * time.Second, Dst: dst},
	}
}

// SetUpFullMeshFlood places the nodes of the full-mesh flood experiment. With
// N nodes, node 0 sits at (0, 0) and floods node N at (N, N). Nodes 1 to N-1
// sit at (i, r) where r is a seeded random integer in [1, N-1].
//
// The address range of the simulation must cover [0, N].
func SetUpFullMeshFlood(s *Simulation) error {
	n := s.nodeCount
	if n < 2 {
		return fmt.Errorf("flood needs at least 2 nodes, got %d", n)
	}

	origin := mesh.Address(0)
	target := mesh.Address(n)

	_, err := s.AddNode(space.At(0, 0), &origin, FloodSchedule(target))
	if err != nil {
		return fmt.Errorf("adding origin: %w", err)
	}

	_, err = s.AddNode(space.At(float64(n), float64(n)), &target, nil)
	if err != nil {
		return fmt.Errorf("adding target: %w", err)
	}

	for i := 1; i < n; i++ {
		pos := space.At(float64(i), float64(s.RandInt(1, n-1)))

		_, err := s.AddNode(pos, nil, nil)
		if err != nil {
			return fmt.Errorf("adding node %d: %w", i, err)
		}
	}

	return nil
}
