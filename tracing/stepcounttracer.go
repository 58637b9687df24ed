// Package tracing collects statistics from node hooks.
package tracing

import (
	"sync"

	"github.com/sarchlab/meshflood/mesh"
)

// Step names counted by the StepCountTracer.
const (
	StepOriginated = "originated"
	StepAccepted   = "accepted"
	StepDropped    = "dropped"
	StepRelayed    = "relayed"
)

// StepCountTracer counts how many times each step is triggered across all the
// nodes it is attached to. It also counts the distinct packets that reached a
// step at least once.
type StepCountTracer struct {
	lock                sync.Mutex
	stepNames           []string
	stepCount           map[string]uint64
	packetsWithStep     map[string]map[mesh.PacketKey]struct{}
	packetWithStepCount map[string]uint64
}

// NewStepCountTracer creates a new StepCountTracer
func NewStepCountTracer() *StepCountTracer {
	return &StepCountTracer{
		stepCount:           make(map[string]uint64),
		packetsWithStep:     make(map[string]map[mesh.PacketKey]struct{}),
		packetWithStepCount: make(map[string]uint64),
	}
}

// GetStepNames returns all the step names collected, in the order they were
// first seen.
func (t *StepCountTracer) GetStepNames() []string {
	t.lock.Lock()
	defer t.lock.Unlock()

	return append([]string(nil), t.stepNames...)
}

// GetStepCount returns the number of steps that is recorded with a certain step
// name.
func (t *StepCountTracer) GetStepCount(stepName string) uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.stepCount[stepName]
}

// GetPacketCount returns the number of distinct packets that reached a step.
func (t *StepCountTracer) GetPacketCount(stepName string) uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.packetWithStepCount[stepName]
}

// Counts returns a copy of all step counts.
func (t *StepCountTracer) Counts() map[string]uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	counts := make(map[string]uint64, len(t.stepCount))
	for k, v := range t.stepCount {
		counts[k] = v
	}

	return counts
}

// Func counts the step of a hook invocation.
func (t *StepCountTracer) Func(ctx mesh.HookCtx) {
	env, ok := ctx.Item.(mesh.Envelope)
	if !ok {
		return
	}

	step := stepOf(ctx)
	if step == "" {
		return
	}

	t.lock.Lock()
	defer t.lock.Unlock()

	t.countStep(step)
	t.countPacket(step, env.Packet.Key())
}

func stepOf(ctx mesh.HookCtx) string {
	switch ctx.Pos {
	case mesh.HookPosPacketOriginated:
		return StepOriginated
	case mesh.HookPosEnvelopeRelayed:
		return StepRelayed
	case mesh.HookPosEnvelopeHeard:
		if accepted, _ := ctx.Detail.(bool); accepted {
			return StepAccepted
		}

		return StepDropped
	}

	return ""
}

func (t *StepCountTracer) countStep(step string) {
	_, ok := t.stepCount[step]
	if !ok {
		t.stepNames = append(t.stepNames, step)
	}
	t.stepCount[step]++
}

func (t *StepCountTracer) countPacket(step string, key mesh.PacketKey) {
	packets, ok := t.packetsWithStep[step]
	if !ok {
		packets = make(map[mesh.PacketKey]struct{})
		t.packetsWithStep[step] = packets
	}

	if _, seen := packets[key]; seen {
		return
	}

	packets[key] = struct{}{}
	t.packetWithStepCount[step]++
}
