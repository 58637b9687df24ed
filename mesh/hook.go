package mesh

// HookPos names a site in the relay protocol where hooks are invoked.
type HookPos struct {
	Name string
}

// HookPosPacketOriginated triggers when a node publishes a packet that it
// created from its own send schedule.
var HookPosPacketOriginated = &HookPos{Name: "Packet Originated"}

// HookPosEnvelopeHeard triggers when a node hears an envelope. The Detail of
// the HookCtx is a bool telling whether the packet was accepted.
var HookPosEnvelopeHeard = &HookPos{Name: "Envelope Heard"}

// HookPosEnvelopeRelayed triggers when a node re-publishes an accepted packet.
var HookPosEnvelopeRelayed = &HookPos{Name: "Envelope Relayed"}

// HookCtx carries the information available at the hook site.
type HookCtx struct {
	Domain Hookable
	Pos    *HookPos
	Item   interface{}
	Detail interface{}
}

// Hookable is an object that accepts hooks.
type Hookable interface {
	AcceptHook(hook Hook)
}

// A Hook is invoked by a Hookable at its hook positions.
type Hook interface {
	Func(ctx HookCtx)
}

// HookableBase stores hooks for the types that embed it. Hooks must be
// registered before the owner starts running.
type HookableBase struct {
	Hooks []Hook
}

// AcceptHook registers a hook.
func (h *HookableBase) AcceptHook(hook Hook) {
	h.Hooks = append(h.Hooks, hook)
}

// NumHooks returns the number of registered hooks.
func (h *HookableBase) NumHooks() int {
	return len(h.Hooks)
}

// InvokeHook triggers all the registered hooks.
func (h *HookableBase) InvokeHook(ctx HookCtx) {
	for _, hook := range h.Hooks {
		hook.Func(ctx)
	}
}
