package mesh

import (
	"log"
)

// LogHookBase provides the logger shared by logging hooks.
type LogHookBase struct {
	*log.Logger
}

// EnvelopeLogger is a hook that prints every packet a node originates, hears,
// or relays.
type EnvelopeLogger struct {
	LogHookBase
}

// NewEnvelopeLogger returns an EnvelopeLogger that writes into the logger.
func NewEnvelopeLogger(logger *log.Logger) *EnvelopeLogger {
	h := new(EnvelopeLogger)
	h.Logger = logger
	return h
}

// Func writes the envelope information into the logger.
func (h *EnvelopeLogger) Func(ctx HookCtx) {
	env, ok := ctx.Item.(Envelope)
	if !ok {
		return
	}

	reporter := ""
	if n, ok := ctx.Domain.(*Node); ok {
		reporter = n.Name()
	}

	outcome := ""
	if accepted, ok := ctx.Detail.(bool); ok {
		outcome = "dropped"
		if accepted {
			outcome = "accepted"
		}
	}

	h.Logger.Printf("%s,%s,%s,%s,%s\n",
		reporter, ctx.Pos.Name, env.Packet, env.SourcePosition, outcome)
}
