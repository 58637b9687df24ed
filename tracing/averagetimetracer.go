package tracing

import (
	"sync"
	"time"

	"github.com/sarchlab/meshflood/mesh"
)

// EnvelopeFilter selects the envelopes a tracer considers.
type EnvelopeFilter func(env mesh.Envelope) bool

// AverageTimeTracer measures the average single-hop latency, the time between
// publishing an envelope and a node accepting it.
type AverageTimeTracer struct {
	now         func() time.Time
	filter      EnvelopeFilter
	lock        sync.Mutex
	averageTime time.Duration
	count       uint64
}

// NewAverageTimeTracer creates a new AverageTimeTracer. A nil filter
// considers every envelope.
func NewAverageTimeTracer(
	now func() time.Time,
	filter EnvelopeFilter,
) *AverageTimeTracer {
	if filter == nil {
		filter = func(mesh.Envelope) bool { return true }
	}

	return &AverageTimeTracer{
		now:    now,
		filter: filter,
	}
}

// AverageTime returns the average latency of the accepted envelopes.
func (t *AverageTimeTracer) AverageTime() time.Duration {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.averageTime
}

// TotalCount returns the number of accepted envelopes measured.
func (t *AverageTimeTracer) TotalCount() uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.count
}

// Func measures accepted envelopes.
func (t *AverageTimeTracer) Func(ctx mesh.HookCtx) {
	if ctx.Pos != mesh.HookPosEnvelopeHeard {
		return
	}

	if accepted, _ := ctx.Detail.(bool); !accepted {
		return
	}

	env, ok := ctx.Item.(mesh.Envelope)
	if !ok || env.SendTime.IsZero() || !t.filter(env) {
		return
	}

	latency := t.now().Sub(env.SendTime)

	t.lock.Lock()
	defer t.lock.Unlock()

	t.averageTime = time.Duration(
		(float64(t.averageTime)*float64(t.count) + float64(latency)) /
			float64(t.count+1))
	t.count++
}
