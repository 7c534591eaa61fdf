package resolver

import (
	"context"
	"sync"

	"github.com/dishplayapp/dishplay-server/internal/domain"
)

// call is one in-flight resolution shared by every concurrent request for
// the same key.
type call struct {
	done    chan struct{}
	outcome domain.Outcome
	err     error
}

// flightGroup coalesces concurrent resolutions per key. The first caller for
// a key starts the work; callers arriving while it runs wait for the same
// result.
//
// The work runs detached from the originating request context, so a caller
// hanging up never cancels work other callers are waiting on. A caller whose
// own context is canceled stops waiting and returns its context error; the
// shared work runs to completion.
type flightGroup struct {
	mu    sync.Mutex
	calls map[string]*call
}

func newFlightGroup() *flightGroup {
	return &flightGroup{calls: make(map[string]*call)}
}

// Do executes fn once per key across concurrent callers and hands every
// caller the shared result.
func (g *flightGroup) Do(ctx context.Context, key string, fn func(ctx context.Context) (domain.Outcome, error)) (domain.Outcome, error) {
	g.mu.Lock()
	c, ok := g.calls[key]
	if !ok {
		c = &call{done: make(chan struct{})}
		g.calls[key] = c

		workCtx := context.WithoutCancel(ctx)
		go func() {
			c.outcome, c.err = fn(workCtx)

			g.mu.Lock()
			delete(g.calls, key)
			g.mu.Unlock()
			close(c.done)
		}()
	}
	g.mu.Unlock()

	select {
	case <-c.done:
		return c.outcome, c.err
	case <-ctx.Done():
		return domain.Outcome{}, ctx.Err()
	}
}
