package mutation

import (
	"context"

	"github.com/yigiterenyilmaz/intern-project-product-review/internal/errs"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/logging"
)

// Outcome is reported when an entity stops having a call in flight.
type Outcome[R any] struct {
	ID        string
	Confirmed bool // last server-confirmed state
	Converged bool // desired state equals Confirmed
	Result    R    // response of the last successful call in this run
	HasResult bool
	Err       error
}

type convergeEntry[R any] struct {
	desired   bool
	confirmed bool
	known     bool
	inFlight  bool
	last      R
	hasLast   bool
}

// Converger drives a server-side boolean toward a desired state using a
// non-idempotent toggle endpoint. At most one call per entity is in flight;
// a desire that changes during a call is reconciled when it completes, so
// two quick toggles cost two calls and leave the server where it started.
// A transport failure leaves the server state unknown: the entity keeps its
// best guess until the next Seed or Want re-establishes it.
// All methods run on the engine loop.
type Converger[R any] struct {
	name    string
	post    func(func())
	call    func(ctx context.Context, id string) (R, error)
	conn    Connectivity
	settle  func(Outcome[R])
	log     *logging.Logger
	entries map[string]*convergeEntry[R]

	ctx    context.Context
	cancel context.CancelFunc
}

// NewConverger returns a converger. settle runs on the loop whenever an
// entity goes idle.
func NewConverger[R any](name string, post func(func()), call func(context.Context, string) (R, error), conn Connectivity, settle func(Outcome[R]), log *logging.Logger) *Converger[R] {
	ctx, cancel := context.WithCancel(context.Background())
	if settle == nil {
		settle = func(Outcome[R]) {}
	}
	return &Converger[R]{
		name:    name,
		post:    post,
		call:    call,
		conn:    conn,
		settle:  settle,
		log:     logging.OrNop(log),
		entries: make(map[string]*convergeEntry[R]),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (c *Converger[R]) entry(id string) *convergeEntry[R] {
	e, ok := c.entries[id]
	if !ok {
		e = &convergeEntry[R]{}
		c.entries[id] = e
	}
	return e
}

// Seed records a server-confirmed state. A seed for an entity with a call in
// flight is ignored; the call's own result is authoritative.
func (c *Converger[R]) Seed(id string, confirmed bool) {
	e := c.entry(id)
	if e.inFlight {
		return
	}
	if !e.known {
		e.desired = confirmed
	}
	e.confirmed = confirmed
	e.known = true
}

// Want sets the desired state for id. prior is assumed to be the server
// state when nothing has been confirmed yet.
func (c *Converger[R]) Want(id string, desired, prior bool) {
	e := c.entry(id)
	if !e.known {
		e.confirmed = prior
		e.known = true
	}
	e.desired = desired
	c.drive(id, e)
}

// Abandon drops any pending desire for id so it matches the confirmed
// state again.
func (c *Converger[R]) Abandon(id string) {
	if e, ok := c.entries[id]; ok && !e.inFlight {
		e.desired = e.confirmed
	}
}

// Confirmed returns the last known server state of id.
func (c *Converger[R]) Confirmed(id string) (state, known bool) {
	e, ok := c.entries[id]
	if !ok || !e.known {
		return false, false
	}
	return e.confirmed, true
}

// Dirty reports whether id has a desire the server has not confirmed.
func (c *Converger[R]) Dirty(id string) bool {
	e, ok := c.entries[id]
	return ok && (e.inFlight || e.desired != e.confirmed)
}

// InFlight reports whether a call for id is outstanding.
func (c *Converger[R]) InFlight(id string) bool {
	e, ok := c.entries[id]
	return ok && e.inFlight
}

// Close cancels outstanding calls. Their completions still settle.
func (c *Converger[R]) Close() { c.cancel() }

func (c *Converger[R]) drive(id string, e *convergeEntry[R]) {
	if e.inFlight {
		return
	}
	if e.desired == e.confirmed {
		c.settle(Outcome[R]{ID: id, Confirmed: e.confirmed, Converged: true})
		return
	}
	if c.conn != nil && c.conn.IsOffline() {
		c.settle(Outcome[R]{ID: id, Confirmed: e.confirmed, Err: errs.Offline()})
		return
	}
	c.issue(id, e)
}

func (c *Converger[R]) issue(id string, e *convergeEntry[R]) {
	e.inFlight = true
	ctx := c.ctx
	c.log.Debug().Str("converger", c.name).Str("id", id).Bool("desired", e.desired).Msg("issuing toggle")
	go func() {
		r, err := c.call(ctx, id)
		c.post(func() { c.complete(id, r, err) })
	}()
}

func (c *Converger[R]) complete(id string, r R, err error) {
	e := c.entry(id)
	e.inFlight = false
	if err != nil {
		c.log.Debug().Err(err).Str("converger", c.name).Str("id", id).Msg("toggle failed")
		if errs.Is(err, errs.NetworkUnavailable) {
			e.known = false
		}
		c.finish(id, e, Outcome[R]{ID: id, Confirmed: e.confirmed, Converged: e.desired == e.confirmed, Err: err})
		return
	}
	e.confirmed = !e.confirmed
	e.last, e.hasLast = r, true
	if e.desired != e.confirmed {
		if c.conn != nil && c.conn.IsOffline() {
			c.finish(id, e, Outcome[R]{ID: id, Confirmed: e.confirmed, Err: errs.Offline()})
			return
		}
		c.issue(id, e)
		return
	}
	c.finish(id, e, Outcome[R]{ID: id, Confirmed: e.confirmed, Converged: true})
}

func (c *Converger[R]) finish(id string, e *convergeEntry[R], o Outcome[R]) {
	o.Result, o.HasResult = e.last, e.hasLast
	var zero R
	e.last, e.hasLast = zero, false
	c.settle(o)
}
