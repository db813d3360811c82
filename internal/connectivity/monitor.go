package connectivity

import (
	"context"
	"sync"
	"time"

	"github.com/yigiterenyilmaz/intern-project-product-review/internal/clock"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/event"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/logging"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/telemetry"
)

// Reachability is the tri-state result of an internet reachability check.
type Reachability int8

const (
	ReachUnknown Reachability = iota
	Reachable
	Unreachable
)

func (r Reachability) String() string {
	switch r {
	case Reachable:
		return "reachable"
	case Unreachable:
		return "unreachable"
	default:
		return "unknown"
	}
}

// Reading is one observation from a probe or the platform.
type Reading struct {
	Connected bool
	Reachable Reachability
}

// State is the monitor's current view of the network.
type State struct {
	Connected     bool
	Reachable     Reachability
	LastCheckedAt time.Time
}

// IsOffline reports whether requests should be short-circuited. Unknown
// reachability counts as online.
func (s State) IsOffline() bool {
	return !s.Connected || s.Reachable == Unreachable
}

// Change is published whenever the connected or reachable fields change.
type Change struct {
	Previous State
	Current  State
}

// WentOnline reports an offline to online transition.
func (c Change) WentOnline() bool { return c.Previous.IsOffline() && !c.Current.IsOffline() }

// WentOffline reports an online to offline transition.
func (c Change) WentOffline() bool { return !c.Previous.IsOffline() && c.Current.IsOffline() }

// Prober performs an active reachability check.
type Prober interface {
	Probe(ctx context.Context) Reading
}

// Options configures a Monitor.
type Options struct {
	Prober   Prober
	Clock    clock.Clock
	Interval time.Duration
	// Post schedules change notifications, typically onto the engine loop.
	// When nil, subscribers run on the goroutine that observed the change.
	Post    func(func())
	Logger  *logging.Logger
	Metrics *telemetry.Metrics
}

// Monitor tracks connectivity. State reads are safe from any goroutine.
type Monitor struct {
	prober   Prober
	clock    clock.Clock
	interval time.Duration
	post     func(func())
	log      *logging.Logger
	metrics  *telemetry.Metrics

	mu    sync.RWMutex
	state State

	changes event.Bus[Change]
}

// NewMonitor returns a Monitor that assumes connectivity until told otherwise.
func NewMonitor(opts Options) *Monitor {
	c := opts.Clock
	if c == nil {
		c = clock.System()
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = defaultProbeInterval
	}
	return &Monitor{
		prober:   opts.Prober,
		clock:    c,
		interval: interval,
		post:     opts.Post,
		log:      logging.Named(opts.Logger, "connectivity"),
		metrics:  opts.Metrics,
		state:    State{Connected: true, Reachable: ReachUnknown},
	}
}

// State returns a copy of the current state.
func (m *Monitor) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// IsOffline reports the current offline flag.
func (m *Monitor) IsOffline() bool {
	return m.State().IsOffline()
}

// Subscribe registers fn for state changes.
func (m *Monitor) Subscribe(fn func(Change)) (unsubscribe func()) {
	return m.changes.Subscribe(fn)
}

// Observe applies a platform-pushed reading.
func (m *Monitor) Observe(r Reading) {
	m.apply(r)
}

// CheckNow runs the prober and applies its reading before returning. A
// cancelled ctx leaves the state untouched.
func (m *Monitor) CheckNow(ctx context.Context) (State, error) {
	if m.prober == nil {
		return m.State(), nil
	}
	reading := m.prober.Probe(ctx)
	if err := ctx.Err(); err != nil {
		return m.State(), err
	}
	return m.apply(reading), nil
}

func (m *Monitor) apply(r Reading) State {
	m.mu.Lock()
	prev := m.state
	next := State{Connected: r.Connected, Reachable: r.Reachable, LastCheckedAt: m.clock.Now()}
	if !next.Connected {
		next.Reachable = Unreachable
	}
	m.state = next
	m.mu.Unlock()

	if prev.Connected == next.Connected && prev.Reachable == next.Reachable {
		return next
	}

	change := Change{Previous: prev, Current: next}
	if change.WentOnline() || change.WentOffline() {
		m.metrics.ConnectivityChanged(context.Background(), next.IsOffline())
		m.log.Info().
			Bool("offline", next.IsOffline()).
			Bool("connected", next.Connected).
			Stringer("reachable", next.Reachable).
			Msg("connectivity changed")
	}
	publish := func() { m.changes.Publish(change) }
	if m.post != nil {
		m.post(publish)
	} else {
		publish()
	}
	return next
}
