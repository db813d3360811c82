package fetch

import (
	"context"

	"github.com/yigiterenyilmaz/intern-project-product-review/internal/catalogapi"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/errs"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/event"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/logging"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/telemetry"
)

// Query is a page descriptor. Descriptors with the same fingerprint belong to
// the same accumulated list.
type Query[Q any] interface {
	Fingerprint() string
	Page() int
	AtPage(i int) Q
}

// Loader performs one page request.
type Loader[Q any, T any] func(ctx context.Context, q Q) (catalogapi.Page[T], error)

// Connectivity reports whether requests should be short-circuited.
type Connectivity interface {
	IsOffline() bool
}

// Status is the coordinator's loading state.
type Status uint8

const (
	Idle Status = iota
	LoadingReplace
	LoadingAppend
)

func (s Status) String() string {
	switch s {
	case LoadingReplace:
		return "loading"
	case LoadingAppend:
		return "loading_more"
	default:
		return "idle"
	}
}

// Snapshot is a copy of the accumulated list and its loading state.
type Snapshot[T any] struct {
	Items         []T
	Fingerprint   string // fingerprint of Items
	Active        string // fingerprint of the latest replace request
	HasMore       bool
	Cursor        int // page index of the last applied page, -1 before any
	TotalElements int
	Status        Status
	Err           error
}

// Stale reports whether Items belong to an older fingerprint than the one
// being requested.
func (s Snapshot[T]) Stale() bool { return s.Fingerprint != s.Active }

// EventKind distinguishes coordinator events.
type EventKind uint8

const (
	Loading EventKind = iota
	Loaded
	Failed
)

// Event is published on every state change.
type Event[T any] struct {
	Kind     EventKind
	Append   bool
	Snapshot Snapshot[T]
	Err      error
}

// Options configures a Coordinator.
type Options struct {
	// Name labels logs and metrics, e.g. "catalog" or "reviews".
	Name         string
	Connectivity Connectivity
	Logger       *logging.Logger
	Metrics      *telemetry.Metrics
}

// Coordinator serializes page requests for one logical list. Every method
// must be called from the goroutine that runs post's callbacks.
type Coordinator[Q Query[Q], T any] struct {
	name    string
	load    Loader[Q, T]
	post    func(func())
	conn    Connectivity
	log     *logging.Logger
	metrics *telemetry.Metrics

	generation uint64
	cancel     context.CancelFunc

	active    Q
	hasActive bool
	activeFP  string

	listFP  string
	items   []T
	hasMore bool
	cursor  int
	total   int
	status  Status
	lastErr error

	events event.Bus[Event[T]]
}

// New returns a coordinator that loads pages with load and delivers
// completions through post.
func New[Q Query[Q], T any](post func(func()), load Loader[Q, T], opts Options) *Coordinator[Q, T] {
	name := opts.Name
	if name == "" {
		name = "list"
	}
	return &Coordinator[Q, T]{
		name:    name,
		load:    load,
		post:    post,
		conn:    opts.Connectivity,
		log:     logging.Named(opts.Logger, "fetch."+name),
		metrics: opts.Metrics,
		cursor:  -1,
	}
}

// Subscribe registers fn for coordinator events.
func (c *Coordinator[Q, T]) Subscribe(fn func(Event[T])) (unsubscribe func()) {
	return c.events.Subscribe(fn)
}

// Snapshot returns a copy of the current list state.
func (c *Coordinator[Q, T]) Snapshot() Snapshot[T] {
	items := make([]T, len(c.items))
	copy(items, c.items)
	return Snapshot[T]{
		Items:         items,
		Fingerprint:   c.listFP,
		Active:        c.activeFP,
		HasMore:       c.hasMore,
		Cursor:        c.cursor,
		TotalElements: c.total,
		Status:        c.status,
		Err:           c.lastErr,
	}
}

// Active returns the descriptor of the latest replace request.
func (c *Coordinator[Q, T]) Active() (Q, bool) {
	return c.active, c.hasActive
}

// Request issues q. A replace (appendPage=false) makes q's fingerprint active
// and supersedes anything in flight. An append must target the active list at
// the page after the cursor, or it is rejected as stale without network I/O.
// When the device is offline no request is made and a NetworkUnavailable
// error is returned and published.
func (c *Coordinator[Q, T]) Request(q Q, appendPage bool) error {
	fp := q.Fingerprint()
	ctx := context.Background()

	if appendPage {
		if err := c.checkAppend(q, fp); err != nil {
			c.metrics.StaleDiscarded(ctx, c.name)
			c.log.Debug().Err(err).Str("fingerprint", fp).Int("page", q.Page()).Msg("append rejected")
			return err
		}
	} else {
		c.supersede()
		c.active = q
		c.hasActive = true
		c.activeFP = fp
	}

	if c.conn != nil && c.conn.IsOffline() {
		err := errs.Offline()
		c.metrics.OfflineShortCircuit(ctx, c.name)
		c.status = Idle
		c.lastErr = err
		c.publish(Failed, appendPage, err)
		return err
	}

	c.generation++
	gen := c.generation
	reqCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	if appendPage {
		c.status = LoadingAppend
	} else {
		c.status = LoadingReplace
	}
	c.metrics.FetchIssued(ctx, c.name, appendPage)
	c.log.Debug().Str("fingerprint", fp).Int("page", q.Page()).Bool("append", appendPage).Msg("requesting page")
	c.publish(Loading, appendPage, nil)

	load := c.load
	go func() {
		page, err := load(reqCtx, q)
		c.post(func() { c.complete(gen, fp, q.Page(), appendPage, page, err) })
	}()
	return nil
}

func (c *Coordinator[Q, T]) checkAppend(q Q, fp string) error {
	switch {
	case !c.hasActive || fp != c.activeFP:
		return errs.Stale("append to inactive fingerprint")
	case fp != c.listFP:
		return errs.Stale("append before first page loaded")
	case c.status != Idle:
		return errs.Stale("append while a request is in flight")
	case q.Page() != c.cursor+1:
		return errs.Stale("append out of order")
	}
	return nil
}

// supersede logically cancels the in-flight request, if any.
func (c *Coordinator[Q, T]) supersede() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.generation++
	c.status = Idle
}

func (c *Coordinator[Q, T]) complete(gen uint64, fp string, pageIndex int, appendPage bool, page catalogapi.Page[T], err error) {
	ctx := context.Background()
	if gen != c.generation || fp != c.activeFP {
		c.metrics.StaleDiscarded(ctx, c.name)
		c.log.Debug().Str("fingerprint", fp).Int("page", pageIndex).Msg("discarding stale response")
		return
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.status = Idle

	if err != nil {
		if k := errs.KindOf(err); k != errs.ServerError && k != errs.NetworkUnavailable {
			err = errs.Unavailable(err, "load page")
		}
		c.lastErr = err
		c.metrics.FetchFailed(ctx, c.name, errs.KindOf(err).String())
		c.log.Warn().Err(err).Str("fingerprint", fp).Int("page", pageIndex).Msg("page request failed")
		c.publish(Failed, appendPage, err)
		return
	}

	if appendPage {
		c.items = append(c.items, page.Items...)
	} else {
		c.items = append([]T(nil), page.Items...)
	}
	c.listFP = fp
	c.cursor = pageIndex
	c.hasMore = !page.IsLast
	c.total = page.TotalElements
	c.lastErr = nil
	c.log.Debug().Str("fingerprint", fp).Int("page", pageIndex).Int("items", len(c.items)).Bool("has_more", c.hasMore).Msg("page applied")
	c.publish(Loaded, appendPage, nil)
}

// LoadMore requests the next page of the active list when one exists and no
// request is in flight. It reports whether a request was issued.
func (c *Coordinator[Q, T]) LoadMore() (bool, error) {
	if !c.hasActive || c.status != Idle || !c.hasMore || c.listFP != c.activeFP {
		return false, nil
	}
	if err := c.Request(c.active.AtPage(c.cursor+1), true); err != nil {
		return false, err
	}
	return true, nil
}

// Retry re-requests the active list from its first page.
func (c *Coordinator[Q, T]) Retry() error {
	if !c.hasActive {
		return nil
	}
	return c.Request(c.active.AtPage(0), false)
}

// RetryIfUnavailable retries only when the last failure was a network one.
func (c *Coordinator[Q, T]) RetryIfUnavailable() error {
	if !errs.Is(c.lastErr, errs.NetworkUnavailable) {
		return nil
	}
	return c.Retry()
}

// Close cancels any in-flight request; its completion is discarded.
func (c *Coordinator[Q, T]) Close() {
	c.supersede()
}

// Update rewrites items of the accumulated list in place, for example to
// reflect a confirmed helpful count. fn returns the replacement and whether
// it changed anything.
func (c *Coordinator[Q, T]) Update(fn func(T) (T, bool)) {
	changed := false
	for i, item := range c.items {
		if next, ok := fn(item); ok {
			c.items[i] = next
			changed = true
		}
	}
	if changed {
		c.publish(Loaded, false, nil)
	}
}

func (c *Coordinator[Q, T]) publish(kind EventKind, appendPage bool, err error) {
	c.events.Publish(Event[T]{Kind: kind, Append: appendPage, Snapshot: c.Snapshot(), Err: err})
}
