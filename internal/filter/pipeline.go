// Package filter turns search, category and sort input into committed query
// descriptors. Search keystrokes are debounced; category and sort changes
// commit immediately. Each commit that changes the descriptor issues exactly
// one replace request.
package filter

import (
	"strings"
	"time"

	"github.com/yigiterenyilmaz/intern-project-product-review/internal/clock"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/event"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/logging"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/query"
)

// DefaultWindow is the search quiescence window.
const DefaultWindow = 500 * time.Millisecond

// Requester issues a replace request for a committed descriptor.
type Requester interface {
	Request(q query.Descriptor, appendPage bool) error
}

// SortStore persists the sort preference.
type SortStore interface {
	SaveSort(k query.SortKey)
}

// History records submitted search terms.
type History interface {
	Record(term string)
}

// State is published after every input change or commit.
type State struct {
	Raw       string
	Committed query.Descriptor
	Pending   bool // a debounced search commit is scheduled
}

// Options configures a Pipeline.
type Options struct {
	Clock   clock.Clock
	Window  time.Duration
	Sort    SortStore
	History History
	Logger  *logging.Logger
}

// Pipeline must be driven from the engine loop; post schedules debounce
// commits back onto it.
type Pipeline struct {
	post    func(func())
	clock   clock.Clock
	window  time.Duration
	fetch   Requester
	sort    SortStore
	history History
	log     *logging.Logger

	raw       string
	committed query.Descriptor
	started   bool
	timer     clock.Timer
	timerSeq  uint64

	events event.Bus[State]
}

// New returns a pipeline that commits through fetch.
func New(post func(func()), fetch Requester, opts Options) *Pipeline {
	c := opts.Clock
	if c == nil {
		c = clock.System()
	}
	window := opts.Window
	if window <= 0 {
		window = DefaultWindow
	}
	return &Pipeline{
		post:      post,
		clock:     c,
		window:    window,
		fetch:     fetch,
		sort:      opts.Sort,
		history:   opts.History,
		log:       logging.Named(opts.Logger, "filter"),
		committed: query.Default(),
	}
}

// Subscribe registers fn for state changes.
func (p *Pipeline) Subscribe(fn func(State)) (unsubscribe func()) {
	return p.events.Subscribe(fn)
}

// State returns the current input and committed descriptor.
func (p *Pipeline) State() State {
	return State{Raw: p.raw, Committed: p.committed, Pending: p.timer != nil}
}

// Start commits initial unconditionally, issuing the first fetch.
func (p *Pipeline) Start(initial query.Descriptor) {
	initial = initial.Normalize().AtPage(0)
	p.raw = initial.Search
	p.started = true
	p.committed = initial
	p.request(initial)
	p.publish()
}

// Type records a keystroke. The trimmed text commits once no further Type
// call arrives within the window.
func (p *Pipeline) Type(raw string) {
	p.raw = raw
	p.stopTimer()
	p.timerSeq++
	seq := p.timerSeq
	p.timer = p.clock.AfterFunc(p.window, func() {
		p.post(func() { p.fire(seq) })
	})
	p.publish()
}

func (p *Pipeline) fire(seq uint64) {
	if seq != p.timerSeq || p.timer == nil {
		return
	}
	p.timer = nil
	next := p.committed
	next.Search = strings.TrimSpace(p.raw)
	if !p.commit(next) {
		p.publish()
	}
}

// Submit commits the current text immediately and records it in history.
func (p *Pipeline) Submit() {
	p.stopTimer()
	term := strings.TrimSpace(p.raw)
	if term != "" && p.history != nil {
		p.history.Record(term)
	}
	next := p.committed
	next.Search = term
	if !p.commit(next) {
		p.publish()
	}
}

// SetCategory commits a category change immediately.
func (p *Pipeline) SetCategory(category string) {
	next := p.committed
	next.Category = category
	p.commit(next)
}

// SetSort commits a sort change immediately and persists it.
func (p *Pipeline) SetSort(k query.SortKey) {
	if !k.Valid() {
		k = query.DefaultSort
	}
	next := p.committed
	next.Sort = k
	if p.commit(next) && p.sort != nil {
		p.sort.SaveSort(k)
	}
}

// Reset clears search, category and sort in a single commit.
func (p *Pipeline) Reset() {
	p.stopTimer()
	p.raw = ""
	next := query.Default()
	next.PageSize = p.committed.PageSize
	sortChanged := p.committed.Sort != query.DefaultSort
	if !p.commit(next) {
		p.publish()
	}
	if sortChanged && p.sort != nil {
		p.sort.SaveSort(query.DefaultSort)
	}
}

// Stop cancels a pending debounce.
func (p *Pipeline) Stop() {
	p.stopTimer()
}

// commit applies next and requests it unless it is equivalent to what is
// already committed. It reports whether a request was issued.
func (p *Pipeline) commit(next query.Descriptor) bool {
	next = next.Normalize().AtPage(0)
	if p.started && next.Equivalent(p.committed) {
		p.log.Debug().Str("fingerprint", next.Fingerprint()).Msg("commit unchanged, skipping")
		return false
	}
	p.started = true
	p.committed = next
	p.request(next)
	p.publish()
	return true
}

func (p *Pipeline) request(d query.Descriptor) {
	if err := p.fetch.Request(d, false); err != nil {
		p.log.Debug().Err(err).Str("fingerprint", d.Fingerprint()).Msg("commit request not sent")
	}
}

func (p *Pipeline) stopTimer() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.timerSeq++
}

func (p *Pipeline) publish() {
	p.events.Publish(p.State())
}
