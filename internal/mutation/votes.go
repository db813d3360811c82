package mutation

import (
	"context"
	"sort"

	"github.com/yigiterenyilmaz/intern-project-product-review/internal/catalogapi"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/kv"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/logging"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/prefs"
)

// VotesOptions configures Votes.
type VotesOptions struct {
	Store        kv.Store
	Sink         prefs.Sink
	API          VoteAPI
	Connectivity Connectivity
	Logger       *logging.Logger
	Emit         func(Event)
}

type voteSnapshot struct {
	voted    bool
	count    int
	hasCount bool
	shown    int
}

// Votes holds the helpful votes cast by this user. The backend is canonical;
// the local set is an optimistic cache persisted between runs.
type Votes struct {
	post    func(func())
	tracker *Tracker
	api     VoteAPI
	sink    prefs.Sink
	log     *logging.Logger
	emit    func(Event)
	conv    *Converger[catalogapi.Review]

	voted     map[string]bool
	base      map[string]int // helpful counts from the last loaded reviews
	counts    map[string]int // local overrides of base
	pending   map[string][]string
	snapshots map[string]voteSnapshot
}

// NewVotes loads the cached vote set. Must be called on the engine loop.
func NewVotes(post func(func()), tracker *Tracker, opts VotesOptions) *Votes {
	v := &Votes{
		post:      post,
		tracker:   tracker,
		api:       opts.API,
		sink:      opts.Sink,
		log:       logging.Named(opts.Logger, "votes"),
		emit:      opts.Emit,
		voted:     make(map[string]bool),
		base:      make(map[string]int),
		counts:    make(map[string]int),
		pending:   make(map[string][]string),
		snapshots: make(map[string]voteSnapshot),
	}
	if v.emit == nil {
		v.emit = func(Event) {}
	}
	if ids, ok := prefs.GetJSON[[]string](opts.Store, prefs.KeyVotes); ok {
		for _, id := range ids {
			if id != "" {
				v.voted[id] = true
			}
		}
	}
	v.conv = NewConverger("helpful", post, v.api.ToggleHelpful, opts.Connectivity, v.settled, v.log)
	return v
}

// HasVoted reports whether the user has marked review id helpful.
func (v *Votes) HasVoted(id string) bool { return v.voted[id] }

// Count returns the helpful count to display for id, preferring a local
// adjustment over serverCount.
func (v *Votes) Count(id string, serverCount int) int {
	if c, ok := v.counts[id]; ok {
		return c
	}
	return serverCount
}

// Voted returns the voted review ids in sorted order.
func (v *Votes) Voted() []string {
	out := make([]string, 0, len(v.voted))
	for id, ok := range v.voted {
		if ok {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// Toggle flips the user's helpful vote on review id. serverCount is the
// count currently displayed from the review list.
func (v *Votes) Toggle(id string, serverCount int) Intent {
	prev := v.voted[id]
	count := v.Count(id, serverCount)
	if len(v.pending[id]) == 0 {
		_, has := v.counts[id]
		v.snapshots[id] = voteSnapshot{voted: prev, count: v.counts[id], hasCount: has, shown: count}
	}
	next := !prev
	in := v.tracker.Begin(VoteHelpful, next, reviewEntity(id))
	v.pending[id] = append(v.pending[id], in.ID)

	v.setVoted(id, next)
	if next {
		v.counts[id] = count + 1
	} else if count > 0 {
		v.counts[id] = count - 1
	} else {
		v.counts[id] = 0
	}
	v.persist()
	v.tracker.Set(in.ID, Reconciling, nil)
	v.emit(Event{Source: SourceVotes, Intent: &in})

	v.conv.Want(id, next, prev)
	out, _ := v.tracker.Get(in.ID)
	return out
}

// Seed applies helpful counts and vote flags from freshly loaded reviews.
// Entities with unsettled intents keep their local state.
func (v *Votes) Seed(reviews []catalogapi.Review) {
	for _, r := range reviews {
		v.base[r.ID] = r.HelpfulCount
		if len(v.pending[r.ID]) > 0 {
			continue
		}
		delete(v.counts, r.ID)
	}
}

// Retry toggles review id again if its vote is not already target.
func (v *Votes) Retry(id string, target bool) bool {
	if v.voted[id] == target {
		return false
	}
	v.Toggle(id, v.base[id])
	return true
}

// LoadVotes fetches the server's voted set and replaces the cache for every
// review without an unsettled intent.
func (v *Votes) LoadVotes() {
	go func() {
		ids, err := v.api.VotedReviews(context.Background())
		v.post(func() {
			if err != nil {
				v.log.Warn().Err(err).Msg("load voted reviews failed; using cache")
				return
			}
			v.applyServer(ids)
		})
	}()
}

func (v *Votes) applyServer(ids []string) {
	server := make(map[string]bool, len(ids))
	for _, id := range ids {
		server[id] = true
	}
	changed := false
	for id := range v.voted {
		if !server[id] && len(v.pending[id]) == 0 {
			delete(v.voted, id)
			changed = true
		}
	}
	for id := range server {
		if len(v.pending[id]) > 0 {
			continue
		}
		if !v.voted[id] {
			v.voted[id] = true
			changed = true
		}
	}
	for id := range v.voted {
		v.conv.Seed(id, server[id])
	}
	for id := range server {
		v.conv.Seed(id, true)
	}
	if changed {
		v.persist()
		v.emit(Event{Source: SourceVotes})
	}
}

// Close cancels outstanding calls.
func (v *Votes) Close() { v.conv.Close() }

func (v *Votes) settled(o Outcome[catalogapi.Review]) {
	ids := v.pending[o.ID]
	if len(ids) == 0 {
		return
	}
	delete(v.pending, o.ID)
	snap := v.snapshots[o.ID]
	delete(v.snapshots, o.ID)

	if o.Err == nil || o.Converged {
		if o.HasResult && o.Result.ID == o.ID && o.Converged && o.Err == nil {
			v.counts[o.ID] = o.Result.HelpfulCount
		}
		for _, id := range ids {
			v.tracker.Set(id, Synced, nil)
		}
		last, _ := v.tracker.Get(ids[len(ids)-1])
		v.emit(Event{Source: SourceVotes, Intent: &last})
		return
	}

	for _, id := range ids {
		v.tracker.Set(id, Failed, o.Err)
	}
	v.conv.Abandon(o.ID)
	v.setVoted(o.ID, o.Confirmed)
	v.restoreCount(o, snap)
	v.persist()
	for _, id := range ids {
		v.tracker.Set(id, RolledBack, o.Err)
	}
	last, _ := v.tracker.Get(ids[len(ids)-1])
	v.log.Info().Err(o.Err).Str("review", o.ID).Msg("helpful vote rolled back")
	v.emit(Event{Source: SourceVotes, Intent: &last, Err: o.Err})
}

// restoreCount puts back the count matching the confirmed vote. When an
// earlier call in the run landed, the snapshot no longer describes the server.
func (v *Votes) restoreCount(o Outcome[catalogapi.Review], snap voteSnapshot) {
	switch {
	case o.Confirmed == snap.voted && snap.hasCount:
		v.counts[o.ID] = snap.count
	case o.Confirmed == snap.voted:
		delete(v.counts, o.ID)
	case o.HasResult && o.Result.ID == o.ID:
		v.counts[o.ID] = o.Result.HelpfulCount
	case o.Confirmed:
		v.counts[o.ID] = snap.shown + 1
	case snap.shown > 0:
		v.counts[o.ID] = snap.shown - 1
	default:
		v.counts[o.ID] = 0
	}
}

func (v *Votes) setVoted(id string, voted bool) {
	if voted {
		v.voted[id] = true
		return
	}
	delete(v.voted, id)
}

func (v *Votes) persist() {
	if v.sink == nil {
		return
	}
	if err := prefs.PutJSON(v.sink, prefs.KeyVotes, v.Voted()); err != nil {
		v.log.Warn().Err(err).Msg("persist votes failed")
	}
}
