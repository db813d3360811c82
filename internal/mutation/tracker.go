package mutation

import (
	"context"

	"github.com/google/uuid"

	"github.com/yigiterenyilmaz/intern-project-product-review/internal/clock"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/event"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/logging"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/telemetry"
)

const maxRetainedIntents = 256

// Tracker records intents and which intent last touched each entity.
// It is owned by the engine loop.
type Tracker struct {
	clock   clock.Clock
	log     *logging.Logger
	metrics *telemetry.Metrics

	intents map[string]*Intent
	order   []string
	latest  map[string]string

	changes event.Bus[Intent]
}

// NewTracker returns an empty tracker.
func NewTracker(c clock.Clock, log *logging.Logger, metrics *telemetry.Metrics) *Tracker {
	if c == nil {
		c = clock.System()
	}
	return &Tracker{
		clock:   c,
		log:     logging.Named(log, "mutation"),
		metrics: metrics,
		intents: make(map[string]*Intent),
		latest:  make(map[string]string),
	}
}

// Subscribe registers fn for status changes.
func (t *Tracker) Subscribe(fn func(Intent)) (unsubscribe func()) {
	return t.changes.Subscribe(fn)
}

// Begin records a new pending intent that becomes the latest for every
// entity it touches.
func (t *Tracker) Begin(kind Kind, target bool, entities ...string) Intent {
	in := &Intent{
		ID:        uuid.NewString(),
		Kind:      kind,
		Entities:  append([]string(nil), entities...),
		Target:    target,
		Status:    Pending,
		CreatedAt: t.clock.Now(),
	}
	t.intents[in.ID] = in
	t.order = append(t.order, in.ID)
	for _, e := range entities {
		t.latest[e] = in.ID
	}
	t.prune()
	t.changes.Publish(*in)
	return *in
}

// Set moves intent id to status. Terminal statuses are final.
func (t *Tracker) Set(id string, status Status, err error) {
	in, ok := t.intents[id]
	if !ok || in.Status.Terminal() {
		return
	}
	in.Status = status
	in.Err = err
	if status.Terminal() {
		t.metrics.MutationSettled(context.Background(), in.Kind.String(), status.String())
		ev := t.log.Debug()
		if status == RolledBack {
			ev = t.log.Info().Err(err)
		}
		ev.Str("intent", in.ID).Stringer("kind", in.Kind).Stringer("status", status).Msg("intent settled")
	}
	t.changes.Publish(*in)
}

// Get returns a copy of intent id.
func (t *Tracker) Get(id string) (Intent, bool) {
	in, ok := t.intents[id]
	if !ok {
		return Intent{}, false
	}
	return *in, true
}

// IsLatest reports whether id is the most recent intent touching entity.
func (t *Tracker) IsLatest(id, entity string) bool {
	return t.latest[entity] == id
}

// Latest returns the most recent intent touching entity.
func (t *Tracker) Latest(entity string) (Intent, bool) {
	id, ok := t.latest[entity]
	if !ok {
		return Intent{}, false
	}
	return t.Get(id)
}

// InFlight returns non-terminal intents in creation order.
func (t *Tracker) InFlight() []Intent {
	var out []Intent
	for _, id := range t.order {
		if in := t.intents[id]; in != nil && !in.Status.Terminal() {
			out = append(out, *in)
		}
	}
	return out
}

// RolledBack returns, in creation order, rolled-back intents that are still
// the latest for at least one of their entities.
func (t *Tracker) RolledBack() []Intent {
	var out []Intent
	for _, id := range t.order {
		in := t.intents[id]
		if in == nil || in.Status != RolledBack {
			continue
		}
		for _, e := range in.Entities {
			if t.latest[e] == id {
				out = append(out, *in)
				break
			}
		}
	}
	return out
}

// prune drops the oldest terminal intents once the history grows large.
func (t *Tracker) prune() {
	if len(t.order) <= maxRetainedIntents {
		return
	}
	kept := t.order[:0]
	excess := len(t.order) - maxRetainedIntents
	for _, id := range t.order {
		in := t.intents[id]
		if excess > 0 && in.Status.Terminal() && !t.isLatestAnywhere(in) {
			delete(t.intents, id)
			excess--
			continue
		}
		kept = append(kept, id)
	}
	t.order = kept
}

func (t *Tracker) isLatestAnywhere(in *Intent) bool {
	for _, e := range in.Entities {
		if t.latest[e] == in.ID {
			return true
		}
	}
	return false
}
