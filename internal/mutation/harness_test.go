package mutation

import (
	"context"
	"testing"
	"time"

	"github.com/yigiterenyilmaz/intern-project-product-review/internal/catalogapi"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/clock"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/errs"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/kv"
)

type reply struct {
	review catalogapi.Review
	ids    []string
	list   []catalogapi.Notification
	err    error
}

type apiCall struct {
	op    string
	id    string
	draft catalogapi.NotificationDraft
	reply chan reply
}

// fakeAPI blocks every call until the test answers it.
type fakeAPI struct {
	calls chan apiCall
}

func (f *fakeAPI) do(ctx context.Context, op, id string, draft catalogapi.NotificationDraft) reply {
	c := apiCall{op: op, id: id, draft: draft, reply: make(chan reply, 1)}
	f.calls <- c
	select {
	case r := <-c.reply:
		return r
	case <-ctx.Done():
		return reply{err: errs.Unavailable(ctx.Err(), "cancelled")}
	}
}

func (f *fakeAPI) Wishlist(ctx context.Context) ([]string, error) {
	r := f.do(ctx, "wishlist", "", catalogapi.NotificationDraft{})
	return r.ids, r.err
}

func (f *fakeAPI) ToggleWishlist(ctx context.Context, id string) error {
	return f.do(ctx, "toggle-wishlist", id, catalogapi.NotificationDraft{}).err
}

func (f *fakeAPI) ToggleHelpful(ctx context.Context, id string) (catalogapi.Review, error) {
	r := f.do(ctx, "helpful", id, catalogapi.NotificationDraft{})
	return r.review, r.err
}

func (f *fakeAPI) VotedReviews(ctx context.Context) ([]string, error) {
	r := f.do(ctx, "voted", "", catalogapi.NotificationDraft{})
	return r.ids, r.err
}

func (f *fakeAPI) ListNotifications(ctx context.Context) ([]catalogapi.Notification, error) {
	r := f.do(ctx, "list", "", catalogapi.NotificationDraft{})
	return r.list, r.err
}

func (f *fakeAPI) CreateNotification(ctx context.Context, d catalogapi.NotificationDraft) error {
	return f.do(ctx, "create", "", d).err
}

func (f *fakeAPI) MarkNotificationRead(ctx context.Context, id string) error {
	return f.do(ctx, "read", id, catalogapi.NotificationDraft{}).err
}

func (f *fakeAPI) MarkAllNotificationsRead(ctx context.Context) error {
	return f.do(ctx, "read-all", "", catalogapi.NotificationDraft{}).err
}

func (f *fakeAPI) DeleteNotification(ctx context.Context, id string) error {
	return f.do(ctx, "delete", id, catalogapi.NotificationDraft{}).err
}

func (f *fakeAPI) DeleteAllNotifications(ctx context.Context) error {
	return f.do(ctx, "delete-all", "", catalogapi.NotificationDraft{}).err
}

// memSink applies writes synchronously and counts them.
type memSink struct {
	store  *kv.MemoryStore
	writes int
}

func (s *memSink) Set(key string, value []byte) {
	s.writes++
	_ = s.store.Set(key, value)
}

func (s *memSink) Remove(key string) {
	s.writes++
	_ = s.store.Remove(key)
}

// harness plays the engine loop: completions are queued until step runs
// them.
type harness struct {
	t       *testing.T
	api     *fakeAPI
	posted  chan func()
	store   *kv.MemoryStore
	sink    *memSink
	clock   *clock.Fake
	offline bool
	events  []Event
	e       *Engine
}

func (h *harness) IsOffline() bool { return h.offline }

func newHarness(t *testing.T, mirror bool) *harness {
	return newHarnessWithStore(t, mirror, &kv.MemoryStore{})
}

func newHarnessWithStore(t *testing.T, mirror bool, store *kv.MemoryStore) *harness {
	h := &harness{
		t:      t,
		api:    &fakeAPI{calls: make(chan apiCall, 16)},
		posted: make(chan func(), 16),
		store:  store,
		clock:  clock.NewFake(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)),
	}
	h.sink = &memSink{store: store}
	h.e = New(func(fn func()) { h.posted <- fn }, Options{
		Store:          store,
		Sink:           h.sink,
		API:            h.api,
		MirrorWishlist: mirror,
		Connectivity:   h,
		Clock:          h.clock,
	})
	h.e.Subscribe(func(ev Event) { h.events = append(h.events, ev) })
	t.Cleanup(h.e.Close)
	return h
}

func (h *harness) nextCall(op string) apiCall {
	h.t.Helper()
	select {
	case c := <-h.api.calls:
		if c.op != op {
			h.t.Fatalf("call = %s(%s), want %s", c.op, c.id, op)
		}
		return c
	case <-time.After(2 * time.Second):
		h.t.Fatalf("no %s call", op)
		return apiCall{}
	}
}

func (h *harness) noCalls() {
	h.t.Helper()
	select {
	case c := <-h.api.calls:
		h.t.Fatalf("unexpected call %s(%s)", c.op, c.id)
	case <-time.After(20 * time.Millisecond):
	}
}

func (h *harness) step() {
	h.t.Helper()
	select {
	case fn := <-h.posted:
		fn()
	case <-time.After(2 * time.Second):
		h.t.Fatal("no completion posted")
	}
}

func (h *harness) lastErr() error {
	for i := len(h.events) - 1; i >= 0; i-- {
		if h.events[i].Err != nil {
			return h.events[i].Err
		}
	}
	return nil
}

func product(id, name string) catalogapi.Product {
	return catalogapi.Product{ID: id, Name: name}
}
