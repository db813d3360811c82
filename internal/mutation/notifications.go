package mutation

import (
	"context"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/yigiterenyilmaz/intern-project-product-review/internal/catalogapi"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/clock"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/errs"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/logging"
)

// NotificationsOptions configures Notifications.
type NotificationsOptions struct {
	API          NotificationAPI
	Connectivity Connectivity
	Clock        clock.Clock
	Logger       *logging.Logger
	Emit         func(Event)
}

// Notifications is the optimistic view of the user's notifications. Every
// mutation captures the entries it touches and restores only those whose
// latest intent is still the failing one.
type Notifications struct {
	post    func(func())
	tracker *Tracker
	api     NotificationAPI
	conn    Connectivity
	clock   clock.Clock
	log     *logging.Logger
	emit    func(Event)

	items   []Notification // newest first
	loaded  bool
	loading bool
	reload  bool // a Load arrived while one was in flight
	// optimistic creates and rolled-back create drafts, by intent id
	creates map[string]Notification
	drafts  map[string]catalogapi.NotificationDraft
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewNotifications returns an empty, unloaded view.
func NewNotifications(post func(func()), tracker *Tracker, opts NotificationsOptions) *Notifications {
	ctx, cancel := context.WithCancel(context.Background())
	n := &Notifications{
		post:    post,
		tracker: tracker,
		api:     opts.API,
		conn:    opts.Connectivity,
		clock:   opts.Clock,
		log:     logging.Named(opts.Logger, "notifications"),
		emit:    opts.Emit,
		creates: make(map[string]Notification),
		drafts:  make(map[string]catalogapi.NotificationDraft),
		ctx:     ctx,
		cancel:  cancel,
	}
	if n.clock == nil {
		n.clock = clock.System()
	}
	if n.emit == nil {
		n.emit = func(Event) {}
	}
	return n
}

// List returns the notifications, newest first.
func (n *Notifications) List() []Notification {
	return append([]Notification(nil), n.items...)
}

// Loaded reports whether a server list has been applied.
func (n *Notifications) Loaded() bool { return n.loaded }

// UnreadCount returns the number of unread notifications.
func (n *Notifications) UnreadCount() int {
	c := 0
	for _, it := range n.items {
		if !it.Read {
			c++
		}
	}
	return c
}

// Load fetches the server list. Entries with unsettled intents keep their
// optimistic state. A Load during a fetch discards that fetch's result and
// fetches again once it returns.
func (n *Notifications) Load() {
	if n.loading {
		n.reload = true
		return
	}
	if n.offline() {
		n.emit(Event{Source: SourceNotifications, Err: errs.Offline()})
		return
	}
	n.loading = true
	go func() {
		list, err := n.api.ListNotifications(n.ctx)
		n.post(func() {
			n.loading = false
			if n.reload {
				n.reload = false
				n.Load()
				return
			}
			if err != nil {
				n.log.Warn().Err(err).Msg("load notifications failed")
				n.emit(Event{Source: SourceNotifications, Err: err})
				return
			}
			n.apply(list)
		})
	}()
}

func (n *Notifications) apply(list []catalogapi.Notification) {
	items := make([]Notification, 0, len(list))
	for _, it := range list {
		items = append(items, notificationFromAPI(it))
	}
	n.items = items
	n.loaded = true
	for _, in := range n.tracker.InFlight() {
		n.overlay(in)
	}
	n.emit(Event{Source: SourceNotifications})
}

// overlay reapplies the local delta of an unsettled intent on top of a
// freshly loaded list.
func (n *Notifications) overlay(in Intent) {
	switch in.Kind {
	case MarkRead, MarkAllRead:
		for _, e := range in.Entities {
			if i := n.index(entityID(e)); i >= 0 && n.tracker.IsLatest(in.ID, e) {
				n.items[i].Read = true
			}
		}
	case Delete, DeleteAll:
		for _, e := range in.Entities {
			if i := n.index(entityID(e)); i >= 0 && n.tracker.IsLatest(in.ID, e) {
				n.items = append(n.items[:i], n.items[i+1:]...)
			}
		}
	case CreateNotification:
		if local, ok := n.creates[in.ID]; ok && n.index(local.ID) < 0 {
			n.items = append([]Notification{local}, n.items...)
		}
	}
}

// MarkRead marks one notification read.
func (n *Notifications) MarkRead(id string) Intent {
	i := n.index(id)
	if i < 0 || n.items[i].Read {
		in := n.tracker.Begin(MarkRead, true)
		n.tracker.Set(in.ID, Synced, nil)
		return n.get(in.ID)
	}
	before := map[string]Notification{id: n.items[i]}
	in := n.tracker.Begin(MarkRead, true, notificationEntity(id))
	n.items[i].Read = true
	n.reconcile(in, before, nil, func(ctx context.Context) error {
		return n.api.MarkNotificationRead(ctx, id)
	}, n.allLocal([]string{id}))
	return n.get(in.ID)
}

// MarkAllRead marks every notification read.
func (n *Notifications) MarkAllRead() Intent {
	before := make(map[string]Notification)
	var ids []string
	for i, it := range n.items {
		if !it.Read {
			before[it.ID] = it
			ids = append(ids, it.ID)
			n.items[i].Read = true
		}
	}
	in := n.tracker.Begin(MarkAllRead, true, entities(notificationEntity, ids)...)
	if len(ids) == 0 {
		n.tracker.Set(in.ID, Synced, nil)
		return n.get(in.ID)
	}
	n.reconcile(in, before, nil, func(ctx context.Context) error {
		return n.api.MarkAllNotificationsRead(ctx)
	}, n.allLocal(ids))
	return n.get(in.ID)
}

// Delete removes one notification.
func (n *Notifications) Delete(id string) Intent {
	i := n.index(id)
	if i < 0 {
		in := n.tracker.Begin(Delete, false)
		n.tracker.Set(in.ID, Synced, nil)
		return n.get(in.ID)
	}
	before := map[string]Notification{id: n.items[i]}
	order := n.ids()
	in := n.tracker.Begin(Delete, false, notificationEntity(id))
	n.items = append(n.items[:i:i], n.items[i+1:]...)
	n.reconcile(in, before, order, func(ctx context.Context) error {
		return n.api.DeleteNotification(ctx, id)
	}, n.allLocal([]string{id}))
	return n.get(in.ID)
}

// DeleteAll removes every notification.
func (n *Notifications) DeleteAll() Intent {
	before := make(map[string]Notification, len(n.items))
	order := n.ids()
	for _, it := range n.items {
		before[it.ID] = it
	}
	in := n.tracker.Begin(DeleteAll, false, entities(notificationEntity, order)...)
	if len(order) == 0 {
		n.tracker.Set(in.ID, Synced, nil)
		return n.get(in.ID)
	}
	n.items = nil
	n.reconcile(in, before, order, func(ctx context.Context) error {
		return n.api.DeleteAllNotifications(ctx)
	}, n.allLocal(order))
	return n.get(in.ID)
}

// Create adds a notification optimistically under a local id and reloads
// the list once the backend has stored it. draft must already be valid.
func (n *Notifications) Create(draft catalogapi.NotificationDraft) Intent {
	local := Notification{
		ID:        LocalIDPrefix + uuid.NewString(),
		Title:     draft.Title,
		Body:      draft.Message,
		CreatedAt: n.clock.Now(),
	}
	if draft.ProductID != nil {
		local.ProductID = strconv.FormatInt(*draft.ProductID, 10)
	}
	in := n.tracker.Begin(CreateNotification, false, notificationEntity(local.ID))
	n.items = append([]Notification{local}, n.items...)
	n.creates[in.ID] = local
	n.tracker.Set(in.ID, Reconciling, nil)
	n.emit(Event{Source: SourceNotifications, Intent: &in})

	done := func(err error) {
		delete(n.creates, in.ID)
		if err == nil {
			n.tracker.Set(in.ID, Synced, nil)
			n.emit(Event{Source: SourceNotifications, Intent: ptr(n.get(in.ID))})
			n.Load()
			return
		}
		n.tracker.Set(in.ID, Failed, err)
		n.drafts[in.ID] = draft
		if n.tracker.IsLatest(in.ID, notificationEntity(local.ID)) {
			if i := n.index(local.ID); i >= 0 {
				n.items = append(n.items[:i:i], n.items[i+1:]...)
			}
		}
		n.rolledBack(in.ID, err)
	}
	if n.offline() {
		done(errs.Offline())
		return n.get(in.ID)
	}
	go func() {
		err := n.api.CreateNotification(n.ctx, draft)
		n.post(func() { done(err) })
	}()
	return n.get(in.ID)
}

// Retry re-issues a rolled-back intent for the entities it still owns and
// reports whether anything was issued.
func (n *Notifications) Retry(in Intent) bool {
	var ids []string
	for _, e := range in.Entities {
		if n.tracker.IsLatest(in.ID, e) {
			ids = append(ids, entityID(e))
		}
	}
	if len(ids) == 0 {
		return false
	}
	switch in.Kind {
	case MarkRead:
		n.MarkRead(ids[0])
	case MarkAllRead:
		n.MarkAllRead()
	case Delete:
		n.Delete(ids[0])
	case DeleteAll:
		n.DeleteAll()
	case CreateNotification:
		draft, ok := n.drafts[in.ID]
		if !ok {
			return false
		}
		delete(n.drafts, in.ID)
		n.Create(draft)
	default:
		return false
	}
	return true
}

// Close cancels outstanding calls.
func (n *Notifications) Close() { n.cancel() }

// reconcile publishes the applied delta and issues call unless every
// touched entry only exists locally. On failure the entries in before are
// restored where in is still the latest intent; order gives the original
// positions of deleted entries.
func (n *Notifications) reconcile(in Intent, before map[string]Notification, order []string, call func(context.Context) error, localOnly bool) {
	n.tracker.Set(in.ID, Reconciling, nil)
	n.emit(Event{Source: SourceNotifications, Intent: ptr(n.get(in.ID))})

	done := func(err error) {
		if err == nil {
			n.tracker.Set(in.ID, Synced, nil)
			n.emit(Event{Source: SourceNotifications, Intent: ptr(n.get(in.ID))})
			return
		}
		n.tracker.Set(in.ID, Failed, err)
		n.restore(in.ID, before, order)
		n.rolledBack(in.ID, err)
	}
	if localOnly {
		done(nil)
		return
	}
	if n.offline() {
		done(errs.Offline())
		return
	}
	go func() {
		err := call(n.ctx)
		n.post(func() { done(err) })
	}()
}

func (n *Notifications) restore(intentID string, before map[string]Notification, order []string) {
	owned := func(id string) bool { return n.tracker.IsLatest(intentID, notificationEntity(id)) }
	if order == nil {
		for id, prev := range before {
			if i := n.index(id); i >= 0 && owned(id) {
				n.items[i].Read = prev.Read
			}
		}
		return
	}
	// Reinsert deleted entries relative to the entries that were around
	// them.
	pos := make(map[string]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	for _, id := range order {
		prev, ok := before[id]
		if !ok || !owned(id) || n.index(id) >= 0 {
			continue
		}
		at := len(n.items)
		for i, it := range n.items {
			if p, known := pos[it.ID]; known && p > pos[id] {
				at = i
				break
			}
		}
		n.items = append(n.items[:at:at], append([]Notification{prev}, n.items[at:]...)...)
	}
}

func (n *Notifications) rolledBack(intentID string, err error) {
	n.tracker.Set(intentID, RolledBack, err)
	n.log.Info().Err(err).Str("intent", intentID).Msg("notification change rolled back")
	n.emit(Event{Source: SourceNotifications, Intent: ptr(n.get(intentID)), Err: err})
}

func (n *Notifications) allLocal(ids []string) bool {
	for _, id := range ids {
		if !isLocalID(id) {
			return false
		}
	}
	return true
}

func (n *Notifications) offline() bool { return n.conn != nil && n.conn.IsOffline() }

func (n *Notifications) get(id string) Intent {
	in, _ := n.tracker.Get(id)
	return in
}

func (n *Notifications) index(id string) int {
	for i, it := range n.items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

func (n *Notifications) ids() []string {
	out := make([]string, 0, len(n.items))
	for _, it := range n.items {
		out = append(out, it.ID)
	}
	return out
}

func isLocalID(id string) bool { return strings.HasPrefix(id, LocalIDPrefix) }

func entityID(entity string) string {
	_, id, ok := strings.Cut(entity, "/")
	if !ok {
		return entity
	}
	return id
}

func ptr[T any](v T) *T { return &v }
