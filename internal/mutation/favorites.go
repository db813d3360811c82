package mutation

import (
	"context"

	"github.com/yigiterenyilmaz/intern-project-product-review/internal/clock"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/kv"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/logging"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/prefs"
)

// FavoritesOptions configures Favorites.
type FavoritesOptions struct {
	Store kv.Store
	Sink  prefs.Sink
	// API mirrors the local list to the backend wishlist. Nil disables the
	// mirror.
	API          WishlistAPI
	Connectivity Connectivity
	Clock        clock.Clock
	Logger       *logging.Logger
	Emit         func(Event)
}

// Favorites is the local-first wishlist. The stored list is the source of
// truth; the backend wishlist is kept in step per item and its failures are
// only logged.
type Favorites struct {
	post    func(func())
	tracker *Tracker
	clock   clock.Clock
	sink    prefs.Sink
	log     *logging.Logger
	emit    func(Event)
	api     WishlistAPI
	mirror  *Converger[struct{}]

	items []Favorite // newest first
}

// NewFavorites loads the stored list. Must be called on the engine loop.
func NewFavorites(post func(func()), tracker *Tracker, opts FavoritesOptions) *Favorites {
	f := &Favorites{
		post:    post,
		tracker: tracker,
		clock:   opts.Clock,
		sink:    opts.Sink,
		log:     logging.Named(opts.Logger, "favorites"),
		emit:    opts.Emit,
		api:     opts.API,
	}
	if f.clock == nil {
		f.clock = clock.System()
	}
	if f.emit == nil {
		f.emit = func(Event) {}
	}
	if stored, ok := prefs.GetJSON[[]Favorite](opts.Store, prefs.KeyWishlist); ok {
		seen := make(map[string]bool, len(stored))
		for _, it := range stored {
			if it.ID == "" || seen[it.ID] {
				continue
			}
			seen[it.ID] = true
			f.items = append(f.items, it)
		}
	}
	if f.api != nil {
		call := func(ctx context.Context, id string) (struct{}, error) {
			return struct{}{}, f.api.ToggleWishlist(ctx, id)
		}
		f.mirror = NewConverger("wishlist", post, call, opts.Connectivity, f.mirrorSettled, f.log)
	}
	return f
}

// List returns the favorites, newest first.
func (f *Favorites) List() []Favorite {
	return append([]Favorite(nil), f.items...)
}

// Count returns the number of favorites.
func (f *Favorites) Count() int { return len(f.items) }

// IsFavorite reports membership.
func (f *Favorites) IsFavorite(id string) bool { return f.index(id) >= 0 }

// Add adds one favorite.
func (f *Favorites) Add(item Favorite) Intent {
	return f.add(AddFavorite, []Favorite{item})
}

// AddMany adds every item that is not already a member in one transition
// with one write.
func (f *Favorites) AddMany(items []Favorite) Intent {
	return f.add(AddFavorite, items)
}

// Remove removes one favorite.
func (f *Favorites) Remove(id string) Intent {
	return f.remove(RemoveFavorite, []string{id})
}

// RemoveMany removes every listed member in one transition.
func (f *Favorites) RemoveMany(ids []string) Intent {
	return f.remove(RemoveFavorite, ids)
}

// Toggle removes item when it is a member and adds it otherwise.
func (f *Favorites) Toggle(item Favorite) Intent {
	if f.IsFavorite(item.ID) {
		return f.remove(ToggleFavorite, []string{item.ID})
	}
	return f.add(ToggleFavorite, []Favorite{item})
}

// Clear removes every favorite and deletes the stored list.
func (f *Favorites) Clear() Intent {
	ids := make([]string, 0, len(f.items))
	for _, it := range f.items {
		ids = append(ids, it.ID)
	}
	in := f.tracker.Begin(RemoveFavorite, false, entities(favoriteEntity, ids)...)
	if len(ids) == 0 {
		f.tracker.Set(in.ID, Synced, nil)
		return f.finish(in)
	}
	f.items = nil
	if f.sink != nil {
		f.sink.Remove(prefs.KeyWishlist)
	}
	f.tracker.Set(in.ID, Synced, nil)
	f.emit(Event{Source: SourceFavorites, Intent: &in})
	f.mirrorWant(ids, false)
	return f.finish(in)
}

func (f *Favorites) add(kind Kind, items []Favorite) Intent {
	var fresh []Favorite
	seen := make(map[string]bool)
	for _, it := range items {
		if it.ID == "" || seen[it.ID] || f.IsFavorite(it.ID) {
			continue
		}
		seen[it.ID] = true
		if it.AddedAt.IsZero() {
			it.AddedAt = f.clock.Now()
		}
		fresh = append(fresh, it)
	}
	ids := make([]string, 0, len(fresh))
	for _, it := range fresh {
		ids = append(ids, it.ID)
	}
	in := f.tracker.Begin(kind, true, entities(favoriteEntity, ids)...)
	if len(fresh) == 0 {
		f.tracker.Set(in.ID, Synced, nil)
		return f.finish(in)
	}
	prev := f.items
	// Newest first: the batch keeps its own order ahead of older entries.
	next := make([]Favorite, 0, len(prev)+len(fresh))
	next = append(next, fresh...)
	next = append(next, prev...)
	f.items = next
	if err := f.persist(); err != nil {
		f.items = prev
		f.tracker.Set(in.ID, RolledBack, err)
		return f.finish(in)
	}
	f.tracker.Set(in.ID, Synced, nil)
	f.emit(Event{Source: SourceFavorites, Intent: &in})
	f.mirrorWant(ids, true)
	return f.finish(in)
}

func (f *Favorites) remove(kind Kind, ids []string) Intent {
	drop := make(map[string]bool, len(ids))
	var removed []string
	for _, id := range ids {
		if !drop[id] && f.IsFavorite(id) {
			removed = append(removed, id)
		}
		drop[id] = true
	}
	in := f.tracker.Begin(kind, false, entities(favoriteEntity, removed)...)
	if len(removed) == 0 {
		f.tracker.Set(in.ID, Synced, nil)
		return f.finish(in)
	}
	prev := f.items
	next := make([]Favorite, 0, len(prev))
	for _, it := range prev {
		if !drop[it.ID] {
			next = append(next, it)
		}
	}
	f.items = next
	if err := f.persist(); err != nil {
		f.items = prev
		f.tracker.Set(in.ID, RolledBack, err)
		return f.finish(in)
	}
	f.tracker.Set(in.ID, Synced, nil)
	f.emit(Event{Source: SourceFavorites, Intent: &in})
	f.mirrorWant(removed, false)
	return f.finish(in)
}

// SyncMirror reads the backend wishlist and converges it toward the local
// list. It is background work: failures are logged and never surfaced.
func (f *Favorites) SyncMirror() {
	if f.mirror == nil {
		return
	}
	go func() {
		ids, err := f.api.Wishlist(context.Background())
		f.post(func() {
			if err != nil {
				f.log.Debug().Err(err).Msg("wishlist mirror read failed")
				return
			}
			f.reconcile(ids)
		})
	}()
}

func (f *Favorites) reconcile(server []string) {
	remote := make(map[string]bool, len(server))
	for _, id := range server {
		remote[id] = true
	}
	local := make(map[string]bool, len(f.items))
	for _, it := range f.items {
		local[it.ID] = true
		f.mirror.Seed(it.ID, remote[it.ID])
	}
	for id := range remote {
		f.mirror.Seed(id, true)
	}
	for id := range local {
		f.mirror.Want(id, true, remote[id])
	}
	for id := range remote {
		if !local[id] {
			f.mirror.Want(id, false, true)
		}
	}
}

// Close cancels outstanding mirror calls.
func (f *Favorites) Close() {
	if f.mirror != nil {
		f.mirror.Close()
	}
}

func (f *Favorites) mirrorWant(ids []string, member bool) {
	if f.mirror == nil {
		return
	}
	for _, id := range ids {
		f.mirror.Want(id, member, !member)
	}
}

func (f *Favorites) mirrorSettled(o Outcome[struct{}]) {
	if o.Err != nil {
		f.log.Debug().Err(o.Err).Str("product", o.ID).Msg("wishlist mirror out of step")
	}
}

func (f *Favorites) persist() error {
	if f.sink == nil {
		return nil
	}
	return prefs.PutJSON(f.sink, prefs.KeyWishlist, f.items)
}

func (f *Favorites) finish(in Intent) Intent {
	out, _ := f.tracker.Get(in.ID)
	return out
}

func (f *Favorites) index(id string) int {
	for i, it := range f.items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

func entities(name func(string) string, ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, name(id))
	}
	return out
}
