package mutation

import (
	"strconv"

	"github.com/yigiterenyilmaz/intern-project-product-review/internal/catalogapi"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/clock"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/event"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/kv"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/logging"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/prefs"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/telemetry"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/validate"
)

// API is the backend surface used by the engine.
type API interface {
	WishlistAPI
	VoteAPI
	NotificationAPI
}

// Options configures an Engine.
type Options struct {
	Store kv.Store
	Sink  prefs.Sink
	API   API
	// MirrorWishlist keeps the backend wishlist in step with local
	// favorites.
	MirrorWishlist bool
	Connectivity   Connectivity
	Clock          clock.Clock
	Validator      *validate.Validator
	Logger         *logging.Logger
	Metrics        *telemetry.Metrics
}

// Engine applies user mutations optimistically and reconciles them with the
// backend. Every method must run on the engine loop.
type Engine struct {
	Tracker       *Tracker
	Favorites     *Favorites
	Votes         *Votes
	Notifications *Notifications

	validator *validate.Validator
	events    event.Bus[Event]
}

// New builds the engine and loads cached local state.
func New(post func(func()), opts Options) *Engine {
	e := &Engine{validator: opts.Validator}
	if e.validator == nil {
		e.validator = validate.New()
	}
	e.Tracker = NewTracker(opts.Clock, opts.Logger, opts.Metrics)
	var wishlist WishlistAPI
	if opts.MirrorWishlist && opts.API != nil {
		wishlist = opts.API
	}
	e.Favorites = NewFavorites(post, e.Tracker, FavoritesOptions{
		Store:        opts.Store,
		Sink:         opts.Sink,
		API:          wishlist,
		Connectivity: opts.Connectivity,
		Clock:        opts.Clock,
		Logger:       opts.Logger,
		Emit:         e.events.Publish,
	})
	e.Votes = NewVotes(post, e.Tracker, VotesOptions{
		Store:        opts.Store,
		Sink:         opts.Sink,
		API:          opts.API,
		Connectivity: opts.Connectivity,
		Logger:       opts.Logger,
		Emit:         e.events.Publish,
	})
	e.Notifications = NewNotifications(post, e.Tracker, NotificationsOptions{
		API:          opts.API,
		Connectivity: opts.Connectivity,
		Clock:        opts.Clock,
		Logger:       opts.Logger,
		Emit:         e.events.Publish,
	})
	return e
}

// Subscribe registers fn for state changes and surfaced failures.
func (e *Engine) Subscribe(fn func(Event)) (unsubscribe func()) {
	return e.events.Subscribe(fn)
}

// ToggleFavorite toggles p's membership in the favorites.
func (e *Engine) ToggleFavorite(p catalogapi.Product) Intent {
	return e.Favorites.Toggle(FavoriteFromProduct(p))
}

// AddFavorites adds every product not already a favorite.
func (e *Engine) AddFavorites(products []catalogapi.Product) Intent {
	items := make([]Favorite, 0, len(products))
	for _, p := range products {
		items = append(items, FavoriteFromProduct(p))
	}
	return e.Favorites.AddMany(items)
}

// RemoveFavorites removes every listed favorite.
func (e *Engine) RemoveFavorites(ids []string) Intent { return e.Favorites.RemoveMany(ids) }

// ClearFavorites removes all favorites.
func (e *Engine) ClearFavorites() Intent { return e.Favorites.Clear() }

// VoteHelpful toggles the helpful vote on r.
func (e *Engine) VoteHelpful(r catalogapi.Review) Intent {
	return e.Votes.Toggle(r.ID, r.HelpfulCount)
}

// LoadVotes refreshes the voted set from the backend.
func (e *Engine) LoadVotes() { e.Votes.LoadVotes() }

// LoadNotifications refreshes the notification list.
func (e *Engine) LoadNotifications() { e.Notifications.Load() }

// UnreadCount returns the number of unread notifications.
func (e *Engine) UnreadCount() int { return e.Notifications.UnreadCount() }

// CreateNotification validates d and creates it optimistically. Invalid
// drafts return a Validation error and touch nothing.
func (e *Engine) CreateNotification(d validate.NotificationDraft) (Intent, error) {
	clean, err := e.validator.Notification(d)
	if err != nil {
		return Intent{}, err
	}
	draft := catalogapi.NotificationDraft{Title: clean.Title, Message: clean.Body}
	if clean.ProductID != "" {
		if id, perr := strconv.ParseInt(clean.ProductID, 10, 64); perr == nil {
			draft.ProductID = &id
		}
	}
	return e.Notifications.Create(draft), nil
}

// RetryFailed re-issues the most recent rolled-back intent of every entity
// and returns how many were re-issued.
func (e *Engine) RetryFailed() int {
	n := 0
	for _, in := range e.Tracker.RolledBack() {
		switch in.Kind {
		case VoteHelpful:
			if e.Votes.Retry(entityID(in.Entities[0]), in.Target) {
				n++
			}
		case MarkRead, MarkAllRead, Delete, DeleteAll, CreateNotification:
			if e.Notifications.Retry(in) {
				n++
			}
		default:
			// Favorites are local-first and roll back only on encode
			// failure, which a retry would repeat.
		}
	}
	return n
}

// Close cancels outstanding calls.
func (e *Engine) Close() {
	e.Favorites.Close()
	e.Votes.Close()
	e.Notifications.Close()
}
