package app

import (
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/catalogapi"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/connectivity"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/fetch"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/filter"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/mutation"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/prefs"
)

// ProductRow is a product as shown in the catalog list.
type ProductRow struct {
	catalogapi.Product
	Favorite bool
}

// ReviewRow is a review with the user's vote applied.
type ReviewRow struct {
	catalogapi.Review
	Voted   bool
	Helpful int
}

// ReviewsView is the open product's review list.
type ReviewsView struct {
	Open      bool
	ProductID string
	Rating    int
	Items     []ReviewRow
	Status    fetch.Status
	HasMore   bool
	Total     int
	Err       error
}

// View is an immutable snapshot of everything the front end renders. It is
// rebuilt on the engine loop after every change.
type View struct {
	Products      []ProductRow
	Filter        filter.State
	ListStatus    fetch.Status
	HasMore       bool
	Total         int
	Stale         bool
	ListErr       error
	Stats         catalogapi.Stats
	Connectivity  connectivity.State
	Offline       bool
	Favorites     []mutation.Favorite
	Notifications []mutation.Notification
	Unread        int
	Reviews       ReviewsView
	Theme         prefs.Theme
	Grid          int
	History       []string
	Categories    []string
	// Message is the latest one-line error worth surfacing.
	Message string
}

func (s *Session) buildView() View {
	list := s.catalog.Snapshot()
	rows := make([]ProductRow, 0, len(list.Items))
	for _, p := range list.Items {
		rows = append(rows, ProductRow{Product: p, Favorite: s.mutations.Favorites.IsFavorite(p.ID)})
	}
	conn := s.monitor.State()
	v := View{
		Products:      rows,
		Filter:        s.filter.State(),
		ListStatus:    list.Status,
		HasMore:       list.HasMore,
		Total:         list.TotalElements,
		Stale:         list.Stale(),
		ListErr:       list.Err,
		Stats:         s.stats,
		Connectivity:  conn,
		Offline:       conn.IsOffline(),
		Favorites:     s.mutations.Favorites.List(),
		Notifications: s.mutations.Notifications.List(),
		Unread:        s.mutations.UnreadCount(),
		Theme:         s.prefs.Theme(),
		Grid:          s.prefs.Grid(),
		History:       s.history.Terms(),
		Categories:    append([]string(nil), s.cfg.Categories...),
		Message:       s.message,
	}
	if q, ok := s.reviews.Active(); ok && s.reviewsOpen {
		snap := s.reviews.Snapshot()
		rv := ReviewsView{
			Open:      true,
			ProductID: q.ProductID,
			Rating:    q.Rating,
			Status:    snap.Status,
			HasMore:   snap.HasMore,
			Total:     snap.TotalElements,
			Err:       snap.Err,
		}
		if !snap.Stale() {
			for _, r := range snap.Items {
				rv.Items = append(rv.Items, ReviewRow{
					Review:  r,
					Voted:   s.mutations.Votes.HasVoted(r.ID),
					Helpful: s.mutations.Votes.Count(r.ID, r.HelpfulCount),
				})
			}
		}
		v.Reviews = rv
	}
	return v
}
