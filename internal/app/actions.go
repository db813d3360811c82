package app

import (
	"context"
	"strings"

	"github.com/yigiterenyilmaz/intern-project-product-review/internal/catalogapi"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/errs"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/query"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/validate"
)

// do posts fn onto the loop and republishes the view afterwards.
func (s *Session) do(fn func()) {
	s.loop.Post(func() {
		fn()
		s.publish()
	})
}

// Type feeds a search keystroke into the debounce pipeline.
func (s *Session) Type(raw string) { s.do(func() { s.filter.Type(raw) }) }

// Submit commits the search text immediately.
func (s *Session) Submit() { s.do(s.filter.Submit) }

// SetCategory commits a category.
func (s *Session) SetCategory(category string) {
	s.do(func() { s.filter.SetCategory(category) })
}

// CycleCategory moves to the next configured category.
func (s *Session) CycleCategory() {
	s.do(func() {
		cats := s.cfg.Categories
		current := s.filter.State().Committed.Category
		next := cats[0]
		for i, c := range cats {
			if strings.EqualFold(c, current) {
				next = cats[(i+1)%len(cats)]
				break
			}
		}
		s.filter.SetCategory(next)
	})
}

// CycleSort moves to the next sort key.
func (s *Session) CycleSort() {
	s.do(func() { s.filter.SetSort(s.filter.State().Committed.Sort.Next()) })
}

// SetSort commits k.
func (s *Session) SetSort(k query.SortKey) { s.do(func() { s.filter.SetSort(k) }) }

// Reset clears every filter in one commit.
func (s *Session) Reset() { s.do(s.filter.Reset) }

// LoadMore appends the next catalog page when one exists.
func (s *Session) LoadMore() {
	s.do(func() {
		if _, err := s.catalog.LoadMore(); err != nil {
			s.surface(err)
		}
	})
}

// Retry reloads the catalog from its first page.
func (s *Session) Retry() {
	s.do(func() {
		s.message = ""
		_ = s.catalog.Retry()
	})
}

// CheckConnectivity probes reachability now.
func (s *Session) CheckConnectivity(ctx context.Context) {
	go func() { _, _ = s.monitor.CheckNow(ctx) }()
}

// ToggleTheme flips between light and dark.
func (s *Session) ToggleTheme() { s.do(func() { s.prefs.ToggleTheme() }) }

// CycleGrid moves to the next grid column count.
func (s *Session) CycleGrid() { s.do(func() { s.prefs.CycleGrid() }) }

// RemoveHistory drops one remembered search term.
func (s *Session) RemoveHistory(term string) { s.do(func() { s.history.Remove(term) }) }

// ClearHistory forgets every remembered search term.
func (s *Session) ClearHistory() { s.do(s.history.Clear) }

// DismissMessage clears the surfaced error.
func (s *Session) DismissMessage() { s.do(func() { s.message = "" }) }

// ToggleFavorite toggles the catalog product id.
func (s *Session) ToggleFavorite(productID string) {
	s.do(func() {
		if p, ok := s.product(productID); ok {
			s.mutations.ToggleFavorite(p)
			return
		}
		if s.mutations.Favorites.IsFavorite(productID) {
			s.mutations.Favorites.Remove(productID)
		}
	})
}

// AddFavorites adds every listed catalog product in one step.
func (s *Session) AddFavorites(productIDs []string) {
	s.do(func() {
		var products []catalogapi.Product
		for _, id := range productIDs {
			if p, ok := s.product(id); ok {
				products = append(products, p)
			}
		}
		s.mutations.AddFavorites(products)
	})
}

// RemoveFavorites removes every listed favorite.
func (s *Session) RemoveFavorites(ids []string) {
	s.do(func() { s.mutations.RemoveFavorites(ids) })
}

// ClearFavorites removes all favorites.
func (s *Session) ClearFavorites() { s.do(func() { s.mutations.ClearFavorites() }) }

// OpenReviews loads the first page of productID's reviews, optionally
// filtered to one star rating.
func (s *Session) OpenReviews(productID string, rating int) {
	s.do(func() {
		s.reviewsOpen = true
		q := query.ReviewQuery{ProductID: productID, PageSize: reviewPageSize, Rating: rating}
		_ = s.reviews.Request(q, false)
	})
}

// CloseReviews hides the review list and cancels its request.
func (s *Session) CloseReviews() {
	s.do(func() {
		s.reviewsOpen = false
		s.reviews.Close()
	})
}

// LoadMoreReviews appends the next review page.
func (s *Session) LoadMoreReviews() {
	s.do(func() { _, _ = s.reviews.LoadMore() })
}

// VoteHelpful toggles the helpful vote on a review of the open product.
func (s *Session) VoteHelpful(reviewID string) {
	s.do(func() {
		for _, r := range s.reviews.Snapshot().Items {
			if r.ID == reviewID {
				s.mutations.VoteHelpful(r)
				return
			}
		}
	})
}

// SubmitReview validates d and posts it for productID. Validation failures
// return immediately; server failures are surfaced on the view.
func (s *Session) SubmitReview(productID string, d validate.ReviewDraft) error {
	clean, err := s.validator.Review(d)
	if err != nil {
		return err
	}
	draft := catalogapi.ReviewDraft{ReviewerName: clean.ReviewerName, Rating: clean.Rating, Comment: clean.Comment}
	s.do(func() {
		if s.monitor.IsOffline() {
			s.surface(errs.Offline())
			return
		}
		go func() {
			_, err := s.client.SubmitReview(context.Background(), productID, draft)
			s.do(func() {
				if err != nil {
					s.log.Info().Err(err).Str("product", productID).Msg("submit review failed")
					s.surface(err)
					return
				}
				if q, ok := s.reviews.Active(); ok && q.ProductID == productID {
					_ = s.reviews.Retry()
				}
				_ = s.catalog.Retry()
				s.refreshStats()
			})
		}()
	})
	return nil
}

// MarkRead marks one notification read.
func (s *Session) MarkRead(id string) { s.do(func() { s.mutations.Notifications.MarkRead(id) }) }

// MarkAllRead marks every notification read.
func (s *Session) MarkAllRead() { s.do(func() { s.mutations.Notifications.MarkAllRead() }) }

// DeleteNotification removes one notification.
func (s *Session) DeleteNotification(id string) {
	s.do(func() { s.mutations.Notifications.Delete(id) })
}

// DeleteAllNotifications removes every notification.
func (s *Session) DeleteAllNotifications() {
	s.do(func() { s.mutations.Notifications.DeleteAll() })
}

// CreateNotification validates d and creates it optimistically.
func (s *Session) CreateNotification(d validate.NotificationDraft) error {
	if _, err := s.validator.Notification(d); err != nil {
		return err
	}
	s.do(func() {
		if _, err := s.mutations.CreateNotification(d); err != nil {
			s.surface(err)
		}
	})
	return nil
}

// RetryFailed re-issues rolled-back mutations.
func (s *Session) RetryFailed() {
	s.do(func() {
		s.message = ""
		s.mutations.RetryFailed()
	})
}

// Refresh reloads notifications and catalog stats.
func (s *Session) Refresh() {
	s.do(func() {
		if s.monitor.IsOffline() {
			return
		}
		s.mutations.LoadNotifications()
		s.refreshStats()
	})
}

func (s *Session) product(id string) (catalogapi.Product, bool) {
	for _, p := range s.catalog.Snapshot().Items {
		if p.ID == id {
			return p, true
		}
	}
	return catalogapi.Product{}, false
}

func statsKey(d query.Descriptor) string {
	return d.Category + "\x00" + d.Search
}

// refreshStats loads aggregate figures for the committed filters. Only the
// latest request's result is applied; failures keep the previous figures.
func (s *Session) refreshStats() {
	d := s.filter.State().Committed
	s.statsKey = statsKey(d)
	if s.monitor.IsOffline() {
		return
	}
	s.statsGen++
	gen := s.statsGen
	go func() {
		st, err := s.client.ProductStats(context.Background(), d.Category, d.Search)
		s.do(func() {
			if gen != s.statsGen {
				return
			}
			if err != nil {
				s.log.Debug().Err(err).Msg("stats refresh failed")
				return
			}
			s.stats = st
		})
	}()
}
