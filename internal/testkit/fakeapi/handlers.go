package fakeapi

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"
)

func (s *Server) view(p Product) productView {
	v := productView{Product: p}
	if len(p.Categories) > 0 {
		v.Category = p.Categories[0]
	}
	reviews := s.reviews[p.ID]
	v.ReviewCount = len(reviews)
	if len(reviews) > 0 {
		sum := 0
		for _, r := range reviews {
			sum += r.Rating
		}
		avg := float64(sum) / float64(len(reviews))
		v.AverageRating = &avg
	}
	return v
}

func (s *Server) filtered(r *http.Request) []productView {
	q := r.URL.Query()
	category := strings.TrimSpace(q.Get("category"))
	search := strings.ToLower(strings.TrimSpace(q.Get("search")))

	var out []productView
	for _, p := range s.products {
		if category != "" && !hasCategory(p, category) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name+" "+p.Description), search) {
			continue
		}
		out = append(out, s.view(p))
	}
	return out
}

func hasCategory(p Product, category string) bool {
	for _, c := range p.Categories {
		if strings.EqualFold(c, category) {
			return true
		}
	}
	return false
}

func sortProducts(items []productView, sortKey string) {
	field, dir, _ := strings.Cut(sortKey, ",")
	desc := strings.EqualFold(dir, "desc")
	rating := func(v productView) float64 {
		if v.AverageRating == nil {
			return 0
		}
		return *v.AverageRating
	}
	less := func(a, b productView) bool {
		switch field {
		case "price":
			return a.Price < b.Price
		case "averageRating":
			return rating(a) < rating(b)
		case "reviewCount":
			return a.ReviewCount < b.ReviewCount
		default:
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		if desc {
			return less(items[j], items[i])
		}
		return less(items[i], items[j])
	})
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	items := s.filtered(r)
	s.mu.Unlock()
	sortProducts(items, r.URL.Query().Get("sort"))
	writeJSON(w, http.StatusOK, paginate(items, intParam(r, "page", 0), intParam(r, "size", 20)))
}

func (s *Server) productStats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	items := s.filtered(r)
	s.mu.Unlock()
	reviews, sum := 0, 0.0
	rated := 0
	for _, v := range items {
		reviews += v.ReviewCount
		if v.AverageRating != nil {
			sum += *v.AverageRating
			rated++
		}
	}
	avg := 0.0
	if rated > 0 {
		avg = sum / float64(rated)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"totalProducts": len(items),
		"totalReviews":  reviews,
		"averageRating": avg,
	})
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.products {
		if p.ID == id {
			writeJSON(w, http.StatusOK, s.view(p))
			return
		}
	}
	writeError(w, http.StatusNotFound, "product not found")
}

func (s *Server) listReviews(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	rating := intParam(r, "rating", 0)
	s.mu.Lock()
	var items []Review
	for _, rv := range s.reviews[id] {
		if rating == 0 || rv.Rating == rating {
			items = append(items, *rv)
		}
	}
	s.mu.Unlock()
	sort.SliceStable(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	writeJSON(w, http.StatusOK, paginate(items, intParam(r, "page", 0), intParam(r, "size", 10)))
}

func (s *Server) submitReview(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var draft struct {
		ReviewerName string `json:"reviewerName"`
		Rating       int    `json:"rating"`
		Comment      string `json:"comment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil || draft.Rating < 1 || draft.Rating > 5 {
		writeError(w, http.StatusBadRequest, "invalid review")
		return
	}
	s.mu.Lock()
	rv := &Review{
		ID:           s.id(),
		ProductID:    id,
		ReviewerName: draft.ReviewerName,
		Rating:       draft.Rating,
		Comment:      draft.Comment,
		CreatedAt:    s.now(),
	}
	s.reviews[id] = append(s.reviews[id], rv)
	out := *rv
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) findReview(id int64) *Review {
	for _, list := range s.reviews {
		for _, rv := range list {
			if rv.ID == id {
				return rv
			}
		}
	}
	return nil
}

func (s *Server) toggleHelpful(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	u := user(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	rv := s.findReview(id)
	if rv == nil {
		writeError(w, http.StatusNotFound, "review not found")
		return
	}
	if s.votes[u] == nil {
		s.votes[u] = make(map[int64]bool)
	}
	if s.votes[u][id] {
		delete(s.votes[u], id)
		rv.HelpfulCount--
	} else {
		s.votes[u][id] = true
		rv.HelpfulCount++
	}
	writeJSON(w, http.StatusOK, *rv)
}

func (s *Server) votedReviews(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	ids := sortedIDs(s.votes[user(r)])
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, ids)
}

func (s *Server) listNotes(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := make([]Notification, 0, len(s.notes[user(r)]))
	for _, n := range s.notes[user(r)] {
		out = append(out, *n)
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createNote(w http.ResponseWriter, r *http.Request) {
	var draft struct {
		Title     string `json:"title"`
		Message   string `json:"message"`
		ProductID *int64 `json:"productId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil || strings.TrimSpace(draft.Title) == "" {
		writeError(w, http.StatusBadRequest, "invalid notification")
		return
	}
	u := user(r)
	s.mu.Lock()
	n := &Notification{ID: s.id(), Title: draft.Title, Message: draft.Message, ProductID: draft.ProductID, CreatedAt: s.now()}
	s.notes[u] = append([]*Notification{n}, s.notes[u]...)
	s.mu.Unlock()
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) markRead(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.notes[user(r)] {
		if n.ID == id {
			n.IsRead = true
			w.WriteHeader(http.StatusOK)
			return
		}
	}
	writeError(w, http.StatusNotFound, "notification not found")
}

func (s *Server) markAllRead(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	for _, n := range s.notes[user(r)] {
		n.IsRead = true
	}
	s.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (s *Server) deleteNote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	u := user(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.notes[u]
	for i, n := range list {
		if n.ID == id {
			s.notes[u] = append(list[:i:i], list[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeError(w, http.StatusNotFound, "notification not found")
}

func (s *Server) deleteAllNotes(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	delete(s.notes, user(r))
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getWishlist(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	ids := sortedIDs(s.wishlist[user(r)])
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, ids)
}

func (s *Server) toggleWishlist(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	u := user(r)
	s.mu.Lock()
	if s.wishlist[u] == nil {
		s.wishlist[u] = make(map[int64]bool)
	}
	added := !s.wishlist[u][id]
	if added {
		s.wishlist[u][id] = true
	} else {
		delete(s.wishlist[u], id)
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]bool{"inWishlist": added})
}
