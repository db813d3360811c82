// Package fakeapi is an in-memory catalog backend for tests. It serves the
// same REST surface as the real service with hooks to fail, hold or count
// requests per route.
package fakeapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Route names a registered endpoint as "METHOD pattern".
type Route string

const (
	ListProducts     Route = "GET /api/products"
	ProductStats     Route = "GET /api/products/stats"
	GetProduct       Route = "GET /api/products/{id}"
	ListReviews      Route = "GET /api/products/{id}/reviews"
	SubmitReview     Route = "POST /api/products/{id}/reviews"
	ToggleHelpful    Route = "PUT /api/products/reviews/{id}/helpful"
	VotedReviews     Route = "GET /api/products/reviews/voted"
	ListNotes        Route = "GET /api/user/notifications"
	CreateNote       Route = "POST /api/user/notifications"
	MarkNoteRead     Route = "PUT /api/user/notifications/{id}/read"
	MarkAllNotesRead Route = "PUT /api/user/notifications/read-all"
	DeleteNote       Route = "DELETE /api/user/notifications/{id}"
	DeleteAllNotes   Route = "DELETE /api/user/notifications"
	GetWishlist      Route = "GET /api/user/wishlist"
	ToggleWishlist   Route = "POST /api/user/wishlist/{id}"
)

// Product is the stored form of a catalog product.
type Product struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Price       float64  `json:"price"`
	ImageURL    string   `json:"imageUrl,omitempty"`
	Categories  []string `json:"categories,omitempty"`
}

// Review is the stored form of a review.
type Review struct {
	ID           int64     `json:"id"`
	ProductID    int64     `json:"productId"`
	ReviewerName string    `json:"reviewerName"`
	Rating       int       `json:"rating"`
	Comment      string    `json:"comment"`
	CreatedAt    time.Time `json:"createdAt"`
	HelpfulCount int       `json:"helpfulCount"`
}

// Notification is the stored form of a notification.
type Notification struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"isRead"`
	CreatedAt time.Time `json:"createdAt"`
	ProductID *int64    `json:"productId,omitempty"`
}

type productView struct {
	Product
	Category      string   `json:"category,omitempty"`
	AverageRating *float64 `json:"averageRating,omitempty"`
	ReviewCount   int      `json:"reviewCount"`
}

type page[T any] struct {
	Content       []T  `json:"content"`
	Number        int  `json:"number"`
	Size          int  `json:"size"`
	TotalPages    int  `json:"totalPages"`
	TotalElements int  `json:"totalElements"`
	Last          bool `json:"last"`
}

type hook struct {
	failNext []int
	failAll  int
	gate     *gate
	count    int
}

type gate struct {
	ch   chan struct{}
	once sync.Once
}

func (g *gate) open() { g.once.Do(func() { close(g.ch) }) }

// Server holds backend state. The zero value is not usable; call New.
type Server struct {
	mu       sync.Mutex
	nextID   int64
	now      func() time.Time
	products []Product
	reviews  map[int64][]*Review
	votes    map[string]map[int64]bool
	notes    map[string][]*Notification
	wishlist map[string]map[int64]bool
	users    map[string]int
	hooks    map[Route]*hook
	router   chi.Router
}

// New returns an empty backend.
func New() *Server {
	s := &Server{
		nextID:   1000,
		now:      time.Now,
		reviews:  make(map[int64][]*Review),
		votes:    make(map[string]map[int64]bool),
		notes:    make(map[string][]*Notification),
		wishlist: make(map[string]map[int64]bool),
		users:    make(map[string]int),
		hooks:    make(map[Route]*hook),
	}
	s.router = s.routes()
	return s
}

// Start serves s on a test server closed at the end of the test.
func Start(tb testing.TB, s *Server) *httptest.Server {
	tb.Helper()
	ts := httptest.NewServer(s)
	tb.Cleanup(func() {
		s.ReleaseAll()
		ts.Close()
	})
	return ts
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// AddProduct stores p and returns its id.
func (s *Server) AddProduct(p Product) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == 0 {
		p.ID = s.id()
	}
	s.products = append(s.products, p)
	return p.ID
}

// AddProducts stores n products named "<prefix> NN" with increasing prices.
func (s *Server) AddProducts(prefix string, n int, categories ...string) []int64 {
	ids := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		name := prefix + " " + twoDigits(i)
		ids = append(ids, s.AddProduct(Product{Name: name, Price: float64(i + 1), Categories: categories}))
	}
	return ids
}

// AddReview stores r under its product and returns its id.
func (s *Server) AddReview(r Review) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == 0 {
		r.ID = s.id()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}
	s.reviews[r.ProductID] = append(s.reviews[r.ProductID], &r)
	return r.ID
}

// AddNotification stores n for user and returns its id.
func (s *Server) AddNotification(user string, n Notification) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.ID == 0 {
		n.ID = s.id()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now()
	}
	s.notes[user] = append([]*Notification{&n}, s.notes[user]...)
	return n.ID
}

// Notifications returns a copy of user's notifications, newest first.
func (s *Server) Notifications(user string) []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Notification, 0, len(s.notes[user]))
	for _, n := range s.notes[user] {
		out = append(out, *n)
	}
	return out
}

// Wishlist returns user's server-side wishlist in id order.
func (s *Server) Wishlist(user string) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedIDs(s.wishlist[user])
}

// Voted returns the review ids user has marked helpful.
func (s *Server) Voted(user string) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedIDs(s.votes[user])
}

// HelpfulCount returns the stored helpful count of review id.
func (s *Server) HelpfulCount(id int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r := s.findReview(id); r != nil {
		return r.HelpfulCount
	}
	return 0
}

// Users returns how many requests each X-User-ID value made.
func (s *Server) Users() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.users))
	for k, v := range s.users {
		out[k] = v
	}
	return out
}

// Count returns how many requests reached route.
func (s *Server) Count(route Route) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hook(route).count
}

// FailNext makes the next request to route answer status, once per call.
func (s *Server) FailNext(route Route, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.hook(route)
	h.failNext = append(h.failNext, status)
}

// FailAlways makes every request to route answer status until cleared with
// status 0.
func (s *Server) FailAlways(route Route, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook(route).failAll = status
}

// Hold blocks requests to route until the returned release is called.
func (s *Server) Hold(route Route) (release func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := &gate{ch: make(chan struct{})}
	h := s.hook(route)
	if h.gate != nil {
		h.gate.open()
	}
	h.gate = g
	return func() {
		s.mu.Lock()
		if h.gate == g {
			h.gate = nil
		}
		s.mu.Unlock()
		g.open()
	}
}

// ReleaseAll opens every held route.
func (s *Server) ReleaseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range s.hooks {
		if h.gate != nil {
			h.gate.open()
			h.gate = nil
		}
	}
}

func (s *Server) hook(route Route) *hook {
	h, ok := s.hooks[route]
	if !ok {
		h = &hook{}
		s.hooks[route] = h
	}
	return h
}

func (s *Server) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.countUser)

	s.handle(r, ListProducts, s.listProducts)
	s.handle(r, ProductStats, s.productStats)
	s.handle(r, VotedReviews, s.votedReviews)
	s.handle(r, ToggleHelpful, s.toggleHelpful)
	s.handle(r, GetProduct, s.getProduct)
	s.handle(r, ListReviews, s.listReviews)
	s.handle(r, SubmitReview, s.submitReview)
	s.handle(r, ListNotes, s.listNotes)
	s.handle(r, CreateNote, s.createNote)
	s.handle(r, MarkAllNotesRead, s.markAllRead)
	s.handle(r, MarkNoteRead, s.markRead)
	s.handle(r, DeleteAllNotes, s.deleteAllNotes)
	s.handle(r, DeleteNote, s.deleteNote)
	s.handle(r, GetWishlist, s.getWishlist)
	s.handle(r, ToggleWishlist, s.toggleWishlist)
	return r
}

// handle registers fn for route behind the fail, hold and count hooks.
func (s *Server) handle(r chi.Router, route Route, fn http.HandlerFunc) {
	method, pattern, _ := strings.Cut(string(route), " ")
	r.Method(method, pattern, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		s.mu.Lock()
		h := s.hook(route)
		h.count++
		gate := h.gate
		status := h.failAll
		if len(h.failNext) > 0 {
			status = h.failNext[0]
			h.failNext = h.failNext[1:]
		}
		s.mu.Unlock()

		if gate != nil {
			select {
			case <-gate.ch:
			case <-req.Context().Done():
				return
			}
		}
		if status != 0 {
			writeError(w, status, http.StatusText(status))
			return
		}
		fn(w, req)
	}))
}

func (s *Server) countUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.users[r.Header.Get("X-User-ID")]++
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func user(r *http.Request) string {
	if u := strings.TrimSpace(r.Header.Get("X-User-ID")); u != "" {
		return u
	}
	return "anonymous"
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

func intParam(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return def
	}
	return v
}

func paginate[T any](items []T, pageIndex, size int) page[T] {
	if size <= 0 {
		size = 20
	}
	if pageIndex < 0 {
		pageIndex = 0
	}
	total := len(items)
	pages := (total + size - 1) / size
	start := pageIndex * size
	end := start + size
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}
	content := append([]T{}, items[start:end]...)
	return page[T]{
		Content:       content,
		Number:        pageIndex,
		Size:          size,
		TotalPages:    pages,
		TotalElements: total,
		Last:          pageIndex >= pages-1,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func sortedIDs(set map[int64]bool) []int64 {
	out := make([]int64, 0, len(set))
	for id, ok := range set {
		if ok {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func twoDigits(i int) string {
	if i < 10 {
		return "0" + strconv.Itoa(i)
	}
	return strconv.Itoa(i)
}
