package app

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/yigiterenyilmaz/intern-project-product-review/internal/catalogapi"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/clock"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/config"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/connectivity"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/errs"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/event"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/fetch"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/filter"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/kv"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/logging"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/loop"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/mutation"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/prefs"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/query"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/telemetry"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/validate"
)

// reviewPageSize matches the product detail screen.
const reviewPageSize = 10

// Deps overrides collaborators that New otherwise builds from the config.
type Deps struct {
	Store      kv.Store
	HTTPClient *http.Client
	Prober     connectivity.Prober
	Clock      clock.Clock
	Logger     *logging.Logger
	Metrics    *telemetry.Metrics
}

// Frontend renders a session until ctx is cancelled or the user quits.
type Frontend interface {
	Run(ctx context.Context) error
}

// Session owns every engine service for one user. Services are only touched
// from the loop goroutine; the exported methods post onto it.
type Session struct {
	cfg     config.Config
	log     *logging.Logger
	metrics *telemetry.Metrics
	clock   clock.Clock

	loop      *loop.Loop
	store     kv.Store
	writer    *kv.Writer
	prefs     *prefs.Prefs
	history   *prefs.History
	client    *catalogapi.Client
	monitor   *connectivity.Monitor
	catalog   *fetch.Coordinator[query.Descriptor, catalogapi.Product]
	reviews   *fetch.Coordinator[query.ReviewQuery, catalogapi.Review]
	filter    *filter.Pipeline
	mutations *mutation.Engine
	validator *validate.Validator

	stats       catalogapi.Stats
	statsKey    string
	statsGen    uint64
	reviewsOpen bool
	message     string

	views   event.Bus[View]
	viewMu  sync.Mutex
	current View

	startOnce sync.Once
	stopOnce  sync.Once
	cancel    context.CancelFunc
}

// New builds a session from cfg. Nothing runs until Start.
func New(cfg config.Config, deps Deps) (*Session, error) {
	log := logging.Named(deps.Logger, "app")
	s := &Session{
		cfg:       cfg,
		log:       log,
		metrics:   deps.Metrics,
		clock:     deps.Clock,
		loop:      loop.New(),
		validator: validate.New(),
	}
	if s.clock == nil {
		s.clock = clock.System()
	}
	if len(s.cfg.Categories) == 0 {
		s.cfg.Categories = append([]string(nil), config.DefaultCategories...)
	}

	s.store = deps.Store
	if s.store == nil {
		fs, err := kv.NewFileStore(cfg.StoreDir())
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		s.store = fs
	}
	s.writer = kv.NewWriter(s.store, func(key string, err error) {
		s.metrics.PersistenceFailed(context.Background(), key)
		s.log.Warn().Err(err).Str("key", key).Msg("persist failed")
	})
	s.prefs = prefs.New(s.store, s.writer)
	s.history = prefs.NewHistory(s.prefs)

	userID := cfg.UserID
	if userID == "" {
		id, err := s.prefs.UserID()
		if err != nil {
			return nil, fmt.Errorf("user id: %w", err)
		}
		userID = id
	}

	opts := []catalogapi.Option{catalogapi.WithHTTPClient(deps.HTTPClient), catalogapi.WithTimeout(cfg.RequestTimeout)}
	client, err := catalogapi.NewClient(cfg.APIBaseURL, userID, opts...)
	if err != nil {
		return nil, fmt.Errorf("init api client: %w", err)
	}
	s.client = client

	post := s.loop.Post
	prober := deps.Prober
	if prober == nil {
		prober = connectivity.NewHTTPProber(client.BaseURL())
	}
	s.monitor = connectivity.NewMonitor(connectivity.Options{
		Prober:   prober,
		Clock:    s.clock,
		Interval: cfg.ProbeInterval,
		Post:     post,
		Logger:   deps.Logger,
		Metrics:  deps.Metrics,
	})

	s.catalog = fetch.New[query.Descriptor, catalogapi.Product](post, s.loadProducts, fetch.Options{
		Name:         "catalog",
		Connectivity: s.monitor,
		Logger:       deps.Logger,
		Metrics:      deps.Metrics,
	})
	s.reviews = fetch.New[query.ReviewQuery, catalogapi.Review](post, s.loadReviews, fetch.Options{
		Name:         "reviews",
		Connectivity: s.monitor,
		Logger:       deps.Logger,
		Metrics:      deps.Metrics,
	})
	s.filter = filter.New(post, s.catalog, filter.Options{
		Clock:   s.clock,
		Window:  cfg.Debounce,
		Sort:    s.prefs,
		History: s.history,
		Logger:  deps.Logger,
	})
	s.mutations = mutation.New(post, mutation.Options{
		Store:          s.store,
		Sink:           s.writer,
		API:            client,
		MirrorWishlist: cfg.SyncWishlist,
		Connectivity:   s.monitor,
		Clock:          s.clock,
		Validator:      s.validator,
		Logger:         deps.Logger,
		Metrics:        deps.Metrics,
	})

	s.wire()
	s.current = s.buildView()
	return s, nil
}

func (s *Session) wire() {
	s.catalog.Subscribe(func(e fetch.Event[catalogapi.Product]) {
		if e.Kind == fetch.Failed && !e.Append {
			s.surface(e.Err)
		}
		s.publish()
	})
	s.reviews.Subscribe(func(e fetch.Event[catalogapi.Review]) {
		if e.Kind == fetch.Loaded {
			s.mutations.Votes.Seed(e.Snapshot.Items)
		}
		s.publish()
	})
	s.filter.Subscribe(func(st filter.State) {
		if statsKey(st.Committed) != s.statsKey {
			s.refreshStats()
		}
		s.publish()
	})
	s.mutations.Subscribe(func(e mutation.Event) {
		if e.Err != nil {
			s.surface(e.Err)
		}
		s.publish()
	})
	s.monitor.Subscribe(func(c connectivity.Change) {
		if c.WentOnline() {
			s.log.Info().Msg("back online; retrying lists")
			_ = s.catalog.RetryIfUnavailable()
			_ = s.reviews.RetryIfUnavailable()
			s.mutations.Favorites.SyncMirror()
			s.refreshStats()
		}
		s.publish()
	})
}

func (s *Session) loadProducts(ctx context.Context, d query.Descriptor) (catalogapi.Page[catalogapi.Product], error) {
	return s.client.ListProducts(ctx, catalogapi.ProductQuery{
		Page:     d.PageIndex,
		Size:     d.PageSize,
		Sort:     string(d.Sort),
		Category: d.Category,
		Search:   d.Search,
	})
}

func (s *Session) loadReviews(ctx context.Context, q query.ReviewQuery) (catalogapi.Page[catalogapi.Review], error) {
	return s.client.ListReviews(ctx, catalogapi.ReviewQuery{
		ProductID: q.ProductID,
		Page:      q.PageIndex,
		Size:      q.PageSize,
		Rating:    q.Rating,
	})
}

// Start runs the loop and the connectivity monitor, then issues the initial
// loads. It returns immediately.
func (s *Session) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		ctx, s.cancel = context.WithCancel(ctx)
		go func() { _ = s.loop.Run(ctx) }()
		s.monitor.Start(ctx)
		StartRefresher(ctx, s, defaultRefreshInterval)

		s.loop.Post(func() {
			initial := query.Default()
			initial.PageSize = s.cfg.PageSize
			initial.Sort = s.prefs.Sort()
			s.filter.Start(initial)
			s.mutations.LoadVotes()
			s.mutations.LoadNotifications()
			s.mutations.Favorites.SyncMirror()
			s.publish()
		})
	})
}

// Run starts the session, hands control to front and shuts down once it
// returns.
func (s *Session) Run(ctx context.Context, front Frontend) error {
	s.Start(ctx)
	defer s.Close()
	return front.Run(ctx)
}

// Close stops the loop, cancels outstanding requests and flushes pending
// writes.
func (s *Session) Close() {
	s.stopOnce.Do(func() {
		done := make(chan struct{})
		s.loop.Post(func() {
			defer close(done)
			s.filter.Stop()
			s.catalog.Close()
			s.reviews.Close()
			s.mutations.Close()
		})
		if s.cancel != nil {
			select {
			case <-done:
			case <-s.loop.Done():
			}
			s.cancel()
		} else {
			s.loop.Drain()
		}
		s.writer.Close()
	})
}

// View returns the latest snapshot. Safe from any goroutine.
func (s *Session) View() View {
	s.viewMu.Lock()
	defer s.viewMu.Unlock()
	return s.current
}

// Subscribe registers fn for view updates. fn runs on the engine loop and
// must not block.
func (s *Session) Subscribe(fn func(View)) (unsubscribe func()) {
	return s.views.Subscribe(fn)
}

// UserID returns the id sent with every request.
func (s *Session) UserID() string { return s.client.UserID() }

func (s *Session) publish() {
	v := s.buildView()
	s.viewMu.Lock()
	s.current = v
	s.viewMu.Unlock()
	s.views.Publish(v)
}

func (s *Session) surface(err error) {
	if err == nil || errs.Is(err, errs.StaleResponseDiscarded) {
		return
	}
	s.message = errs.Message(err)
}
