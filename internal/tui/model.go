package tui

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/yigiterenyilmaz/intern-project-product-review/internal/app"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/logtail"
)

// logTailLines bounds how much of the session log the log pane reads.
const logTailLines = 300

// Session is the part of app.Session the UI drives.
type Session interface {
	View() app.View
	Subscribe(fn func(app.View)) (unsubscribe func())

	Type(raw string)
	Submit()
	CycleCategory()
	CycleSort()
	Reset()
	LoadMore()
	Retry()
	CheckConnectivity(ctx context.Context)
	ToggleTheme()
	CycleGrid()
	DismissMessage()

	ToggleFavorite(productID string)
	RemoveFavorites(ids []string)
	ClearFavorites()

	OpenReviews(productID string, rating int)
	CloseReviews()
	LoadMoreReviews()
	VoteHelpful(reviewID string)

	MarkRead(id string)
	MarkAllRead()
	DeleteNotification(id string)
	DeleteAllNotifications()
	RetryFailed()
}

// Mode is the focused screen.
type Mode int

const (
	ModeCatalog Mode = iota
	ModeSearch
	ModeReviews
	ModeNotifications
	ModeFavorites
	ModeLogs
)

// viewMsg carries a fresh engine snapshot into the program.
type viewMsg struct{ view app.View }

// logsMsg carries a freshly read tail of the session log.
type logsMsg struct {
	entries []logtail.Entry
	err     error
}

// Model is the bubbletea model. It only reads app.View snapshots and turns
// keys into session calls.
type Model struct {
	ctx     context.Context
	session Session
	keys    keyMap

	view   app.View
	theme  Theme
	mode   Mode
	width  int
	height int

	cursor      int // catalog
	panelCursor int // reviews, notifications, favorites or logs

	logPath string
	logs    []logtail.Entry
	logErr  error

	search  textinput.Model
	spinner spinner.Model
}

// NewModel builds a model showing the session's current view. logPath is
// the session log shown by the log pane; empty disables the pane.
func NewModel(ctx context.Context, s Session, logPath string) Model {
	ti := textinput.New()
	ti.Prompt = "/ "
	ti.Placeholder = "search products"
	ti.CharLimit = 100

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))

	v := s.View()
	return Model{
		ctx:     ctx,
		session: s,
		keys:    defaultKeyMap(),
		view:    v,
		theme:   ThemeFor(v.Theme),
		width:   100,
		height:  30,
		logPath: logPath,
		search:  ti,
		spinner: sp,
	}
}

// Init starts the spinner.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles one message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case viewMsg:
		m.view = msg.view
		m.theme = ThemeFor(m.view.Theme)
		m.clampCursors()
		if m.mode == ModeReviews && !m.view.Reviews.Open {
			m.mode = ModeCatalog
		}
		return m, nil

	case logsMsg:
		m.logs = msg.entries
		m.logErr = msg.err
		if m.mode == ModeLogs {
			m.panelCursor = max(len(m.logs)-1, 0)
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.ForceQuit) {
			return m, tea.Quit
		}
		switch m.mode {
		case ModeSearch:
			return m.updateSearch(msg)
		case ModeReviews:
			return m.updateReviews(msg)
		case ModeNotifications:
			return m.updateNotifications(msg)
		case ModeFavorites:
			return m.updateFavorites(msg)
		case ModeLogs:
			return m.updateLogs(msg)
		default:
			return m.updateCatalog(msg)
		}
	}
	return m, nil
}

func (m Model) updateCatalog(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keys
	switch {
	case key.Matches(msg, k.Quit):
		return m, tea.Quit
	case key.Matches(msg, k.Search):
		m.mode = ModeSearch
		m.search.SetValue(m.view.Filter.Raw)
		m.search.CursorEnd()
		return m, m.search.Focus()
	case key.Matches(msg, k.Up):
		m.move(-m.columns())
	case key.Matches(msg, k.Down):
		m.move(m.columns())
	case key.Matches(msg, k.Left):
		m.move(-1)
	case key.Matches(msg, k.Right):
		m.move(1)
	case key.Matches(msg, k.Open):
		if p, ok := m.selected(); ok {
			m.mode = ModeReviews
			m.panelCursor = 0
			m.session.OpenReviews(p.ID, 0)
		}
	case key.Matches(msg, k.Category):
		m.cursor = 0
		m.session.CycleCategory()
	case key.Matches(msg, k.Sort):
		m.cursor = 0
		m.session.CycleSort()
	case key.Matches(msg, k.Reset):
		m.cursor = 0
		m.session.Reset()
	case key.Matches(msg, k.More):
		m.session.LoadMore()
	case key.Matches(msg, k.Favorite):
		if p, ok := m.selected(); ok {
			m.session.ToggleFavorite(p.ID)
		}
	case key.Matches(msg, k.Grid):
		m.session.CycleGrid()
	case key.Matches(msg, k.Theme):
		m.session.ToggleTheme()
	case key.Matches(msg, k.Retry):
		m.session.Retry()
	case key.Matches(msg, k.RetryFailed):
		m.session.RetryFailed()
	case key.Matches(msg, k.Online):
		m.session.CheckConnectivity(m.ctx)
	case key.Matches(msg, k.Notifications):
		m.mode = ModeNotifications
		m.panelCursor = 0
	case key.Matches(msg, k.Favorites):
		m.mode = ModeFavorites
		m.panelCursor = 0
	case key.Matches(msg, k.Logs):
		if m.logPath == "" {
			return m, nil
		}
		m.mode = ModeLogs
		return m, loadLogs(m.logPath)
	case key.Matches(msg, k.Back):
		m.session.DismissMessage()
	}
	return m, nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Submit):
		m.session.Submit()
		m.leaveSearch()
		return m, nil
	case key.Matches(msg, m.keys.Back):
		m.leaveSearch()
		return m, nil
	}
	before := m.search.Value()
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if v := m.search.Value(); v != before {
		m.cursor = 0
		m.session.Type(v)
	}
	return m, cmd
}

func (m *Model) leaveSearch() {
	m.search.Blur()
	m.mode = ModeCatalog
}

func (m Model) updateReviews(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keys
	rv := m.view.Reviews
	switch {
	case key.Matches(msg, k.Back), key.Matches(msg, k.Quit):
		m.mode = ModeCatalog
		m.session.CloseReviews()
	case key.Matches(msg, k.Up):
		m.panelCursor = clamp(m.panelCursor-1, len(rv.Items))
	case key.Matches(msg, k.Down):
		if m.panelCursor == len(rv.Items)-1 && rv.HasMore {
			m.session.LoadMoreReviews()
		}
		m.panelCursor = clamp(m.panelCursor+1, len(rv.Items))
	case key.Matches(msg, k.More):
		m.session.LoadMoreReviews()
	case key.Matches(msg, k.Helpful):
		if m.panelCursor < len(rv.Items) {
			m.session.VoteHelpful(rv.Items[m.panelCursor].ID)
		}
	case key.Matches(msg, k.Rating):
		rating := int(msg.Runes[0] - '0')
		m.panelCursor = 0
		m.session.OpenReviews(rv.ProductID, rating)
	case key.Matches(msg, k.Retry):
		m.session.OpenReviews(rv.ProductID, rv.Rating)
	}
	return m, nil
}

func (m Model) updateNotifications(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keys
	items := m.view.Notifications
	switch {
	case key.Matches(msg, k.Back), key.Matches(msg, k.Quit), key.Matches(msg, k.Notifications):
		m.mode = ModeCatalog
	case key.Matches(msg, k.Up):
		m.panelCursor = clamp(m.panelCursor-1, len(items))
	case key.Matches(msg, k.Down):
		m.panelCursor = clamp(m.panelCursor+1, len(items))
	case key.Matches(msg, k.Open):
		if m.panelCursor < len(items) {
			m.session.MarkRead(items[m.panelCursor].ID)
		}
	case key.Matches(msg, k.All):
		m.session.MarkAllRead()
	case key.Matches(msg, k.Delete):
		if m.panelCursor < len(items) {
			m.session.DeleteNotification(items[m.panelCursor].ID)
		}
	case key.Matches(msg, k.DeleteAll):
		m.session.DeleteAllNotifications()
	case key.Matches(msg, k.RetryFailed):
		m.session.RetryFailed()
	}
	return m, nil
}

func (m Model) updateFavorites(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keys
	items := m.view.Favorites
	switch {
	case key.Matches(msg, k.Back), key.Matches(msg, k.Quit), key.Matches(msg, k.Favorites):
		m.mode = ModeCatalog
	case key.Matches(msg, k.Up):
		m.panelCursor = clamp(m.panelCursor-1, len(items))
	case key.Matches(msg, k.Down):
		m.panelCursor = clamp(m.panelCursor+1, len(items))
	case key.Matches(msg, k.Delete):
		if m.panelCursor < len(items) {
			m.session.RemoveFavorites([]string{items[m.panelCursor].ID})
		}
	case key.Matches(msg, k.DeleteAll):
		m.session.ClearFavorites()
	}
	return m, nil
}

func (m Model) updateLogs(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keys
	switch {
	case key.Matches(msg, k.Back), key.Matches(msg, k.Quit), key.Matches(msg, k.Logs):
		m.mode = ModeCatalog
	case key.Matches(msg, k.Up):
		m.panelCursor = clamp(m.panelCursor-1, len(m.logs))
	case key.Matches(msg, k.Down):
		m.panelCursor = clamp(m.panelCursor+1, len(m.logs))
	case key.Matches(msg, k.Refresh):
		return m, loadLogs(m.logPath)
	}
	return m, nil
}

func loadLogs(path string) tea.Cmd {
	return func() tea.Msg {
		entries, err := logtail.Tail(path, logTailLines)
		return logsMsg{entries: entries, err: err}
	}
}

// move shifts the catalog cursor, asking for the next page when it runs
// past the last loaded product.
func (m *Model) move(delta int) {
	n := len(m.view.Products)
	next := m.cursor + delta
	if next >= n && m.view.HasMore {
		m.session.LoadMore()
	}
	m.cursor = clamp(next, n)
}

func (m *Model) clampCursors() {
	m.cursor = clamp(m.cursor, len(m.view.Products))
	switch m.mode {
	case ModeReviews:
		m.panelCursor = clamp(m.panelCursor, len(m.view.Reviews.Items))
	case ModeNotifications:
		m.panelCursor = clamp(m.panelCursor, len(m.view.Notifications))
	case ModeFavorites:
		m.panelCursor = clamp(m.panelCursor, len(m.view.Favorites))
	case ModeLogs:
		m.panelCursor = clamp(m.panelCursor, len(m.logs))
	}
}

func (m Model) selected() (app.ProductRow, bool) {
	if m.cursor < 0 || m.cursor >= len(m.view.Products) {
		return app.ProductRow{}, false
	}
	return m.view.Products[m.cursor], true
}

func (m Model) columns() int {
	if m.view.Grid < 1 {
		return 1
	}
	return m.view.Grid
}

func clamp(i, n int) int {
	if n <= 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// UI runs a Model as a full-screen program. It satisfies app.Frontend.
type UI struct {
	session Session
	logPath string
	opts    []tea.ProgramOption
}

// New returns a UI for s that shows logPath in its log pane. opts are passed
// to tea.NewProgram.
func New(s Session, logPath string, opts ...tea.ProgramOption) *UI {
	return &UI{session: s, logPath: logPath, opts: opts}
}

// Run blocks until the user quits or ctx is cancelled.
func (u *UI) Run(ctx context.Context) error {
	opts := append([]tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}, u.opts...)
	p := tea.NewProgram(NewModel(ctx, u.session, u.logPath), opts...)

	// Subscribers run on the engine loop, so only flag the change here and
	// let a separate goroutine block on Send with the latest snapshot.
	dirty := make(chan struct{}, 1)
	unsubscribe := u.session.Subscribe(func(app.View) {
		select {
		case dirty <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-done:
				return
			case <-dirty:
				p.Send(viewMsg{view: u.session.View()})
			}
		}
	}()

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
