package connectivity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigiterenyilmaz/intern-project-product-review/internal/clock"
)

type fakeProber struct {
	mu      sync.Mutex
	reading Reading
	calls   atomic.Int32
}

func (p *fakeProber) set(r Reading) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reading = r
}

func (p *fakeProber) Probe(context.Context) Reading {
	p.calls.Add(1)
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reading
}

func TestStateIsOffline(t *testing.T) {
	cases := []struct {
		state State
		want  bool
	}{
		{State{Connected: true, Reachable: ReachUnknown}, false},
		{State{Connected: true, Reachable: Reachable}, false},
		{State{Connected: true, Reachable: Unreachable}, true},
		{State{Connected: false, Reachable: Reachable}, true},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.state.IsOffline(), "%+v", c.state)
	}
}

func TestInitialStateIsOnline(t *testing.T) {
	m := NewMonitor(Options{})
	assert.False(t, m.IsOffline())
	assert.Equal(t, ReachUnknown, m.State().Reachable)
}

func TestObservePublishesTransitions(t *testing.T) {
	fc := clock.NewFake(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	m := NewMonitor(Options{Clock: fc})

	var changes []Change
	m.Subscribe(func(c Change) { changes = append(changes, c) })

	m.Observe(Reading{Connected: false})
	require.Len(t, changes, 1)
	assert.True(t, changes[0].WentOffline())
	assert.Equal(t, Unreachable, m.State().Reachable)
	assert.Equal(t, fc.Now(), m.State().LastCheckedAt)

	m.Observe(Reading{Connected: false})
	assert.Len(t, changes, 1)

	m.Observe(Reading{Connected: true, Reachable: Reachable})
	require.Len(t, changes, 2)
	assert.True(t, changes[1].WentOnline())
	assert.False(t, changes[1].WentOffline())

	m.Observe(Reading{Connected: true, Reachable: ReachUnknown})
	require.Len(t, changes, 3)
	assert.False(t, changes[2].WentOnline())
	assert.False(t, changes[2].WentOffline())
}

func TestChangesArePosted(t *testing.T) {
	var queued []func()
	m := NewMonitor(Options{Post: func(fn func()) { queued = append(queued, fn) }})
	got := 0
	m.Subscribe(func(Change) { got++ })

	m.Observe(Reading{Connected: true, Reachable: Unreachable})
	assert.True(t, m.IsOffline())
	assert.Zero(t, got)
	require.Len(t, queued, 1)
	queued[0]()
	assert.Equal(t, 1, got)
}

func TestCheckNowUpdatesBeforeReturn(t *testing.T) {
	p := &fakeProber{reading: Reading{Connected: true, Reachable: Unreachable}}
	m := NewMonitor(Options{Prober: p})

	st, err := m.CheckNow(context.Background())
	require.NoError(t, err)
	assert.True(t, st.IsOffline())
	assert.True(t, m.IsOffline())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.set(Reading{Connected: true, Reachable: Reachable})
	_, err = m.CheckNow(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, m.IsOffline())
}

func TestHTTPProber(t *testing.T) {
	t.Run("any response is reachable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/products", r.URL.Path)
			assert.Equal(t, "1", r.URL.Query().Get("size"))
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()
		base, _ := url.Parse(srv.URL)
		got := NewHTTPProber(base).Probe(context.Background())
		assert.Equal(t, Reading{Connected: true, Reachable: Reachable}, got)
	})

	t.Run("refused dial is disconnected", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		base, _ := url.Parse(srv.URL)
		srv.Close()
		got := NewHTTPProber(base).Probe(context.Background())
		assert.False(t, got.Connected)
	})

	t.Run("timeout is connected but unreachable", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(release)
		base, _ := url.Parse(srv.URL)
		p := NewHTTPProber(base)
		p.Client.Timeout = 50 * time.Millisecond
		got := p.Probe(context.Background())
		assert.Equal(t, Reading{Connected: true, Reachable: Unreachable}, got)
	})
}
