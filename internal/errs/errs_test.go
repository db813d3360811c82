package errs

import (
	stderrs "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorRendering(t *testing.T) {
	var e *Error
	assert.Equal(t, "<nil>", e.Error())

	src := stderrs.New("root")
	err := Wrapf(src, Persistence, "write %s", "prefs/theme")
	assert.Equal(t, "write prefs/theme: root", err.Error())
	assert.Same(t, src, stderrs.Unwrap(err))
	assert.Equal(t, "bad 3", Newf(Validation, "bad %d", 3).Error())
}

func TestKindOfThroughWrapping(t *testing.T) {
	inner := Server(http.StatusBadGateway, "list products")
	outer := fmt.Errorf("fetch page: %w", inner)

	assert.Equal(t, ServerError, KindOf(outer))
	assert.True(t, Is(outer, ServerError))
	assert.Equal(t, http.StatusBadGateway, StatusOf(outer))

	got, ok := As(outer)
	require.True(t, ok)
	assert.Equal(t, ServerError, got.Kind())

	assert.Equal(t, Unknown, KindOf(stderrs.New("plain")))
	assert.False(t, Is(nil, Unknown))
	assert.Equal(t, 0, StatusOf(stderrs.New("plain")))
}

func TestInvalidCarriesField(t *testing.T) {
	err := Invalid("comment", "comment must be at least 10 characters")
	e, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, "comment", e.Field())
	assert.Equal(t, Validation, e.Kind())
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"offline", Offline(), true},
		{"transport", Unavailable(stderrs.New("dial"), "list products"), true},
		{"5xx", Server(http.StatusServiceUnavailable, "x"), true},
		{"4xx", Server(http.StatusNotFound, "x"), false},
		{"validation", Invalid("title", "required"), false},
		{"stale", Stale("superseded"), false},
		{"foreign", stderrs.New("x"), false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, Retryable(c.err))
		})
	}
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "", Message(nil))
	assert.Equal(t, "You appear to be offline", Message(Offline()))
	assert.Equal(t, "Server error (500)", Message(Server(500, "boom")))
	assert.Equal(t, "title is required", Message(Invalid("title", "title is required")))
	assert.Equal(t, "plain", Message(stderrs.New("plain")))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "network_unavailable", NetworkUnavailable.String())
	assert.Equal(t, "stale_response_discarded", StaleResponseDiscarded.String())
	assert.Equal(t, "unknown", Kind(99).String())
}
