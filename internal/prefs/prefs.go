// Package prefs is the typed adapter over the key-value store. Reads never
// fail: a missing, malformed or out-of-range value reads as the default.
// Writes go through a Sink so they never block the engine loop.
package prefs

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/yigiterenyilmaz/intern-project-product-review/internal/errs"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/kv"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/query"
)

// Keys used by the client.
const (
	KeyTheme    = "prefs/theme"
	KeySort     = "prefs/sort"
	KeyGrid     = "prefs/grid"
	KeyHistory  = "search/history"
	KeyWishlist = "wishlist/items"
	KeyVotes    = "votes/helpful"
	KeyUser     = "identity/user"
)

// Theme is the color scheme preference.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

const (
	defaultTheme = ThemeLight
	defaultGrid  = 2
	minGrid      = 1
	maxGrid      = 3
)

// Sink accepts asynchronous writes. *kv.Writer implements it.
type Sink interface {
	Set(key string, value []byte)
	Remove(key string)
}

var _ Sink = (*kv.Writer)(nil)

// Prefs holds the display preferences in memory and writes changes through
// sink. The store is read once, in New.
type Prefs struct {
	store kv.Store
	sink  Sink

	theme Theme
	sort  query.SortKey
	grid  int
}

// New returns a Prefs adapter seeded from store.
func New(store kv.Store, sink Sink) *Prefs {
	return &Prefs{
		store: store,
		sink:  sink,
		theme: loadTheme(store),
		sort:  loadSort(store),
		grid:  loadGrid(store),
	}
}

// Store exposes the underlying store for other typed adapters.
func (p *Prefs) Store() kv.Store { return p.store }

// Sink exposes the write path for other typed adapters.
func (p *Prefs) Sink() Sink { return p.sink }

// Theme returns the current theme.
func (p *Prefs) Theme() Theme { return p.theme }

// SetTheme records and persists t. Unknown themes are ignored.
func (p *Prefs) SetTheme(t Theme) {
	if t != ThemeLight && t != ThemeDark {
		return
	}
	p.theme = t
	p.put(KeyTheme, string(t))
}

// ToggleTheme flips between light and dark and returns the new theme.
func (p *Prefs) ToggleTheme() Theme {
	next := ThemeDark
	if p.theme == ThemeDark {
		next = ThemeLight
	}
	p.SetTheme(next)
	return next
}

// Sort returns the current sort key.
func (p *Prefs) Sort() query.SortKey { return p.sort }

// SaveSort records and persists k.
func (p *Prefs) SaveSort(k query.SortKey) {
	if !k.Valid() {
		return
	}
	p.sort = k
	p.put(KeySort, string(k))
}

// Grid returns the column count, 1 through 3.
func (p *Prefs) Grid() int { return p.grid }

// SetGrid records and persists n when it is in range.
func (p *Prefs) SetGrid(n int) {
	if n < minGrid || n > maxGrid {
		return
	}
	p.grid = n
	p.put(KeyGrid, n)
}

// CycleGrid advances the column count 1, 2, 3, 1 and returns it.
func (p *Prefs) CycleGrid() int {
	next := p.grid%maxGrid + 1
	p.SetGrid(next)
	return next
}

func loadTheme(store kv.Store) Theme {
	v, ok := GetJSON[string](store, KeyTheme)
	if !ok {
		return defaultTheme
	}
	switch t := Theme(strings.ToLower(strings.TrimSpace(v))); t {
	case ThemeLight, ThemeDark:
		return t
	default:
		return defaultTheme
	}
}

func loadSort(store kv.Store) query.SortKey {
	v, ok := GetJSON[string](store, KeySort)
	if !ok {
		return query.DefaultSort
	}
	k, ok := query.ParseSort(v)
	if !ok {
		return query.DefaultSort
	}
	return k
}

func loadGrid(store kv.Store) int {
	v, ok := GetJSON[int](store, KeyGrid)
	if !ok || v < minGrid || v > maxGrid {
		return defaultGrid
	}
	return v
}

// UserID returns the stored user id, generating and persisting one on first
// use. The write is synchronous: the id must survive a restart before any
// request carries it.
func (p *Prefs) UserID() (string, error) {
	if v, ok := GetJSON[string](p.store, KeyUser); ok && strings.TrimSpace(v) != "" {
		return v, nil
	}
	id := "user-" + uuid.NewString()
	if err := SetJSON(p.store, KeyUser, id); err != nil {
		return "", err
	}
	return id, nil
}

func (p *Prefs) put(key string, v any) {
	if p.sink == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	p.sink.Set(key, data)
}

// GetJSON decodes the value under key. Missing keys, read errors and values
// that do not decode as T all report ok=false.
func GetJSON[T any](store kv.Store, key string) (T, bool) {
	var zero T
	if store == nil {
		return zero, false
	}
	data, ok, err := store.Get(key)
	if err != nil || !ok {
		return zero, false
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return zero, false
	}
	return v, true
}

// SetJSON encodes v and writes it synchronously.
func SetJSON(store kv.Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errs.Persist(err, fmt.Sprintf("encode %s", key))
	}
	if err := store.Set(key, data); err != nil {
		return errs.Persist(err, fmt.Sprintf("write %s", key))
	}
	return nil
}

// PutJSON encodes v and queues it on sink.
func PutJSON(sink Sink, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errs.Persist(err, fmt.Sprintf("encode %s", key))
	}
	sink.Set(key, data)
	return nil
}
