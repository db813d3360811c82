package catalogapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/oapi-codegen/nullable"
)

// Alias tables. The backend has shipped several spellings of the same
// field; the first name present with a usable value wins.
var (
	ItemsFields         = []string{"content", "items"}
	PageIndexFields     = []string{"number", "page"}
	TotalPagesFields    = []string{"totalPages"}
	TotalElementsFields = []string{"totalElements", "total"}
	LastFields          = []string{"last"}

	ImageFields        = []string{"imageUrl", "image", "thumbnailUrl"}
	CategoryListFields = []string{"categories"}
	CategoryFields     = []string{"category"}
	ReviewCountFields  = []string{"reviewCount", "totalReviews"}
	RatingFields       = []string{"averageRating"}

	ReviewerFields     = []string{"reviewerName", "userName"}
	HelpfulCountFields = []string{"helpfulCount", "helpful"}

	NotificationReadFields = []string{"isRead", "read"}
	NotificationBodyFields = []string{"message", "body"}
	TimestampFields        = []string{"createdAt", "timestamp"}
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

type fields map[string]json.RawMessage

func decodeFields(raw json.RawMessage) (fields, error) {
	var f fields
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	return f, nil
}

// pick returns the first alias in names whose value is present, non-null
// and decodes as T. Mismatched types fall through to the next alias.
func pick[T any](f fields, names ...string) (T, bool) {
	var zero T
	for _, name := range names {
		raw, ok := f[name]
		if !ok {
			continue
		}
		var v nullable.Nullable[T]
		if err := json.Unmarshal(raw, &v); err != nil {
			continue
		}
		if !v.IsSpecified() || v.IsNull() {
			continue
		}
		return v.MustGet(), true
	}
	return zero, false
}

func pickString(f fields, names ...string) string {
	for _, name := range names {
		if s, ok := pick[string](f, name); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

func pickInt(f fields, names ...string) (int, bool) {
	v, ok := pick[float64](f, names...)
	if !ok {
		return 0, false
	}
	return int(v), true
}

func pickTime(f fields, names ...string) time.Time {
	for _, name := range names {
		s, ok := pick[string](f, name)
		if !ok {
			continue
		}
		if t, ok := parseTime(s); ok {
			return t
		}
	}
	return time.Time{}
}

func parseTime(s string) (time.Time, bool) {
	trimmed := strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ID is an entity identifier. The backend sends numeric ids; locally created
// entities use strings. Both decode to the same canonical string.
type ID string

// UnmarshalJSON accepts a JSON number or string.
func (id *ID) UnmarshalJSON(data []byte) error {
	s, err := decodeID(data)
	if err != nil {
		return err
	}
	*id = ID(s)
	return nil
}

func decodeID(data []byte) (string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", fmt.Errorf("id is null")
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", err
		}
		return strings.TrimSpace(s), nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return "", err
	}
	if i, err := n.Int64(); err == nil {
		return strconv.FormatInt(i, 10), nil
	}
	if f, err := n.Float64(); err == nil && f == math.Trunc(f) {
		return strconv.FormatInt(int64(f), 10), nil
	}
	return n.String(), nil
}

func pickID(f fields, names ...string) string {
	for _, name := range names {
		raw, ok := f[name]
		if !ok {
			continue
		}
		if s, err := decodeID(raw); err == nil && s != "" {
			return s
		}
	}
	return ""
}

func normalizeProduct(raw json.RawMessage) (Product, error) {
	f, err := decodeFields(raw)
	if err != nil {
		return Product{}, err
	}
	p := Product{
		ID:          pickID(f, "id"),
		Name:        pickString(f, "name"),
		Description: pickString(f, "description"),
		ImageURL:    pickString(f, ImageFields...),
	}
	if p.ID == "" {
		return Product{}, fmt.Errorf("product without id")
	}
	if price, ok := pick[float64](f, "price"); ok {
		p.Price = &price
	}
	if cats, ok := pick[[]string](f, CategoryListFields...); ok {
		for _, c := range cats {
			if c = strings.TrimSpace(c); c != "" {
				p.Categories = append(p.Categories, c)
			}
		}
	}
	if len(p.Categories) > 0 {
		p.Category = p.Categories[0]
	} else {
		p.Category = pickString(f, CategoryFields...)
	}
	if r, ok := pick[float64](f, RatingFields...); ok {
		p.AverageRating = &r
	}
	p.ReviewCount, _ = pickInt(f, ReviewCountFields...)
	if breakdown, ok := pick[map[string]float64](f, "ratingBreakdown"); ok {
		p.RatingBreakdown = make(map[int]int, len(breakdown))
		for k, v := range breakdown {
			star, err := strconv.Atoi(k)
			if err != nil || star < 1 || star > 5 {
				continue
			}
			p.RatingBreakdown[star] = int(v)
		}
	}
	return p, nil
}

func normalizeReview(raw json.RawMessage) (Review, error) {
	f, err := decodeFields(raw)
	if err != nil {
		return Review{}, err
	}
	r := Review{
		ID:           pickID(f, "id"),
		ProductID:    pickID(f, "productId"),
		ReviewerName: pickString(f, ReviewerFields...),
		Comment:      pickString(f, "comment"),
		CreatedAt:    pickTime(f, TimestampFields...),
	}
	if r.ID == "" {
		return Review{}, fmt.Errorf("review without id")
	}
	r.Rating, _ = pickInt(f, "rating")
	r.HelpfulCount, _ = pickInt(f, HelpfulCountFields...)
	return r, nil
}

func normalizeNotification(raw json.RawMessage) (Notification, error) {
	f, err := decodeFields(raw)
	if err != nil {
		return Notification{}, err
	}
	n := Notification{
		ID:        pickID(f, "id"),
		Title:     pickString(f, "title"),
		Body:      pickString(f, NotificationBodyFields...),
		CreatedAt: pickTime(f, TimestampFields...),
		ProductID: pickID(f, "productId"),
	}
	if n.ID == "" {
		return Notification{}, fmt.Errorf("notification without id")
	}
	n.Read, _ = pick[bool](f, NotificationReadFields...)
	return n, nil
}

func normalizeStats(raw json.RawMessage) (Stats, error) {
	f, err := decodeFields(raw)
	if err != nil {
		return Stats{}, err
	}
	var s Stats
	s.TotalProducts, _ = pickInt(f, "totalProducts")
	s.TotalReviews, _ = pickInt(f, "totalReviews")
	s.AverageRating, _ = pick[float64](f, "averageRating")
	return s, nil
}

// normalizePage decodes a paged envelope or a bare array. Items that cannot
// be normalized are skipped.
func normalizePage[T any](raw json.RawMessage, item func(json.RawMessage) (T, error)) (Page[T], error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		items, err := normalizeList(trimmed, item)
		if err != nil {
			return Page[T]{}, err
		}
		return Page[T]{Items: items, TotalPages: 1, TotalElements: len(items), IsLast: true}, nil
	}

	f, err := decodeFields(trimmed)
	if err != nil {
		return Page[T]{}, err
	}
	var items []T
	for _, name := range ItemsFields {
		rawItems, ok := f[name]
		if !ok || bytes.Equal(bytes.TrimSpace(rawItems), []byte("null")) {
			continue
		}
		items, err = normalizeList(rawItems, item)
		if err != nil {
			continue
		}
		break
	}

	page := Page[T]{Items: items}
	page.PageIndex, _ = pickInt(f, PageIndexFields...)
	page.TotalPages, _ = pickInt(f, TotalPagesFields...)
	page.TotalElements, _ = pickInt(f, TotalElementsFields...)
	if last, ok := pick[bool](f, LastFields...); ok {
		page.IsLast = last
	} else {
		page.IsLast = page.PageIndex >= page.TotalPages-1
	}
	return page, nil
}

func normalizeList[T any](raw json.RawMessage, item func(json.RawMessage) (T, error)) ([]T, error) {
	var rawItems []json.RawMessage
	if err := json.Unmarshal(raw, &rawItems); err != nil {
		return nil, err
	}
	out := make([]T, 0, len(rawItems))
	for _, r := range rawItems {
		v, err := item(r)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func normalizeIDs(raw json.RawMessage) ([]string, error) {
	var ids []ID
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			out = append(out, string(id))
		}
	}
	return out, nil
}
