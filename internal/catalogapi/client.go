package catalogapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/yigiterenyilmaz/intern-project-product-review/internal/errs"
)

// Client talks to the catalog REST API. Every request carries the user id in
// the X-User-ID header.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	userID    string
}

const (
	defaultBaseURL   = "http://127.0.0.1:8080"
	defaultUserAgent = "catalog/0.1"
	requestTimeout   = 10 * time.Second

	// UserHeader identifies the user to the backend.
	UserHeader = "X-User-ID"
)

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if strings.TrimSpace(ua) != "" {
			c.userAgent = ua
		}
	}
}

// NewClient builds a Client for baseURL acting as userID.
func NewClient(baseURL, userID string, opts ...Option) (*Client, error) {
	base, err := ParseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:   base,
		http:      &http.Client{Timeout: requestTimeout},
		userAgent: defaultUserAgent,
		userID:    strings.TrimSpace(userID),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the resolved API origin.
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

// UserID returns the id sent with every request.
func (c *Client) UserID() string { return c.userID }

// ListProducts retrieves one page of the catalog.
func (c *Client) ListProducts(ctx context.Context, q ProductQuery) (Page[Product], error) {
	values := url.Values{}
	values.Set("page", strconv.Itoa(q.Page))
	if q.Size > 0 {
		values.Set("size", strconv.Itoa(q.Size))
	}
	if sort := strings.TrimSpace(q.Sort); sort != "" {
		values.Set("sort", sort)
	}
	if cat := strings.TrimSpace(q.Category); cat != "" && !strings.EqualFold(cat, "All") {
		values.Set("category", cat)
	}
	if search := strings.TrimSpace(q.Search); search != "" {
		values.Set("search", search)
	}
	raw, err := c.doURL(ctx, http.MethodGet, &url.URL{Path: "/api/products", RawQuery: values.Encode()}, nil)
	if err != nil {
		return Page[Product]{}, err
	}
	page, err := normalizePage(raw.body, normalizeProduct)
	if err != nil {
		return Page[Product]{}, raw.decodeErr(err)
	}
	return page, nil
}

// GetProduct retrieves a single product.
func (c *Client) GetProduct(ctx context.Context, id string) (Product, error) {
	raw, err := c.do(ctx, http.MethodGet, "/api/products/"+url.PathEscape(id), nil)
	if err != nil {
		return Product{}, err
	}
	p, err := normalizeProduct(raw.body)
	if err != nil {
		return Product{}, raw.decodeErr(err)
	}
	return p, nil
}

// ProductStats retrieves aggregate figures for the given filters.
func (c *Client) ProductStats(ctx context.Context, category, search string) (Stats, error) {
	values := url.Values{}
	if cat := strings.TrimSpace(category); cat != "" && !strings.EqualFold(cat, "All") {
		values.Set("category", cat)
	}
	if s := strings.TrimSpace(search); s != "" {
		values.Set("search", s)
	}
	raw, err := c.doURL(ctx, http.MethodGet, &url.URL{Path: "/api/products/stats", RawQuery: values.Encode()}, nil)
	if err != nil {
		return Stats{}, err
	}
	s, err := normalizeStats(raw.body)
	if err != nil {
		return Stats{}, raw.decodeErr(err)
	}
	return s, nil
}

// ListReviews retrieves one page of a product's reviews.
func (c *Client) ListReviews(ctx context.Context, q ReviewQuery) (Page[Review], error) {
	values := url.Values{}
	values.Set("page", strconv.Itoa(q.Page))
	if q.Size > 0 {
		values.Set("size", strconv.Itoa(q.Size))
	}
	if q.Rating >= 1 && q.Rating <= 5 {
		values.Set("rating", strconv.Itoa(q.Rating))
	}
	rel := &url.URL{Path: "/api/products/" + url.PathEscape(q.ProductID) + "/reviews", RawQuery: values.Encode()}
	raw, err := c.doURL(ctx, http.MethodGet, rel, nil)
	if err != nil {
		return Page[Review]{}, err
	}
	page, err := normalizePage(raw.body, normalizeReview)
	if err != nil {
		return Page[Review]{}, raw.decodeErr(err)
	}
	return page, nil
}

// SubmitReview posts a new review and returns the stored copy.
func (c *Client) SubmitReview(ctx context.Context, productID string, draft ReviewDraft) (Review, error) {
	raw, err := c.do(ctx, http.MethodPost, "/api/products/"+url.PathEscape(productID)+"/reviews", draft)
	if err != nil {
		return Review{}, err
	}
	r, err := normalizeReview(raw.body)
	if err != nil {
		return Review{}, raw.decodeErr(err)
	}
	return r, nil
}

// ToggleHelpful flips the caller's helpful vote on a review. The server
// toggles on every call, so this is not idempotent.
func (c *Client) ToggleHelpful(ctx context.Context, reviewID string) (Review, error) {
	raw, err := c.do(ctx, http.MethodPut, "/api/products/reviews/"+url.PathEscape(reviewID)+"/helpful", nil)
	if err != nil {
		return Review{}, err
	}
	if len(bytes.TrimSpace(raw.body)) == 0 {
		return Review{ID: reviewID}, nil
	}
	r, err := normalizeReview(raw.body)
	if err != nil {
		return Review{}, raw.decodeErr(err)
	}
	return r, nil
}

// VotedReviews lists the review ids the caller has marked helpful.
func (c *Client) VotedReviews(ctx context.Context) ([]string, error) {
	raw, err := c.do(ctx, http.MethodGet, "/api/products/reviews/voted", nil)
	if err != nil {
		return nil, err
	}
	ids, err := normalizeIDs(raw.body)
	if err != nil {
		return nil, raw.decodeErr(err)
	}
	return ids, nil
}

// ListNotifications retrieves the caller's notifications.
func (c *Client) ListNotifications(ctx context.Context) ([]Notification, error) {
	raw, err := c.do(ctx, http.MethodGet, "/api/user/notifications", nil)
	if err != nil {
		return nil, err
	}
	list, err := normalizeList(raw.body, normalizeNotification)
	if err != nil {
		return nil, raw.decodeErr(err)
	}
	return list, nil
}

// CreateNotification stores a new notification. The backend does not echo
// the created entity; callers reload the list.
func (c *Client) CreateNotification(ctx context.Context, draft NotificationDraft) error {
	_, err := c.do(ctx, http.MethodPost, "/api/user/notifications", draft)
	return err
}

// MarkNotificationRead marks one notification read.
func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodPut, "/api/user/notifications/"+url.PathEscape(id)+"/read", nil)
	return err
}

// MarkAllNotificationsRead marks every notification read.
func (c *Client) MarkAllNotificationsRead(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPut, "/api/user/notifications/read-all", nil)
	return err
}

// DeleteNotification removes one notification.
func (c *Client) DeleteNotification(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/user/notifications/"+url.PathEscape(id), nil)
	return err
}

// DeleteAllNotifications removes every notification.
func (c *Client) DeleteAllNotifications(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/user/notifications", nil)
	return err
}

// Wishlist lists the product ids on the server-side wishlist.
func (c *Client) Wishlist(ctx context.Context) ([]string, error) {
	raw, err := c.do(ctx, http.MethodGet, "/api/user/wishlist", nil)
	if err != nil {
		return nil, err
	}
	ids, err := normalizeIDs(raw.body)
	if err != nil {
		return nil, raw.decodeErr(err)
	}
	return ids, nil
}

// ToggleWishlist flips membership of productID on the server-side wishlist.
// Like ToggleHelpful it is not idempotent.
func (c *Client) ToggleWishlist(ctx context.Context, productID string) error {
	_, err := c.do(ctx, http.MethodPost, "/api/user/wishlist/"+url.PathEscape(productID), nil)
	return err
}

type response struct {
	path   string
	status int
	body   json.RawMessage
}

func (r response) decodeErr(err error) error {
	return errs.WrapServer(err, r.status, fmt.Sprintf("decode %s response", r.path))
}

func (c *Client) do(ctx context.Context, method, path string, payload any) (response, error) {
	rel := &url.URL{Path: path}
	return c.doURL(ctx, method, rel, payload)
}

func (c *Client) doURL(ctx context.Context, method string, rel *url.URL, payload any) (response, error) {
	reqURL := c.baseURL.ResolveReference(rel)

	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return response{}, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), body)
	if err != nil {
		return response{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userID != "" {
		req.Header.Set(UserHeader, c.userID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return response{}, errs.Unavailable(err, "execute request")
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return response{}, errs.Unavailable(err, "read response")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return response{}, errs.Server(resp.StatusCode, fmt.Sprintf("api %s %s returned status %d", method, rel.Path, resp.StatusCode))
	}
	return response{path: rel.Path, status: resp.StatusCode, body: data}, nil
}

// ParseBaseURL turns a host:port or URL into the API origin.
func ParseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = defaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api_base_url %q: %w", raw, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse api_base_url %q: missing host", raw)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
