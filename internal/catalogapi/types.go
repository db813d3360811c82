package catalogapi

import "time"

// Page is one normalized page of a paged endpoint.
type Page[T any] struct {
	Items         []T
	PageIndex     int
	TotalPages    int
	TotalElements int
	IsLast        bool
}

// Product is a catalog entry. Display fields are optional on the wire.
type Product struct {
	ID              string
	Name            string
	Description     string
	Price           *float64
	ImageURL        string
	Category        string
	Categories      []string
	AverageRating   *float64
	ReviewCount     int
	RatingBreakdown map[int]int
}

// Review is a product review.
type Review struct {
	ID           string
	ProductID    string
	ReviewerName string
	Rating       int
	Comment      string
	CreatedAt    time.Time
	HelpfulCount int
}

// Notification is a user notification as stored by the backend.
type Notification struct {
	ID        string
	Title     string
	Body      string
	Read      bool
	CreatedAt time.Time
	ProductID string
}

// Stats aggregates the catalog for the current filters.
type Stats struct {
	TotalProducts int
	TotalReviews  int
	AverageRating float64
}

// ProductQuery configures GET /api/products.
type ProductQuery struct {
	Page     int
	Size     int
	Sort     string
	Category string
	Search   string
}

// ReviewQuery configures GET /api/products/{id}/reviews.
type ReviewQuery struct {
	ProductID string
	Page      int
	Size      int
	Rating    int
}

// ReviewDraft is the payload of POST /api/products/{id}/reviews.
type ReviewDraft struct {
	ReviewerName string `json:"reviewerName"`
	Rating       int    `json:"rating"`
	Comment      string `json:"comment"`
}

// NotificationDraft is the payload of POST /api/user/notifications.
type NotificationDraft struct {
	Title     string `json:"title"`
	Message   string `json:"message"`
	ProductID *int64 `json:"productId,omitempty"`
}
