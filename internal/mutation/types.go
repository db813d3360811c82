package mutation

import (
	"context"
	"time"

	"github.com/yigiterenyilmaz/intern-project-product-review/internal/catalogapi"
)

// Kind names the user action behind an intent.
type Kind uint8

const (
	AddFavorite Kind = iota
	RemoveFavorite
	ToggleFavorite
	VoteHelpful
	MarkRead
	MarkAllRead
	Delete
	DeleteAll
	CreateNotification
)

func (k Kind) String() string {
	switch k {
	case AddFavorite:
		return "add_favorite"
	case RemoveFavorite:
		return "remove_favorite"
	case ToggleFavorite:
		return "toggle_favorite"
	case VoteHelpful:
		return "vote_helpful"
	case MarkRead:
		return "mark_read"
	case MarkAllRead:
		return "mark_all_read"
	case Delete:
		return "delete"
	case DeleteAll:
		return "delete_all"
	case CreateNotification:
		return "create_notification"
	default:
		return "unknown"
	}
}

// Status is an intent's reconciliation state.
type Status uint8

const (
	Pending Status = iota
	Reconciling
	Synced
	Failed
	RolledBack
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Reconciling:
		return "reconciling"
	case Synced:
		return "synced"
	case Failed:
		return "failed"
	case RolledBack:
		return "rolled_back"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition will happen.
func (s Status) Terminal() bool { return s == Synced || s == RolledBack }

// Intent is one user mutation and its progress.
type Intent struct {
	ID       string
	Kind     Kind
	Entities []string
	// Target is the desired boolean state for toggles: favorite membership,
	// helpful vote, or read flag.
	Target    bool
	Status    Status
	Err       error
	CreatedAt time.Time
}

// Source identifies which service published an Event.
type Source uint8

const (
	SourceFavorites Source = iota
	SourceVotes
	SourceNotifications
)

func (s Source) String() string {
	switch s {
	case SourceFavorites:
		return "favorites"
	case SourceVotes:
		return "votes"
	default:
		return "notifications"
	}
}

// Event reports a visible state change. Err is set when a mutation was
// rolled back and should be surfaced as a one-line message.
type Event struct {
	Source Source
	Intent *Intent
	Err    error
}

// Favorite is a locally stored wishlist entry.
type Favorite struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Price         *float64  `json:"price,omitempty"`
	ImageURL      string    `json:"imageUrl,omitempty"`
	Category      string    `json:"category,omitempty"`
	AverageRating *float64  `json:"averageRating,omitempty"`
	AddedAt       time.Time `json:"addedAt"`
}

// FavoriteFromProduct copies the display fields of p.
func FavoriteFromProduct(p catalogapi.Product) Favorite {
	return Favorite{
		ID:            p.ID,
		Name:          p.Name,
		Price:         p.Price,
		ImageURL:      p.ImageURL,
		Category:      p.Category,
		AverageRating: p.AverageRating,
	}
}

// Notification is the client's view of a notification.
type Notification struct {
	ID        string
	Title     string
	Body      string
	Read      bool
	CreatedAt time.Time
	ProductID string
}

// LocalIDPrefix marks notifications created on this device and not yet
// reloaded from the backend.
const LocalIDPrefix = "local-"

// IsLocal reports whether n has not been stored by the backend yet.
func (n Notification) IsLocal() bool {
	return isLocalID(n.ID)
}

func notificationFromAPI(n catalogapi.Notification) Notification {
	return Notification{
		ID:        n.ID,
		Title:     n.Title,
		Body:      n.Body,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
		ProductID: n.ProductID,
	}
}

// WishlistAPI is the server-side wishlist mirror.
type WishlistAPI interface {
	Wishlist(ctx context.Context) ([]string, error)
	ToggleWishlist(ctx context.Context, productID string) error
}

// VoteAPI is the helpful-vote surface.
type VoteAPI interface {
	ToggleHelpful(ctx context.Context, reviewID string) (catalogapi.Review, error)
	VotedReviews(ctx context.Context) ([]string, error)
}

// NotificationAPI is the notification surface.
type NotificationAPI interface {
	ListNotifications(ctx context.Context) ([]catalogapi.Notification, error)
	CreateNotification(ctx context.Context, draft catalogapi.NotificationDraft) error
	MarkNotificationRead(ctx context.Context, id string) error
	MarkAllNotificationsRead(ctx context.Context) error
	DeleteNotification(ctx context.Context, id string) error
	DeleteAllNotifications(ctx context.Context) error
}

// Connectivity reports whether server calls should be skipped.
type Connectivity interface {
	IsOffline() bool
}

func favoriteEntity(id string) string     { return "favorite/" + id }
func reviewEntity(id string) string       { return "review/" + id }
func notificationEntity(id string) string { return "notification/" + id }
