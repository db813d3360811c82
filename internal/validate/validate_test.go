package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigiterenyilmaz/intern-project-product-review/internal/errs"
)

func fieldOf(t *testing.T, err error) string {
	t.Helper()
	require.Error(t, err)
	e, ok := errs.As(err)
	require.True(t, ok)
	assert.Equal(t, errs.Validation, e.Kind())
	return e.Field()
}

func TestReviewDraft(t *testing.T) {
	v := New()

	got, err := v.Review(ReviewDraft{Rating: 4, Comment: "  solid and bright  "})
	require.NoError(t, err)
	assert.Equal(t, AnonymousReviewer, got.ReviewerName)
	assert.Equal(t, "solid and bright", got.Comment)

	got, err = v.Review(ReviewDraft{ReviewerName: " Ada ", Rating: 5, Comment: strings.Repeat("x", 500)})
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.ReviewerName)

	cases := []struct {
		name  string
		draft ReviewDraft
		field string
	}{
		{"missing rating", ReviewDraft{Comment: "long enough text"}, "rating"},
		{"rating too high", ReviewDraft{Rating: 6, Comment: "long enough text"}, "rating"},
		{"comment too short after trim", ReviewDraft{Rating: 3, Comment: "   short    "}, "comment"},
		{"comment too long", ReviewDraft{Rating: 3, Comment: strings.Repeat("y", 501)}, "comment"},
		{"name too short", ReviewDraft{ReviewerName: "A", Rating: 3, Comment: "long enough text"}, "reviewerName"},
		{"name too long", ReviewDraft{ReviewerName: strings.Repeat("n", 51), Rating: 3, Comment: "long enough text"}, "reviewerName"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := v.Review(c.draft)
			assert.Equal(t, c.field, fieldOf(t, err))
		})
	}
}

func TestReviewMessageIsTranslated(t *testing.T) {
	_, err := New().Review(ReviewDraft{Rating: 2, Comment: "tiny"})
	require.Error(t, err)
	assert.Contains(t, errs.Message(err), "comment")
	assert.Contains(t, errs.Message(err), "10")
}

func TestNotificationDraft(t *testing.T) {
	v := New()
	got, err := v.Notification(NotificationDraft{Title: " Price drop ", Body: " Lamp is cheaper ", ProductID: "12"})
	require.NoError(t, err)
	assert.Equal(t, "Price drop", got.Title)
	assert.Equal(t, "Lamp is cheaper", got.Body)

	_, err = v.Notification(NotificationDraft{Title: "  ", Body: "b"})
	assert.Equal(t, "title", fieldOf(t, err))

	_, err = v.Notification(NotificationDraft{Title: strings.Repeat("t", 121), Body: "b"})
	assert.Equal(t, "title", fieldOf(t, err))

	_, err = v.Notification(NotificationDraft{Title: "t", Body: strings.Repeat("b", 1001)})
	assert.Equal(t, "body", fieldOf(t, err))

	_, err = v.Notification(NotificationDraft{Title: "t", Body: "b", ProductID: "abc"})
	assert.Equal(t, "productId", fieldOf(t, err))
}
