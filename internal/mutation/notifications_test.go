package mutation

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigiterenyilmaz/intern-project-product-review/internal/catalogapi"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/errs"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/validate"
)

func serverList() []catalogapi.Notification {
	return []catalogapi.Notification{
		{ID: "3", Title: "c"},
		{ID: "2", Title: "b", Read: true},
		{ID: "1", Title: "a"},
	}
}

func loaded(t *testing.T) *harness {
	h := newHarness(t, false)
	h.e.LoadNotifications()
	c := h.nextCall("list")
	c.reply <- reply{list: serverList()}
	h.step()
	require.True(t, h.e.Notifications.Loaded())
	return h
}

func notificationIDs(n *Notifications) []string {
	var out []string
	for _, it := range n.List() {
		out = append(out, it.ID)
	}
	return out
}

func readFlag(n *Notifications, id string) bool {
	for _, it := range n.List() {
		if it.ID == id {
			return it.Read
		}
	}
	return false
}

func TestUnreadCount(t *testing.T) {
	h := loaded(t)
	assert.Equal(t, 2, h.e.UnreadCount())
}

func TestMarkReadSynced(t *testing.T) {
	h := loaded(t)

	in := h.e.Notifications.MarkRead("1")
	assert.True(t, readFlag(h.e.Notifications, "1"))
	assert.Equal(t, 1, h.e.UnreadCount())
	c := h.nextCall("read")
	assert.Equal(t, "1", c.id)
	c.reply <- reply{}
	h.step()

	got, _ := h.e.Tracker.Get(in.ID)
	assert.Equal(t, Synced, got.Status)
}

func TestMarkReadOnReadEntryIsNoOp(t *testing.T) {
	h := loaded(t)

	in := h.e.Notifications.MarkRead("2")
	assert.Equal(t, Synced, in.Status)
	h.noCalls()
}

func TestMarkReadRollback(t *testing.T) {
	h := loaded(t)

	in := h.e.Notifications.MarkRead("1")
	c := h.nextCall("read")
	c.reply <- reply{err: errs.Server(503, "down")}
	h.step()

	got, _ := h.e.Tracker.Get(in.ID)
	assert.Equal(t, RolledBack, got.Status)
	assert.False(t, readFlag(h.e.Notifications, "1"))
	assert.Equal(t, 2, h.e.UnreadCount())
	assert.Equal(t, "Server error (503)", errs.Message(h.lastErr()))
}

func TestNewerIntentBlocksRollback(t *testing.T) {
	h := loaded(t)

	read := h.e.Notifications.MarkRead("1")
	readCall := h.nextCall("read")
	del := h.e.Notifications.Delete("1")
	delCall := h.nextCall("delete")

	readCall.reply <- reply{err: errs.Server(500, "boom")}
	h.step()
	assert.Equal(t, []string{"3", "2"}, notificationIDs(h.e.Notifications))
	got, _ := h.e.Tracker.Get(read.ID)
	assert.Equal(t, RolledBack, got.Status)

	delCall.reply <- reply{}
	h.step()
	got, _ = h.e.Tracker.Get(del.ID)
	assert.Equal(t, Synced, got.Status)
	assert.Equal(t, []string{"3", "2"}, notificationIDs(h.e.Notifications))
}

func TestDeleteRollbackRestoresPosition(t *testing.T) {
	h := loaded(t)

	h.e.Notifications.Delete("2")
	assert.Equal(t, []string{"3", "1"}, notificationIDs(h.e.Notifications))
	c := h.nextCall("delete")
	c.reply <- reply{err: errs.Offline()}
	h.step()

	assert.Equal(t, []string{"3", "2", "1"}, notificationIDs(h.e.Notifications))
	assert.Equal(t, "You appear to be offline", errs.Message(h.lastErr()))
}

func TestDeleteAllRollbackKeepsNewerCreate(t *testing.T) {
	h := loaded(t)

	all := h.e.Notifications.DeleteAll()
	assert.Empty(t, h.e.Notifications.List())
	allCall := h.nextCall("delete-all")
	created, err := h.e.CreateNotification(validate.NotificationDraft{Title: "new", Body: "hello"})
	require.NoError(t, err)
	createCall := h.nextCall("create")

	allCall.reply <- reply{err: errs.Server(500, "boom")}
	h.step()
	got, _ := h.e.Tracker.Get(all.ID)
	assert.Equal(t, RolledBack, got.Status)
	ids := notificationIDs(h.e.Notifications)
	require.Len(t, ids, 4)
	assert.True(t, strings.HasPrefix(ids[0], LocalIDPrefix))
	assert.Equal(t, []string{"3", "2", "1"}, ids[1:])

	createCall.reply <- reply{err: errs.Server(400, "bad")}
	h.step()
	got, _ = h.e.Tracker.Get(created.ID)
	assert.Equal(t, RolledBack, got.Status)
	assert.Equal(t, []string{"3", "2", "1"}, notificationIDs(h.e.Notifications))
}

func TestMarkAllReadRollback(t *testing.T) {
	h := loaded(t)

	h.e.Notifications.MarkAllRead()
	assert.Zero(t, h.e.UnreadCount())
	c := h.nextCall("read-all")
	c.reply <- reply{err: errs.Server(500, "boom")}
	h.step()

	assert.Equal(t, 2, h.e.UnreadCount())
	assert.True(t, readFlag(h.e.Notifications, "2"))
}

func TestCreateNotificationReloadsAfterSuccess(t *testing.T) {
	h := loaded(t)

	in, err := h.e.CreateNotification(validate.NotificationDraft{Title: " Price drop ", Body: "now cheaper", ProductID: "42"})
	require.NoError(t, err)
	assert.Equal(t, Reconciling, in.Status)
	first := h.e.Notifications.List()[0]
	assert.True(t, first.IsLocal())
	assert.Equal(t, "Price drop", first.Title)
	assert.Equal(t, "42", first.ProductID)

	c := h.nextCall("create")
	require.NotNil(t, c.draft.ProductID)
	assert.Equal(t, int64(42), *c.draft.ProductID)
	assert.Equal(t, "now cheaper", c.draft.Message)
	c.reply <- reply{}
	h.step()

	got, _ := h.e.Tracker.Get(in.ID)
	assert.Equal(t, Synced, got.Status)
	list := h.nextCall("list")
	list.reply <- reply{list: append([]catalogapi.Notification{{ID: "4", Title: "Price drop"}}, serverList()...)}
	h.step()
	assert.Equal(t, []string{"4", "3", "2", "1"}, notificationIDs(h.e.Notifications))
}

func TestCreateDuringLoadFetchesAgain(t *testing.T) {
	h := loaded(t)

	h.e.LoadNotifications()
	stale := h.nextCall("list")
	_, err := h.e.CreateNotification(validate.NotificationDraft{Title: "Restocked", Body: "back"})
	require.NoError(t, err)
	c := h.nextCall("create")
	c.reply <- reply{}
	h.step()

	stale.reply <- reply{list: serverList()}
	h.step()
	ids := notificationIDs(h.e.Notifications)
	require.Len(t, ids, 4)
	assert.True(t, strings.HasPrefix(ids[0], LocalIDPrefix))

	fresh := h.nextCall("list")
	fresh.reply <- reply{list: append([]catalogapi.Notification{{ID: "4", Title: "Restocked"}}, serverList()...)}
	h.step()
	assert.Equal(t, []string{"4", "3", "2", "1"}, notificationIDs(h.e.Notifications))
	h.noCalls()
}

func TestCreateNotificationInvalidDraft(t *testing.T) {
	h := loaded(t)

	_, err := h.e.CreateNotification(validate.NotificationDraft{Title: "", Body: "x"})
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.Validation))
	assert.Len(t, h.e.Notifications.List(), 3)
	h.noCalls()
}

func TestLocalNotificationSkipsServer(t *testing.T) {
	h := loaded(t)
	h.offline = true
	_, err := h.e.CreateNotification(validate.NotificationDraft{Title: "t", Body: "b"})
	require.NoError(t, err)
	// Offline creates roll back immediately.
	assert.Len(t, h.e.Notifications.List(), 3)

	h.offline = false
	h.e.Notifications.items = append([]Notification{{ID: LocalIDPrefix + "x", Title: "draft"}}, h.e.Notifications.items...)
	in := h.e.Notifications.MarkRead(LocalIDPrefix + "x")
	assert.Equal(t, Synced, in.Status)
	h.noCalls()
}

func TestRetryFailedReissuesNotificationChanges(t *testing.T) {
	h := loaded(t)
	h.offline = true
	h.e.Notifications.Delete("3")
	_, err := h.e.CreateNotification(validate.NotificationDraft{Title: "t", Body: "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "2", "1"}, notificationIDs(h.e.Notifications))
	h.noCalls()

	h.offline = false
	assert.Equal(t, 2, h.e.RetryFailed())
	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case c := <-h.api.calls:
			seen[c.op] = true
		case <-time.After(2 * time.Second):
			t.Fatal("no retry call")
		}
	}
	assert.Equal(t, map[string]bool{"delete": true, "create": true}, seen)
}

func TestLoadKeepsUnsettledDeltas(t *testing.T) {
	h := loaded(t)

	h.e.Notifications.MarkRead("1")
	readCall := h.nextCall("read")
	h.e.Notifications.Delete("3")
	delCall := h.nextCall("delete")

	h.e.LoadNotifications()
	list := h.nextCall("list")
	list.reply <- reply{list: serverList()}
	h.step()

	assert.Equal(t, []string{"2", "1"}, notificationIDs(h.e.Notifications))
	assert.True(t, readFlag(h.e.Notifications, "1"))

	readCall.reply <- reply{}
	delCall.reply <- reply{}
	h.step()
	h.step()
}
