package mutation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigiterenyilmaz/intern-project-product-review/internal/catalogapi"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/errs"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/kv"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/prefs"
)

func review(id string, helpful int) catalogapi.Review {
	return catalogapi.Review{ID: id, HelpfulCount: helpful}
}

func storedVotes(t *testing.T, store kv.Store) []string {
	t.Helper()
	ids, ok := prefs.GetJSON[[]string](store, prefs.KeyVotes)
	require.True(t, ok)
	return ids
}

func TestVoteSyncsWithServerCount(t *testing.T) {
	h := newHarness(t, false)
	r := review("r1", 3)
	h.e.Votes.Seed([]catalogapi.Review{r})

	in := h.e.VoteHelpful(r)
	assert.Equal(t, Reconciling, in.Status)
	assert.True(t, h.e.Votes.HasVoted("r1"))
	assert.Equal(t, 4, h.e.Votes.Count("r1", 3))
	assert.Equal(t, []string{"r1"}, storedVotes(t, h.store))

	c := h.nextCall("helpful")
	c.reply <- reply{review: review("r1", 7)}
	h.step()

	got, _ := h.e.Tracker.Get(in.ID)
	assert.Equal(t, Synced, got.Status)
	assert.Equal(t, 7, h.e.Votes.Count("r1", 3))
}

func TestVoteRollbackRestoresSnapshot(t *testing.T) {
	h := newHarness(t, false)
	r := review("r1", 3)
	h.e.Votes.Seed([]catalogapi.Review{r})

	in := h.e.VoteHelpful(r)
	c := h.nextCall("helpful")
	c.reply <- reply{err: errs.Server(500, "boom")}
	h.step()

	got, _ := h.e.Tracker.Get(in.ID)
	assert.Equal(t, RolledBack, got.Status)
	assert.False(t, h.e.Votes.HasVoted("r1"))
	assert.Equal(t, 3, h.e.Votes.Count("r1", 3))
	assert.Empty(t, storedVotes(t, h.store))
	assert.Equal(t, "Server error (500)", errs.Message(h.lastErr()))
}

func TestVoteDoubleToggleConverges(t *testing.T) {
	h := newHarness(t, false)
	r := review("r1", 3)
	h.e.Votes.Seed([]catalogapi.Review{r})

	first := h.e.VoteHelpful(r)
	c1 := h.nextCall("helpful")
	second := h.e.VoteHelpful(r)
	assert.False(t, h.e.Votes.HasVoted("r1"))
	assert.Equal(t, 3, h.e.Votes.Count("r1", 3))
	h.noCalls()

	c1.reply <- reply{review: review("r1", 4)}
	h.step()
	c2 := h.nextCall("helpful")
	c2.reply <- reply{review: review("r1", 3)}
	h.step()
	h.noCalls()

	assert.False(t, h.e.Votes.HasVoted("r1"))
	assert.Equal(t, 3, h.e.Votes.Count("r1", 0))
	for _, id := range []string{first.ID, second.ID} {
		got, _ := h.e.Tracker.Get(id)
		assert.Equal(t, Synced, got.Status)
	}
}

func TestVoteOfflineRollsBackWithoutCall(t *testing.T) {
	h := newHarness(t, false)
	h.offline = true

	in := h.e.VoteHelpful(review("r1", 0))
	h.noCalls()

	assert.Equal(t, RolledBack, in.Status)
	assert.True(t, errs.Is(in.Err, errs.NetworkUnavailable))
	assert.False(t, h.e.Votes.HasVoted("r1"))
	assert.Equal(t, 0, h.e.Votes.Count("r1", 0))
}

func TestRetryFailedReissuesVote(t *testing.T) {
	h := newHarness(t, false)
	r := review("r1", 2)
	h.e.Votes.Seed([]catalogapi.Review{r})
	h.offline = true
	h.e.VoteHelpful(r)
	h.offline = false

	assert.Equal(t, 1, h.e.RetryFailed())
	assert.True(t, h.e.Votes.HasVoted("r1"))
	assert.Equal(t, 3, h.e.Votes.Count("r1", 2))
	c := h.nextCall("helpful")
	c.reply <- reply{review: review("r1", 3)}
	h.step()

	assert.Zero(t, h.e.RetryFailed())
	h.noCalls()
}

func TestLoadVotesReplacesCache(t *testing.T) {
	store := &kv.MemoryStore{}
	require.NoError(t, prefs.SetJSON(store, prefs.KeyVotes, []string{"r1", "r2"}))
	h := newHarnessWithStore(t, false, store)
	assert.True(t, h.e.Votes.HasVoted("r1"))

	h.e.LoadVotes()
	c := h.nextCall("voted")
	c.reply <- reply{ids: []string{"r2", "r3"}}
	h.step()

	assert.Equal(t, []string{"r2", "r3"}, h.e.Votes.Voted())
	assert.Equal(t, []string{"r2", "r3"}, storedVotes(t, store))

	// The server says r3 is voted, so un-voting it takes one call.
	h.e.VoteHelpful(review("r3", 1))
	c = h.nextCall("helpful")
	assert.Equal(t, "r3", c.id)
}

func TestLoadVotesFailureKeepsCache(t *testing.T) {
	store := &kv.MemoryStore{}
	require.NoError(t, prefs.SetJSON(store, prefs.KeyVotes, []string{"r1"}))
	h := newHarnessWithStore(t, false, store)

	h.e.LoadVotes()
	c := h.nextCall("voted")
	c.reply <- reply{err: errs.Offline()}
	h.step()

	assert.Equal(t, []string{"r1"}, h.e.Votes.Voted())
}

func TestVoteRollbackAfterPartialRunKeepsLandedCount(t *testing.T) {
	h := newHarness(t, false)
	r := review("r1", 3)
	h.e.Votes.Seed([]catalogapi.Review{r})

	h.e.VoteHelpful(r)
	c1 := h.nextCall("helpful")
	second := h.e.VoteHelpful(r)
	assert.Equal(t, 3, h.e.Votes.Count("r1", 3))

	c1.reply <- reply{review: review("r1", 4)}
	h.step()
	c2 := h.nextCall("helpful")
	c2.reply <- reply{err: errs.Server(500, "boom")}
	h.step()
	h.noCalls()

	got, _ := h.e.Tracker.Get(second.ID)
	assert.Equal(t, RolledBack, got.Status)
	assert.True(t, h.e.Votes.HasVoted("r1"))
	assert.Equal(t, 4, h.e.Votes.Count("r1", 3))
	assert.Equal(t, []string{"r1"}, storedVotes(t, h.store))
}

func TestVoteRollbackWithoutResultDerivesCount(t *testing.T) {
	h := newHarness(t, false)
	r := review("r1", 3)
	h.e.Votes.Seed([]catalogapi.Review{r})

	h.e.VoteHelpful(r)
	c1 := h.nextCall("helpful")
	h.e.VoteHelpful(r)

	c1.reply <- reply{review: review("other", 99)}
	h.step()
	c2 := h.nextCall("helpful")
	c2.reply <- reply{err: errs.Server(500, "boom")}
	h.step()

	assert.True(t, h.e.Votes.HasVoted("r1"))
	assert.Equal(t, 4, h.e.Votes.Count("r1", 3))
}
