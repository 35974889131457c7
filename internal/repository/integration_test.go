package repository_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgo/haven/api/internal/database"
	"github.com/forgo/haven/api/internal/model"
	"github.com/forgo/haven/api/internal/repository"
	"github.com/forgo/haven/api/internal/testing/fixtures"
	"github.com/forgo/haven/api/internal/testing/testdb"
)

// ============================================================================
// Store
// ============================================================================

func TestStore_TransitionOrderIsConditional(t *testing.T) {
	tdb := testdb.New(t)
	f := fixtures.New(tdb.DB)
	repo := repository.NewStoreRepository(tdb.DB)

	buyer := f.CreateUser(t)
	order := f.CreatePendingOrder(t, buyer, f.CreateProduct(t, 500))

	ok, err := repo.TransitionOrder(tdb.Ctx(), order.ID, model.OrderPendingPayment, model.OrderPaymentComplete)
	require.NoError(t, err)
	assert.True(t, ok)

	// second delivery of the same transition is a no-op
	ok, err = repo.TransitionOrder(tdb.Ctx(), order.ID, model.OrderPendingPayment, model.OrderPaymentComplete)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.GetOrder(tdb.Ctx(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderPaymentComplete, got.Status)
	assert.NotNil(t, got.PaidOn)
}

func TestStore_SessionLedger(t *testing.T) {
	tdb := testdb.New(t)
	repo := repository.NewStoreRepository(tdb.DB)

	fresh, err := repo.MarkSessionProcessed(tdb.Ctx(), "cs_1|checkout.session.completed", "store_order")
	require.NoError(t, err)
	assert.True(t, fresh)

	fresh, err = repo.MarkSessionProcessed(tdb.Ctx(), "cs_1|checkout.session.completed", "store_order")
	require.NoError(t, err)
	assert.False(t, fresh)

	require.NoError(t, repo.UnmarkSessionProcessed(tdb.Ctx(), "cs_1|checkout.session.completed"))
	fresh, err = repo.MarkSessionProcessed(tdb.Ctx(), "cs_1|checkout.session.completed", "store_order")
	require.NoError(t, err)
	assert.True(t, fresh)
}

func TestStore_CancelStaleOrders(t *testing.T) {
	tdb := testdb.New(t)
	f := fixtures.New(tdb.DB)
	repo := repository.NewStoreRepository(tdb.DB)

	order := f.CreatePendingOrder(t, f.CreateUser(t), f.CreateProduct(t, 300))

	n, err := repo.CancelStaleOrders(tdb.Ctx(), time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = repo.CancelStaleOrders(tdb.Ctx(), time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := repo.GetOrder(tdb.Ctx(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderCancelled, got.Status)
}

// ============================================================================
// Suggestions
// ============================================================================

func TestSuggestion_OneVotePerUser(t *testing.T) {
	tdb := testdb.New(t)
	f := fixtures.New(tdb.DB)
	repo := repository.NewSuggestionRepository(tdb.DB)

	author := f.CreateUser(t)
	voter := f.CreateUser(t)

	s := &model.Suggestion{AuthorID: author.ID, Title: "Dark mode", Description: "Easier at night"}
	require.NoError(t, repo.Create(tdb.Ctx(), s))

	require.NoError(t, repo.AddVote(tdb.Ctx(), s.ID, voter.ID))
	err := repo.AddVote(tdb.Ctx(), s.ID, voter.ID)
	assert.True(t, errors.Is(err, database.ErrDuplicate))

	got, err := repo.RecountVotes(tdb.Ctx(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.VoteCount)

	removed, err := repo.RemoveVote(tdb.Ctx(), s.ID, voter.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	got, err = repo.RecountVotes(tdb.Ctx(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.VoteCount)
}

// ============================================================================
// Meetups
// ============================================================================

func TestMeetup_WaitlistPromotion(t *testing.T) {
	tdb := testdb.New(t)
	f := fixtures.New(tdb.DB)
	repo := repository.NewMeetupRepository(tdb.DB)

	organizer := f.CreateUser(t)
	meetup := f.CreateMeetup(t, organizer, func(o *fixtures.MeetupOpts) { o.MaxAttendees = 1 })
	first := f.CreateUser(t)
	second := f.CreateUser(t)

	require.NoError(t, repo.CreateRSVP(tdb.Ctx(), &model.RSVP{MeetupID: meetup.ID, UserID: first.ID, Status: model.RSVPAttending}))
	require.NoError(t, repo.CreateRSVP(tdb.Ctx(), &model.RSVP{MeetupID: meetup.ID, UserID: second.ID, Status: model.RSVPWaitlist}))

	rsvp, err := repo.GetRSVP(tdb.Ctx(), meetup.ID, first.ID)
	require.NoError(t, err)
	require.NoError(t, repo.DeleteRSVP(tdb.Ctx(), rsvp.ID))

	promoted, err := repo.PromoteNextWaitlisted(tdb.Ctx(), meetup.ID)
	require.NoError(t, err)
	require.NotNil(t, promoted)
	assert.Equal(t, second.ID, promoted.UserID)
	assert.Equal(t, model.RSVPAttending, promoted.Status)

	count, err := repo.RecountAttendees(tdb.Ctx(), meetup.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMemorial_SlugIsUnique(t *testing.T) {
	tdb := testdb.New(t)
	f := fixtures.New(tdb.DB)
	repo := repository.NewMemorialRepository(tdb.DB)

	owner := f.CreateUser(t)
	m := f.CreateMemorial(t, owner)

	dup := &model.Memorial{OwnerID: owner.ID, Name: "Other", Slug: m.Slug, Visibility: model.MemorialPrivate}
	err := repo.Create(tdb.Ctx(), dup)
	assert.True(t, errors.Is(err, database.ErrDuplicate))
}
