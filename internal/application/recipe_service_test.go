package application

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitchendiary/kitchen-diary-api/internal/domain/apperr"
	"github.com/kitchendiary/kitchen-diary-api/internal/domain/entity"
	"github.com/kitchendiary/kitchen-diary-api/internal/infrastructure/memory"
)

type recipeFixture struct {
	svc   *RecipeService
	users *memory.UserStore
	alice *entity.User
	bob   *entity.User
	root  *entity.User
	ctx   context.Context
}

func newRecipeFixture(t *testing.T) *recipeFixture {
	t.Helper()
	users := memory.NewUserStore()
	recipes := memory.NewRecipeStore(func(authorID string) string {
		u, _ := users.GetByID(authorID)
		if u == nil {
			return ""
		}
		return u.Username
	})

	f := &recipeFixture{
		svc:   NewRecipeService(recipes, users, nil, nil, "", nil, ""),
		users: users,
		ctx:   context.Background(),
	}
	f.alice = f.addUser(t, "alice", false)
	f.bob = f.addUser(t, "bob", false)
	f.root = f.addUser(t, "root", true)
	return f
}

func (f *recipeFixture) addUser(t *testing.T, name string, isAdmin bool) *entity.User {
	t.Helper()
	u := &entity.User{
		Email:      name + "@example.com",
		Username:   name,
		FullName:   name,
		IsVerified: true,
		IsAdmin:    isAdmin,
	}
	require.NoError(t, f.users.Create(u))
	return u
}

func (f *recipeFixture) create(t *testing.T, author *entity.User, title, tier string) *entity.Recipe {
	t.Helper()
	rec, err := f.svc.Create(f.ctx, author.ID, CreateRecipeInput{Title: title, PriceTier: tier})
	require.NoError(t, err)
	return rec
}

func TestCreateRecipe(t *testing.T) {
	f := newRecipeFixture(t)

	rec, err := f.svc.Create(f.ctx, f.alice.ID, CreateRecipeInput{
		Title:       "pancakes",
		Ingredients: []string{"flour", "milk"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, f.alice.ID, rec.AuthorID)
	assert.Equal(t, entity.TierFree, rec.PriceTier)
	assert.False(t, rec.IsPublished)
	assert.Equal(t, "alice", rec.AuthorName)
}

func TestCreateRecipe_Validation(t *testing.T) {
	f := newRecipeFixture(t)

	_, err := f.svc.Create(f.ctx, f.alice.ID, CreateRecipeInput{Title: "   "})
	assert.True(t, apperr.Is(err, apperr.KindInvalid))

	_, err = f.svc.Create(f.ctx, f.alice.ID, CreateRecipeInput{Title: "x", PriceTier: "gold"})
	assert.True(t, apperr.Is(err, apperr.KindInvalid))

	_, err = f.svc.Create(f.ctx, "", CreateRecipeInput{Title: "x"})
	assert.True(t, apperr.Is(err, apperr.KindUnauthenticated))
}

func TestUpdateRecipe_OwnerAndNonOwner(t *testing.T) {
	f := newRecipeFixture(t)
	rec := f.create(t, f.alice, "pancakes", "free")

	got, err := f.svc.Update(f.ctx, f.alice.ID, rec.ID, UpdateRecipeInput{Title: "crepes"})
	require.NoError(t, err)
	assert.Equal(t, "crepes", got.Title)

	_, err = f.svc.Update(f.ctx, f.bob.ID, rec.ID, UpdateRecipeInput{Title: "stolen"})
	assert.True(t, apperr.Is(err, apperr.KindNotOwner))

	// admin may edit anyone's recipe
	got, err = f.svc.Update(f.ctx, f.root.ID, rec.ID, UpdateRecipeInput{Description: "moderated"})
	require.NoError(t, err)
	assert.Equal(t, "moderated", got.Description)
}

func TestRecipeOperations_MissingIDYieldsNotFoundBeforeAuth(t *testing.T) {
	f := newRecipeFixture(t)

	// even an anonymous or unauthorized caller learns only "not found"
	_, err := f.svc.Update(f.ctx, "", "missing", UpdateRecipeInput{Title: "x"})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	err = f.svc.Delete(f.ctx, f.bob.ID, "missing")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = f.svc.TogglePublish(f.ctx, "", "missing")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, _, err = f.svc.Vote(f.ctx, "", "missing")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestTogglePublish_Cycle(t *testing.T) {
	f := newRecipeFixture(t)
	rec := f.create(t, f.alice, "pancakes", "free")

	got, err := f.svc.TogglePublish(f.ctx, f.alice.ID, rec.ID)
	require.NoError(t, err)
	assert.True(t, got.IsPublished)

	got, err = f.svc.TogglePublish(f.ctx, f.alice.ID, rec.ID)
	require.NoError(t, err)
	assert.False(t, got.IsPublished)

	_, err = f.svc.TogglePublish(f.ctx, f.bob.ID, rec.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotOwner))
}

func TestTogglePublish_PremiumGoesThroughReview(t *testing.T) {
	f := newRecipeFixture(t)
	rec := f.create(t, f.alice, "truffle pasta", "premium")

	_, err := f.svc.TogglePublish(f.ctx, f.alice.ID, rec.ID)
	assert.True(t, apperr.Is(err, apperr.KindPremiumRequiresReview))

	// admin cannot use the plain toggle either
	_, err = f.svc.TogglePublish(f.ctx, f.root.ID, rec.ID)
	assert.True(t, apperr.Is(err, apperr.KindPremiumRequiresReview))

	// the override transition publishes it
	got, err := f.svc.PublishPremium(f.ctx, f.root.ID, rec.ID)
	require.NoError(t, err)
	assert.True(t, got.IsPublished)
	assert.True(t, got.PremiumStatus)
}

func TestReviewPremium(t *testing.T) {
	f := newRecipeFixture(t)
	free := f.create(t, f.alice, "pancakes", "free")
	premium := f.create(t, f.alice, "truffle pasta", "premium")

	_, err := f.svc.ReviewPremium(f.ctx, f.alice.ID, free.ID)
	assert.True(t, apperr.Is(err, apperr.KindAdminRequired))

	got, err := f.svc.ReviewPremium(f.ctx, f.root.ID, free.ID)
	require.NoError(t, err)
	assert.True(t, got.IsPublished)

	// reviewing again stays published
	got, err = f.svc.ReviewPremium(f.ctx, f.root.ID, free.ID)
	require.NoError(t, err)
	assert.True(t, got.IsPublished)

	// the review guard only accepts free-tier content
	_, err = f.svc.ReviewPremium(f.ctx, f.root.ID, premium.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotAuthorized))
}

func TestVote_ToggleAndSelfVote(t *testing.T) {
	f := newRecipeFixture(t)
	rec := f.create(t, f.alice, "pancakes", "free")

	got, voted, err := f.svc.Vote(f.ctx, f.bob.ID, rec.ID)
	require.NoError(t, err)
	assert.True(t, voted)
	assert.True(t, got.HasVote(f.bob.ID))

	// toggling off
	got, voted, err = f.svc.Vote(f.ctx, f.bob.ID, rec.ID)
	require.NoError(t, err)
	assert.False(t, voted)
	assert.False(t, got.HasVote(f.bob.ID))

	// own recipe counts too
	got, voted, err = f.svc.Vote(f.ctx, f.alice.ID, rec.ID)
	require.NoError(t, err)
	assert.True(t, voted)
	assert.True(t, got.HasVote(f.alice.ID))

	_, _, err = f.svc.Vote(f.ctx, "", rec.ID)
	assert.True(t, apperr.Is(err, apperr.KindUnauthenticated))
}

func TestVote_ConcurrentVotersBothLand(t *testing.T) {
	f := newRecipeFixture(t)
	rec := f.create(t, f.alice, "pancakes", "free")

	var wg sync.WaitGroup
	for _, voter := range []*entity.User{f.alice, f.bob, f.root} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, _, err := f.svc.Vote(f.ctx, id, rec.ID)
			assert.NoError(t, err)
		}(voter.ID)
	}
	wg.Wait()

	got, err := f.svc.Get(f.ctx, rec.ID)
	require.NoError(t, err)
	assert.Len(t, got.Votes, 3)
	for _, voter := range []*entity.User{f.alice, f.bob, f.root} {
		assert.True(t, got.HasVote(voter.ID), "vote from %s lost", voter.Username)
	}
}

func TestListPublished_FiltersDrafts(t *testing.T) {
	f := newRecipeFixture(t)
	published := f.create(t, f.alice, "pancakes", "free")
	f.create(t, f.alice, "draft", "free")

	_, err := f.svc.TogglePublish(f.ctx, f.alice.ID, published.ID)
	require.NoError(t, err)

	list, err := f.svc.ListPublished(f.ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, published.ID, list[0].ID)
}

func TestHighestVoted_OrdersByVotesStable(t *testing.T) {
	f := newRecipeFixture(t)
	first := f.create(t, f.alice, "first", "free")
	second := f.create(t, f.alice, "second", "free")
	third := f.create(t, f.alice, "third", "free")
	for _, r := range []*entity.Recipe{first, second, third} {
		_, err := f.svc.TogglePublish(f.ctx, f.alice.ID, r.ID)
		require.NoError(t, err)
	}

	// second gets two votes, first and third stay tied at zero
	for _, voter := range []*entity.User{f.alice, f.bob} {
		_, _, err := f.svc.Vote(f.ctx, voter.ID, second.ID)
		require.NoError(t, err)
	}

	list, err := f.svc.HighestVoted(f.ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, second.ID, list[0].ID)
	// ties keep insertion order
	assert.Equal(t, first.ID, list[1].ID)
	assert.Equal(t, third.ID, list[2].ID)
}

func TestListPremium_FiltersOnPremiumFlagAlone(t *testing.T) {
	f := newRecipeFixture(t)
	f.create(t, f.alice, "pancakes", "free")

	// an unpublished recipe carrying the premium flag still shows up in
	// the premium listing; the publish flag is not consulted
	unpublished := &entity.Recipe{
		AuthorID:      f.alice.ID,
		Title:         "truffle pasta",
		PriceTier:     entity.TierPremium,
		PremiumStatus: true,
	}
	require.NoError(t, f.svc.Repo.Create(unpublished))

	list, err := f.svc.ListPremium(f.ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, unpublished.ID, list[0].ID)
	assert.False(t, list[0].IsPublished)
}

func TestListMineAndMinePremium(t *testing.T) {
	f := newRecipeFixture(t)
	f.create(t, f.alice, "pancakes", "free")
	f.create(t, f.alice, "truffle pasta", "premium")
	f.create(t, f.bob, "toast", "free")

	mine, err := f.svc.ListMine(f.ctx, f.alice.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	premium, err := f.svc.ListMinePremium(f.ctx, f.alice.ID)
	require.NoError(t, err)
	require.Len(t, premium, 1)
	assert.Equal(t, "truffle pasta", premium[0].Title)

	_, err = f.svc.ListMine(f.ctx, "")
	assert.True(t, apperr.Is(err, apperr.KindUnauthenticated))
}

func TestListAll_AdminOnly(t *testing.T) {
	f := newRecipeFixture(t)
	f.create(t, f.alice, "pancakes", "free")
	f.create(t, f.bob, "toast", "free")

	_, err := f.svc.ListAll(f.ctx, f.alice.ID)
	assert.True(t, apperr.Is(err, apperr.KindAdminRequired))

	all, err := f.svc.ListAll(f.ctx, f.root.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestDeleteRecipe(t *testing.T) {
	f := newRecipeFixture(t)
	rec := f.create(t, f.alice, "pancakes", "free")

	err := f.svc.Delete(f.ctx, f.bob.ID, rec.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotOwner))

	require.NoError(t, f.svc.Delete(f.ctx, f.alice.ID, rec.ID))

	_, err = f.svc.Get(f.ctx, rec.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
