package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitchendiary/kitchen-diary-api/internal/domain/apperr"
	"github.com/kitchendiary/kitchen-diary-api/internal/domain/entity"
)

func anon() *entity.User { return nil }

func user(id string) *entity.User {
	return &entity.User{ID: id, Email: id + "@example.com", IsVerified: true}
}

func admin(id string) *entity.User {
	u := user(id)
	u.IsAdmin = true
	return u
}

func freeRecipe(author string) *entity.Recipe {
	return &entity.Recipe{ID: "r1", AuthorID: author, Title: "pancakes", PriceTier: entity.TierFree}
}

func premiumRecipe(author string) *entity.Recipe {
	r := freeRecipe(author)
	r.PriceTier = entity.TierPremium
	return r
}

func TestDecide_PublicActionsAllowAnonymous(t *testing.T) {
	for _, action := range []Action{
		ActionReadPublishedList,
		ActionReadSinglePublished,
		ActionRegister,
		ActionLogin,
		ActionForgotPassword,
		ActionResetPassword,
		ActionVerifyAccount,
	} {
		d := Decide(anon(), nil, action)
		assert.True(t, d.Allowed, "action %s should be public", action)
		assert.NoError(t, d.Err())
	}
}

func TestDecide_AnonymousDeniedEverythingElse(t *testing.T) {
	for _, action := range []Action{
		ActionCreateRecipe,
		ActionUpdateRecipe,
		ActionDeleteRecipe,
		ActionTogglePublish,
		ActionVote,
		ActionListMine,
		ActionListAllRecipes,
		ActionCreateUserAsAdmin,
		ActionReviewPremiumRecipe,
		ActionPublishPremiumByAdmin,
	} {
		d := Decide(anon(), freeRecipe("alice"), action)
		require.False(t, d.Allowed, "action %s must require authentication", action)
		assert.Equal(t, apperr.KindUnauthenticated, d.Reason)
		assert.True(t, apperr.Is(d.Err(), apperr.KindUnauthenticated))
	}
}

func TestDecide_OwnershipActions(t *testing.T) {
	owner := user("alice")
	other := user("bob")
	rec := freeRecipe("alice")

	for _, action := range []Action{ActionUpdateRecipe, ActionDeleteRecipe, ActionTogglePublish} {
		assert.True(t, Decide(owner, rec, action).Allowed, "owner on %s", action)

		d := Decide(other, rec, action)
		require.False(t, d.Allowed, "non-owner on %s", action)
		assert.Equal(t, apperr.KindNotOwner, d.Reason)
	}
}

func TestDecide_AdminBypassesOwnership(t *testing.T) {
	mod := admin("root")
	rec := freeRecipe("alice")

	assert.True(t, Decide(mod, rec, ActionUpdateRecipe).Allowed)
	assert.True(t, Decide(mod, rec, ActionDeleteRecipe).Allowed)
	assert.True(t, Decide(mod, rec, ActionTogglePublish).Allowed)
}

func TestDecide_TogglePublishPremiumDeniedEvenForOwnerAndAdmin(t *testing.T) {
	rec := premiumRecipe("alice")

	for _, actor := range []*entity.User{user("alice"), admin("root")} {
		d := Decide(actor, rec, ActionTogglePublish)
		require.False(t, d.Allowed)
		assert.Equal(t, apperr.KindPremiumRequiresReview, d.Reason)
	}

	// owner precedence: a non-owner hitting a premium recipe is reported
	// as not-owner, not as premium-requires-review
	d := Decide(user("bob"), rec, ActionTogglePublish)
	require.False(t, d.Allowed)
	assert.Equal(t, apperr.KindNotOwner, d.Reason)
}

func TestDecide_AuthenticatedActions(t *testing.T) {
	u := user("bob")

	assert.True(t, Decide(u, nil, ActionCreateRecipe).Allowed)
	assert.True(t, Decide(u, nil, ActionListMine).Allowed)
	assert.True(t, Decide(u, freeRecipe("alice"), ActionVote).Allowed)

	// voting on your own recipe is allowed
	assert.True(t, Decide(u, freeRecipe("bob"), ActionVote).Allowed)
}

func TestDecide_AdminActions(t *testing.T) {
	for _, action := range []Action{
		ActionCreateUserAsAdmin,
		ActionUpdateUserRole,
		ActionDeleteUser,
		ActionListAllRecipes,
		ActionReviewPremiumRecipe,
		ActionPublishPremiumByAdmin,
	} {
		d := Decide(user("bob"), nil, action)
		require.False(t, d.Allowed, "regular user on %s", action)
		assert.Equal(t, apperr.KindAdminRequired, d.Reason)

		assert.True(t, Decide(admin("root"), nil, action).Allowed, "admin on %s", action)
	}
}

func TestDecide_UnknownActionDenied(t *testing.T) {
	d := Decide(admin("root"), nil, Action("made-up"))
	require.False(t, d.Allowed)
	assert.True(t, apperr.Is(d.Err(), apperr.KindNotAuthorized))
}

func TestDecide_NilRecipeOnOwnershipActionDenied(t *testing.T) {
	d := Decide(user("alice"), nil, ActionUpdateRecipe)
	require.False(t, d.Allowed)
	assert.Equal(t, apperr.KindNotAuthorized, d.Reason)
}

func TestDecisionErr(t *testing.T) {
	assert.NoError(t, Decision{Allowed: true}.Err())

	err := Decision{Reason: apperr.KindAdminRequired}.Err()
	require.Error(t, err)
	assert.Equal(t, "user not authorized, admins only", err.Error())
}
