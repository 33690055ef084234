// Package policy holds the pure authorization decisions for the API.
// Decide maps (actor, resource, action) to an allow/deny outcome without
// touching any store; callers resolve the actor and the recipe snapshot
// first and persist only after an allow.
package policy

import (
	"github.com/kitchendiary/kitchen-diary-api/internal/domain/apperr"
	"github.com/kitchendiary/kitchen-diary-api/internal/domain/entity"
)

// Action identifies an operation subject to authorization.
type Action string

const (
	// Public actions, allowed for anonymous actors.
	ActionReadPublishedList   Action = "read-published-list"
	ActionReadSinglePublished Action = "read-single-published"
	ActionRegister            Action = "register"
	ActionLogin               Action = "login"
	ActionForgotPassword      Action = "forgot-password"
	ActionResetPassword       Action = "reset-password"
	ActionVerifyAccount       Action = "verify-account"

	// Ownership actions on a recipe.
	ActionUpdateRecipe  Action = "update"
	ActionDeleteRecipe  Action = "delete"
	ActionTogglePublish Action = "toggle-publish"

	// Actions open to any authenticated actor.
	ActionCreateRecipe Action = "create"
	ActionListMine     Action = "list-mine"
	ActionVote         Action = "vote"

	// Admin-only actions.
	ActionCreateUserAsAdmin     Action = "create-user-as-admin"
	ActionUpdateUserRole        Action = "update-user-role"
	ActionDeleteUser            Action = "delete-user"
	ActionListAllRecipes        Action = "list-all-recipes"
	ActionReviewPremiumRecipe   Action = "review-premium-recipe"
	ActionPublishPremiumByAdmin Action = "publish-premium-by-admin"
)

// Decision is the outcome of an authorization check. Reason is set only
// on denial and is one of the apperr kinds, so the boundary can report
// each denial distinctly.
type Decision struct {
	Allowed bool
	Reason  apperr.Kind
}

func allow() Decision                  { return Decision{Allowed: true} }
func deny(reason apperr.Kind) Decision { return Decision{Reason: reason} }

// Err converts a denial into a tagged error, nil when allowed.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	switch d.Reason {
	case apperr.KindUnauthenticated:
		return apperr.E(d.Reason, "authentication required")
	case apperr.KindNotOwner:
		return apperr.E(d.Reason, "user not authorized")
	case apperr.KindAdminRequired:
		return apperr.E(d.Reason, "user not authorized, admins only")
	case apperr.KindPremiumRequiresReview:
		return apperr.E(d.Reason, "premium recipes are published through admin review")
	default:
		return apperr.E(apperr.KindNotAuthorized, "not authorized")
	}
}

var publicActions = map[Action]bool{
	ActionReadPublishedList:   true,
	ActionReadSinglePublished: true,
	ActionRegister:            true,
	ActionLogin:               true,
	ActionForgotPassword:      true,
	ActionResetPassword:       true,
	ActionVerifyAccount:       true,
}

var adminActions = map[Action]bool{
	ActionCreateUserAsAdmin:     true,
	ActionUpdateUserRole:        true,
	ActionDeleteUser:            true,
	ActionListAllRecipes:        true,
	ActionReviewPremiumRecipe:   true,
	ActionPublishPremiumByAdmin: true,
}

// Decide evaluates the access rules in precedence order; the first
// matching rule wins. actor == nil marks an anonymous request. recipe
// may be nil for actions that do not target a single recipe.
//
// The admin bypass is evaluated once here; no caller re-checks IsAdmin.
func Decide(actor *entity.User, recipe *entity.Recipe, action Action) Decision {
	if publicActions[action] {
		return allow()
	}
	if actor == nil {
		return deny(apperr.KindUnauthenticated)
	}
	isAdmin := actor.IsAdmin

	switch action {
	case ActionUpdateRecipe, ActionDeleteRecipe, ActionTogglePublish:
		if recipe == nil {
			return deny(apperr.KindNotAuthorized)
		}
		if actor.ID != recipe.AuthorID && !isAdmin {
			return deny(apperr.KindNotOwner)
		}
		// Even the owner (or an admin) may not flip the publish flag on
		// premium content; that path is the admin review transition.
		if action == ActionTogglePublish && recipe.PriceTier == entity.TierPremium {
			return deny(apperr.KindPremiumRequiresReview)
		}
		return allow()

	case ActionCreateRecipe, ActionListMine:
		return allow()

	case ActionVote:
		// Any authenticated actor may vote, own recipes included.
		return allow()
	}

	if adminActions[action] {
		if !isAdmin {
			return deny(apperr.KindAdminRequired)
		}
		return allow()
	}

	return deny(apperr.KindNotAuthorized)
}
