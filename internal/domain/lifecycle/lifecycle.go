// Package lifecycle holds the pure state transitions of a recipe over
// its publish and premium flags plus the vote set. Functions mutate the
// given snapshot only; persisting an updated snapshot atomically is the
// caller's job, so a failed transition never half-applies.
package lifecycle

import (
	"github.com/kitchendiary/kitchen-diary-api/internal/domain/apperr"
	"github.com/kitchendiary/kitchen-diary-api/internal/domain/entity"
)

// TogglePublish flips IsPublished on a free-tier recipe. Premium
// content is rejected here as well as in the policy, keeping the
// transition safe when invoked directly.
func TogglePublish(r *entity.Recipe) error {
	if r.PriceTier == entity.TierPremium {
		return apperr.E(apperr.KindPremiumRequiresReview, "premium recipes are published through admin review")
	}
	r.IsPublished = !r.IsPublished
	return nil
}

// ReviewPremium is the one-way admin review transition: it sets
// IsPublished and never unsets it, so reviewing twice is a no-op.
//
// The guard deliberately accepts only free-tier recipes and rejects
// premium ones, mirroring the shipped behavior; product has been asked
// to clarify whether the tier check is inverted.
func ReviewPremium(r *entity.Recipe) error {
	if r.PriceTier != entity.TierFree {
		return apperr.E(apperr.KindNotAuthorized, "only free tier recipes can be reviewed")
	}
	r.IsPublished = true
	return nil
}

// PublishPremium is the admin blanket override: it toggles IsPublished
// and PremiumStatus together regardless of the recipe's tier.
func PublishPremium(r *entity.Recipe) {
	r.IsPublished = !r.IsPublished
	r.PremiumStatus = !r.PremiumStatus
}

// ToggleVote flips userID's membership in the vote set and returns the
// new set plus whether the vote is now present. The input slice is not
// modified.
func ToggleVote(votes []string, userID string) ([]string, bool) {
	out := make([]string, 0, len(votes)+1)
	found := false
	for _, id := range votes {
		if id == userID {
			found = true
			continue
		}
		out = append(out, id)
	}
	if found {
		return out, false
	}
	return append(out, userID), true
}
