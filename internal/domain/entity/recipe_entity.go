package entity

import (
	"time"
)

// PriceTier classifies a recipe as free or paid content.
// Premium recipes cannot be published by their owner; they go through
// the admin review transition instead.
type PriceTier string

const (
	TierFree    PriceTier = "free"
	TierPremium PriceTier = "premium"
)

// Recipe is the aggregate root for the recipe domain.
// AuthorID is immutable after creation. Votes is a set of user ids;
// membership is the only signal, one entry per voter.
type Recipe struct {
	ID              string
	AuthorID        string
	Title           string
	Description     string
	Ingredients     []string
	Steps           []string
	Utensils        []string
	Images          []string
	CoverImage      string
	PreparationTime string
	Yield           string
	Difficulty      string
	TemplateID      string
	PriceTier       PriceTier
	IsPublished     bool
	PremiumStatus   bool
	Votes           []string
	CreatedAt       time.Time
	UpdatedAt       time.Time

	// AuthorName carries the author's public username on read paths.
	// Never persisted on the recipe itself.
	AuthorName string
}

// HasVote reports whether userID is in the vote set.
func (r *Recipe) HasVote(userID string) bool {
	for _, id := range r.Votes {
		if id == userID {
			return true
		}
	}
	return false
}
