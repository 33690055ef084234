package repository

import "github.com/kitchendiary/kitchen-diary-api/internal/domain/entity"

// RecipeRepository defines the interface for recipe persistence.
//
// ToggleVote must flip (recipeID, userID) membership atomically per
// record: two concurrent toggles by different users may not drop each
// other's vote. List results carry the author's public username.
type RecipeRepository interface {
	Create(r *entity.Recipe) error
	GetByID(id string) (*entity.Recipe, error)
	Update(r *entity.Recipe) error
	Delete(id string) error

	ToggleVote(recipeID, userID string) (voted bool, err error)

	ListPublished() ([]*entity.Recipe, error)
	ListByAuthor(authorID string) ([]*entity.Recipe, error)
	ListPremium() ([]*entity.Recipe, error)
	ListAll() ([]*entity.Recipe, error)
}
