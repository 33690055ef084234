package memory

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kitchendiary/kitchen-diary-api/internal/domain/entity"
	"github.com/kitchendiary/kitchen-diary-api/internal/domain/lifecycle"
	"github.com/kitchendiary/kitchen-diary-api/internal/domain/repository"
)

var errNotFound = errors.New("not found")

type RecipeStore struct {
	mu      sync.RWMutex
	recipes map[string]*entity.Recipe
	order   []string // insertion order for deterministic listings

	authorName func(authorID string) string
}

// NewRecipeStore builds a store. authorName resolves the public
// username annotation on reads; it may be nil.
func NewRecipeStore(authorName func(authorID string) string) *RecipeStore {
	return &RecipeStore{
		recipes:    make(map[string]*entity.Recipe),
		authorName: authorName,
	}
}

func (s *RecipeStore) Create(r *entity.Recipe) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	now := time.Now()
	r.CreatedAt = now
	r.UpdatedAt = now
	cp := cloneRecipe(r)
	s.recipes[r.ID] = cp
	s.order = append(s.order, r.ID)
	return nil
}

func (s *RecipeStore) GetByID(id string) (*entity.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.recipes[id]
	if !ok {
		return nil, nil
	}
	return s.annotate(cloneRecipe(r)), nil
}

func (s *RecipeStore) Update(r *entity.Recipe) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.recipes[r.ID]
	if !ok {
		return errNotFound
	}
	r.UpdatedAt = time.Now()
	cp := cloneRecipe(r)
	// votes are owned by ToggleVote; field updates must not clobber a
	// concurrent toggle.
	cp.Votes = append([]string(nil), stored.Votes...)
	s.recipes[r.ID] = cp
	return nil
}

func (s *RecipeStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.recipes[id]; !ok {
		return errNotFound
	}
	delete(s.recipes, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *RecipeStore) ToggleVote(recipeID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.recipes[recipeID]
	if !ok {
		return false, errNotFound
	}
	votes, voted := lifecycle.ToggleVote(r.Votes, userID)
	r.Votes = votes
	return voted, nil
}

func (s *RecipeStore) ListPublished() ([]*entity.Recipe, error) {
	return s.list(func(r *entity.Recipe) bool { return r.IsPublished }), nil
}

func (s *RecipeStore) ListByAuthor(authorID string) ([]*entity.Recipe, error) {
	return s.list(func(r *entity.Recipe) bool { return r.AuthorID == authorID }), nil
}

func (s *RecipeStore) ListPremium() ([]*entity.Recipe, error) {
	return s.list(func(r *entity.Recipe) bool { return r.PremiumStatus }), nil
}

func (s *RecipeStore) ListAll() ([]*entity.Recipe, error) {
	return s.list(func(*entity.Recipe) bool { return true }), nil
}

func (s *RecipeStore) list(match func(*entity.Recipe) bool) []*entity.Recipe {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*entity.Recipe, 0, len(s.order))
	for _, id := range s.order {
		if r, ok := s.recipes[id]; ok && match(r) {
			out = append(out, s.annotate(cloneRecipe(r)))
		}
	}
	return out
}

func (s *RecipeStore) annotate(r *entity.Recipe) *entity.Recipe {
	if s.authorName != nil {
		r.AuthorName = s.authorName(r.AuthorID)
	}
	return r
}

func cloneRecipe(r *entity.Recipe) *entity.Recipe {
	cp := *r
	cp.Ingredients = append([]string(nil), r.Ingredients...)
	cp.Steps = append([]string(nil), r.Steps...)
	cp.Utensils = append([]string(nil), r.Utensils...)
	cp.Images = append([]string(nil), r.Images...)
	cp.Votes = append([]string(nil), r.Votes...)
	return &cp
}

var _ repository.RecipeRepository = (*RecipeStore)(nil)
