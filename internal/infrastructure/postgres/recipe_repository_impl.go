package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kitchendiary/kitchen-diary-api/internal/domain/entity"
	"github.com/kitchendiary/kitchen-diary-api/internal/domain/repository"
)

// recipe rows are read together with the author's public username and
// the aggregated vote set from recipe_votes.
const recipeSelect = `
	SELECT r.id, r.author_id, r.title, r.description, r.ingredients, r.steps,
		r.utensils, r.images, r.cover_image, r.preparation_time, r.yield,
		r.difficulty, r.template_id, r.price_tier, r.is_published,
		r.premium_status, r.created_at, r.updated_at, u.username,
		COALESCE(v.votes, '{}')
	FROM recipes r
	JOIN users u ON u.id = r.author_id
	LEFT JOIN LATERAL (
		SELECT array_agg(rv.user_id ORDER BY rv.created_at) AS votes
		FROM recipe_votes rv WHERE rv.recipe_id = r.id
	) v ON true`

type RecipeRepository struct {
	pool *pgxpool.Pool
}

func NewRecipeRepository(pool *pgxpool.Pool) *RecipeRepository {
	return &RecipeRepository{pool: pool}
}

func (r *RecipeRepository) Create(rec *entity.Recipe) error {
	ctx := context.Background()
	row := r.pool.QueryRow(ctx, `
		INSERT INTO recipes (author_id, title, description, ingredients, steps,
			utensils, images, cover_image, preparation_time, yield, difficulty,
			template_id, price_tier, is_published, premium_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at, updated_at
	`, rec.AuthorID, rec.Title, rec.Description, rec.Ingredients, rec.Steps,
		rec.Utensils, rec.Images, rec.CoverImage, rec.PreparationTime, rec.Yield,
		rec.Difficulty, rec.TemplateID, rec.PriceTier, rec.IsPublished, rec.PremiumStatus)

	return row.Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
}

func (r *RecipeRepository) GetByID(id string) (*entity.Recipe, error) {
	ctx := context.Background()
	row := r.pool.QueryRow(ctx, recipeSelect+` WHERE r.id = $1`, id)
	rec, err := scanRecipe(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

func (r *RecipeRepository) Update(rec *entity.Recipe) error {
	ctx := context.Background()
	rec.UpdatedAt = time.Now()

	res, err := r.pool.Exec(ctx, `
		UPDATE recipes
		SET title = $1, description = $2, ingredients = $3, steps = $4,
			utensils = $5, images = $6, cover_image = $7, preparation_time = $8,
			yield = $9, difficulty = $10, template_id = $11, price_tier = $12,
			is_published = $13, premium_status = $14, updated_at = $15
		WHERE id = $16
	`, rec.Title, rec.Description, rec.Ingredients, rec.Steps, rec.Utensils,
		rec.Images, rec.CoverImage, rec.PreparationTime, rec.Yield, rec.Difficulty,
		rec.TemplateID, rec.PriceTier, rec.IsPublished, rec.PremiumStatus,
		rec.UpdatedAt, rec.ID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *RecipeRepository) Delete(id string) error {
	ctx := context.Background()
	res, err := r.pool.Exec(ctx, `DELETE FROM recipes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ToggleVote flips membership atomically per (recipe, user): the insert
// and the delete are each single statements keyed by the pair, so two
// concurrent voters never overwrite each other's row.
func (r *RecipeRepository) ToggleVote(recipeID, userID string) (bool, error) {
	ctx := context.Background()
	res, err := r.pool.Exec(ctx, `
		INSERT INTO recipe_votes (recipe_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (recipe_id, user_id) DO NOTHING
	`, recipeID, userID)
	if err != nil {
		return false, err
	}
	if res.RowsAffected() > 0 {
		return true, nil
	}
	_, err = r.pool.Exec(ctx, `
		DELETE FROM recipe_votes WHERE recipe_id = $1 AND user_id = $2
	`, recipeID, userID)
	return false, err
}

func (r *RecipeRepository) ListPublished() ([]*entity.Recipe, error) {
	return r.list(` WHERE r.is_published = true ORDER BY r.created_at`)
}

func (r *RecipeRepository) ListByAuthor(authorID string) ([]*entity.Recipe, error) {
	return r.list(` WHERE r.author_id = $1 ORDER BY r.created_at`, authorID)
}

func (r *RecipeRepository) ListPremium() ([]*entity.Recipe, error) {
	// premium listing filters on premium_status alone, matching the
	// shipped behavior; is_published is deliberately not consulted.
	return r.list(` WHERE r.premium_status = true ORDER BY r.created_at`)
}

func (r *RecipeRepository) ListAll() ([]*entity.Recipe, error) {
	return r.list(` ORDER BY r.created_at`)
}

func (r *RecipeRepository) list(where string, args ...any) ([]*entity.Recipe, error) {
	ctx := context.Background()
	rows, err := r.pool.Query(ctx, recipeSelect+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*entity.Recipe
	for rows.Next() {
		rec, err := scanRecipe(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanRecipe(row pgx.Row) (*entity.Recipe, error) {
	rec := &entity.Recipe{}
	err := row.Scan(&rec.ID, &rec.AuthorID, &rec.Title, &rec.Description,
		&rec.Ingredients, &rec.Steps, &rec.Utensils, &rec.Images, &rec.CoverImage,
		&rec.PreparationTime, &rec.Yield, &rec.Difficulty, &rec.TemplateID,
		&rec.PriceTier, &rec.IsPublished, &rec.PremiumStatus, &rec.CreatedAt,
		&rec.UpdatedAt, &rec.AuthorName, &rec.Votes)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

var _ repository.RecipeRepository = (*RecipeRepository)(nil)
