package application

import (
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/kitchendiary/kitchen-diary-api/internal/domain/apperr"
	"github.com/kitchendiary/kitchen-diary-api/internal/domain/entity"
	"github.com/kitchendiary/kitchen-diary-api/internal/domain/lifecycle"
	"github.com/kitchendiary/kitchen-diary-api/internal/domain/policy"
	repo "github.com/kitchendiary/kitchen-diary-api/internal/domain/repository"
	"github.com/kitchendiary/kitchen-diary-api/pkg/helpers"
)

type RecipeService struct {
	Repo           repo.RecipeRepository
	Users          repo.UserRepository
	Logger         *logrus.Logger
	ES             *elasticsearch.Client
	ESRecipesIndex string
	GCS            *storage.Client
	GCSBucket      string
}

func NewRecipeService(recipes repo.RecipeRepository, users repo.UserRepository, logger *logrus.Logger, es *elasticsearch.Client, esIndex string, gcs *storage.Client, gcsBucket string) *RecipeService {
	return &RecipeService{
		Repo:           recipes,
		Users:          users,
		Logger:         logger,
		ES:             es,
		ESRecipesIndex: esIndex,
		GCS:            gcs,
		GCSBucket:      gcsBucket,
	}
}

// CreateRecipeInput enumerates every accepted construction field; the
// handler rejects payloads with anything else.
type CreateRecipeInput struct {
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
	PriceTier       string
}

// UpdateRecipeInput carries partial content updates; zero values leave
// the stored field untouched.
type UpdateRecipeInput struct {
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
	PriceTier       string
}

func parseTier(s string) (entity.PriceTier, error) {
	switch s {
	case "", string(entity.TierFree):
		return entity.TierFree, nil
	case string(entity.TierPremium):
		return entity.TierPremium, nil
	default:
		return "", apperr.E(apperr.KindInvalid, "price tier must be free or premium")
	}
}

// actor resolves the acting user; "" means anonymous and yields nil for
// the policy.
func (s *RecipeService) actor(actorID string) (*entity.User, error) {
	if actorID == "" {
		return nil, nil
	}
	u, err := s.Users.GetByID(actorID)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// load fetches the recipe snapshot. Existence is always checked before
// authorization, so probing with a bad id yields NotFound for everyone.
func (s *RecipeService) load(id string) (*entity.Recipe, error) {
	rec, err := s.Repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, apperr.E(apperr.KindNotFound, "no recipe with id %s", id)
	}
	return rec, nil
}

func (s *RecipeService) Create(ctx context.Context, actorID string, in CreateRecipeInput) (*entity.Recipe, error) {
	actor, err := s.actor(actorID)
	if err != nil {
		return nil, err
	}
	if err := policy.Decide(actor, nil, policy.ActionCreateRecipe).Err(); err != nil {
		return nil, err
	}
	tier, err := parseTier(in.PriceTier)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, apperr.E(apperr.KindInvalid, "title is required")
	}

	rec := &entity.Recipe{
		AuthorID:        actor.ID,
		Title:           in.Title,
		Description:     in.Description,
		Ingredients:     in.Ingredients,
		Steps:           in.Steps,
		Utensils:        in.Utensils,
		Images:          in.Images,
		CoverImage:      in.CoverImage,
		PreparationTime: in.PreparationTime,
		Yield:           in.Yield,
		Difficulty:      in.Difficulty,
		TemplateID:      in.TemplateID,
		PriceTier:       tier,
	}
	if err := s.Repo.Create(rec); err != nil {
		return nil, err
	}
	rec.AuthorName = actor.Username
	s.indexRecipe(ctx, rec)
	return rec, nil
}

func (s *RecipeService) Get(ctx context.Context, id string) (*entity.Recipe, error) {
	return s.load(id)
}

func (s *RecipeService) Update(ctx context.Context, actorID, id string, in UpdateRecipeInput) (*entity.Recipe, error) {
	rec, err := s.load(id)
	if err != nil {
		return nil, err
	}
	actor, err := s.actor(actorID)
	if err != nil {
		return nil, err
	}
	if err := policy.Decide(actor, rec, policy.ActionUpdateRecipe).Err(); err != nil {
		return nil, err
	}

	if in.Title != "" {
		rec.Title = in.Title
	}
	if in.Description != "" {
		rec.Description = in.Description
	}
	if in.Ingredients != nil {
		rec.Ingredients = in.Ingredients
	}
	if in.Steps != nil {
		rec.Steps = in.Steps
	}
	if in.Utensils != nil {
		rec.Utensils = in.Utensils
	}
	if in.Images != nil {
		rec.Images = in.Images
	}
	if in.CoverImage != "" {
		rec.CoverImage = in.CoverImage
	}
	if in.PreparationTime != "" {
		rec.PreparationTime = in.PreparationTime
	}
	if in.Yield != "" {
		rec.Yield = in.Yield
	}
	if in.Difficulty != "" {
		rec.Difficulty = in.Difficulty
	}
	if in.TemplateID != "" {
		rec.TemplateID = in.TemplateID
	}
	if in.PriceTier != "" {
		tier, err := parseTier(in.PriceTier)
		if err != nil {
			return nil, err
		}
		rec.PriceTier = tier
	}

	if err := s.Repo.Update(rec); err != nil {
		return nil, err
	}
	s.indexRecipe(ctx, rec)
	return rec, nil
}

func (s *RecipeService) Delete(ctx context.Context, actorID, id string) error {
	rec, err := s.load(id)
	if err != nil {
		return err
	}
	actor, err := s.actor(actorID)
	if err != nil {
		return err
	}
	if err := policy.Decide(actor, rec, policy.ActionDeleteRecipe).Err(); err != nil {
		return err
	}
	if err := s.Repo.Delete(id); err != nil {
		return err
	}
	s.removeFromIndex(ctx, id)
	return nil
}

// TogglePublish flips the publish flag on a free-tier recipe. Premium
// recipes are denied here even for the owner; they are published
// through ReviewPremium or PublishPremium instead.
func (s *RecipeService) TogglePublish(ctx context.Context, actorID, id string) (*entity.Recipe, error) {
	rec, err := s.load(id)
	if err != nil {
		return nil, err
	}
	actor, err := s.actor(actorID)
	if err != nil {
		return nil, err
	}
	if err := policy.Decide(actor, rec, policy.ActionTogglePublish).Err(); err != nil {
		return nil, err
	}
	if err := lifecycle.TogglePublish(rec); err != nil {
		return nil, err
	}
	if err := s.Repo.Update(rec); err != nil {
		return nil, err
	}
	s.indexRecipe(ctx, rec)
	return rec, nil
}

// ReviewPremium is the admin review transition; the free-tier guard
// inside the lifecycle is preserved verbatim from the shipped product.
func (s *RecipeService) ReviewPremium(ctx context.Context, actorID, id string) (*entity.Recipe, error) {
	rec, err := s.load(id)
	if err != nil {
		return nil, err
	}
	actor, err := s.actor(actorID)
	if err != nil {
		return nil, err
	}
	if err := policy.Decide(actor, rec, policy.ActionReviewPremiumRecipe).Err(); err != nil {
		return nil, err
	}
	if err := lifecycle.ReviewPremium(rec); err != nil {
		return nil, err
	}
	if err := s.Repo.Update(rec); err != nil {
		return nil, err
	}
	s.indexRecipe(ctx, rec)
	return rec, nil
}

// PublishPremium is the admin blanket override toggling both the
// publish and premium flags regardless of tier.
func (s *RecipeService) PublishPremium(ctx context.Context, actorID, id string) (*entity.Recipe, error) {
	rec, err := s.load(id)
	if err != nil {
		return nil, err
	}
	actor, err := s.actor(actorID)
	if err != nil {
		return nil, err
	}
	if err := policy.Decide(actor, rec, policy.ActionPublishPremiumByAdmin).Err(); err != nil {
		return nil, err
	}
	lifecycle.PublishPremium(rec)
	if err := s.Repo.Update(rec); err != nil {
		return nil, err
	}
	s.indexRecipe(ctx, rec)
	return rec, nil
}

// Vote toggles the actor's membership in the recipe's vote set. The
// repository primitive is atomic per (recipe, actor), so concurrent
// voters never lose each other's toggle.
func (s *RecipeService) Vote(ctx context.Context, actorID, id string) (*entity.Recipe, bool, error) {
	rec, err := s.load(id)
	if err != nil {
		return nil, false, err
	}
	actor, err := s.actor(actorID)
	if err != nil {
		return nil, false, err
	}
	if err := policy.Decide(actor, rec, policy.ActionVote).Err(); err != nil {
		return nil, false, err
	}
	voted, err := s.Repo.ToggleVote(id, actor.ID)
	if err != nil {
		return nil, false, err
	}
	rec, err = s.load(id)
	if err != nil {
		return nil, false, err
	}
	return rec, voted, nil
}

func (s *RecipeService) ListPublished(ctx context.Context) ([]*entity.Recipe, error) {
	return s.Repo.ListPublished()
}

// HighestVoted returns the published set ordered by vote count
// descending; ties keep the retrieval order (stable sort).
func (s *RecipeService) HighestVoted(ctx context.Context) ([]*entity.Recipe, error) {
	recipes, err := s.Repo.ListPublished()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(recipes, func(i, j int) bool {
		return len(recipes[i].Votes) > len(recipes[j].Votes)
	})
	return recipes, nil
}

func (s *RecipeService) ListMine(ctx context.Context, actorID string) ([]*entity.Recipe, error) {
	actor, err := s.actor(actorID)
	if err != nil {
		return nil, err
	}
	if err := policy.Decide(actor, nil, policy.ActionListMine).Err(); err != nil {
		return nil, err
	}
	return s.Repo.ListByAuthor(actor.ID)
}

// ListMinePremium returns the actor's premium-tier recipes, drafts
// included.
func (s *RecipeService) ListMinePremium(ctx context.Context, actorID string) ([]*entity.Recipe, error) {
	mine, err := s.ListMine(ctx, actorID)
	if err != nil {
		return nil, err
	}
	out := make([]*entity.Recipe, 0, len(mine))
	for _, r := range mine {
		if r.PriceTier == entity.TierPremium {
			out = append(out, r)
		}
	}
	return out, nil
}

// ListPremium filters on the premium flag alone; the publish flag is
// deliberately not consulted, preserving the shipped behavior.
func (s *RecipeService) ListPremium(ctx context.Context) ([]*entity.Recipe, error) {
	return s.Repo.ListPremium()
}

func (s *RecipeService) ListAll(ctx context.Context, actorID string) ([]*entity.Recipe, error) {
	actor, err := s.actor(actorID)
	if err != nil {
		return nil, err
	}
	if err := policy.Decide(actor, nil, policy.ActionListAllRecipes).Err(); err != nil {
		return nil, err
	}
	return s.Repo.ListAll()
}

// UploadCoverImage stores the image in GCS and records its public URL
// on the recipe. Same ownership rule as any content update.
func (s *RecipeService) UploadCoverImage(ctx context.Context, actorID, id string, r io.Reader, filename, contentType string) (*entity.Recipe, error) {
	rec, err := s.load(id)
	if err != nil {
		return nil, err
	}
	actor, err := s.actor(actorID)
	if err != nil {
		return nil, err
	}
	if err := policy.Decide(actor, rec, policy.ActionUpdateRecipe).Err(); err != nil {
		return nil, err
	}
	if s.GCS == nil || s.GCSBucket == "" {
		return nil, apperr.E(apperr.KindInternal, "object storage not configured")
	}
	ext := strings.ToLower(filepath.Ext(filename))
	objectPath := filepath.ToSlash(filepath.Join("covers", id, uuid.NewString()+ext))
	url, err := helpers.UploadImageToGCS(ctx, s.GCS, s.GCSBucket, objectPath, contentType, r)
	if err != nil {
		return nil, err
	}
	rec.CoverImage = url
	if err := s.Repo.Update(rec); err != nil {
		return nil, err
	}
	s.indexRecipe(ctx, rec)
	return rec, nil
}

// Search performs a multi_match query over the recipe index.
func (s *RecipeService) Search(ctx context.Context, q string, size int) ([]map[string]any, error) {
	if s.ES == nil || s.ESRecipesIndex == "" {
		return []map[string]any{}, nil
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	query := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must": map[string]any{
					"multi_match": map[string]any{
						"query":  q,
						"fields": []string{"title^2", "description", "ingredients"},
					},
				},
				"filter": map[string]any{
					"term": map[string]any{"is_published": true},
				},
			},
		},
		"size": size,
	}
	b, _ := json.Marshal(query)

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := s.ES.Search(
		s.ES.Search.WithContext(c),
		s.ES.Search.WithIndex(s.ESRecipesIndex),
		s.ES.Search.WithBody(strings.NewReader(string(b))),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string         `json:"_id"`
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}

func (s *RecipeService) indexRecipe(ctx context.Context, rec *entity.Recipe) {
	if s.ES == nil || s.ESRecipesIndex == "" {
		return
	}
	doc := map[string]any{
		"id":           rec.ID,
		"author_id":    rec.AuthorID,
		"author_name":  rec.AuthorName,
		"title":        rec.Title,
		"description":  rec.Description,
		"ingredients":  rec.Ingredients,
		"price_tier":   rec.PriceTier,
		"is_published": rec.IsPublished,
		"votes":        len(rec.Votes),
		"updated_at":   rec.UpdatedAt.Format(time.RFC3339Nano),
	}
	b, _ := json.Marshal(doc)
	req := esapi.IndexRequest{Index: s.ESRecipesIndex, DocumentID: rec.ID, Body: strings.NewReader(string(b)), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("recipe_id", rec.ID).Warn("es index failed")
		}
		return
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && s.Logger != nil {
		s.Logger.WithField("status", res.Status()).WithField("recipe_id", rec.ID).Warn("es index response error")
	}
}

func (s *RecipeService) removeFromIndex(ctx context.Context, id string) {
	if s.ES == nil || s.ESRecipesIndex == "" {
		return
	}
	req := esapi.DeleteRequest{Index: s.ESRecipesIndex, DocumentID: id}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("recipe_id", id).Warn("es delete failed")
		}
		return
	}
	_ = res.Body.Close()
}
