package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/kitchendiary/kitchen-diary-api/internal/application"
	"github.com/kitchendiary/kitchen-diary-api/internal/domain/entity"
	"github.com/kitchendiary/kitchen-diary-api/pkg/response"
)

type RecipeHandler struct {
	Svc    *application.RecipeService
	Logger *logrus.Logger
}

func NewRecipeHandler(svc *application.RecipeService, logger *logrus.Logger) *RecipeHandler {
	return &RecipeHandler{Svc: svc, Logger: logger}
}

// recipePayload is the explicit construction/update record; unknown
// fields in the request body are rejected.
type recipePayload struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Ingredients     []string `json:"ingredients"`
	Steps           []string `json:"steps"`
	Utensils        []string `json:"utensils"`
	Images          []string `json:"images"`
	CoverImage      string   `json:"cover_image"`
	PreparationTime string   `json:"preparation_time"`
	Yield           string   `json:"yield"`
	Difficulty      string   `json:"difficulty"`
	TemplateID      string   `json:"template_id"`
	PriceTier       string   `json:"price_tier"`
}

func bindStrict(c *gin.Context, dst any) error {
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func recipeView(r *entity.Recipe) gin.H {
	return gin.H{
		"id":               r.ID,
		"author_id":        r.AuthorID,
		"author":           r.AuthorName,
		"title":            r.Title,
		"description":      r.Description,
		"ingredients":      r.Ingredients,
		"steps":            r.Steps,
		"utensils":         r.Utensils,
		"images":           r.Images,
		"cover_image":      r.CoverImage,
		"preparation_time": r.PreparationTime,
		"yield":            r.Yield,
		"difficulty":       r.Difficulty,
		"template_id":      r.TemplateID,
		"price_tier":       r.PriceTier,
		"is_published":     r.IsPublished,
		"premium_status":   r.PremiumStatus,
		"votes":            len(r.Votes),
		"created_at":       r.CreatedAt,
		"updated_at":       r.UpdatedAt,
	}
}

func recipeViews(recipes []*entity.Recipe) []gin.H {
	out := make([]gin.H, 0, len(recipes))
	for _, r := range recipes {
		out = append(out, recipeView(r))
	}
	return out
}

func (h *RecipeHandler) Create(c *gin.Context) {
	var req recipePayload
	if err := bindStrict(c, &req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", err.Error())
		return
	}
	rec, err := h.Svc.Create(c.Request.Context(), c.GetString("userID"), application.CreateRecipeInput(req))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, recipeView(rec), "recipe created", nil)
}

func (h *RecipeHandler) Get(c *gin.Context) {
	rec, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, recipeView(rec), "recipe", nil)
}

func (h *RecipeHandler) Update(c *gin.Context) {
	var req recipePayload
	if err := bindStrict(c, &req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", err.Error())
		return
	}
	rec, err := h.Svc.Update(c.Request.Context(), c.GetString("userID"), c.Param("id"), application.UpdateRecipeInput(req))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, recipeView(rec), "recipe updated", nil)
}

func (h *RecipeHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.Svc.Delete(c.Request.Context(), c.GetString("userID"), id); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"id": id}, "recipe deleted successfully", nil)
}

func (h *RecipeHandler) TogglePublish(c *gin.Context) {
	rec, err := h.Svc.TogglePublish(c.Request.Context(), c.GetString("userID"), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"is_published": rec.IsPublished}, "publish state updated", nil)
}

func (h *RecipeHandler) Vote(c *gin.Context) {
	rec, voted, err := h.Svc.Vote(c.Request.Context(), c.GetString("userID"), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, recipeView(rec), "vote toggled", gin.H{"voted": voted})
}

func (h *RecipeHandler) ListPublished(c *gin.Context) {
	recipes, err := h.Svc.ListPublished(c.Request.Context())
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, recipeViews(recipes), "published recipes", nil)
}

func (h *RecipeHandler) HighestVoted(c *gin.Context) {
	recipes, err := h.Svc.HighestVoted(c.Request.Context())
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, recipeViews(recipes), "highest voted recipes", nil)
}

func (h *RecipeHandler) ListPremium(c *gin.Context) {
	recipes, err := h.Svc.ListPremium(c.Request.Context())
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, recipeViews(recipes), "premium recipes", nil)
}

func (h *RecipeHandler) ListMine(c *gin.Context) {
	recipes, err := h.Svc.ListMine(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, recipeViews(recipes), "my recipes", nil)
}

func (h *RecipeHandler) ListMinePremium(c *gin.Context) {
	recipes, err := h.Svc.ListMinePremium(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, recipeViews(recipes), "my premium recipes", nil)
}

func (h *RecipeHandler) Search(c *gin.Context) {
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))
	hits, err := h.Svc.Search(c.Request.Context(), c.Query("q"), size)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, hits, "search results", gin.H{"count": len(hits)})
}

// UploadCover accepts a multipart upload under field "cover".
func (h *RecipeHandler) UploadCover(c *gin.Context) {
	file, err := c.FormFile("cover")
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "cover file is required", nil)
		return
	}
	f, err := file.Open()
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "could not read upload", nil)
		return
	}
	defer func() { _ = f.Close() }()

	rec, err := h.Svc.UploadCoverImage(c.Request.Context(), c.GetString("userID"), c.Param("id"), f, file.Filename, file.Header.Get("Content-Type"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"cover_image": rec.CoverImage}, "cover updated", nil)
}
