package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/kitchendiary/kitchen-diary-api/internal/application"
	"github.com/kitchendiary/kitchen-diary-api/pkg/response"
	"github.com/kitchendiary/kitchen-diary-api/pkg/validation"
)

type AdminHandler struct {
	Users   *application.UserService
	Recipes *application.RecipeService
	Logger  *logrus.Logger
}

func NewAdminHandler(users *application.UserService, recipes *application.RecipeService, logger *logrus.Logger) *AdminHandler {
	return &AdminHandler{Users: users, Recipes: recipes, Logger: logger}
}

type createUserRequest struct {
	FullName string `json:"fullname" binding:"required"`
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,pwd"`
	IsAdmin  bool   `json:"is_admin"`
}

type updateUserRoleRequest struct {
	IsAdmin *bool `json:"is_admin" binding:"required"`
}

func (h *AdminHandler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	actor, err := h.Users.ResolveActor(c.GetString("userID"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	u, err := h.Users.CreateUserAsAdmin(c.Request.Context(), actor, application.CreateUserInput{
		FullName: req.FullName,
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		IsAdmin:  req.IsAdmin,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, userView(u), "user created", nil)
}

func (h *AdminHandler) UpdateUser(c *gin.Context) {
	var req updateUserRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	actor, err := h.Users.ResolveActor(c.GetString("userID"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	u, err := h.Users.UpdateUserRole(c.Request.Context(), actor, c.Param("id"), *req.IsAdmin)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, userView(u), "user updated", nil)
}

func (h *AdminHandler) DeleteUser(c *gin.Context) {
	actor, err := h.Users.ResolveActor(c.GetString("userID"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	if err := h.Users.DeleteUser(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"id": c.Param("id")}, "user deleted", nil)
}

// CreateRecipe lets an admin author a recipe directly; the admin is the
// recipe's owner.
func (h *AdminHandler) CreateRecipe(c *gin.Context) {
	var req recipePayload
	if err := bindStrict(c, &req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", err.Error())
		return
	}
	rec, err := h.Recipes.Create(c.Request.Context(), c.GetString("userID"), application.CreateRecipeInput(req))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, recipeView(rec), "recipe created", nil)
}

func (h *AdminHandler) ListAllRecipes(c *gin.Context) {
	recipes, err := h.Recipes.ListAll(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, recipeViews(recipes), "all recipes", nil)
}

// ReviewPremium applies the admin review transition.
func (h *AdminHandler) ReviewPremium(c *gin.Context) {
	rec, err := h.Recipes.ReviewPremium(c.Request.Context(), c.GetString("userID"), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, recipeView(rec), "recipe reviewed", nil)
}

// PublishPremium is the blanket override toggling publish and premium
// state together.
func (h *AdminHandler) PublishPremium(c *gin.Context) {
	rec, err := h.Recipes.PublishPremium(c.Request.Context(), c.GetString("userID"), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, recipeView(rec), "premium publish state updated", nil)
}
