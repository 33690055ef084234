package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kitchendiary/kitchen-diary-api/internal/container"
	handlers "github.com/kitchendiary/kitchen-diary-api/internal/interface/http"
	"github.com/kitchendiary/kitchen-diary-api/internal/interface/middleware"
	"github.com/kitchendiary/kitchen-diary-api/pkg/helpers"
)

// RecipeModule wires the recipe routes. Reads on the published catalog are
// public; everything that writes requires a session.

type RecipeModule struct {
	Handler *handlers.RecipeHandler
	JWT     *helpers.JWTManager
}

func NewRecipeModule(h *handlers.RecipeHandler, jwt *helpers.JWTManager) *RecipeModule {
	return &RecipeModule{Handler: h, JWT: jwt}
}

func (m *RecipeModule) Register(rg *gin.RouterGroup) {
	publicLimiter := middleware.RateLimit(container.GetRedis(), 120, time.Minute, middleware.KeyByIP(), nil)

	recipes := rg.Group("/recipes")
	{
		recipes.GET("", publicLimiter, m.Handler.ListPublished)
		recipes.GET("/top", publicLimiter, m.Handler.HighestVoted)
		recipes.GET("/premium", publicLimiter, m.Handler.ListPremium)
		recipes.GET("/search", publicLimiter, m.Handler.Search)
		recipes.GET("/:id", publicLimiter, m.Handler.Get)
	}

	auth := rg.Group("/recipes")
	auth.Use(middleware.Auth(container.GetRedis(), m.JWT))
	auth.Use(middleware.RateLimit(container.GetRedis(), 120, time.Minute, middleware.KeyByUserID(), nil))
	{
		auth.POST("", m.Handler.Create)
		auth.GET("/mine", m.Handler.ListMine)
		auth.GET("/mine/premium", m.Handler.ListMinePremium)
		auth.PUT("/:id", m.Handler.Update)
		auth.DELETE("/:id", m.Handler.Delete)
		auth.PUT("/:id/publish", m.Handler.TogglePublish)
		auth.PUT("/:id/vote", m.Handler.Vote)
		auth.PATCH("/:id/cover", m.Handler.UploadCover)
	}
}
