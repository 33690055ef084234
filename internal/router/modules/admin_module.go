package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kitchendiary/kitchen-diary-api/internal/container"
	handlers "github.com/kitchendiary/kitchen-diary-api/internal/interface/http"
	"github.com/kitchendiary/kitchen-diary-api/internal/interface/middleware"
	"github.com/kitchendiary/kitchen-diary-api/pkg/helpers"
)

// AdminModule wires the moderation surface under /admin.
//
// User management and catalog-wide listings gate on AdminOnly at the edge.
// Recipe state transitions only require a session here: the service checks
// the recipe exists before it checks permissions, so a missing id reads as
// 404 rather than 403.

type AdminModule struct {
	Handler *handlers.AdminHandler
	Recipes *handlers.RecipeHandler
	JWT     *helpers.JWTManager
}

func NewAdminModule(h *handlers.AdminHandler, recipes *handlers.RecipeHandler, jwt *helpers.JWTManager) *AdminModule {
	return &AdminModule{Handler: h, Recipes: recipes, JWT: jwt}
}

func (m *AdminModule) Register(rg *gin.RouterGroup) {
	admin := rg.Group("/admin")
	admin.Use(middleware.Auth(container.GetRedis(), m.JWT))
	admin.Use(middleware.RateLimit(container.GetRedis(), 240, time.Minute, middleware.KeyByUserID(), nil))

	transitions := admin.Group("/")
	{
		transitions.PUT("/recipes/:id/publish", m.Handler.ReviewPremium)
		transitions.PUT("/recipes/:id/publish-premium", m.Handler.PublishPremium)
		transitions.PUT("/update-recipe/:id", m.Recipes.Update)
		transitions.DELETE("/delete-recipe/:id", m.Recipes.Delete)
	}

	gated := admin.Group("/")
	gated.Use(middleware.AdminOnly())
	{
		gated.POST("/create-user", m.Handler.CreateUser)
		gated.PUT("/update-user/:id", m.Handler.UpdateUser)
		gated.DELETE("/delete-user/:id", m.Handler.DeleteUser)
		gated.POST("/create-recipe", m.Handler.CreateRecipe)
		gated.GET("/recipes", m.Handler.ListAllRecipes)
	}
}
