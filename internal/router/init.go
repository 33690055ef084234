package router

import (
	"github.com/kitchendiary/kitchen-diary-api/internal/application"
	"github.com/kitchendiary/kitchen-diary-api/internal/container"
	pginfra "github.com/kitchendiary/kitchen-diary-api/internal/infrastructure/postgres"
	handlers "github.com/kitchendiary/kitchen-diary-api/internal/interface/http"
	"github.com/kitchendiary/kitchen-diary-api/internal/router/modules"
)

type Deps struct {
	Users   *application.UserService
	Recipes *application.RecipeService

	UserHandler   *handlers.UserHandler
	RecipeHandler *handlers.RecipeHandler
	AdminHandler  *handlers.AdminHandler
}

func buildDeps() Deps {
	cfg := container.GetConfig()

	userRepo := pginfra.NewUserRepository(container.GetPGPool())
	recipeRepo := pginfra.NewRecipeRepository(container.GetPGPool())

	// A nil *RabbitPublisher must stay a nil interface so the service
	// can skip publishing when the broker is not configured.
	var pub application.JobPublisher
	if rp := container.GetRabbitPub(); rp != nil {
		pub = rp
	}

	users := application.NewUserService(
		userRepo,
		container.GetJWT(),
		container.GetRedis(),
		container.GetLogger(),
		pub,
		container.GetGCS(),
		cfg.GCSBucket,
		cfg,
	)

	recipes := application.NewRecipeService(
		recipeRepo,
		userRepo,
		container.GetLogger(),
		container.GetES(),
		cfg.ESRecipesIndex,
		container.GetGCS(),
		cfg.GCSBucket,
	)

	return Deps{
		Users:         users,
		Recipes:       recipes,
		UserHandler:   handlers.NewUserHandler(users, container.GetLogger(), cfg.CookieDomain, cfg.CookieSecure),
		RecipeHandler: handlers.NewRecipeHandler(recipes, container.GetLogger()),
		AdminHandler:  handlers.NewAdminHandler(users, recipes, container.GetLogger()),
	}
}

// InitModules wires the application modules and registers them with the
// router registry. Called once during startup.
func InitModules(r *Registry) {
	deps := buildDeps()
	jwt := container.GetJWT()

	r.Add(modules.NewUserModule(deps.UserHandler, jwt))
	r.Add(modules.NewRecipeModule(deps.RecipeHandler, jwt))
	r.Add(modules.NewAdminModule(deps.AdminHandler, deps.RecipeHandler, jwt))
	if container.GetConfig().DebugMetricsEnabled {
		r.Add(modules.NewDebugModule())
	}
}
