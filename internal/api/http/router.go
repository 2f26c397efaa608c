package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/blog-api/internal/api/http/handlers"
	"github.com/spec-kit/blog-api/internal/auth"
	"github.com/spec-kit/blog-api/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health   *handlers.HealthHandler
	Users    *handlers.UsersHandler
	Posts    *handlers.PostsHandler
	Comments *handlers.CommentsHandler
	Gate     *auth.Gate
	Metrics  *observability.Metrics
}

// RegisterRoutes wires HTTP routes. Session endpoints and read-only listings
// are public; every mutation passes through the gate first.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if registry := cfg.Metrics.Registry(); registry != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	protected := []fiber.Handler{cfg.Gate.Handle, auth.RequireAuthority(auth.AuthorityUser)}
	api := app.Group("/api")

	users := api.Group("/users")
	users.Post("/new", cfg.Users.Register)
	users.Post("/login", cfg.Users.Login)
	users.Post("/refresh-token", cfg.Users.RefreshToken)
	users.Post("/logout", cfg.Users.Logout)
	users.Get("/me", append(protected, cfg.Users.Me)...)
	users.Get("/:id", append(protected, cfg.Users.GetByID)...)

	posts := api.Group("/posts")
	posts.Get("/", cfg.Posts.List)
	posts.Get("/:id", cfg.Posts.Get)
	posts.Get("/:id/comments", cfg.Posts.ListComments)
	posts.Post("/new", append(protected, cfg.Posts.Create)...)
	posts.Put("/:id", append(protected, cfg.Posts.Update)...)
	posts.Delete("/:id", append(protected, cfg.Posts.Delete)...)

	comments := api.Group("/comments", protected...)
	comments.Post("/new", cfg.Comments.Create)
	comments.Put("/:id", cfg.Comments.Update)
	comments.Delete("/:id", cfg.Comments.Delete)
}
