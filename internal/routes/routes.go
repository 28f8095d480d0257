package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/example/vitrina/internal/config"
	"github.com/example/vitrina/internal/handlers"
	"github.com/example/vitrina/internal/middleware"
	"github.com/example/vitrina/internal/services"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, rdb *redis.Client, cfg *config.Config) {
	tracking := services.NewTrackingService(rdb)
	notify := services.NewNotificationService(rdb)
	engine := services.NewEngine(db, tracking, notify)
	checkout := services.NewCheckoutService(db, rdb, tracking, notify, engine)
	metrics := services.NewMetricsService(rdb)

	authHandler := handlers.NewAuthHandler(db, cfg, notify)
	catalogHandler := handlers.NewCatalogHandler(db, rdb)
	cartHandler := handlers.NewCartHandler(rdb)
	orderHandler := handlers.NewOrderHandler(db, checkout, tracking, notify)
	metricsHandler := handlers.NewMetricsHandler(metrics)

	requireAuth := middleware.RequireAuth(cfg)
	optionalAuth := middleware.OptionalAuth(cfg)

	api := app.Group("/api")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Get("/notifications", requireAuth, authHandler.PullNotifications)
	auth.Get("/notifications/list", requireAuth, authHandler.ListNotifications)

	catalog := api.Group("/catalog")
	catalog.Get("/categories", catalogHandler.ListCategories)
	catalog.Get("/products", catalogHandler.ListProducts)
	catalog.Get("/products/:slug", catalogHandler.GetProduct)
	catalog.Post("/products/:slug/reviews", optionalAuth, catalogHandler.CreateReview)
	catalog.Get("/collections", catalogHandler.ListCollections)

	cart := api.Group("/cart")
	cart.Post("/init", cartHandler.Init)
	cart.Get("/:cartId", cartHandler.Get)
	cart.Post("/:cartId/items", cartHandler.AddItem)
	cart.Patch("/:cartId/items", cartHandler.UpdateItem)

	orders := api.Group("/orders")
	orders.Post("/demo/checkout", optionalAuth, orderHandler.DemoCheckout)
	orders.Get("/:id/tracking", orderHandler.Tracking)
	orders.Post("/:id/teleport", requireAuth, orderHandler.Teleport)
	orders.Get("/", requireAuth, orderHandler.ListOrders)
	orders.Get("/:id", requireAuth, orderHandler.GetOrder)
	orders.Patch("/:id/status", requireAuth, orderHandler.UpdateStatus)

	metricsGroup := api.Group("/metrics")
	metricsGroup.Post("/track", metricsHandler.Track)
	metricsGroup.Get("/top-products", metricsHandler.TopProducts)
	metricsGroup.Get("/top-pages", metricsHandler.TopPages)
}
