package main

import (
	"errors"
	"log"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/vitrina/internal/config"
	"github.com/example/vitrina/internal/database"
	"github.com/example/vitrina/internal/kv"
	"github.com/example/vitrina/internal/middleware"
	"github.com/example/vitrina/internal/routes"
	"github.com/example/vitrina/internal/seed"
	"github.com/example/vitrina/internal/services"
)

func main() {
	cfg := config.Load()
	db := database.Connect(cfg.DatabaseURL)
	rdb := kv.Connect(cfg.RedisURL)

	app := fiber.New(fiber.Config{
		AppName:      "Vitrina Backend",
		ErrorHandler: errorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New())
	app.Use(middleware.RateLimit(rdb, cfg))
	app.Use(middleware.Prometheus())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	routes.Register(app, db, rdb, cfg)

	if cfg.SeedDemo {
		if err := seed.Demo(db); err != nil {
			log.Printf("demo seeding failed: %v", err)
		}
	}

	services.NewMetricsService(rdb).StartRefresher(15 * time.Second)

	log.Printf("Starting server on :%s", cfg.AppPort)
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		log.Fatalf("fiber.Listen error: %v", err)
	}
}

// errorHandler renders fiber errors as {"error": code} to match the API
// contract the SPA consumes.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "internal_error"

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
		message = fiberErr.Message
	}

	return c.Status(code).JSON(fiber.Map{"error": message})
}
