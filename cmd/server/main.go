package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"formhub-backend/internal/access"
	"formhub-backend/internal/action"
	"formhub-backend/internal/auth"
	"formhub-backend/internal/config"
	"formhub-backend/internal/engine"
	"formhub-backend/internal/instrument"
	"formhub-backend/internal/store"
)

func main() {
	ctx := context.Background()

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Printf("Config loaded (port: %d, db: %s/%s)", cfg.Server.Port, cfg.Database.Driver, cfg.Database.Name)

	// 2. Connect to database
	db, err := store.New(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	// 3. Bootstrap document tables, well-known roles, and the admin account
	if err := db.Bootstrap(ctx); err != nil {
		log.Fatalf("Failed to bootstrap: %v", err)
	}
	log.Println("Document tables ready")

	// 4. Register action units. The set is closed at startup; action
	// documents referencing other names are skipped at load time.
	units := action.NewUnitRegistry()
	units.Register("save", action.NewSaveSubmission(db))
	units.Register("role", action.NewRoleAssignment(db, db))
	units.Register("webhook", action.NewWebhook(cfg.Actions.WebhookTimeout()))

	// 5. Create the request engine
	eng := engine.New(db, units, access.NewEvaluator(), cfg.Actions.ConditionTimeout())

	// 6. Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: errorHandler,
	})
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${status} ${method} ${path} ${latency}\n",
	}))
	app.Use(func(c *fiber.Ctx) error {
		c.SetUserContext(instrument.WithInstrumenter(c.Context(), &instrument.LogInstrumenter{}))
		return c.Next()
	})

	// 7. Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// 8. Auth routes (no token required)
	auth.RegisterRoutes(app, auth.NewHandler(db, cfg.JWTSecret))

	// 9. Caller middleware: decode the token when present, anonymous
	// otherwise. The permission evaluator decides what anonymous may do.
	app.Use(auth.CallerMiddleware(cfg.JWTSecret))

	// 10. Form, submission, action, and role routes
	engine.RegisterRoutes(app, eng)

	// 11. Start server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Starting server on %s", addr)
	log.Fatal(app.Listen(addr))
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
	}

	var appErr *engine.AppError
	if errors.As(err, &appErr) {
		return c.Status(appErr.Status).JSON(engine.ErrorResponse{Error: appErr})
	}

	log.Printf("ERROR: %v", err)
	return c.Status(code).JSON(engine.ErrorResponse{
		Error: engine.NewAppError("INTERNAL", code, "Internal server error"),
	})
}
