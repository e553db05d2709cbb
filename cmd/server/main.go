package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"skillchat/internal/config"
	"skillchat/internal/database"
	"skillchat/internal/handlers"
	"skillchat/internal/jobs"
	"skillchat/internal/logging"
	"skillchat/internal/middleware"
	"skillchat/internal/services"
	"skillchat/internal/skills"
	"skillchat/pkg/auth"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Initialize structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🚀 Starting SkillChat Server...")

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	}

	cfg := config.Load()
	log.Printf("📋 Configuration loaded (Port: %s)", cfg.Port)

	if cfg.JWTSecret == "" {
		log.Fatal("❌ JWT_SECRET environment variable is required")
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Initialize(); err != nil {
		log.Fatalf("❌ Failed to initialize database: %v", err)
	}

	// Prometheus metrics
	metrics := services.InitMetrics()
	log.Println("✅ Prometheus metrics initialized")

	// Auth
	jwtAuth, err := auth.NewLocalJWTAuth(cfg.JWTSecret, cfg.AccessTokenExpiry, cfg.RefreshTokenExpiry)
	if err != nil {
		log.Fatalf("❌ Failed to initialize JWT auth: %v", err)
	}

	// Services
	userService := services.NewUserService(db)
	credentialService := services.NewCredentialService(db)
	calendarService := services.NewCalendarService(cfg, credentialService, metrics)
	chatService := services.NewChatService(cfg, metrics)
	transcriptService := services.NewTranscriptService(db)

	// Skill trigger rules, optionally overridden from YAML
	rules := skills.DefaultRules()
	if cfg.SkillRulesPath != "" {
		rules, err = skills.LoadRules(cfg.SkillRulesPath)
		if err != nil {
			log.Fatalf("❌ Failed to load skill rules from %s: %v", cfg.SkillRulesPath, err)
		}
		log.Printf("✅ Skill rules loaded from %s", cfg.SkillRulesPath)
	}

	// Skill registry. Registration order is the dispatch priority:
	// specialized skills first, conversational fallback last.
	registry := skills.NewRegistry()
	registry.Register(skills.NewCalculatorSkill(rules.Calculator))
	registry.Register(skills.NewWeatherSkill(rules.Weather))
	registry.Register(skills.NewCalendarSkill(rules.CalendarIntent, rules.CalendarTime, calendarService))
	registry.Register(skills.NewConversationSkill(chatService))

	dispatcher := skills.NewDispatcher(registry, skills.ConversationID, metrics)
	log.Printf("✅ Skill registry initialized (%d skills)", len(registry.All()))

	// Handlers
	healthHandler := handlers.NewHealthHandler(db)
	authHandler := handlers.NewAuthHandler(jwtAuth, userService)
	chatHandler := handlers.NewChatHandler(dispatcher, chatService, transcriptService)
	calendarHandler := handlers.NewCalendarHandler(cfg, calendarService, userService, metrics)

	// Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "SkillChat v1.0",
		ReadTimeout:  180 * time.Second,
		WriteTimeout: 180 * time.Second, // completion providers can be slow
		BodyLimit:    1 * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(logger.New())

	prometheus := fiberprometheus.New("skillchat")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)
	log.Println("📊 Prometheus metrics endpoint enabled at /metrics")

	// Fiber's CORS middleware does not allow AllowCredentials with wildcard
	// origins.
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
		AllowCredentials: cfg.AllowedOrigins != "*",
	}))

	// Routes
	app.Get("/health", healthHandler.Handle)

	api := app.Group("/api")
	api.Post("/auth/register", authHandler.Register)
	api.Post("/auth/login", authHandler.Login)
	api.Post("/auth/refresh", authHandler.Refresh)

	// The OAuth callback arrives from Google's redirect and cannot carry a
	// bearer token; it authenticates via the HMAC-signed state parameter,
	// which only authenticated /api/calendar/auth calls can mint.
	api.Get("/calendar/callback", calendarHandler.HandleCallback)

	protected := api.Group("", middleware.AuthMiddleware(jwtAuth))
	protected.Post("/chat", chatHandler.HandleChat)
	protected.Post("/chat/completions", chatHandler.HandleCompletions)
	protected.Get("/chat/history", chatHandler.HandleHistory)
	protected.Get("/calendar/auth", calendarHandler.HandleAuth)
	protected.Get("/calendar/status", calendarHandler.HandleStatus)
	protected.Post("/calendar/addevent", calendarHandler.HandleAddEvent)

	// Background jobs
	scheduler, err := jobs.NewScheduler(calendarService, credentialService, transcriptService, cfg.RetentionDays)
	if err != nil {
		log.Fatalf("❌ Failed to create job scheduler: %v", err)
	}
	if err := scheduler.Start(); err != nil {
		log.Fatalf("❌ Failed to start background jobs: %v", err)
	}

	log.Printf("📡 Health check: http://localhost:%s/health", cfg.Port)
	log.Printf("💬 Chat endpoint: http://localhost:%s/api/chat", cfg.Port)

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("\n🛑 Shutting down server...")

		if err := scheduler.Stop(); err != nil {
			log.Printf("⚠️ Error stopping background jobs: %v", err)
		}

		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️ Error shutting down server: %v", err)
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}
