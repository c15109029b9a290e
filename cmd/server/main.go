package main

import (
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"emoticare/internal/config"
	"emoticare/internal/handlers"
	"emoticare/internal/llm"
	"emoticare/internal/logging"
	"emoticare/internal/prompts"
	"emoticare/internal/services"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Initialize structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🌿 Starting EmotiCare Server...")

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	// Load configuration
	cfg := config.Load()
	log.Printf("📋 Configuration loaded (Port: %s, Candidates: %v)", cfg.Port, cfg.CandidateModels)

	if cfg.GeminiAPIKey == "" {
		// The server still starts: every pipeline run surfaces the
		// configuration error instead of crashing at boot.
		log.Println("⚠️  GEMINI_API_KEY not set - analysis requests will fail until configured")
	}

	// Initialize prompt catalog (+ optional file overrides with hot reload)
	catalog := prompts.NewCatalog()
	if cfg.PromptsFile != "" {
		if err := catalog.LoadOverrides(cfg.PromptsFile); err != nil {
			log.Printf("⚠️  Failed to load prompt overrides: %v (using built-ins)", err)
		} else {
			log.Printf("✅ Prompt overrides loaded from %s", cfg.PromptsFile)
		}
		go startPromptsFileWatcher(cfg.PromptsFile, catalog)
	}

	// Initialize services
	historyService := services.NewHistoryService(cfg.HistoryFile)
	log.Printf("✅ History store ready (%s, %d entries)", cfg.HistoryFile, len(historyService.LoadAll()))

	exportService, err := services.NewExportService(cfg.ExportDir, cfg.ExportTTL)
	if err != nil {
		log.Fatalf("❌ Failed to initialize export service: %v", err)
	}
	log.Printf("✅ Export service ready (%s, TTL %s)", cfg.ExportDir, cfg.ExportTTL)

	// Initialize Prometheus metrics
	metrics := services.InitMetrics()
	log.Println("✅ Prometheus metrics initialized")

	// Initialize the model invoker with fallback candidates
	llmClient := llm.NewClient(cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.CandidateModels)
	llmClient.SetAttemptObserver(func(model string, success bool) {
		result := "failure"
		if success {
			result = "success"
		}
		metrics.ModelAttempts.WithLabelValues(model, result).Inc()
	})

	pipelineService := services.NewPipelineService(catalog, llmClient, historyService, cfg.GeminiAPIKey != "")
	pipelineService.SetMetrics(metrics)
	log.Println("✅ Analysis pipeline initialized")

	// Schedule the daily export sweep (removes orphaned files after restarts)
	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		log.Printf("⚠️  Failed to create scheduler: %v (export sweep disabled)", err)
	} else {
		_, err := scheduler.NewJob(
			gocron.DurationJob(24*time.Hour),
			gocron.NewTask(func() {
				if err := exportService.SweepOrphans(); err != nil {
					log.Printf("⚠️  [EXPORT] Sweep failed: %v", err)
				}
			}),
			gocron.WithName("export-sweep"),
		)
		if err != nil {
			log.Printf("⚠️  Failed to schedule export sweep: %v", err)
		} else {
			scheduler.Start()
			log.Println("🕐 Export sweep scheduled (daily)")
		}
	}

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "EmotiCare v1.0",
		ReadTimeout:  900 * time.Second, // a pipeline run makes 4 sequential model calls
		WriteTimeout: 900 * time.Second,
		IdleTimeout:  900 * time.Second,
		BodyLimit:    1 * 1024 * 1024, // free-text journal entries only
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())

	// Prometheus metrics middleware
	prometheus := fiberprometheus.New("emoticare")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)
	log.Println("📊 Prometheus metrics endpoint enabled at /metrics")

	// CORS configuration with environment-based origins
	allowedOrigins := cfg.AllowedOrigins
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:5173,http://localhost:3000"
		log.Println("⚠️  ALLOWED_ORIGINS not set, using development defaults")
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	// Analysis rate limiter: one user, four model calls per run — anything
	// past this is a misbehaving client.
	analyzeLimiter := limiter.New(limiter.Config{
		Max:        10,
		Expiration: 1 * time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			log.Printf("⚠️  [RATE-LIMIT] Analyze limit reached for %s", c.IP())
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many analysis requests. Please wait a moment.",
			})
		},
	})

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(historyService)
	analysisHandler := handlers.NewAnalysisHandler(pipelineService)
	historyHandler := handlers.NewHistoryHandler(historyService)
	exportHandler := handlers.NewExportHandler(exportService, pipelineService)

	// Routes
	app.Get("/health", healthHandler.Handle)

	api := app.Group("/api")
	{
		api.Post("/analyze", analyzeLimiter, analysisHandler.Handle)
		api.Get("/history", historyHandler.List)
		api.Get("/history/trend", historyHandler.Trend)
		api.Post("/export", exportHandler.Create)
		api.Get("/export/:id", exportHandler.Download)
	}

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("\n🛑 Shutting down server...")

		if scheduler != nil {
			if err := scheduler.Shutdown(); err != nil {
				log.Printf("⚠️  Error stopping scheduler: %v", err)
			}
		}

		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️  Error shutting down server: %v", err)
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

// startPromptsFileWatcher watches the prompt overrides file for changes and
// re-applies it automatically.
func startPromptsFileWatcher(filePath string, catalog *prompts.Catalog) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("⚠️  Failed to create file watcher: %v", err)
		return
	}

	absPath, err := filepath.Abs(filePath)
	if err != nil {
		log.Printf("⚠️  Failed to get absolute path for %s: %v", filePath, err)
		watcher.Close()
		return
	}

	// Watch the directory containing the file (more reliable than watching
	// the file directly, editors often replace rather than rewrite)
	dir := filepath.Dir(absPath)
	filename := filepath.Base(absPath)

	if err := watcher.Add(dir); err != nil {
		log.Printf("⚠️  Failed to watch directory %s: %v", dir, err)
		watcher.Close()
		return
	}

	log.Printf("👁️  Watching %s for changes (hot-reload enabled)", filePath)

	// Debounce to avoid multiple reloads for rapid file changes
	var debounceTimer *time.Timer
	debounceDuration := 500 * time.Millisecond

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}

			if filepath.Base(event.Name) != filename {
				continue
			}

			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}

				debounceTimer = time.AfterFunc(debounceDuration, func() {
					log.Printf("🔄 Detected changes in %s, reloading prompt overrides...", filePath)
					if err := catalog.LoadOverrides(filePath); err != nil {
						log.Printf("❌ Failed to reload prompt overrides: %v", err)
					} else {
						log.Printf("✅ Prompt overrides reloaded from %s", filePath)
					}
				})
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("⚠️  File watcher error: %v", err)
		}
	}
}
