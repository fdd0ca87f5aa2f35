package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"party-game-system/handlers"
	"party-game-system/middleware"
	"party-game-system/models"
	"party-game-system/services"
	"party-game-system/utils"
	"party-game-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{})

	// 🔐 GLOBAL: every request must carry the app client token
	app.Use(middleware.ClientAuthMiddleware())

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS,PATCH",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID, X-Device-ID",
	}))

	catalogURL := os.Getenv("CATALOG_SERVICE_URL")
	if catalogURL == "" {
		log.Fatal("CATALOG_SERVICE_URL environment variable not set")
	}
	catalogKey := os.Getenv("CATALOG_SERVICE_KEY")
	if catalogKey == "" {
		log.Fatal("CATALOG_SERVICE_KEY environment variable not set")
	}

	dbPath := os.Getenv("OFFLINE_DB_PATH")
	if dbPath == "" {
		dbPath = "partygame.db"
	}
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to open offline store:", err)
	}
	if err := db.AutoMigrate(&models.StorageEntry{}); err != nil {
		log.Fatal("failed to migrate offline store:", err)
	}

	// Catalog bundle fallback is optional; without R2 config the sync engine
	// just skips it.
	if err := utils.InitR2(); err != nil {
		log.Printf("⚠️  R2 not configured, catalog bundle fallback disabled: %v", err)
	}

	catalog := services.NewCatalogClient(catalogURL, catalogKey)
	store := services.NewOfflineStore(db)
	monitor := services.NewNetworkMonitor(catalog.Health)
	sessionService := services.NewSessionService(catalog, store, monitor)
	syncWorker := workers.NewSyncWorker(catalog, store)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Sync as soon as connectivity comes back, and on a background schedule.
	monitor.Subscribe(func(status services.NetworkStatus) {
		if status != services.NetworkOnline {
			return
		}
		go func() {
			if err := syncWorker.RunSync(ctx); err != nil {
				log.Printf("Connectivity-triggered sync failed: %v", err)
			}
		}()
	})
	go monitor.Start(ctx, 30*time.Second)
	syncWorker.StartScheduler(ctx, 5*time.Minute, monitor.IsOnline)

	handlers.SetupSessionRoutes(app, sessionService)
	handlers.SetupSessionEventStream(app, sessionService)
	handlers.SetupSyncRoutes(app, syncWorker, store, monitor)

	port := os.Getenv("PORT")
	if port == "" {
		port = "5300"
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Party game core running on http://localhost:%s", port)
	log.Println("✅ Network monitor running (every 30s)")
	log.Println("✅ Background sync scheduled (every 5m, online only)")

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
