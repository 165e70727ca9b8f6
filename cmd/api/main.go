package main

import (
	"log"
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4/middleware"

	"tryonapi/controllers"
	"tryonapi/dbhelper"
	"tryonapi/services"
	"tryonapi/session"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading configuration from the environment")
	}

	err := sentry.Init(sentry.ClientOptions{
		// Either set your DSN here or set the SENTRY_DSN environment variable.
		Dsn:         services.GetEnv("SENTRY_DSN", ""),
		Environment: services.GetEnv("ENV", "local"),
		Release:     "tryonapi@1.0.0",
		// Set TracesSampleRate to 1.0 to capture 100%
		// of transactions for performance monitoring.
		TracesSampleRate: 1.0,
	})
	if err != nil {
		log.Fatalf("sentry.Init: %s", err)
	}
	defer sentry.Recover()
	defer sentry.Flush(2 * time.Second)

	db := dbhelper.SetupDB()

	settingsStore := &services.GormSettingsStore{DB: db}
	settings, err := services.NewCachedSettingsService(settingsStore)
	if err != nil {
		log.Fatal("Failed to initialize settings cache service")
	}

	maxConcurrent, err := strconv.ParseInt(services.GetEnv("TRYON_MAX_CONCURRENT", "4"), 10, 64)
	if err != nil {
		log.Fatalf("Invalid TRYON_MAX_CONCURRENT: %s", err)
	}
	processor := services.NewGoogleTryOnProcessor(services.Flash25Image, maxConcurrent)

	// An empty base URL keeps the whole round-trip in-process; a configured
	// one sends submissions to that host over the same wire contract.
	var tryOnService services.TryOnServiceProvider
	baseURL := services.ResolveTryOnBaseURL()
	if baseURL == "" {
		tryOnService = &services.LocalTryOnService{Processor: processor}
	} else {
		log.Printf("Forwarding try-on submissions to %s", baseURL)
		tryOnService = services.NewHTTPTryOnService(baseURL)
	}

	sessions := session.NewStore()
	go func() {
		for range time.Tick(30 * time.Minute) {
			if removed := sessions.PruneIdle(24 * time.Hour); removed > 0 {
				log.Printf("Pruned %d idle visitor sessions", removed)
			}
		}
	}()

	e := controllers.SetupServer(tryOnService, processor, settings, sessions)
	e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(10)))
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(sentryecho.New(sentryecho.Options{Repanic: true}))
	e.Logger.Fatal(e.Start(":8000"))
}
