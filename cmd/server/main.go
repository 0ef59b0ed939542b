package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/headshotly/backend/docs"
	"github.com/headshotly/backend/internal/astria"
	"github.com/headshotly/backend/internal/config"
	"github.com/headshotly/backend/internal/database"
	"github.com/headshotly/backend/internal/handlers"
	"github.com/headshotly/backend/internal/mailer"
	mW "github.com/headshotly/backend/internal/middleware"
	"github.com/headshotly/backend/internal/paddle"
	"github.com/headshotly/backend/internal/services"
)

// @title AI Headshot Generator API
// @version 1.0
// @description Credit ledger and training orchestration for the headshot generator
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	docs.SwaggerInfo.Title = "AI Headshot Generator API"
	docs.SwaggerInfo.Version = "1.0"
	docs.SwaggerInfo.Host = "localhost:" + cfg.Server.Port
	docs.SwaggerInfo.BasePath = "/api/v1"
	docs.SwaggerInfo.Schemes = []string{"http", "https"}

	db := database.InitDatabase(&cfg.Database)
	defer db.Close()

	redisClient := database.InitRedis(&cfg.Redis)
	if redisClient != nil {
		defer redisClient.Close()
	}

	astriaClient := astria.NewClient(&cfg.Astria)
	paddleClient := paddle.NewClient(&cfg.Paddle)
	mail := mailer.New(&cfg.Resend)

	ledgerService := services.NewCreditLedgerService(db)
	accountService := services.NewAccountService(ledgerService)
	trainingService := services.NewTrainingService(db, ledgerService, astriaClient, &cfg.App)
	pricingService := services.NewPricingService(db, paddleClient)
	checkoutService := services.NewCheckoutService(db, redisClient, ledgerService, &cfg.Paddle)
	checkoutHandler := handlers.NewCheckoutHandler(checkoutService)
	onboardingService := services.NewOnboardingService(db, redisClient)
	onboardingHandler := handlers.NewOnboardingHandler(onboardingService)
	paddleWebhook := handlers.NewPaddleWebhookHandler(ledgerService)
	astriaWebhook := handlers.NewAstriaWebhookHandler(ledgerService, mail, &cfg.App)

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("http://localhost:"+cfg.Server.Port+"/swagger/doc.json"),
	))

	// Style preview images for the onboarding wizard
	r.Handle("/static/style-previews/*", http.StripPrefix("/static/style-previews/",
		mW.StaticFileServer("./static/style-previews")))

	// Provider webhooks authenticate themselves (shared secret / event id),
	// not with a user session.
	r.Route("/webhooks", func(r chi.Router) {
		r.Post("/paddle", paddleWebhook.HandleSubscription)
		r.Post("/astria/train", astriaWebhook.HandleTrainingComplete)
		r.Post("/astria/prompt", astriaWebhook.HandlePromptComplete)
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints (no auth required)
		r.Get("/pricing/plans", pricingService.ListPlans)
		r.Post("/pricing/prices", pricingService.GetLivePrices)
		r.Get("/pricing/products", pricingService.GetProductDetails)

		// Protected endpoints (auth required)
		r.Group(func(r chi.Router) {
			r.Use(mW.AuthMiddleware(cfg.Auth.JWTSecret))

			r.Get("/credits", accountService.GetCredits)
			r.Get("/credits/transactions", accountService.GetTransactions)

			r.Post("/models/train", trainingService.SubmitTraining)
			r.Get("/models", trainingService.ListModels)
			r.Get("/models/{modelId}", trainingService.GetModel)

			r.Post("/checkout/qr", checkoutHandler.GenerateQR)
			r.Get("/checkout/session/{nonce}", checkoutHandler.ResolveSession)

			r.Get("/onboarding/state", onboardingHandler.GetState)
			r.Post("/onboarding/advance", onboardingHandler.Advance)
			r.Put("/onboarding/preferences", onboardingHandler.UpsertPreferences)
		})
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server stopped")
}
