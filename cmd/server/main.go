package main

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/tigercode/backend/internal/auth"
	"github.com/tigercode/backend/internal/config"
	"github.com/tigercode/backend/internal/content"
	"github.com/tigercode/backend/internal/database"
	"github.com/tigercode/backend/internal/progress"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	if cfg.SeedDir != "" {
		if err := content.Seed(db, cfg.SeedDir); err != nil {
			log.Fatalf("Failed to seed content: %v", err)
		}
	}

	// Stores and services
	contentStore := content.NewStore(db)
	progressStore := progress.NewStore(db)
	progressService := progress.NewService(progressStore, contentStore)

	// Handlers
	authHandler := auth.NewHandler(db, cfg, progressService)
	contentHandler := content.NewHandler(contentStore, progressService)
	progressHandler := progress.NewHandler(progressService)

	secret := []byte(cfg.JWTSecret)

	// Setup router
	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()

	// Public auth routes
	api.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	api.HandleFunc("/auth/login", authHandler.Login).Methods("POST")
	api.HandleFunc("/auth/google", authHandler.GoogleStart).Methods("GET")
	api.HandleFunc("/auth/google/callback", authHandler.GoogleCallback).Methods("GET")

	// Public catalog routes. Pattern detail runs through OptionalMiddleware
	// so logged-in readers get their view counted; the fixed
	// /patterns/user/progress route must register before /patterns/{id}.
	optional := auth.OptionalMiddleware(secret)
	api.HandleFunc("/patterns", contentHandler.ListPatterns).Methods("GET")
	api.Handle("/patterns/{id}", optional(http.HandlerFunc(contentHandler.GetPattern))).Methods("GET")
	api.HandleFunc("/quiz", contentHandler.ListQuizQuestions).Methods("GET")
	api.HandleFunc("/quiz/{id}", contentHandler.GetQuizQuestion).Methods("GET")
	api.HandleFunc("/diagnostic", contentHandler.ListDiagnosticQuestions).Methods("GET")
	api.HandleFunc("/diagnostic/{id}", contentHandler.GetDiagnosticQuestion).Methods("GET")

	// Protected routes
	protected := api.PathPrefix("").Subrouter()
	protected.Use(auth.Middleware(secret))
	protected.HandleFunc("/auth/me", authHandler.GetMe).Methods("GET")
	protected.HandleFunc("/auth/logout", authHandler.Logout).Methods("POST")

	protected.HandleFunc("/patterns/user/progress", progressHandler.GetPatternProgress).Methods("GET")
	protected.HandleFunc("/patterns/{id}/complete", progressHandler.CompletePattern).Methods("PUT")

	protected.HandleFunc("/quiz/user/progress", progressHandler.GetQuizProgress).Methods("GET")
	protected.HandleFunc("/quiz/user/summary", progressHandler.GetQuizSummary).Methods("GET")
	protected.HandleFunc("/quiz/user/continue", progressHandler.GetContinuePoint).Methods("GET")
	protected.HandleFunc("/quiz/{id}/answer", progressHandler.SubmitQuizAnswer).Methods("POST")

	protected.HandleFunc("/diagnostic/user/progress", progressHandler.GetDiagnosticProgress).Methods("GET")
	protected.HandleFunc("/diagnostic/complete", progressHandler.CompleteDiagnostic).Methods("POST")
	protected.HandleFunc("/diagnostic/{id}/answer", progressHandler.SubmitDiagnosticAnswer).Methods("POST")

	protected.HandleFunc("/users/profile", authHandler.GetProfile).Methods("GET")
	protected.HandleFunc("/users/profile", authHandler.UpdateProfile).Methods("PUT")
	protected.HandleFunc("/users/dashboard", progressHandler.GetDashboard).Methods("GET")

	// Admin routes
	protected.Handle("/diagnostic/results/download",
		auth.RequireAdmin(http.HandlerFunc(progressHandler.DownloadReport))).Methods("GET")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.FrontendURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	handler := c.Handler(r)

	log.Printf("Server starting on :%s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, handler); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
