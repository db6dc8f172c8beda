package main

import (
	"log"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/itembank/backend/internal/auth"
	"github.com/itembank/backend/internal/database"
	"github.com/itembank/backend/internal/items"
	"github.com/itembank/backend/internal/middleware"
	"github.com/rs/cors"
)

func main() {
	// Initialize database
	db, err := database.Connect()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize handlers
	authHandler := auth.NewHandler(db)
	itemStore := items.NewStore(db)
	itemService := items.NewService(itemStore)
	itemHandler := items.NewHandler(itemService)

	// Setup router
	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()

	// Public routes
	api.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	api.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Protected routes
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.AuthMiddleware)
	protected.HandleFunc("/auth/me", authHandler.GetCurrentUser).Methods("GET")

	// Item bank
	protected.HandleFunc("/items", itemHandler.CreateItem).Methods("POST")
	protected.HandleFunc("/items", itemHandler.ListItems).Methods("GET")
	protected.HandleFunc("/items/{id}", itemHandler.GetItem).Methods("GET")
	protected.HandleFunc("/items/{id}/parameters", itemHandler.UpdateParameters).Methods("PUT")
	protected.HandleFunc("/items/{id}/fixed", itemHandler.SetFixed).Methods("PUT")

	// Model evaluation
	protected.HandleFunc("/items/{id}/probability", itemHandler.GetProbability).Methods("GET")
	protected.HandleFunc("/items/{id}/expected", itemHandler.GetExpectedValue).Methods("GET")
	protected.HandleFunc("/items/{id}/icc", itemHandler.GetICC).Methods("GET")
	protected.HandleFunc("/items/{id}/information", itemHandler.GetInformation).Methods("GET")

	// Estimation proposal lifecycle
	protected.HandleFunc("/items/{id}/proposals", itemHandler.StageProposal).Methods("POST")
	protected.HandleFunc("/items/{id}/accept", itemHandler.AcceptProposals).Methods("POST")

	// Form-level linking and curves
	protected.HandleFunc("/forms/{form}/scale", itemHandler.ScaleForm).Methods("POST")
	protected.HandleFunc("/forms/{form}/tcc", itemHandler.GetTCC).Methods("GET")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	handler := c.Handler(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on :%s", port)
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
