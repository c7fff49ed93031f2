package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vidstream-server/internal/blob"
	"vidstream-server/internal/config"
	"vidstream-server/internal/handler"
	"vidstream-server/internal/middleware"
	"vidstream-server/internal/repository"
	"vidstream-server/internal/service"
	"vidstream-server/pkg/token"

	_ "github.com/go-kivik/kivik/v4/couchdb"

	"github.com/go-kivik/kivik/v4"
	"github.com/gorilla/mux"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	couchURL := fmt.Sprintf("http://%s:%s@%s:%s",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
	)

	client, err := kivik.New("couch", couchURL)
	if err != nil {
		log.Fatalf("Failed to connect to CouchDB: %v", err)
	}

	exists, err := client.DBExists(context.Background(), cfg.Database.Name)
	if err != nil {
		log.Fatalf("Failed to check database existence: %v", err)
	}

	if !exists {
		if err := client.CreateDB(context.Background(), cfg.Database.Name); err != nil {
			log.Fatalf("Failed to create database: %v", err)
		}
		log.Printf("Created database: %s", cfg.Database.Name)
	}

	blobStore, err := blob.NewS3Store(context.Background(), blob.Config{
		Endpoint:      cfg.S3.Endpoint,
		Region:        cfg.S3.Region,
		Bucket:        cfg.S3.Bucket,
		AccessKey:     cfg.S3.AccessKey,
		SecretKey:     cfg.S3.SecretKey,
		PublicBaseURL: cfg.S3.PublicBaseURL,
	})
	if err != nil {
		log.Fatalf("Failed to connect to blob store: %v", err)
	}

	tokens := token.NewManager(token.Config{
		AccessSecret:      cfg.JWT.AccessSecret,
		AccessExpiration:  cfg.JWT.AccessExpiration,
		RefreshSecret:     cfg.JWT.RefreshSecret,
		RefreshExpiration: cfg.JWT.RefreshExpiration,
	})

	userRepo := repository.NewUserRepository(client, cfg.Database.Name)

	authService := service.NewAuthService(userRepo, tokens)
	registrationService := service.NewRegistrationService(userRepo, blobStore)
	userService := service.NewUserService(userRepo, blobStore)

	authHandler := handler.NewAuthHandler(registrationService, authService)
	userHandler := handler.NewUserHandler(userService)

	r := mux.NewRouter()

	r.Use(middleware.LoggerMiddleware())
	r.Use(middleware.CORSMiddleware(
		cfg.CORS.AllowedOrigins,
		cfg.CORS.AllowedMethods,
		cfg.CORS.AllowedHeaders,
	))

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/users/register", authHandler.Register).Methods("POST", "OPTIONS")
	api.HandleFunc("/users/login", authHandler.Login).Methods("POST", "OPTIONS")
	api.HandleFunc("/users/refresh-token", authHandler.Refresh).Methods("POST", "OPTIONS")

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.AuthMiddleware(tokens, userRepo))

	protected.HandleFunc("/users/logout", authHandler.Logout).Methods("POST", "OPTIONS")
	protected.HandleFunc("/users/change-password", authHandler.ChangePassword).Methods("POST", "OPTIONS")
	protected.HandleFunc("/users/current-user", userHandler.GetMe).Methods("GET", "OPTIONS")
	protected.HandleFunc("/users/update-account", userHandler.UpdateAccount).Methods("PATCH", "OPTIONS")
	protected.HandleFunc("/users/update-avatar", userHandler.UpdateAvatar).Methods("PATCH", "OPTIONS")
	protected.HandleFunc("/users/update-cover-image", userHandler.UpdateCoverImage).Methods("PATCH", "OPTIONS")
	protected.HandleFunc("/users/watch-history", userHandler.GetWatchHistory).Methods("GET", "OPTIONS")
	protected.HandleFunc("/users/watch-history", userHandler.AddWatchHistory).Methods("POST", "OPTIONS")

	r.HandleFunc("/health", healthHandler).Methods("GET")

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting Vidstream Server on %s (env: %s)", addr, cfg.Server.Env)
		log.Printf("Connected to CouchDB at %s:%s", cfg.Database.Host, cfg.Database.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped gracefully")
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","service":"vidstream-server"}`))
}
