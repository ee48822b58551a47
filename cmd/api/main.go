// server/cmd/api/main.go
package main

import (
	"context"
	"log"
	"time"

	"greencycle-api-server/config"
	"greencycle-api-server/internal/api/routes"
	"greencycle-api-server/internal/auth"
	"greencycle-api-server/internal/database"
	"greencycle-api-server/internal/s3"
	"greencycle-api-server/internal/socket"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	// .env is optional; real deployments use environment variables.
	godotenv.Load()

	cfg, err := config.LoadConfig("./config")
	if err != nil {
		log.Fatalf("Could not load config: %v", err)
	}

	if cfg.JWT.Secret != "" {
		auth.JwtSecret = []byte(cfg.JWT.Secret)
	} else {
		log.Println("WARNING: jwt.secret is not set, using the insecure default")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(context.Background())

	if err := client.Ping(ctx, nil); err != nil {
		log.Fatalf("Failed to ping MongoDB: %v", err)
	}
	db := client.Database(cfg.Mongo.DBName)

	// Seed the admin account and the base materials catalog.
	if err := database.SeedAdmin(db); err != nil {
		log.Fatalf("Failed to seed admin: %v", err)
	}
	if err := database.SeedMaterials(db); err != nil {
		log.Fatalf("Failed to seed materials: %v", err)
	}

	s3Uploader, err := s3.NewUploader(cfg.S3)
	if err != nil {
		log.Fatalf("Failed to initialize S3 uploader: %v", err)
	}

	wsHub := socket.NewHub()

	router := routes.SetupRouter(cfg, db, s3Uploader, wsHub)

	log.Printf("Starting API server on port %s", cfg.Server.Port)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}
