// server/internal/database/seeder.go
package database

import (
	"context"
	"log"
	"time"

	"greencycle-api-server/internal/auth"
	"greencycle-api-server/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// SeedAdmin creates the default admin account if it does not exist yet.
func SeedAdmin(db *mongo.Database) error {
	userCollection := db.Collection("users")
	adminEmail := "admin@greencycle.local"

	count, err := userCollection.CountDocuments(context.Background(), bson.M{"email": adminEmail})
	if err != nil {
		return err
	}
	if count > 0 {
		log.Println("Admin already exists. Seeding skipped.")
		return nil
	}

	log.Println("Admin not found. Seeding...")
	hashedPassword, err := auth.HashPassword("adminpassword")
	if err != nil {
		return err
	}

	admin := models.User{
		UserID:    "USR-ADMIN",
		Email:     adminEmail,
		Name:      "Admin",
		Password:  hashedPassword,
		Role:      models.RoleAdmin,
		Status:    "active",
		CreatedAt: time.Now(),
	}

	if _, err := userCollection.InsertOne(context.Background(), admin); err != nil {
		return err
	}

	log.Println("Admin seeded successfully.")
	return nil
}

// SeedMaterials inserts the base recyclable materials catalog. Existing
// entries are left untouched.
func SeedMaterials(db *mongo.Database) error {
	materials := []models.Material{
		{MaterialID: "MAT-PET", DisplayName: "PET Plastic", AveragePricePerKg: 0.35},
		{MaterialID: "MAT-HDPE", DisplayName: "HDPE Plastic", AveragePricePerKg: 0.40},
		{MaterialID: "MAT-PAPER", DisplayName: "Paper & Cardboard", AveragePricePerKg: 0.10},
		{MaterialID: "MAT-GLASS", DisplayName: "Glass", AveragePricePerKg: 0.05},
		{MaterialID: "MAT-ALU", DisplayName: "Aluminium Cans", AveragePricePerKg: 1.20},
		{MaterialID: "MAT-STEEL", DisplayName: "Scrap Steel", AveragePricePerKg: 0.25},
		{MaterialID: "MAT-EWASTE", DisplayName: "Electronic Waste", AveragePricePerKg: 0.80},
	}

	collection := db.Collection("materials")
	seeded := 0
	for _, m := range materials {
		count, err := collection.CountDocuments(context.Background(), bson.M{"materialID": m.MaterialID})
		if err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		m.Status = "ACTIVE"
		m.CreatedAt = time.Now()
		m.UpdatedAt = m.CreatedAt
		if _, err := collection.InsertOne(context.Background(), m); err != nil {
			return err
		}
		seeded++
	}

	if seeded > 0 {
		log.Printf("Seeded %d base materials.", seeded)
	}
	return nil
}
