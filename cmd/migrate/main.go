package main

import (
	"log"
	"os"

	"monitoring-workspace-be/pkg/database"
	"monitoring-workspace-be/pkg/storage"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(dsn, true)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Running AutoMigrate for workspace documents...")
	if err := storage.NewGormStore(db).Migrate(); err != nil {
		log.Fatalf("Error: Migration failed: %v", err)
	}
	log.Println("Migration completed successfully")
}
