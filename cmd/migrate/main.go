package main

import (
	"log"

	"rag-chat-be/internal/config"
	"rag-chat-be/pkg/database"
)

func main() {
	cfg := config.Load()
	if cfg.Database.Connection == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Running pgvector migration...")
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Error: Migration failed: %v", err)
	}
	log.Println("Migration complete.")
}
