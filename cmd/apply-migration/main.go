package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"floor-data/internal/common/database"
	"floor-data/internal/config"
	"floor-data/internal/repository"
)

// 用法：apply-migration [migration_file.sql]
// 不带参数时执行内嵌的 schema.sql
func main() {
	script := repository.Schema
	source := "embedded schema.sql"
	if len(os.Args) > 1 {
		content, err := os.ReadFile(os.Args[1])
		if err != nil {
			log.Fatalf("Failed to read migration file: %v", err)
		}
		script = string(content)
		source = os.Args[1]
	}

	cfg := config.Load()
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Cannot connect to database: %v", err)
	}
	defer db.Close()

	fmt.Printf("Connected to database: %s\n", cfg.Database.Database)

	statements := repository.SplitStatements(script)
	fmt.Printf("Applying %s (%d statements)\n\n", source, len(statements))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	err = repository.ApplyStatements(ctx, db, statements, func(i int, _ string) {
		fmt.Printf("Statement %d/%d executed\n", i+1, len(statements))
	})
	if err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	fmt.Println("\nMigration completed successfully")
}
