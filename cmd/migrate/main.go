package main

// Run database migrations:
//   go run ./cmd/migrate
//   go run ./cmd/migrate -driver sqlite -dsn ./matcher.db

import (
	"context"
	"flag"
	"log"
	"os"

	"internship-matcher/internal/shared/config"
	"internship-matcher/internal/shared/storage/db"
)

func main() {
	cfg := config.Load()
	driver := flag.String("driver", cfg.DBDriver, "database driver: pgx or sqlite")
	dsn := flag.String("dsn", cfg.DatabaseURL, "connection string (defaults to DATABASE_URL)")
	flag.Parse()

	ctx := context.Background()

	opts := db.OptionsFromEnv(db.DefaultMigrateOptions())
	sqlDB, err := db.Connect(ctx, *driver, *dsn, opts)
	if err != nil {
		log.Printf("failed to connect database: %v", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	if err := db.RunMigrations(ctx, sqlDB, *driver); err != nil {
		log.Printf("failed to run migrations: %v", err)
		os.Exit(1)
	}
	log.Printf("migrations applied driver=%s", *driver)
}
