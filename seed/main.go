package main

import (
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/skilltrail/academy_api/seed/seeders"
	"github.com/skilltrail/academy_api/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	var (
		seedType = flag.String("type", "all", "Type of seeding: all, catalog, quizzes, demo")
		dsn      = flag.String("dsn", "", "Database DSN (overrides DB_DSN env var)")
		help     = flag.Bool("help", false, "Show help message")
	)
	flag.Parse()

	if *help {
		showHelp()
		return
	}

	databaseDSN := *dsn
	if databaseDSN == "" {
		databaseDSN = os.Getenv("DB_DSN")
		if databaseDSN == "" {
			databaseDSN = "academy.db"
		}
	}

	var dialector gorm.Dialector
	if os.Getenv("DB_DRIVER") == "postgres" {
		dialector = postgres.Open(databaseDSN)
	} else {
		dialector = sqlite.Open(databaseDSN)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := db.AutoMigrate(services.Models()...); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	log.Printf("Connected to database: %s", databaseDSN)

	mainSeeder := seeders.NewMainSeeder(db)

	switch *seedType {
	case "all":
		log.Println("Running complete database seeding...")
		err = mainSeeder.SeedAll()
	case "catalog":
		log.Println("Seeding catalog only...")
		err = mainSeeder.SeedCatalogOnly()
	case "quizzes":
		log.Println("Seeding quizzes only...")
		err = mainSeeder.SeedQuizzesOnly()
	case "demo":
		log.Println("Seeding demo users and entitlements...")
		err = mainSeeder.SeedDemoOnly()
	default:
		log.Fatalf("Unknown seed type: %s. Use 'all', 'catalog', 'quizzes', or 'demo'", *seedType)
	}
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Println("Seeding operation completed successfully!")
}

func showHelp() {
	log.Println(`
Database Seeding Tool for the Academy API

Usage: go run seed/main.go [flags]

Flags:
  -type string
        Type of seeding to perform (default "all")
        Options: all, catalog, quizzes, demo
  -dsn string
        Database DSN (overrides DB_DSN environment variable)
  -help
        Show this help message

Examples:
  # Seed everything
  go run seed/main.go

  # Seed only the course/track catalog
  go run seed/main.go -type=catalog

  # Seed against a custom sqlite file
  go run seed/main.go -dsn=./local.db

Environment Variables:
  DB_DRIVER - postgres or sqlite (default: sqlite)
  DB_DSN    - Database DSN (default: academy.db)
`)
}
