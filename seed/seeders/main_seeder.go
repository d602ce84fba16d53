package seeders

import (
	"log"

	"gorm.io/gorm"
)

// MainSeeder coordinates all seeding operations
type MainSeeder struct {
	db *gorm.DB
}

func NewMainSeeder(db *gorm.DB) *MainSeeder {
	return &MainSeeder{db: db}
}

// SeedAll runs all seeders in dependency order.
func (s *MainSeeder) SeedAll() error {
	log.Println("Starting database seeding...")

	catalogSeeder := NewCatalogSeeder(s.db)
	if err := catalogSeeder.SeedCatalog(); err != nil {
		log.Printf("Catalog seeding failed: %v", err)
		return err
	}

	quizSeeder := NewQuizSeeder(s.db)
	if err := quizSeeder.SeedQuizzes(); err != nil {
		log.Printf("Quiz seeding failed: %v", err)
		return err
	}

	demoSeeder := NewDemoSeeder(s.db)
	if err := demoSeeder.SeedDemo(); err != nil {
		log.Printf("Demo seeding failed: %v", err)
		return err
	}

	log.Println("Database seeding completed successfully!")
	return nil
}

func (s *MainSeeder) SeedCatalogOnly() error {
	return NewCatalogSeeder(s.db).SeedCatalog()
}

// SeedQuizzesOnly assumes the catalog already exists.
func (s *MainSeeder) SeedQuizzesOnly() error {
	return NewQuizSeeder(s.db).SeedQuizzes()
}

func (s *MainSeeder) SeedDemoOnly() error {
	return NewDemoSeeder(s.db).SeedDemo()
}
