// cmd/seeder/main.go
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/unclebandit/linkreach-backend/internal/db"
	"github.com/unclebandit/linkreach-backend/internal/model"
	"github.com/unclebandit/linkreach-backend/internal/repository"
)

// Seeds the local progress database with sample profiles for development.
func main() {
	path := os.Getenv("DB_PATH")
	if path == "" {
		path = "progress.db"
	}

	conn, err := db.Open(path)
	if err != nil {
		log.Fatal("Failed to open database:", err)
	}
	defer conn.Close()

	repo := &repository.ProfileRepository{DB: conn}

	rows := []model.URLRow{
		{URL: "https://www.linkedin.com/in/sample-profile-1/", Row: 1},
		{URL: "https://www.linkedin.com/in/sample-profile-2/", Row: 2},
		{URL: "https://www.linkedin.com/in/sample-profile-3/", Row: 3},
		{URL: "https://www.linkedin.com/in/sample-profile-4/", Row: 4},
		{URL: "https://www.linkedin.com/in/sample-profile-5/", Row: 5},
	}

	result, err := repo.ImportURLs(rows)
	if err != nil {
		log.Fatal("Seeding failed:", err)
	}

	fmt.Printf("Seeded: %d new profiles (%d already present)\n", result.Imported, result.Duplicates)
	fmt.Println("Database seeding completed successfully!")
}
