// cmd/server/main.go
package main

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/unclebandit/linkreach-backend/internal/config"
	"github.com/unclebandit/linkreach-backend/internal/controller"
	"github.com/unclebandit/linkreach-backend/internal/db"
	"github.com/unclebandit/linkreach-backend/internal/queue"
	"github.com/unclebandit/linkreach-backend/internal/repository"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, relying on OS environment variables")
	}
	cfg := config.Load()

	conn, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Fatal("Failed to open database:", err)
	}
	defer conn.Close()

	q, err := queue.NewClient(cfg.AMQPURL)
	if err != nil {
		log.Fatal("Failed to connect to RabbitMQ:", err)
	}
	defer q.Close()

	profileRepo := &repository.ProfileRepository{DB: conn}

	profileController := &controller.ProfileController{
		Repo:      profileRepo,
		Publisher: q,
	}

	r := chi.NewRouter()
	profileController.RegisterRoutes(r)

	log.Printf("🚀 Server running on %s", cfg.ServerAddr)
	log.Fatal(http.ListenAndServe(cfg.ServerAddr, r))
}
