// seed inserts development sample users for local testing.
// Idempotent: skips inserts if the dev user (dev@example.com) already exists.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"sessioncore/internal/config"
	"sessioncore/internal/db"
	"sessioncore/internal/user/domain"
)

const (
	devUserEmail = "dev@example.com"
	devUserID    = "dev-user-001"
	devUser2ID   = "dev-user-002"
	memberEmail  = "member@example.com"
)

const insertUserSQL = `
INSERT INTO users (id, email, name, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $5)
`

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()

	var exists bool
	if err := conn.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, devUserEmail,
	).Scan(&exists); err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if exists {
		log.Println("Seed already applied (dev@example.com exists). Skipping.")
		os.Exit(0)
	}

	users := []domain.User{
		{ID: devUserID, Email: devUserEmail, Name: "Dev User"},
		{ID: devUser2ID, Email: memberEmail, Name: "Member User"},
	}

	now := time.Now().UTC()
	for i := range users {
		u := &users[i]
		if err := u.Validate(); err != nil {
			log.Fatalf("seed user %s: %v", u.ID, err)
		}
		if _, err := conn.ExecContext(ctx, insertUserSQL, u.ID, u.Email, u.Name, u.Status, now); err != nil {
			log.Fatalf("create user %s: %v", u.ID, err)
		}
	}

	log.Println("Seed completed successfully.")
	log.Printf("Seeded users: %s, %s", devUserID, devUser2ID)
}
