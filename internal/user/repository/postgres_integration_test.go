package repository

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"sessioncore/internal/user/domain"
)

// Integration tests against a real Postgres. Set TEST_DATABASE_URL to a DSN
// with the migrations applied (go run ./cmd/migrate) to enable them.
func newDirectory(t *testing.T) (*PostgresDirectory, *sql.DB) {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping Postgres integration test")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Fatalf("ping: %v", err)
	}
	t.Cleanup(func() {
		_, _ = db.Exec(`DELETE FROM users WHERE id LIKE 'it-dir-%'`)
		_ = db.Close()
	})
	return NewPostgresDirectory(db), db
}

func insertUser(t *testing.T, db *sql.DB, id, email string, status domain.UserStatus) {
	t.Helper()
	now := time.Now().UTC()
	_, err := db.Exec(
		`INSERT INTO users (id, email, name, status, created_at, updated_at) VALUES ($1, $2, '', $3, $4, $4)`,
		id, email, status, now)
	if err != nil {
		t.Fatalf("insert user %s: %v", id, err)
	}
}

func TestPostgresDirectory_Exists(t *testing.T) {
	dir, db := newDirectory(t)
	ctx := context.Background()

	insertUser(t, db, "it-dir-active", "it-dir-active@example.com", domain.UserStatusActive)
	insertUser(t, db, "it-dir-disabled", "it-dir-disabled@example.com", domain.UserStatusDisabled)

	exists, err := dir.Exists(ctx, "it-dir-active")
	if err != nil {
		t.Fatalf("Exists(active): %v", err)
	}
	if !exists {
		t.Error("active user should exist")
	}

	// Disabled users count as absent so their sessions stop validating.
	exists, err = dir.Exists(ctx, "it-dir-disabled")
	if err != nil {
		t.Fatalf("Exists(disabled): %v", err)
	}
	if exists {
		t.Error("disabled user should not count as existing")
	}

	exists, err = dir.Exists(ctx, "it-dir-unknown")
	if err != nil {
		t.Fatalf("Exists(unknown): %v", err)
	}
	if exists {
		t.Error("unknown user should not exist")
	}
}

func TestPostgresDirectory_GetByID(t *testing.T) {
	dir, db := newDirectory(t)
	ctx := context.Background()

	insertUser(t, db, "it-dir-get", "it-dir-get@example.com", domain.UserStatusActive)

	u, err := dir.GetByID(ctx, "it-dir-get")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if u == nil {
		t.Fatal("GetByID returned nil for existing user")
	}
	if u.Email != "it-dir-get@example.com" || u.Status != domain.UserStatusActive {
		t.Errorf("user = %+v", u)
	}

	u, err = dir.GetByID(ctx, "it-dir-missing")
	if err != nil {
		t.Fatalf("GetByID(missing): %v", err)
	}
	if u != nil {
		t.Errorf("GetByID for unknown id = %+v, want nil", u)
	}
}
