// Package testutil provides test utilities and helpers.
package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"sharebox/internal/db"
	"sharebox/internal/models"
)

// TestDB creates a test database connection and returns a cleanup function.
// Skips the test unless TEST_DATABASE_URL is set.
func TestDB(t *testing.T) (*db.DB, func()) {
	t.Helper()

	connString := os.Getenv("TEST_DATABASE_URL")
	if connString == "" {
		t.Skip("Skipping integration test: TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	database, err := db.New(ctx, connString)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	if err := database.RunMigrations(connString); err != nil {
		database.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	cleanupTestData(ctx, database.Pool)

	cleanup := func() {
		cleanupTestData(ctx, database.Pool)
		database.Close()
	}

	return database, cleanup
}

// cleanupTestData removes all test data from the database.
func cleanupTestData(ctx context.Context, pool *pgxpool.Pool) {
	// Files cascade with shares
	pool.Exec(ctx, "DELETE FROM shares")
	pool.Exec(ctx, "DELETE FROM retired_links")
	pool.Exec(ctx, "DELETE FROM users")
}

// CreateTestUser creates a test user and returns it.
func CreateTestUser(t *testing.T, database *db.DB, sub, email string) *models.User {
	t.Helper()

	user := &models.User{
		Sub:   sub,
		Email: email,
		Name:  fmt.Sprintf("Test User %s", sub),
	}
	if err := database.UpsertUser(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestShare inserts a share expiring after ttl and returns it.
func CreateTestShare(t *testing.T, database *db.DB, link string, ttl time.Duration, ownerID *uuid.UUID) *models.Share {
	t.Helper()

	share := &models.Share{
		Link:      link,
		ExpiresAt: time.Now().Add(ttl).UTC(),
		OwnerID:   ownerID,
	}
	if err := database.CreateShare(context.Background(), share); err != nil {
		t.Fatalf("failed to create test share: %v", err)
	}
	return share
}
