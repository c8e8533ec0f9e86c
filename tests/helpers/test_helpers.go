package helpers

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SetupTestDB connects to the test database, skipping the test when no
// database URL is configured so the pure unit suites still run alone.
func SetupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL or DATABASE_URL not set, skipping database test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("Failed to ping test database: %v", err)
	}

	return pool
}

// CleanupTestDB removes seeded rows and closes the pool.
func CleanupTestDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()
	for _, stmt := range []string{
		"DELETE FROM user_badges WHERE user_id IN (SELECT id FROM users WHERE email LIKE 'test%@example.com')",
		"DELETE FROM challenge_participants WHERE user_id IN (SELECT id FROM users WHERE email LIKE 'test%@example.com')",
		"DELETE FROM workouts WHERE user_id IN (SELECT id FROM users WHERE email LIKE 'test%@example.com')",
		"DELETE FROM notifications WHERE user_id IN (SELECT id FROM users WHERE email LIKE 'test%@example.com')",
		"DELETE FROM challenges WHERE name LIKE 'test-%'",
		"DELETE FROM badges WHERE name LIKE 'test-%'",
		"DELETE FROM users WHERE email LIKE 'test%@example.com'",
	} {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			t.Logf("Warning: failed to cleanup test data: %v", err)
		}
	}
	pool.Close()
}

// CreateTestUser seeds a user row directly and returns its id.
func CreateTestUser(t *testing.T, pool *pgxpool.Pool, clerkID string) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := pool.Exec(context.Background(), `
		INSERT INTO users (id, clerk_id, email, username, first_name, last_name, image_url, total_points, rank, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'Test', 'User', '', 0, 'Bronze', NOW(), NOW())`,
		id, clerkID, fmt.Sprintf("test.%s@example.com", clerkID), "test_"+clerkID,
	)
	if err != nil {
		t.Fatalf("Failed to seed test user: %v", err)
	}
	return id
}

// CreateTestBadge seeds a badge catalog entry.
func CreateTestBadge(t *testing.T, pool *pgxpool.Pool, name string, points int) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := pool.Exec(context.Background(), `
		INSERT INTO badges (id, name, description, icon, points, rarity, created_at)
		VALUES ($1, $2, 'seeded for tests', '', $3, 'common', NOW())`,
		id, "test-"+name, points,
	)
	if err != nil {
		t.Fatalf("Failed to seed test badge: %v", err)
	}
	return id
}

// MockClerkWebhookPayload builds a webhook body for the given event.
func MockClerkWebhookPayload(eventType, clerkID string) []byte {
	switch eventType {
	case "user.created":
		return []byte(fmt.Sprintf(`{
			"type": "user.created",
			"data": {
				"id": "%s",
				"username": "test_%s",
				"first_name": "Test",
				"last_name": "User",
				"image_url": "",
				"email_addresses": [{"email_address": "test.%s@example.com", "verification": {"status": "verified"}}]
			}
		}`, clerkID, clerkID, clerkID))
	case "user.deleted":
		return []byte(fmt.Sprintf(`{"type": "user.deleted", "data": {"id": "%s"}}`, clerkID))
	}
	return nil
}

// UniqueClerkID returns a clerk id unlikely to collide across runs.
func UniqueClerkID(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, time.Now().Format("20060102150405.000"))
}
