package jobs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"skillchat/internal/config"
	"skillchat/internal/database"
	"skillchat/internal/models"
	"skillchat/internal/services"
)

func setupScheduler(t *testing.T) (*Scheduler, *services.CredentialService, *services.CalendarService, *services.TranscriptService) {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "jobs.db"))
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	if err := db.Initialize(); err != nil {
		t.Fatalf("Failed to initialize test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	credentials := services.NewCredentialService(db)
	calendar := services.NewCalendarService(&config.Config{
		GoogleClientID:     "client-id",
		GoogleClientSecret: "client-secret",
	}, credentials, nil)
	transcripts := services.NewTranscriptService(db)

	scheduler, err := NewScheduler(calendar, credentials, transcripts, 30)
	if err != nil {
		t.Fatalf("NewScheduler failed: %v", err)
	}
	return scheduler, credentials, calendar, transcripts
}

func TestRefreshExpiringTokensSweep(t *testing.T) {
	scheduler, credentials, calendar, _ := setupScheduler(t)
	ctx := context.Background()

	var exchanges int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt64(&exchanges, 1)
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "refreshed",
			"refresh_token": "refreshed-refresh",
			"expires_in":    3600,
		})
	}))
	defer srv.Close()
	calendar.TokenURL = srv.URL

	now := time.Now().UTC()
	for _, cred := range []*models.CalendarCredential{
		{UserID: "expiring", AccessToken: "a", RefreshToken: "r", ExpiresAt: now.Add(5 * time.Minute)},
		{UserID: "healthy", AccessToken: "a", RefreshToken: "r", ExpiresAt: now.Add(2 * time.Hour)},
	} {
		if err := credentials.Upsert(ctx, cred); err != nil {
			t.Fatalf("upsert failed: %v", err)
		}
	}

	scheduler.refreshExpiringTokens(ctx)

	if got := atomic.LoadInt64(&exchanges); got != 1 {
		t.Fatalf("expected 1 refresh exchange, got %d", got)
	}

	cred, err := credentials.Get(ctx, "expiring")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if cred.AccessToken != "refreshed" {
		t.Errorf("expected expiring credential refreshed, got %+v", cred)
	}

	cred, err = credentials.Get(ctx, "healthy")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if cred.AccessToken != "a" {
		t.Errorf("expected healthy credential untouched, got %+v", cred)
	}
}

func TestPruneTranscripts(t *testing.T) {
	scheduler, _, _, transcripts := setupScheduler(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for _, msg := range []*models.ChatMessage{
		{UserID: "u1", Role: "user", Content: "ancient", CreatedAt: now.AddDate(0, 0, -60)},
		{UserID: "u1", Role: "user", Content: "recent", CreatedAt: now},
	} {
		if err := transcripts.Append(ctx, msg); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	scheduler.pruneTranscripts(ctx)

	history, err := transcripts.History(ctx, "u1", 0)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 1 || history[0].Content != "recent" {
		t.Errorf("expected only the recent message to survive, got %+v", history)
	}
}
