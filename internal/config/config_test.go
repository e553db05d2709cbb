package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("APP_URL", "")
	t.Setenv("GOOGLE_REDIRECT_URI", "")

	cfg := Load()

	if cfg.Port != "3001" {
		t.Errorf("expected default port 3001, got %q", cfg.Port)
	}
	if cfg.GoogleRedirectURI != "http://localhost:3001/api/calendar/callback" {
		t.Errorf("expected redirect URI derived from app URL, got %q", cfg.GoogleRedirectURI)
	}
	if cfg.AccessTokenExpiry != 15*time.Minute {
		t.Errorf("expected default access expiry, got %v", cfg.AccessTokenExpiry)
	}
}

func TestLoadRedirectURIFollowsAppURL(t *testing.T) {
	t.Setenv("APP_URL", "https://chat.example.com")
	t.Setenv("GOOGLE_REDIRECT_URI", "")

	cfg := Load()

	if cfg.GoogleRedirectURI != "https://chat.example.com/api/calendar/callback" {
		t.Errorf("expected redirect URI on the public base URL, got %q", cfg.GoogleRedirectURI)
	}
}

func TestLoadExplicitRedirectURIWins(t *testing.T) {
	t.Setenv("APP_URL", "https://chat.example.com")
	t.Setenv("GOOGLE_REDIRECT_URI", "https://other.example.com/callback")

	cfg := Load()

	if cfg.GoogleRedirectURI != "https://other.example.com/callback" {
		t.Errorf("expected explicit redirect URI kept, got %q", cfg.GoogleRedirectURI)
	}
}
