package remote

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/iconidentify/groupgrab/internal/domain"
)

const installedCredentials = `{
  "installed": {
    "client_id": "client.apps.googleusercontent.com",
    "client_secret": "secret",
    "auth_uri": "https://accounts.google.com/o/oauth2/auth",
    "token_uri": "https://oauth2.googleapis.com/token",
    "redirect_uris": ["http://localhost"]
  }
}`

func TestLoadOAuthConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	if err := os.WriteFile(path, []byte(installedCredentials), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadOAuthConfig(path)
	if err != nil {
		t.Fatalf("LoadOAuthConfig() error = %v", err)
	}
	if cfg.ClientID != "client.apps.googleusercontent.com" {
		t.Errorf("ClientID = %q", cfg.ClientID)
	}
	if cfg.RedirectURL != "http://localhost" {
		t.Errorf("RedirectURL = %q", cfg.RedirectURL)
	}
}

func TestLoadOAuthConfig_Errors(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "bad.json")
	os.WriteFile(bad, []byte(`{"nope":true}`), 0600)

	for _, path := range []string{"", filepath.Join(t.TempDir(), "missing.json"), bad} {
		if _, err := LoadOAuthConfig(path); !errors.Is(err, domain.ErrConfiguration) {
			t.Errorf("LoadOAuthConfig(%q) error = %v, want ErrConfiguration", path, err)
		}
	}
}

func TestSaveAndLoadToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds", "token.json")
	tok := &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(time.Hour).Round(time.Second),
	}

	if err := SaveToken(path, tok); err != nil {
		t.Fatalf("SaveToken() error = %v", err)
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat token: %v", err)
		}
		if perm := info.Mode().Perm(); perm != 0600 {
			t.Errorf("token permissions = %o, want 600", perm)
		}
	}

	got, err := LoadToken(path)
	if err != nil {
		t.Fatalf("LoadToken() error = %v", err)
	}
	if got.RefreshToken != "refresh" || got.AccessToken != "access" {
		t.Errorf("LoadToken() = %+v", got)
	}
	if !got.Expiry.Equal(tok.Expiry) {
		t.Errorf("Expiry = %v, want %v", got.Expiry, tok.Expiry)
	}
}

func TestLoadToken_Errors(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "token.json")
	os.WriteFile(bad, []byte("not json"), 0600)

	for _, path := range []string{"", filepath.Join(t.TempDir(), "missing.json"), bad} {
		if _, err := LoadToken(path); !errors.Is(err, domain.ErrConfiguration) {
			t.Errorf("LoadToken(%q) error = %v, want ErrConfiguration", path, err)
		}
	}
}
