package remote

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"

	"github.com/iconidentify/groupgrab/internal/domain"
)

// LoadOAuthConfig reads an OAuth client file as downloaded from the Google
// console. Both "installed" and "web" client types are accepted.
func LoadOAuthConfig(path string) (*oauth2.Config, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: oauth credentials path is empty", domain.ErrConfiguration)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read oauth credentials: %v", domain.ErrConfiguration, err)
	}
	cfg, err := google.ConfigFromJSON(data, drive.DriveScope)
	if err != nil {
		return nil, fmt.Errorf("%w: parse oauth credentials: %v", domain.ErrConfiguration, err)
	}
	return cfg, nil
}

// LoadToken reads a saved OAuth token.
func LoadToken(path string) (*oauth2.Token, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: oauth token path is empty", domain.ErrConfiguration)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read oauth token: %v", domain.ErrConfiguration, err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("%w: decode oauth token: %v", domain.ErrConfiguration, err)
	}
	return &tok, nil
}

// SaveToken writes a token readable only by the owner.
func SaveToken(path string, tok *oauth2.Token) error {
	if path == "" {
		return fmt.Errorf("token path is empty")
	}
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("encode oauth token: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write oauth token: %w", err)
	}
	return nil
}
