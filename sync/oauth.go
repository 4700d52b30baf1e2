// ABOUTME: Google OAuth configuration, token storage and API service construction
// ABOUTME: Tokens live under the XDG data dir; services share one refreshing HTTP client
package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
	"google.golang.org/api/people/v1"
)

// OAuthCallbackPath is where the local redirect server listens during `kin sync init`.
const (
	OAuthCallbackAddr = "localhost:8080"
	OAuthCallbackPath = "/oauth/callback"
)

var ErrOAuthNotConfigured = errors.New("google OAuth credentials not configured: set GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET")

// NewOAuthConfig builds the read-only Google config from GOOGLE_CLIENT_ID and
// GOOGLE_CLIENT_SECRET.
func NewOAuthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		RedirectURL:  "http://" + OAuthCallbackAddr + OAuthCallbackPath,
		Scopes: []string{
			people.ContactsReadonlyScope,
			calendar.CalendarReadonlyScope,
			gmail.GmailReadonlyScope,
		},
		Endpoint: google.Endpoint,
	}
}

// RequireOAuthConfig returns the config or ErrOAuthNotConfigured.
func RequireOAuthConfig() (*oauth2.Config, error) {
	cfg := NewOAuthConfig()
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, ErrOAuthNotConfigured
	}
	return cfg, nil
}

func TokenPath() string {
	return filepath.Join(xdg.DataHome, "kin", "google-credentials.json")
}

func SaveToken(token *oauth2.Token) error {
	path := TokenPath()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create token file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	return nil
}

func LoadToken() (*oauth2.Token, error) {
	f, err := os.Open(TokenPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open token file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var token oauth2.Token
	if err := json.NewDecoder(f).Decode(&token); err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}
	return &token, nil
}

// Services holds the Google API clients the importers use.
type Services struct {
	People   *people.Service
	Gmail    *gmail.Service
	Calendar *calendar.Service
}

// NewServices builds every API client from a stored token. The HTTP client
// refreshes the token as needed.
func NewServices(ctx context.Context, token *oauth2.Token) (*Services, error) {
	if token == nil {
		return nil, fmt.Errorf("token cannot be nil")
	}
	httpClient := NewOAuthConfig().Client(ctx, token)
	opt := option.WithHTTPClient(httpClient)

	peopleSvc, err := people.NewService(ctx, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to create People service: %w", err)
	}
	gmailSvc, err := gmail.NewService(ctx, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	calendarSvc, err := calendar.NewService(ctx, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}
	return &Services{People: peopleSvc, Gmail: gmailSvc, Calendar: calendarSvc}, nil
}
