// ABOUTME: Tests for Google OAuth config and token storage
// ABOUTME: Redirects XDG data home to a temp dir for token round trips
package sync

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/adrg/xdg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestOAuthConfigScopes(t *testing.T) {
	config := NewOAuthConfig()
	assert.ElementsMatch(t, []string{
		"https://www.googleapis.com/auth/contacts.readonly",
		"https://www.googleapis.com/auth/calendar.readonly",
		"https://www.googleapis.com/auth/gmail.readonly",
	}, config.Scopes)
	assert.Equal(t, "http://localhost:8080/oauth/callback", config.RedirectURL)
}

func TestRequireOAuthConfig(t *testing.T) {
	t.Setenv("GOOGLE_CLIENT_ID", "")
	t.Setenv("GOOGLE_CLIENT_SECRET", "")
	_, err := RequireOAuthConfig()
	assert.ErrorIs(t, err, ErrOAuthNotConfigured)

	t.Setenv("GOOGLE_CLIENT_ID", "id")
	t.Setenv("GOOGLE_CLIENT_SECRET", "secret")
	cfg, err := RequireOAuthConfig()
	require.NoError(t, err)
	assert.Equal(t, "id", cfg.ClientID)
}

func TestTokenRoundTrip(t *testing.T) {
	origHome := xdg.DataHome
	xdg.DataHome = t.TempDir()
	defer func() { xdg.DataHome = origHome }()

	assert.Equal(t, filepath.Join(xdg.DataHome, "kin", "google-credentials.json"), TokenPath())

	_, err := LoadToken()
	assert.Error(t, err)

	expiry := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, SaveToken(&oauth2.Token{AccessToken: "access", RefreshToken: "refresh", Expiry: expiry}))

	info, err := os.Stat(TokenPath())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	token, err := LoadToken()
	require.NoError(t, err)
	assert.Equal(t, "refresh", token.RefreshToken)
	assert.True(t, token.Expiry.Equal(expiry))
}

func TestNewServicesRequiresToken(t *testing.T) {
	_, err := NewServices(context.Background(), nil)
	assert.Error(t, err)

	services, err := NewServices(context.Background(), &oauth2.Token{AccessToken: "x"})
	require.NoError(t, err)
	assert.NotNil(t, services.People)
	assert.NotNil(t, services.Gmail)
	assert.NotNil(t, services.Calendar)
}
