// Package salesforce provides the remote API adapters for the test-run
// tracker: credential refresh against the org's token endpoint and the
// Tooling API query/start operations.
package salesforce

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/MuriloKakazu/salesforcedx-apex/internal/ports"
)

// CredentialConfig holds the refresh-token grant parameters for an org
// connection.
type CredentialConfig struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	// TokenURL is the org token endpoint, e.g.
	// https://login.salesforce.com/services/oauth2/token.
	TokenURL   string
	HTTPClient *http.Client // Optional, defaults to a 30s-timeout client
}

// CredentialSource implements ports.CredentialSource with an OAuth2
// refresh-token grant. Every Refresh call performs the grant: access tokens
// can silently expire between client construction and use, so nothing is
// cached here.
type CredentialSource struct {
	config       *oauth2.Config
	refreshToken string
	httpClient   *http.Client
}

// NewCredentialSource creates a credential source from config.
func NewCredentialSource(cfg CredentialConfig) (*CredentialSource, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if cfg.RefreshToken == "" {
		return nil, errors.New("refresh token is required")
	}
	if cfg.TokenURL == "" {
		return nil, errors.New("token URL is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &CredentialSource{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     oauth2.Endpoint{TokenURL: strings.TrimSpace(cfg.TokenURL)},
		},
		refreshToken: cfg.RefreshToken,
		httpClient:   httpClient,
	}, nil
}

// Refresh performs the grant and returns the fresh access token.
func (s *CredentialSource) Refresh(ctx context.Context) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	token, err := s.config.TokenSource(ctx, &oauth2.Token{RefreshToken: s.refreshToken}).Token()
	if err != nil {
		return "", fmt.Errorf("refresh token grant: %w", err)
	}
	return token.AccessToken, nil
}

var _ ports.CredentialSource = (*CredentialSource)(nil)
