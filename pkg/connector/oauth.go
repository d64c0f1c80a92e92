package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// driveScopes requests read-only file access plus the email claim used to
// label the linked account in the workspace's connector settings.
var driveScopes = []string{
	"https://www.googleapis.com/auth/drive.readonly",
	"https://www.googleapis.com/auth/userinfo.email",
}

const googleUserinfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// TokenResponse is what a completed authorization-code exchange yields.
type TokenResponse struct {
	AccessToken  string
	RefreshToken string
	Email        string
	ExpiresIn    int
}

// GoogleOAuth implements the authorization-code exchange and refresh-token
// flows against Google's OAuth2 endpoints, grounded on GoogleOAuthAdapter.
type GoogleOAuth struct {
	config *oauth2.Config
}

func NewGoogleOAuth(clientID, clientSecret string) (*GoogleOAuth, error) {
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("connector: GOOGLE_OAUTH_CLIENT_ID and GOOGLE_OAUTH_CLIENT_SECRET are required")
	}
	return &GoogleOAuth{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       driveScopes,
		},
	}, nil
}

// BuildAuthorizationURL constructs the consent-screen URL. access_type=offline
// plus prompt=consent force Google to issue a refresh token even for a user
// who previously granted consent without one.
func (g *GoogleOAuth) BuildAuthorizationURL(state, redirectURI string) string {
	cfg := *g.config
	cfg.RedirectURL = redirectURI
	return cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
}

// ExchangeCode trades an authorization code for tokens and resolves the
// account's email, failing if Google does not return a refresh token.
func (g *GoogleOAuth) ExchangeCode(ctx context.Context, code, redirectURI string) (TokenResponse, error) {
	cfg := *g.config
	cfg.RedirectURL = redirectURI

	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return TokenResponse{}, fmt.Errorf("connector: token exchange failed: %w", err)
	}
	if token.RefreshToken == "" {
		return TokenResponse{}, fmt.Errorf("connector: no refresh_token in response (ensure access_type=offline and prompt=consent)")
	}

	email, err := g.fetchEmail(ctx, token.AccessToken)
	if err != nil {
		return TokenResponse{}, err
	}

	return TokenResponse{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Email:        email,
		ExpiresIn:    3600,
	}, nil
}

// RefreshAccessToken implements sync.OAuthRefresher, minting a fresh access
// token from a stored refresh token without requiring user interaction.
func (g *GoogleOAuth) RefreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	src := g.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := src.Token()
	if err != nil {
		return "", fmt.Errorf("connector: refresh access token failed: %w", err)
	}
	return token.AccessToken, nil
}

func (g *GoogleOAuth) fetchEmail(ctx context.Context, accessToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, googleUserinfoURL, nil)
	if err != nil {
		return "", fmt.Errorf("connector: build userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("connector: fetch userinfo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("connector: userinfo status %d", resp.StatusCode)
	}

	var body struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("connector: decode userinfo: %w", err)
	}
	if body.Email == "" {
		return "unknown", nil
	}
	return body.Email, nil
}
