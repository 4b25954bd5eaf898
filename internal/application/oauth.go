// Package application contains use-case orchestration services.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/microsoft"

	"github.com/avillegas/studyhub/internal/domain/model"
	"github.com/avillegas/studyhub/internal/domain/port/driven"
)

// Provider holds the static OAuth2 parameters for one external source.
type Provider struct {
	Source          model.SourceType
	Endpoint        oauth2.Endpoint
	Scopes          []string
	AuthCodeOptions []oauth2.AuthCodeOption
	ClientID        string
	ClientSecret    string
}

// OAuthCredentials is the client-ID/secret configuration for all providers,
// loaded from the environment.
type OAuthCredentials struct {
	CanvasBaseURL      string
	CanvasClientID     string
	CanvasClientSecret string
	MicrosoftClientID  string
	MicrosoftSecret    string
	MicrosoftTenantID  string
	GoogleClientID     string
	GoogleClientSecret string
	HandshakeClientID  string
	HandshakeSecret    string
}

// BuildProviders assembles the provider table from configured credentials.
// Providers with no client ID are still listed: the login endpoint returns
// an auth URL with an empty client_id so the frontend can detect the missing
// configuration, and only the code exchange hard-fails.
func BuildProviders(creds OAuthCredentials) map[model.SourceType]Provider {
	canvasBase := strings.TrimRight(creds.CanvasBaseURL, "/")
	tenant := creds.MicrosoftTenantID
	if tenant == "" {
		tenant = "common"
	}

	return map[model.SourceType]Provider{
		model.SourceCanvas: {
			Source: model.SourceCanvas,
			Endpoint: oauth2.Endpoint{
				AuthURL:  canvasBase + "/login/oauth2/auth",
				TokenURL: canvasBase + "/login/oauth2/token",
			},
			ClientID:     creds.CanvasClientID,
			ClientSecret: creds.CanvasClientSecret,
		},
		model.SourceOutlook: {
			Source:   model.SourceOutlook,
			Endpoint: microsoft.AzureADEndpoint(tenant),
			Scopes: []string{
				"offline_access",
				"https://graph.microsoft.com/User.Read",
				"https://graph.microsoft.com/Calendars.Read",
				"https://graph.microsoft.com/Mail.Read",
			},
			ClientID:     creds.MicrosoftClientID,
			ClientSecret: creds.MicrosoftSecret,
		},
		model.SourceGoogleCalendar: {
			Source:   model.SourceGoogleCalendar,
			Endpoint: google.Endpoint,
			Scopes: []string{
				"https://www.googleapis.com/auth/calendar.readonly",
				"https://www.googleapis.com/auth/userinfo.email",
			},
			// Google only issues a refresh token on consent with offline access.
			AuthCodeOptions: []oauth2.AuthCodeOption{
				oauth2.AccessTypeOffline,
				oauth2.SetAuthURLParam("prompt", "consent"),
			},
			ClientID:     creds.GoogleClientID,
			ClientSecret: creds.GoogleClientSecret,
		},
		model.SourceHandshake: {
			Source: model.SourceHandshake,
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://api.joinhandshake.com/oauth/authorize",
				TokenURL: "https://api.joinhandshake.com/oauth/token",
			},
			ClientID:     creds.HandshakeClientID,
			ClientSecret: creds.HandshakeSecret,
		},
	}
}

// OAuthService manages the token lifecycle for every connected source:
// building authorization URLs, exchanging codes, refreshing expired tokens,
// and storing manually supplied tokens.
type OAuthService struct {
	creds     driven.CredentialStore
	providers map[model.SourceType]Provider
	now       func() time.Time
}

// NewOAuthService creates an OAuthService over the given provider table.
func NewOAuthService(creds driven.CredentialStore, providers map[model.SourceType]Provider) *OAuthService {
	return &OAuthService{
		creds:     creds,
		providers: providers,
		now:       time.Now,
	}
}

func (s *OAuthService) config(p Provider, redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     p.ClientID,
		ClientSecret: p.ClientSecret,
		Endpoint:     p.Endpoint,
		RedirectURL:  redirectURI,
		Scopes:       p.Scopes,
	}
}

// AuthorizationURL builds the provider's authorization URL for the given
// redirect URI and state. An unconfigured provider still yields a URL
// (with an empty client_id); only unknown sources are rejected.
func (s *OAuthService) AuthorizationURL(source model.SourceType, redirectURI, state string) (string, error) {
	p, ok := s.providers[source]
	if !ok {
		return "", fmt.Errorf("source %s does not support oauth: %w", source, model.ErrValidation)
	}

	return s.config(p, redirectURI).AuthCodeURL(state, p.AuthCodeOptions...), nil
}

// ExchangeCode redeems an authorization code for tokens and upserts the
// resulting credential, replacing any previous credential for that source.
func (s *OAuthService) ExchangeCode(ctx context.Context, userID int64, source model.SourceType, code, redirectURI string) (model.Credential, error) {
	p, ok := s.providers[source]
	if !ok {
		return model.Credential{}, fmt.Errorf("source %s does not support oauth: %w", source, model.ErrValidation)
	}
	if p.ClientID == "" || p.ClientSecret == "" {
		return model.Credential{}, fmt.Errorf("%s oauth client: %w", source, model.ErrNotConfigured)
	}

	token, err := s.config(p, redirectURI).Exchange(ctx, code)
	if err != nil {
		return model.Credential{}, fmt.Errorf("%v: %w", err, model.ErrExchangeFailed)
	}

	cred := model.Credential{
		UserID:       userID,
		Source:       source,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		ExpiresAt:    token.Expiry,
	}

	stored, err := s.creds.Upsert(ctx, cred)
	if err != nil {
		return model.Credential{}, err
	}

	slog.Info("oauth credential stored", "user_id", userID, "source", source)
	return stored, nil
}

// StoreManualToken stores a user-supplied long-lived access token, such as a
// Canvas personal access token. Manual tokens carry no refresh token and no
// expiry; they are used as-is until revoked.
func (s *OAuthService) StoreManualToken(ctx context.Context, userID int64, source model.SourceType, accessToken, baseURL string) (model.Credential, error) {
	cred := model.Credential{
		UserID:      userID,
		Source:      source,
		AccessToken: accessToken,
		TokenType:   "Bearer",
		BaseURL:     baseURL,
	}

	stored, err := s.creds.Upsert(ctx, cred)
	if err != nil {
		return model.Credential{}, err
	}

	slog.Info("manual token stored", "user_id", userID, "source", source)
	return stored, nil
}

// EnsureValidToken returns the stored credential for (user, source),
// refreshing it first if the access token has expired. Credentials without
// an expiry but with a refresh token are treated as expired, since we cannot
// know their remaining lifetime. Returns model.ErrNotConnected when no
// credential exists.
func (s *OAuthService) EnsureValidToken(ctx context.Context, userID int64, source model.SourceType) (model.Credential, error) {
	cred, err := s.creds.Get(ctx, userID, source)
	if err != nil {
		return model.Credential{}, err
	}
	if cred == nil {
		return model.Credential{}, fmt.Errorf("%s for user %d: %w", source, userID, model.ErrNotConnected)
	}

	now := s.now()
	expired := !cred.ExpiresAt.IsZero() && !cred.ExpiresAt.After(now)
	unknownLifetime := cred.ExpiresAt.IsZero() && cred.RefreshToken != ""

	if expired || unknownLifetime {
		return s.refresh(ctx, *cred)
	}

	return *cred, nil
}

// ForceRefresh refreshes the credential regardless of its recorded expiry.
// Used after an external API rejects a token that looked valid locally.
func (s *OAuthService) ForceRefresh(ctx context.Context, userID int64, source model.SourceType) (model.Credential, error) {
	cred, err := s.creds.Get(ctx, userID, source)
	if err != nil {
		return model.Credential{}, err
	}
	if cred == nil {
		return model.Credential{}, fmt.Errorf("%s for user %d: %w", source, userID, model.ErrNotConnected)
	}

	return s.refresh(ctx, *cred)
}

func (s *OAuthService) refresh(ctx context.Context, cred model.Credential) (model.Credential, error) {
	if cred.RefreshToken == "" {
		return model.Credential{}, fmt.Errorf("no refresh token for %s: %w", cred.Source, model.ErrRefreshFailed)
	}

	p, ok := s.providers[cred.Source]
	if !ok {
		return model.Credential{}, fmt.Errorf("source %s does not support oauth: %w", cred.Source, model.ErrValidation)
	}

	ts := s.config(p, "").TokenSource(ctx, &oauth2.Token{RefreshToken: cred.RefreshToken})
	token, err := ts.Token()
	if err != nil {
		return model.Credential{}, fmt.Errorf("%v: %w", err, model.ErrRefreshFailed)
	}

	cred.AccessToken = token.AccessToken
	cred.ExpiresAt = token.Expiry
	if token.TokenType != "" {
		cred.TokenType = token.TokenType
	}
	// Providers that rotate refresh tokens return a new one; those that do not
	// leave the field empty, so keep the old token in that case.
	if token.RefreshToken != "" {
		cred.RefreshToken = token.RefreshToken
	}

	stored, err := s.creds.Upsert(ctx, cred)
	if err != nil {
		return model.Credential{}, err
	}

	slog.Info("token refreshed", "user_id", cred.UserID, "source", cred.Source)
	return stored, nil
}
