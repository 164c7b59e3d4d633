// Package token exchanges stored refresh credentials for short-lived platform access tokens.
package token

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"bosko/cache"
	"bosko/core/apperr"
	"bosko/logger"
	"bosko/model"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// YouTubeUploadScope is the only scope requested from Google.
const YouTubeUploadScope = "https://www.googleapis.com/auth/youtube.upload"

// DefaultTimeout bounds one call to a token endpoint.
const DefaultTimeout = 30 * time.Second

// Cache stores access tokens between requests.
type Cache interface {
	Get(ctx context.Context, key string) (*oauth2.Token, error)
	Set(ctx context.Context, key string, tok *oauth2.Token) error
}

// Broker issues access tokens for one platform.
type Broker struct {
	platform     model.Platform
	endpoint     oauth2.Endpoint
	scopes       []string
	clientID     string
	clientSecret string
	store        CredentialStore
	cache        Cache
	httpClient   *http.Client
	timeout      time.Duration
}

// Option configures a Broker.
type Option func(*Broker)

// WithCache enables access token caching.
func WithCache(c Cache) Option {
	return func(b *Broker) { b.cache = c }
}

// WithHTTPClient sets the client used to reach the token endpoint.
func WithHTTPClient(c *http.Client) Option {
	return func(b *Broker) { b.httpClient = c }
}

// WithTimeout bounds each token endpoint call.
func WithTimeout(d time.Duration) Option {
	return func(b *Broker) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// NewBroker creates a Broker. clientID and clientSecret are used when a credential carries none.
func NewBroker(platform model.Platform, endpoint oauth2.Endpoint, scopes []string, clientID, clientSecret string, store CredentialStore, opts ...Option) *Broker {
	b := &Broker{
		platform:     platform,
		endpoint:     endpoint,
		scopes:       scopes,
		clientID:     clientID,
		clientSecret: clientSecret,
		store:        store,
		timeout:      DefaultTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewMarketplaceBroker refreshes BeatStars tokens. The token endpoint expects client credentials in the form body.
func NewMarketplaceBroker(apiURL, clientID, clientSecret string, store CredentialStore, opts ...Option) *Broker {
	endpoint := oauth2.Endpoint{
		TokenURL:  strings.TrimRight(apiURL, "/") + "/auth/oauth/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
	return NewBroker(model.PlatformBeatstars, endpoint, nil, clientID, clientSecret, store, opts...)
}

// NewGoogleBroker refreshes Google tokens for YouTube uploads.
func NewGoogleBroker(clientID, clientSecret string, store CredentialStore, opts ...Option) *Broker {
	return NewBroker(model.PlatformYouTube, google.Endpoint, []string{YouTubeUploadScope}, clientID, clientSecret, store, opts...)
}

// Platform returns the platform served by b.
func (b *Broker) Platform() model.Platform {
	return b.platform
}

func (b *Broker) config(cred *model.OAuthCredential, redirectURL string) *oauth2.Config {
	clientID, clientSecret := b.clientID, b.clientSecret
	if cred != nil && cred.ClientID != "" {
		clientID, clientSecret = cred.ClientID, cred.ClientSecret
	}
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     b.endpoint,
		Scopes:       b.scopes,
		RedirectURL:  redirectURL,
	}
}

// endpointContext bounds a token endpoint call and carries the configured client.
func (b *Broker) endpointContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	if b.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, b.httpClient)
	}
	return ctx, cancel
}

// endpointError classifies a failed token endpoint call. oauth2 flattens the
// transport error, so the deadline is read from the call context.
func (b *Broker) endpointError(callCtx context.Context, err error) error {
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return apperr.Timeout("%s token endpoint did not answer within %s", b.platform, b.timeout)
	}
	return apperr.AuthRejected(string(b.platform), err)
}

// AccessToken returns a valid access token for owner.
// A missing credential is a not-connected error; a refusal by the platform is an auth-rejected error.
// An endpoint that does not answer within the broker timeout is a timeout error.
func (b *Broker) AccessToken(ctx context.Context, owner Owner) (*oauth2.Token, error) {
	cred, err := b.store.Credential(ctx, owner, b.platform)
	if err != nil {
		return nil, err
	}
	if cred == nil || cred.RefreshToken == "" {
		return nil, apperr.NotConnected(string(b.platform))
	}

	key := cache.TokenKey(string(b.platform), owner.UserID, owner.ProfileID)
	if b.cache != nil {
		tok, err := b.cache.Get(ctx, key)
		if err != nil {
			logger.Warn("token cache read failed", logger.String("key", key), logger.ErrorField(err))
		} else if tok != nil {
			return tok, nil
		}
	}

	callCtx, cancel := b.endpointContext(ctx)
	defer cancel()
	tok, err := b.config(cred, "").TokenSource(callCtx, &oauth2.Token{RefreshToken: cred.RefreshToken}).Token()
	if err != nil {
		logger.Error("token refresh failed",
			logger.String("platform", string(b.platform)),
			logger.Int64("user_id", owner.UserID),
			logger.ErrorField(err))
		return nil, b.endpointError(callCtx, err)
	}

	if tok.RefreshToken != "" && tok.RefreshToken != cred.RefreshToken {
		if err := b.store.SaveRefreshToken(ctx, cred.ID, tok.RefreshToken); err != nil {
			logger.Warn("failed to persist rotated refresh token",
				logger.String("platform", string(b.platform)),
				logger.Int64("credential_id", cred.ID),
				logger.ErrorField(err))
		}
	}

	if b.cache != nil {
		if err := b.cache.Set(ctx, key, tok); err != nil {
			logger.Warn("token cache write failed", logger.String("key", key), logger.ErrorField(err))
		}
	}
	return tok, nil
}

// Linker runs the authorization-code flow that connects a platform account.
type Linker struct {
	broker      *Broker
	redirectURL string
}

// Linker returns a Linker redirecting to redirectURL.
func (b *Broker) Linker(redirectURL string) *Linker {
	return &Linker{broker: b, redirectURL: redirectURL}
}

// AuthURL returns the consent page URL. Offline access and forced consent make the platform return a refresh token.
func (l *Linker) AuthURL(state string) string {
	return l.broker.config(nil, l.redirectURL).AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"))
}

// Exchange trades an authorization code for a refresh token and stores it for owner.
func (l *Linker) Exchange(ctx context.Context, owner Owner, code string, label string) (*model.OAuthCredential, error) {
	b := l.broker
	callCtx, cancel := b.endpointContext(ctx)
	defer cancel()
	tok, err := b.config(nil, l.redirectURL).Exchange(callCtx, code)
	if err != nil {
		return nil, b.endpointError(callCtx, err)
	}
	if tok.RefreshToken == "" {
		return nil, apperr.Protocol(string(b.platform)+" did not return a refresh token", nil)
	}

	cred := &model.OAuthCredential{
		Label:        label,
		ClientID:     b.clientID,
		ClientSecret: b.clientSecret,
		RefreshToken: tok.RefreshToken,
	}
	if err := b.store.Link(ctx, owner, b.platform, cred); err != nil {
		return nil, err
	}
	logger.Info("platform account linked",
		logger.String("platform", string(b.platform)),
		logger.Int64("user_id", owner.UserID),
		logger.String("profile_id", owner.ProfileID))
	return cred, nil
}
