package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"golang.org/x/oauth2"
)

// expirySkew is subtracted from the upstream expiry so a cached token is never handed out about to expire.
const expirySkew = 30 * time.Second

// TokenCache keeps short-lived access tokens in Redis.
type TokenCache struct {
	client *redis.Client
}

// NewTokenCache creates a TokenCache on top of client.
func NewTokenCache(client *redis.Client) *TokenCache {
	return &TokenCache{client: client}
}

// TokenKey returns the cache key for a platform token of one owner.
func TokenKey(platform string, userID int64, profileID string) string {
	if profileID == "" {
		profileID = "-"
	}
	return fmt.Sprintf("token:%s:%d:%s", platform, userID, profileID)
}

type cachedToken struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	Expiry      time.Time `json:"expiry"`
}

// Get returns the cached token, or nil on a miss.
func (c *TokenCache) Get(ctx context.Context, key string) (*oauth2.Token, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token cache: %w", err)
	}

	var ct cachedToken
	if err := json.Unmarshal(raw, &ct); err != nil {
		// Corrupt entries are treated as a miss.
		c.client.Del(ctx, key)
		return nil, nil
	}
	return &oauth2.Token{AccessToken: ct.AccessToken, TokenType: ct.TokenType, Expiry: ct.Expiry}, nil
}

// Set stores the access part of tok. Tokens without expiry or too close to it are not cached.
func (c *TokenCache) Set(ctx context.Context, key string, tok *oauth2.Token) error {
	if tok == nil || tok.AccessToken == "" || tok.Expiry.IsZero() {
		return nil
	}
	ttl := time.Until(tok.Expiry) - expirySkew
	if ttl <= 0 {
		return nil
	}

	raw, err := json.Marshal(cachedToken{AccessToken: tok.AccessToken, TokenType: tok.TokenType, Expiry: tok.Expiry})
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write token cache: %w", err)
	}
	return nil
}

// Delete drops a cached token.
func (c *TokenCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// Flush drops every cached token and returns how many keys were removed.
func (c *TokenCache) Flush(ctx context.Context) (int, error) {
	removed := 0
	iter := c.client.Scan(ctx, 0, "token:*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return removed, fmt.Errorf("failed to delete %s: %w", iter.Val(), err)
		}
		removed++
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("failed to scan token cache: %w", err)
	}
	return removed, nil
}
