package cache

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"golang.org/x/oauth2"
)

func TestTokenKey(t *testing.T) {
	assert.Equal(t, "token:BEATSTARS:7:p-1", TokenKey("BEATSTARS", 7, "p-1"))
	assert.Equal(t, "token:YOUTUBE:7:-", TokenKey("YOUTUBE", 7, ""))
}

func TestSetSkipsUncacheableTokens(t *testing.T) {
	// Unreachable address: any network call would fail the assertions below.
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	defer client.Close()
	c := NewTokenCache(client)
	ctx := context.Background()

	assert.NoError(t, c.Set(ctx, "k", nil))
	assert.NoError(t, c.Set(ctx, "k", &oauth2.Token{AccessToken: "a"}))
	assert.NoError(t, c.Set(ctx, "k", &oauth2.Token{AccessToken: "a", Expiry: time.Now().Add(10 * time.Second)}))
	assert.Error(t, c.Set(ctx, "k", &oauth2.Token{AccessToken: "a", Expiry: time.Now().Add(time.Hour)}))
}
