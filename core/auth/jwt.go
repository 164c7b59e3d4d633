package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	sessionAudience = "bosko-session"
	stateAudience   = "bosko-oauth-state"
	issuer          = "bosko"
)

// Claims are the session token claims.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// UserID returns the numeric subject.
func (c *Claims) UserID() (int64, error) {
	return strconv.ParseInt(c.Subject, 10, 64)
}

// OAuthState is carried through a platform consent redirect.
type OAuthState struct {
	UserID    int64  `json:"uid"`
	ProfileID string `json:"pid,omitempty"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 tokens.
type Issuer struct {
	secret     []byte
	sessionTTL time.Duration
	stateTTL   time.Duration
	now        func() time.Time
}

// NewIssuer creates an Issuer. Sessions last 24h, consent states 10 minutes.
func NewIssuer(secret string) (*Issuer, error) {
	if secret == "" {
		return nil, errors.New("empty signing secret")
	}
	return &Issuer{
		secret:     []byte(secret),
		sessionTTL: 24 * time.Hour,
		stateTTL:   10 * time.Minute,
		now:        time.Now,
	}, nil
}

func (i *Issuer) registered(subject, audience string, ttl time.Duration) jwt.RegisteredClaims {
	now := i.now()
	return jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   subject,
		Audience:  jwt.ClaimStrings{audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

// IssueToken returns a signed session token for a user.
func (i *Issuer) IssueToken(userID int64, email string) (string, error) {
	claims := Claims{
		Email:            email,
		RegisteredClaims: i.registered(strconv.FormatInt(userID, 10), sessionAudience, i.sessionTTL),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// ParseToken verifies a session token.
func (i *Issuer) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	if err := i.parse(tokenString, claims, sessionAudience); err != nil {
		return nil, err
	}
	if _, err := claims.UserID(); err != nil {
		return nil, fmt.Errorf("invalid subject: %w", err)
	}
	return claims, nil
}

// SignState returns a signed consent state for owner.
func (i *Issuer) SignState(userID int64, profileID string) (string, error) {
	state := OAuthState{
		UserID:           userID,
		ProfileID:        profileID,
		RegisteredClaims: i.registered(strconv.FormatInt(userID, 10), stateAudience, i.stateTTL),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, state).SignedString(i.secret)
}

// ParseState verifies a consent state returned by the platform.
func (i *Issuer) ParseState(s string) (*OAuthState, error) {
	state := &OAuthState{}
	if err := i.parse(s, state, stateAudience); err != nil {
		return nil, err
	}
	return state, nil
}

func (i *Issuer) parse(tokenString string, claims jwt.Claims, audience string) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return i.secret, nil
	},
		jwt.WithAudience(audience),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return errors.New("invalid token")
	}
	return nil
}
