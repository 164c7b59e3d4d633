package token

import (
	"context"
	"fmt"

	"bosko/core/apperr"
	"bosko/model"
	"bosko/repository"
)

// Owner identifies whose platform credentials to use. ProfileID is optional.
type Owner struct {
	UserID    int64
	ProfileID string
}

// CredentialStore resolves and persists OAuth credentials.
type CredentialStore interface {
	// Credential returns the owner's credential on platform, or nil when none is connected.
	Credential(ctx context.Context, owner Owner, platform model.Platform) (*model.OAuthCredential, error)
	SaveRefreshToken(ctx context.Context, credentialID int64, refreshToken string) error
	// Link stores a freshly granted credential and binds it to the owner's profile, if any.
	Link(ctx context.Context, owner Owner, platform model.Platform, cred *model.OAuthCredential) error
}

// RepoStore is a CredentialStore backed by the credential and profile repositories.
type RepoStore struct {
	creds    repository.CredentialRepository
	profiles repository.ProfileRepository
}

// NewRepoStore creates a RepoStore.
func NewRepoStore(creds repository.CredentialRepository, profiles repository.ProfileRepository) *RepoStore {
	return &RepoStore{creds: creds, profiles: profiles}
}

func (s *RepoStore) Credential(ctx context.Context, owner Owner, platform model.Platform) (*model.OAuthCredential, error) {
	if owner.ProfileID == "" {
		cred, err := s.creds.FindByUser(ctx, owner.UserID, platform)
		if err != nil {
			return nil, apperr.Internal("failed to load credential", err)
		}
		return cred, nil
	}

	profile, err := s.profiles.GetByID(ctx, owner.ProfileID)
	if err != nil {
		return nil, apperr.Internal("failed to load profile", err)
	}
	if profile == nil {
		return nil, apperr.NotFound("profile %s not found", owner.ProfileID)
	}
	if profile.UserID != owner.UserID {
		return nil, apperr.Forbidden("profile %s belongs to another user", owner.ProfileID)
	}

	conn := profile.Connection(platform)
	if conn == nil {
		return nil, nil
	}
	cred, err := s.creds.GetByID(ctx, conn.OAuthID)
	if err != nil {
		return nil, apperr.Internal("failed to load credential", err)
	}
	if cred == nil || cred.UserID != owner.UserID {
		return nil, nil
	}
	return cred, nil
}

func (s *RepoStore) SaveRefreshToken(ctx context.Context, credentialID int64, refreshToken string) error {
	return s.creds.UpdateRefreshToken(ctx, credentialID, refreshToken)
}

func (s *RepoStore) Link(ctx context.Context, owner Owner, platform model.Platform, cred *model.OAuthCredential) error {
	existing, err := s.Credential(ctx, owner, platform)
	if err != nil {
		return err
	}
	if existing != nil {
		if err := s.creds.UpdateRefreshToken(ctx, existing.ID, cred.RefreshToken); err != nil {
			return apperr.Internal("failed to update credential", err)
		}
		refreshToken := cred.RefreshToken
		*cred = *existing
		cred.RefreshToken = refreshToken
		return nil
	}

	cred.ID = 0
	cred.UserID = owner.UserID
	cred.Platform = platform
	if err := s.creds.Create(ctx, cred); err != nil {
		return apperr.Internal("failed to store credential", err)
	}
	if owner.ProfileID == "" {
		return nil
	}

	conn, err := s.profiles.GetConnection(ctx, owner.ProfileID, platform)
	if err != nil {
		return apperr.Internal("failed to load profile connection", err)
	}
	if conn != nil {
		err = s.profiles.UpdateConnection(ctx, owner.ProfileID, platform, map[string]interface{}{"id_oauth": cred.ID})
	} else {
		err = s.profiles.CreateConnection(ctx, &model.ProfileConnection{
			ProfileID: owner.ProfileID,
			Platform:  platform,
			OAuthID:   cred.ID,
		})
	}
	if err != nil {
		return fmt.Errorf("failed to bind credential to profile %s: %w", owner.ProfileID, err)
	}
	return nil
}
