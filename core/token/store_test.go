package token

import (
	"context"
	"testing"

	"bosko/core/apperr"
	"bosko/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCreds struct {
	byID   map[int64]*model.OAuthCredential
	nextID int64
}

func (f *fakeCreds) Create(_ context.Context, cred *model.OAuthCredential) error {
	f.nextID++
	cred.ID = f.nextID
	f.byID[cred.ID] = cred
	return nil
}

func (f *fakeCreds) GetByID(_ context.Context, id int64) (*model.OAuthCredential, error) {
	return f.byID[id], nil
}

func (f *fakeCreds) FindByUser(_ context.Context, userID int64, platform model.Platform) (*model.OAuthCredential, error) {
	for _, c := range f.byID {
		if c.UserID == userID && c.Platform == platform {
			return c, nil
		}
	}
	return nil, nil
}

func (f *fakeCreds) ListByUser(_ context.Context, userID int64) ([]*model.OAuthCredential, error) {
	var out []*model.OAuthCredential
	for _, c := range f.byID {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCreds) UpdateRefreshToken(_ context.Context, id int64, refreshToken string) error {
	f.byID[id].RefreshToken = refreshToken
	return nil
}

type fakeProfiles struct {
	profiles map[string]*model.Profile
}

func (f *fakeProfiles) Create(_ context.Context, p *model.Profile) error {
	f.profiles[p.ID] = p
	return nil
}

func (f *fakeProfiles) GetByID(_ context.Context, id string) (*model.Profile, error) {
	return f.profiles[id], nil
}

func (f *fakeProfiles) ListByUser(context.Context, int64) ([]model.Profile, error) { return nil, nil }

func (f *fakeProfiles) Update(context.Context, string, map[string]interface{}) error { return nil }

func (f *fakeProfiles) Delete(_ context.Context, id string) error {
	delete(f.profiles, id)
	return nil
}

func (f *fakeProfiles) CreateConnection(_ context.Context, conn *model.ProfileConnection) error {
	p := f.profiles[conn.ProfileID]
	p.Connections = append(p.Connections, *conn)
	return nil
}

func (f *fakeProfiles) GetConnection(_ context.Context, profileID string, platform model.Platform) (*model.ProfileConnection, error) {
	return f.profiles[profileID].Connection(platform), nil
}

func (f *fakeProfiles) UpdateConnection(_ context.Context, profileID string, platform model.Platform, fields map[string]interface{}) error {
	conn := f.profiles[profileID].Connection(platform)
	if id, ok := fields["id_oauth"].(int64); ok {
		conn.OAuthID = id
	}
	return nil
}

func (f *fakeProfiles) DeleteConnection(context.Context, string, model.Platform) error { return nil }

func newRepoStore() (*RepoStore, *fakeCreds, *fakeProfiles) {
	creds := &fakeCreds{byID: map[int64]*model.OAuthCredential{}}
	profiles := &fakeProfiles{profiles: map[string]*model.Profile{
		"p1": {ID: "p1", UserID: 1, Name: "Main"},
		"p2": {ID: "p2", UserID: 2, Name: "Other"},
	}}
	return NewRepoStore(creds, profiles), creds, profiles
}

func TestRepoStoreUserScoped(t *testing.T) {
	s, creds, _ := newRepoStore()
	ctx := context.Background()

	cred, err := s.Credential(ctx, Owner{UserID: 1}, model.PlatformBeatstars)
	require.NoError(t, err)
	assert.Nil(t, cred)

	require.NoError(t, creds.Create(ctx, &model.OAuthCredential{UserID: 1, Platform: model.PlatformBeatstars, RefreshToken: "r"}))
	cred, err = s.Credential(ctx, Owner{UserID: 1}, model.PlatformBeatstars)
	require.NoError(t, err)
	require.NotNil(t, cred)
	assert.Equal(t, "r", cred.RefreshToken)
}

func TestRepoStoreProfileScoped(t *testing.T) {
	s, _, profiles := newRepoStore()
	ctx := context.Background()

	_, err := s.Credential(ctx, Owner{UserID: 1, ProfileID: "p2"}, model.PlatformYouTube)
	assert.True(t, apperr.Is(err, apperr.KindPermission))

	_, err = s.Credential(ctx, Owner{UserID: 1, ProfileID: "missing"}, model.PlatformYouTube)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	cred := &model.OAuthCredential{RefreshToken: "first"}
	require.NoError(t, s.Link(ctx, Owner{UserID: 1, ProfileID: "p1"}, model.PlatformYouTube, cred))
	require.NotNil(t, profiles.profiles["p1"].Connection(model.PlatformYouTube))

	got, err := s.Credential(ctx, Owner{UserID: 1, ProfileID: "p1"}, model.PlatformYouTube)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "first", got.RefreshToken)

	// Relinking updates the existing credential instead of adding another.
	again := &model.OAuthCredential{RefreshToken: "second"}
	require.NoError(t, s.Link(ctx, Owner{UserID: 1, ProfileID: "p1"}, model.PlatformYouTube, again))
	assert.Equal(t, got.ID, again.ID)
	assert.Equal(t, "second", again.RefreshToken)
	assert.Len(t, profiles.profiles["p1"].Connections, 1)

	got, err = s.Credential(ctx, Owner{UserID: 1, ProfileID: "p1"}, model.PlatformYouTube)
	require.NoError(t, err)
	assert.Equal(t, "second", got.RefreshToken)
}
