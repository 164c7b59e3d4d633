package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"bosko/core/apperr"
	"bosko/core/publish"
	"bosko/core/status"
	"bosko/core/token"
	"bosko/model"
	"bosko/repository"
)

type memUsers struct {
	users map[int64]*model.User
}

func (m *memUsers) Create(_ context.Context, u *model.User) error {
	u.ID = int64(len(m.users) + 1)
	m.users[u.ID] = u
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id int64) (*model.User, error) {
	return m.users[id], nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

type memProfiles struct {
	profiles map[string]*model.Profile
}

func (m *memProfiles) Create(_ context.Context, p *model.Profile) error {
	p.ID = fmt.Sprintf("p%d", len(m.profiles)+1)
	m.profiles[p.ID] = p
	return nil
}

func (m *memProfiles) GetByID(_ context.Context, id string) (*model.Profile, error) {
	p, ok := m.profiles[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *memProfiles) ListByUser(_ context.Context, userID int64) ([]model.Profile, error) {
	var out []model.Profile
	for _, p := range m.profiles {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memProfiles) Update(_ context.Context, id string, fields map[string]interface{}) error {
	if name, ok := fields["name"].(string); ok {
		m.profiles[id].Name = name
	}
	return nil
}

func (m *memProfiles) Delete(_ context.Context, id string) error {
	delete(m.profiles, id)
	return nil
}

func (m *memProfiles) CreateConnection(_ context.Context, c *model.ProfileConnection) error {
	p := m.profiles[c.ProfileID]
	p.Connections = append(p.Connections, *c)
	return nil
}

func (m *memProfiles) GetConnection(_ context.Context, profileID string, platform model.Platform) (*model.ProfileConnection, error) {
	p, ok := m.profiles[profileID]
	if !ok {
		return nil, nil
	}
	return p.Connection(platform), nil
}

func (m *memProfiles) UpdateConnection(_ context.Context, profileID string, platform model.Platform, fields map[string]interface{}) error {
	c := m.profiles[profileID].Connection(platform)
	if meta, ok := fields["meta"].(model.ConnectionMeta); ok {
		c.Meta = meta
	}
	return nil
}

func (m *memProfiles) DeleteConnection(_ context.Context, profileID string, platform model.Platform) error {
	p := m.profiles[profileID]
	kept := p.Connections[:0]
	for _, c := range p.Connections {
		if c.Platform != platform {
			kept = append(kept, c)
		}
	}
	p.Connections = kept
	return nil
}

type memCredentials struct {
	creds map[int64]*model.OAuthCredential
}

func (m *memCredentials) Create(_ context.Context, c *model.OAuthCredential) error {
	c.ID = int64(len(m.creds) + 1)
	m.creds[c.ID] = c
	return nil
}

func (m *memCredentials) GetByID(_ context.Context, id int64) (*model.OAuthCredential, error) {
	return m.creds[id], nil
}

func (m *memCredentials) FindByUser(context.Context, int64, model.Platform) (*model.OAuthCredential, error) {
	return nil, nil
}

func (m *memCredentials) ListByUser(context.Context, int64) ([]*model.OAuthCredential, error) {
	return nil, nil
}

func (m *memCredentials) UpdateRefreshToken(context.Context, int64, string) error {
	return nil
}

type memAssets struct {
	mu       sync.Mutex
	assets   map[string]*model.Asset
	unlinked []string
}

func (m *memAssets) Create(_ context.Context, a *model.Asset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = fmt.Sprintf("a%d", len(m.assets)+1)
	m.assets[a.ID] = a
	return nil
}

func (m *memAssets) GetByID(_ context.Context, id string) (*model.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.assets[id], nil
}

func (m *memAssets) ListByUser(_ context.Context, userID int64, t model.AssetType) ([]*model.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Asset
	for _, a := range m.assets {
		if a.UserID == userID && (t == "" || a.Type == t) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memAssets) SetMarketplaceID(_ context.Context, id, marketplaceID string) error {
	m.assets[id].MarketplaceID = &marketplaceID
	return nil
}

func (m *memAssets) Delete(_ context.Context, id string) error {
	delete(m.assets, id)
	return nil
}

func (m *memAssets) Unlink(_ context.Context, id string) error {
	m.unlinked = append(m.unlinked, id)
	return nil
}

type memTracks struct {
	tracks map[string]*model.Track
	assets *memAssets
}

func (m *memTracks) resolve(t *model.Track) *model.Track {
	cp := *t
	if cp.BeatID != nil {
		cp.Beat = m.assets.assets[*cp.BeatID]
	}
	if cp.ThumbnailID != nil {
		cp.Thumbnail = m.assets.assets[*cp.ThumbnailID]
	}
	return &cp
}

func (m *memTracks) Create(_ context.Context, t *model.Track) error {
	t.ID = fmt.Sprintf("t%d", len(m.tracks)+1)
	m.tracks[t.ID] = t
	return nil
}

func (m *memTracks) GetByID(_ context.Context, id string) (*model.Track, error) {
	t, ok := m.tracks[id]
	if !ok {
		return nil, nil
	}
	return m.resolve(t), nil
}

func (m *memTracks) ListByUser(_ context.Context, userID int64, opts repository.TrackListOptions) ([]*model.Track, error) {
	var out []*model.Track
	for _, t := range m.tracks {
		if t.UserID != userID {
			continue
		}
		if opts.PendingOnly && t.VideoURL != nil {
			continue
		}
		if opts.CompletedOnly && t.VideoURL == nil {
			continue
		}
		out = append(out, m.resolve(t))
	}
	return out, nil
}

func (m *memTracks) ListPending(context.Context, int64, int) ([]*model.Track, error) {
	return nil, nil
}

func (m *memTracks) Update(_ context.Context, id string, fields map[string]interface{}) error {
	t := m.tracks[id]
	for k, v := range fields {
		switch k {
		case "name":
			t.Name = v.(string)
		case "id_beat":
			t.BeatID = v.(*string)
		case "id_thumbnail":
			t.ThumbnailID = v.(*string)
		case "publish_at":
			t.PublishAt = v.(*time.Time)
		}
	}
	return nil
}

func (m *memTracks) Delete(_ context.Context, id string) error {
	delete(m.tracks, id)
	return nil
}

func (m *memTracks) LastPublishAt(context.Context, int64) (*time.Time, error) {
	return nil, nil
}

// fakePipeline answers with canned results and records calls.
type fakePipeline struct {
	calls []string
	err   error
}

func (f *fakePipeline) UploadAssetToMarketplace(_ context.Context, _ int64, assetID string) (*model.Asset, error) {
	f.calls = append(f.calls, "upload:"+assetID)
	if f.err != nil {
		return nil, f.err
	}
	return &model.Asset{ID: assetID, MarketplaceID: model.Ptr("remote")}, nil
}

func (f *fakePipeline) ImportAsset(_ context.Context, _ int64, req publish.ImportRequest) (*model.Asset, error) {
	f.calls = append(f.calls, "import:"+req.Name+":"+req.MimeType)
	if f.err != nil {
		return nil, f.err
	}
	return &model.Asset{ID: "imported", Name: req.Name, MarketplaceID: model.Ptr("remote")}, nil
}

func (f *fakePipeline) PublishToMarketplace(_ context.Context, _ int64, trackID string) (*publish.MarketplaceResult, error) {
	f.calls = append(f.calls, "publish:"+trackID)
	if f.err != nil {
		return nil, f.err
	}
	return &publish.MarketplaceResult{TrackID: trackID, ShareURL: "https://bsta.rs/x", RemoteTrackID: "r1"}, nil
}

func (f *fakePipeline) PublishToVideoPlatform(_ context.Context, _ int64, trackID string) (*publish.VideoResult, error) {
	f.calls = append(f.calls, "video:"+trackID)
	if f.err != nil {
		return nil, f.err
	}
	return &publish.VideoResult{TrackID: trackID, VideoURL: "https://www.youtube.com/watch?v=v1"}, nil
}

func (f *fakePipeline) DeleteTrack(_ context.Context, _ int64, trackID string) error {
	f.calls = append(f.calls, "delete:"+trackID)
	return f.err
}

func (f *fakePipeline) Run(_ context.Context, _ int64, trackID string) (status.Status, error) {
	f.calls = append(f.calls, "run:"+trackID)
	return status.Completed, f.err
}

type fakeLinker struct {
	owner token.Owner
	code  string
	err   error
}

func (f *fakeLinker) AuthURL(state string) string {
	return "https://accounts.test/auth?state=" + state
}

func (f *fakeLinker) Exchange(_ context.Context, owner token.Owner, code, _ string) (*model.OAuthCredential, error) {
	f.owner = owner
	f.code = code
	if f.err != nil {
		return nil, f.err
	}
	return &model.OAuthCredential{ID: 9, UserID: owner.UserID, Platform: model.PlatformYouTube}, nil
}

var errNotConnected = apperr.NotConnected(string(model.PlatformBeatstars))
