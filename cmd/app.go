package cmd

import (
	"context"
	"fmt"
	"net/http"

	"bosko/cache"
	"bosko/config"
	"bosko/core/events"
	"bosko/core/lock"
	"bosko/core/marketplace"
	"bosko/core/publish"
	"bosko/core/render"
	"bosko/core/token"
	"bosko/core/youtube"
	"bosko/db"
	"bosko/logger"
	"bosko/repository"
	"bosko/storage"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// app holds the shared infrastructure of the long-running commands.
type app struct {
	cfg   *config.Config
	db    *gorm.DB
	redis *redis.Client
	store *storage.MinioStore

	users       repository.UserRepository
	profiles    repository.ProfileRepository
	credentials repository.CredentialRepository
	tracks      repository.TrackRepository
	assets      repository.AssetRepository

	marketplaceTokens *token.Broker
	videoTokens       *token.Broker
}

func initLogger(cfg *config.Config) {
	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogPath,
		MaxSize:    cfg.LogMaxSize,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAge,
		Compress:   cfg.LogCompress,
	})
}

// openApp connects the database, Redis (when configured) and the object store.
func openApp(ctx context.Context, cfg *config.Config) (*app, error) {
	gdb, err := db.Open(cfg)
	if err != nil {
		return nil, err
	}
	a := &app{
		cfg:         cfg,
		db:          gdb,
		users:       repository.NewGormUserRepository(gdb),
		profiles:    repository.NewGormProfileRepository(gdb),
		credentials: repository.NewGormCredentialRepository(gdb),
		tracks:      repository.NewGormTrackRepository(gdb),
		assets:      repository.NewGormAssetRepository(gdb),
	}

	if cfg.RedisEnabled() {
		client, err := cache.Connect(ctx, cfg)
		if err != nil {
			a.close()
			return nil, err
		}
		a.redis = client
		logger.Info("redis connected", logger.String("host", cfg.RedisHost))
	}

	a.store, err = storage.NewMinioStore(ctx, storage.Options{
		Endpoint:  cfg.StorageEndpoint,
		AccessKey: cfg.StorageAccessKey,
		SecretKey: cfg.StorageSecretKey,
		Bucket:    cfg.StorageBucket,
		Region:    cfg.StorageRegion,
		UseSSL:    cfg.StorageUseSSL,
		SignTTL:   cfg.SignedURLTTL,
	})
	if err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			logger.Warn("failed to close redis", logger.ErrorField(err))
		}
	}
	if err := db.Close(a.db); err != nil {
		logger.Warn("failed to close database", logger.ErrorField(err))
	}
}

func (a *app) locker() (lock.Locker, error) {
	switch a.cfg.LockBackend {
	case config.LockRedis:
		if a.redis == nil {
			return nil, fmt.Errorf("LOCK_BACKEND=redis requires REDIS_HOST")
		}
		return lock.NewRedisLocker(a.redis, a.cfg.EffectiveLockTTL()), nil
	case config.LockMemory, "":
		return lock.NewMemoryLocker(), nil
	default:
		return nil, fmt.Errorf("unknown LOCK_BACKEND %q", a.cfg.LockBackend)
	}
}

func (a *app) renderer(ctx context.Context) (render.Renderer, error) {
	switch a.cfg.RenderMode {
	case config.RenderRemote:
		client, err := render.NewLambdaClient(ctx, a.cfg.AWSRegion, a.cfg.AWSAccessKeyID, a.cfg.AWSSecretAccessKey)
		if err != nil {
			return nil, err
		}
		return render.NewRemoteRenderer(client, a.cfg.RenderFunctionName, a.store, a.cfg.RenderTimeout), nil
	case config.RenderLocal, "":
		return render.NewLocalRenderer(a.store, a.cfg.FFmpegPath, a.cfg.ScratchDir, a.cfg.RenderTimeout), nil
	default:
		return nil, fmt.Errorf("unknown RENDER_MODE %q", a.cfg.RenderMode)
	}
}

func (a *app) brokers() (marketplaceTokens, videoTokens *token.Broker) {
	if a.marketplaceTokens != nil {
		return a.marketplaceTokens, a.videoTokens
	}
	store := token.NewRepoStore(a.credentials, a.profiles)
	opts := []token.Option{token.WithTimeout(a.cfg.MetadataTimeout)}
	if a.redis != nil {
		opts = append(opts, token.WithCache(cache.NewTokenCache(a.redis)))
	}
	marketplaceTokens = token.NewMarketplaceBroker(a.cfg.MarketplaceAPIURL,
		a.cfg.MarketplaceClientID, a.cfg.MarketplaceClientSecret, store, opts...)
	videoTokens = token.NewGoogleBroker(a.cfg.GoogleClientID, a.cfg.GoogleClientSecret, store, opts...)
	a.marketplaceTokens, a.videoTokens = marketplaceTokens, videoTokens
	return marketplaceTokens, videoTokens
}

// orchestrator assembles the publication pipeline. pub receives progress events.
func (a *app) orchestrator(ctx context.Context, pub events.Publisher) (*publish.Orchestrator, error) {
	locker, err := a.locker()
	if err != nil {
		return nil, err
	}
	renderer, err := a.renderer(ctx)
	if err != nil {
		return nil, err
	}
	marketplaceTokens, videoTokens := a.brokers()

	client := marketplace.NewClient(marketplace.Config{
		APIURL:          a.cfg.MarketplaceAPIURL,
		UploadURL:       a.cfg.MarketplaceUploadURL,
		Env:             a.cfg.MarketplaceEnv,
		PollInterval:    a.cfg.PollInterval,
		PollAttempts:    a.cfg.PollAttempts,
		MetadataTimeout: a.cfg.MetadataTimeout,
		TransferTimeout: a.cfg.TransferTimeout,
	}, &http.Client{})

	return publish.New(publish.Deps{
		Tracks:            a.tracks,
		Assets:            a.assets,
		Profiles:          a.profiles,
		Marketplace:       client,
		MarketplaceTokens: marketplaceTokens,
		VideoTokens:       videoTokens,
		Store:             a.store,
		Renderer:          renderer,
		Videos:            youtube.NewUploader(&http.Client{}, a.cfg.TransferTimeout),
		Locker:            locker,
		Events:            pub,
		MemberID:          a.cfg.MarketplaceMemberID,
	}), nil
}
