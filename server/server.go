// Package server exposes the HTTP API.
package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bosko/core/auth"
	"bosko/core/events"
	"bosko/core/publish"
	"bosko/core/status"
	"bosko/core/token"
	"bosko/logger"
	"bosko/model"
	"bosko/repository"
	"bosko/storage"

	"github.com/gorilla/mux"
)

// Pipeline is the publication surface the handlers drive.
type Pipeline interface {
	UploadAssetToMarketplace(ctx context.Context, userID int64, assetID string) (*model.Asset, error)
	ImportAsset(ctx context.Context, userID int64, req publish.ImportRequest) (*model.Asset, error)
	PublishToMarketplace(ctx context.Context, userID int64, trackID string) (*publish.MarketplaceResult, error)
	PublishToVideoPlatform(ctx context.Context, userID int64, trackID string) (*publish.VideoResult, error)
	DeleteTrack(ctx context.Context, userID int64, trackID string) error
	Run(ctx context.Context, userID int64, trackID string) (status.Status, error)
}

// VideoLinker runs the video platform authorization-code flow.
type VideoLinker interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, owner token.Owner, code string, label string) (*model.OAuthCredential, error)
}

// Deps are the collaborators of the HTTP layer.
type Deps struct {
	Users       repository.UserRepository
	Profiles    repository.ProfileRepository
	Credentials repository.CredentialRepository
	Tracks      repository.TrackRepository
	Assets      repository.AssetRepository
	Store       storage.AssetStore
	Pipeline    Pipeline
	Issuer      *auth.Issuer
	Linker      VideoLinker
	Hub         *events.Hub

	SignedURLTTL   time.Duration
	MaxUploadBytes int64
	Now            func() time.Time
}

// Server holds the handlers.
type Server struct {
	Deps
}

// New creates a Server.
func New(d Deps) *Server {
	if d.SignedURLTTL <= 0 {
		d.SignedURLTTL = 1800 * time.Second
	}
	if d.MaxUploadBytes <= 0 {
		d.MaxUploadBytes = 200 << 20
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Server{Deps: d}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Type")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Router builds the route table.
func (s *Server) Router() http.Handler {
	router := mux.NewRouter()
	router.Use(cors)
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, errRouteNotFound)
	})
	// OPTIONS has to reach the CORS middleware for every path.
	router.Methods(http.MethodOptions).HandlerFunc(func(http.ResponseWriter, *http.Request) {})

	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/auth/login", s.LoginHandler).Methods(http.MethodPost)
	api.HandleFunc("/auth/check", s.AuthMiddleware(s.CheckHandler)).Methods(http.MethodGet)

	api.HandleFunc("/user/info", s.AuthMiddleware(s.UserInfoHandler)).Methods(http.MethodGet)

	api.HandleFunc("/profiles", s.AuthMiddleware(s.ListProfilesHandler)).Methods(http.MethodGet)
	api.HandleFunc("/profiles", s.AuthMiddleware(s.CreateProfileHandler)).Methods(http.MethodPost)
	api.HandleFunc("/profiles/{id}", s.AuthMiddleware(s.GetProfileHandler)).Methods(http.MethodGet)
	api.HandleFunc("/profiles/{id}", s.AuthMiddleware(s.UpdateProfileHandler)).Methods(http.MethodPatch)
	api.HandleFunc("/profiles/{id}", s.AuthMiddleware(s.DeleteProfileHandler)).Methods(http.MethodDelete)
	api.HandleFunc("/profiles/{id}/connections", s.AuthMiddleware(s.CreateConnectionHandler)).Methods(http.MethodPost)
	api.HandleFunc("/profiles/{id}/connections/{platform}", s.AuthMiddleware(s.UpdateConnectionHandler)).Methods(http.MethodPatch)
	api.HandleFunc("/profiles/{id}/connections/{platform}", s.AuthMiddleware(s.DeleteConnectionHandler)).Methods(http.MethodDelete)

	api.HandleFunc("/tracks", s.AuthMiddleware(s.ListTracksHandler)).Methods(http.MethodGet)
	api.HandleFunc("/tracks", s.AuthMiddleware(s.CreateTrackHandler)).Methods(http.MethodPost)
	api.HandleFunc("/tracks/pending", s.AuthMiddleware(s.PendingTracksHandler)).Methods(http.MethodGet)
	api.HandleFunc("/tracks/{id}", s.AuthMiddleware(s.GetTrackHandler)).Methods(http.MethodGet)
	api.HandleFunc("/tracks/{id}", s.AuthMiddleware(s.UpdateTrackHandler)).Methods(http.MethodPatch)
	api.HandleFunc("/tracks/{id}", s.AuthMiddleware(s.DeleteTrackHandler)).Methods(http.MethodDelete)
	api.HandleFunc("/tracks/{id}/run", s.AuthMiddleware(s.RunTrackHandler)).Methods(http.MethodPost)

	api.HandleFunc("/assets", s.AuthMiddleware(s.ListAssetsHandler)).Methods(http.MethodGet)
	api.HandleFunc("/assets", s.AuthMiddleware(s.UploadAssetHandler)).Methods(http.MethodPost)
	api.HandleFunc("/assets/{id}/stream", s.AuthMiddleware(s.StreamAssetHandler)).Methods(http.MethodGet)
	api.HandleFunc("/assets/{id}", s.AuthMiddleware(s.DeleteAssetHandler)).Methods(http.MethodDelete)

	api.HandleFunc("/beatstars/assets/{id}/upload", s.AuthMiddleware(s.MarketplaceUploadHandler)).Methods(http.MethodPost)
	api.HandleFunc("/beatstars/import", s.AuthMiddleware(s.MarketplaceImportHandler)).Methods(http.MethodPost)
	api.HandleFunc("/beatstars/publish", s.AuthMiddleware(s.MarketplacePublishHandler)).Methods(http.MethodPost)

	api.HandleFunc("/google/auth", s.AuthMiddleware(s.GoogleAuthHandler)).Methods(http.MethodGet)
	api.HandleFunc("/google/callback", s.GoogleCallbackHandler).Methods(http.MethodGet)
	api.HandleFunc("/youtube/publish", s.AuthMiddleware(s.VideoPublishHandler)).Methods(http.MethodPost)

	api.HandleFunc("/events", s.AuthMiddleware(s.EventsHandler)).Methods(http.MethodGet)

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	return router
}

// ListenAndServe serves until SIGINT/SIGTERM, then shuts down gracefully.
func (s *Server) ListenAndServe(port string) error {
	srv := &http.Server{
		Addr:        ":" + port,
		Handler:     s.Router(),
		ReadTimeout: 5 * time.Minute,
		// Publication requests hold the connection through render and upload.
		WriteTimeout: 20 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", logger.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-stop:
	}

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
