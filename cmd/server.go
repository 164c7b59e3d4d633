package cmd

import (
	"context"
	"time"

	"bosko/config"
	"bosko/core/auth"
	"bosko/core/events"
	"bosko/logger"
	"bosko/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the HTTP API",
	Long:  `Start the HTTP API that manages assets and tracks and drives publication to BeatStars and YouTube.`,
	Run: func(cmd *cobra.Command, args []string) {
		runServer()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

func runServer() {
	cfg := config.Load()
	initLogger(cfg)
	defer logger.Sync()

	issuer, err := auth.NewIssuer(cfg.Secret)
	if err != nil {
		logger.Fatal("invalid APP_SECRET", logger.ErrorField(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	a, err := openApp(ctx, cfg)
	cancel()
	if err != nil {
		logger.Fatal("failed to initialise", logger.ErrorField(err))
	}
	defer a.close()

	hub := events.NewHub()
	go hub.Run()
	defer hub.Stop()

	orch, err := a.orchestrator(context.Background(), hub)
	if err != nil {
		logger.Fatal("failed to build publication pipeline", logger.ErrorField(err))
	}
	_, videoTokens := a.brokers()

	srv := server.New(server.Deps{
		Users:        a.users,
		Profiles:     a.profiles,
		Credentials:  a.credentials,
		Tracks:       a.tracks,
		Assets:       a.assets,
		Store:        a.store,
		Pipeline:     orch,
		Issuer:       issuer,
		Linker:       videoTokens.Linker(cfg.GoogleRedirectURL),
		Hub:          hub,
		SignedURLTTL: cfg.SignedURLTTL,
	})
	if err := srv.ListenAndServe(cfg.Port); err != nil {
		logger.Error("server stopped with error", logger.ErrorField(err))
	}
}
