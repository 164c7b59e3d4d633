package cmd

import (
	"context"
	"fmt"
	"log"
	"strings"

	"bosko/config"
	"bosko/core/auth"
	"bosko/db"
	"bosko/model"
	"bosko/repository"

	"github.com/spf13/cobra"
)

var (
	userEmail    string
	userPassword string
)

// Accounts are provisioned by operators; the API has no registration endpoint.
var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Create a dashboard account",
	Run: func(cmd *cobra.Command, args []string) {
		email := strings.TrimSpace(strings.ToLower(userEmail))
		if email == "" || userPassword == "" {
			log.Fatal("--email and --password are required")
		}

		cfg := config.Load()
		initLogger(cfg)
		gdb, err := db.Open(cfg)
		if err != nil {
			log.Fatalf("failed to open database: %v", err)
		}
		defer db.Close(gdb)

		hash, err := auth.HashPassword(userPassword)
		if err != nil {
			log.Fatalf("failed to hash password: %v", err)
		}
		u := &model.User{Email: email, PasswordHash: hash, IsActive: true}
		if err := repository.NewGormUserRepository(gdb).Create(context.Background(), u); err != nil {
			log.Fatalf("failed to create user: %v", err)
		}
		fmt.Printf("created user %d (%s)\n", u.ID, u.Email)
	},
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.Flags().StringVarP(&userEmail, "email", "e", "", "login email")
	userCmd.Flags().StringVarP(&userPassword, "password", "p", "", "login password")
}
