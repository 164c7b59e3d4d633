package cmd

import (
	"context"
	"fmt"
	"log"

	"bosko/cache"
	"bosko/config"

	"github.com/spf13/cobra"
)

var redisFlushTokens bool

var redisCmd = &cobra.Command{
	Use:   "redis",
	Short: "Check the Redis connection",
	Long:  `Ping Redis and optionally drop every cached platform access token, forcing the next publication to refresh.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		if !cfg.RedisEnabled() {
			log.Fatal("REDIS_HOST is not set")
		}
		fmt.Printf("redis: %s:%s db %d\n", cfg.RedisHost, cfg.RedisPort, cfg.RedisDB)

		ctx := context.Background()
		client, err := cache.Connect(ctx, cfg)
		if err != nil {
			log.Fatalf("%v", err)
		}
		defer client.Close()
		fmt.Println("ping ok")

		if redisFlushTokens {
			n, err := cache.NewTokenCache(client).Flush(ctx)
			if err != nil {
				log.Fatalf("flush failed: %v", err)
			}
			fmt.Printf("removed %d cached tokens\n", n)
		}
	},
}

func init() {
	rootCmd.AddCommand(redisCmd)
	redisCmd.Flags().BoolVar(&redisFlushTokens, "flush-tokens", false, "delete every cached access token")
}
