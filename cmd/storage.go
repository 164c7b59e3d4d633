package cmd

import (
	"context"
	"fmt"
	"log"
	"sort"

	"bosko/config"
	"bosko/storage"

	"github.com/spf13/cobra"
)

var (
	storagePrefix    string
	storageStats     bool
	storageRecursive bool
	storageDelete    bool
)

var storageCmd = &cobra.Command{
	Use:   "storage",
	Short: "Inspect and clean the asset bucket",
	Long:  `List objects in the asset bucket, print per-folder usage, or delete everything under a prefix such as leftover staged videos.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		initLogger(cfg)
		ctx := context.Background()

		store, err := storage.NewMinioStore(ctx, storage.Options{
			Endpoint:  cfg.StorageEndpoint,
			AccessKey: cfg.StorageAccessKey,
			SecretKey: cfg.StorageSecretKey,
			Bucket:    cfg.StorageBucket,
			Region:    cfg.StorageRegion,
			UseSSL:    cfg.StorageUseSSL,
		})
		if err != nil {
			log.Fatalf("failed to connect to storage: %v", err)
		}

		if storageDelete {
			if storagePrefix == "" {
				log.Fatal("--delete needs --prefix")
			}
			n, err := store.DeletePrefix(ctx, storagePrefix)
			if err != nil {
				log.Fatalf("delete failed: %v", err)
			}
			fmt.Printf("deleted %d objects under %s\n", n, storagePrefix)
			return
		}

		objects, stats, err := store.List(ctx, storagePrefix, storageRecursive)
		if err != nil {
			log.Fatalf("list failed: %v", err)
		}
		if storageStats {
			fmt.Printf("bucket:  %s\n", store.Bucket())
			fmt.Printf("objects: %d\n", stats.TotalObjects)
			fmt.Printf("size:    %s\n", storage.FormatSize(stats.TotalSize))
			if !stats.LastModified.IsZero() {
				fmt.Printf("latest:  %s\n", stats.LastModified.Format("2006-01-02 15:04:05"))
			}
			folders := make([]string, 0, len(stats.ByFolder))
			for f := range stats.ByFolder {
				folders = append(folders, f)
			}
			sort.Strings(folders)
			for _, f := range folders {
				fmt.Printf("  %-12s %s\n", f, storage.FormatSize(stats.ByFolder[f]))
			}
			return
		}
		for _, obj := range objects {
			fmt.Printf("%-60s %10s  %s\n", obj.Key, storage.FormatSize(obj.Size), obj.LastModified.Format("2006-01-02 15:04"))
		}
	},
}

func init() {
	rootCmd.AddCommand(storageCmd)

	storageCmd.Flags().StringVarP(&storagePrefix, "prefix", "p", "", "only objects under this prefix")
	storageCmd.Flags().BoolVarP(&storageStats, "stats", "s", false, "print bucket usage")
	storageCmd.Flags().BoolVarP(&storageRecursive, "recursive", "r", false, "descend into folders")
	storageCmd.Flags().BoolVarP(&storageDelete, "delete", "d", false, "delete every object under --prefix")

	storageCmd.Example = `  # list top-level entries
  bosko storage

  # per-folder usage
  bosko storage -s -r

  # remove staged videos left by an interrupted render
  bosko storage -d -p "videos/"`
}
