package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Taichi-iskw/yt-shorts-trend/internal/repository/video"
	"github.com/Taichi-iskw/yt-shorts-trend/internal/storage"
)

// videoCmd represents the video command
var videoCmd = &cobra.Command{
	Use:   "video",
	Short: "Inspect collected videos",
	Long:  `Inspect videos stored by the collection pipeline and their archived raw metadata.`,
}

// videoShowCmd prints a stored video with its extracted keywords
var videoShowCmd = &cobra.Command{
	Use:   "show [VIDEO_ID]",
	Short: "Show a stored video and its keywords",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		repo := video.NewRepository(a.pool)
		v, err := repo.GetByVideoID(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to load video: %w", err)
		}
		keywords, err := repo.GetKeywords(ctx, v.ID)
		if err != nil {
			return fmt.Errorf("failed to load keywords: %w", err)
		}

		result, err := json.MarshalIndent(struct {
			Video    any      `json:"video"`
			Keywords []string `json:"keywords"`
		}{v, keywords}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format result: %w", err)
		}
		fmt.Println(string(result))
		return nil
	},
}

// videoArchiveCmd reads back an archived raw batch
var videoArchiveCmd = &cobra.Command{
	Use:   "archive [KEY]",
	Short: "List the videos in an archived raw metadata batch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		archive, err := storage.NewArchive(ctx, cfg.S3, logger)
		if err != nil {
			return err
		}
		if !archive.Configured() {
			return fmt.Errorf("s3 archive is not configured (set S3_ENDPOINT)")
		}

		videos, err := archive.LoadRawBatch(ctx, args[0])
		if err != nil {
			return err
		}

		raw, _ := cmd.Flags().GetBool("raw")
		fmt.Printf("Batch %s holds %d video(s)\n", args[0], len(videos))
		for _, v := range videos {
			if raw {
				fmt.Printf("%s %s\n", v.VideoID, string(v.RawMetadata))
			} else {
				fmt.Printf("%s (%d bytes)\n", v.VideoID, len(v.RawMetadata))
			}
		}
		return nil
	},
}

func init() {
	videoArchiveCmd.Flags().Bool("raw", false, "Print each video's raw metadata")

	videoCmd.AddCommand(videoShowCmd)
	videoCmd.AddCommand(videoArchiveCmd)
	rootCmd.AddCommand(videoCmd)
}
