package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// collectCmd runs one collection pass in the foreground
var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Run the daily Shorts collection once",
	Long: `Discover recent Shorts for the configured hashtag, fetch their details,
extract keywords, store everything and compute today's keyword ranking.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		pipeline, err := a.collectionPipeline(ctx)
		if err != nil {
			return err
		}

		summary, err := pipeline.Run(ctx)
		if err != nil {
			return fmt.Errorf("collection failed: %w", err)
		}

		result, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format result: %w", err)
		}
		fmt.Printf("Collection finished:\n%s\n", string(result))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(collectCmd)
}
