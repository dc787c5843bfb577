package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// rankingsCmd groups daily ranking operations
var rankingsCmd = &cobra.Command{
	Use:   "rankings",
	Short: "Daily keyword ranking operations",
}

// rankingsComputeCmd computes and stores the ranking for a date
var rankingsComputeCmd = &cobra.Command{
	Use:   "compute",
	Short: "Compute the keyword ranking for a date",
	Long: `Compute the keyword ranking for the given date (default: today) from the
videos of the preceding window. A date that already has rankings is left untouched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		asOf, err := parseDateFlag(cmd, cfg.Ranking.Timezone)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		stored, err := a.engine.ComputeDailyRankings(ctx, asOf)
		if err != nil {
			return fmt.Errorf("failed to compute rankings: %w", err)
		}
		if stored == 0 {
			fmt.Printf("No rankings stored for %s (already computed or no data)\n", a.engine.StartOfDay(asOf).Format(time.DateOnly))
			return nil
		}
		fmt.Printf("Stored %d ranking(s) for %s\n", stored, a.engine.StartOfDay(asOf).Format(time.DateOnly))
		return nil
	},
}

// rankingsShowCmd prints the ranking with day-over-day changes
var rankingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the keyword ranking for a date",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		asOf, err := parseDateFlag(cmd, cfg.Ranking.Timezone)
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

		views, err := a.engine.GetDailyRankings(ctx, asOf)
		if err != nil {
			return fmt.Errorf("failed to load rankings: %w", err)
		}
		if len(views) == 0 {
			fmt.Println("No rankings found.")
			return nil
		}

		fmt.Printf("%-6s %-8s %-30s %s\n", "RANK", "CHANGE", "KEYWORD", "SCORE")
		for _, v := range views {
			fmt.Printf("%-6d %-8s %-30s %d\n", v.Rank, v.RankChange.String(), v.KeywordText, v.Score)
		}
		return nil
	},
}

// parseDateFlag reads --date as YYYY-MM-DD in the ranking timezone; empty means now
func parseDateFlag(cmd *cobra.Command, timezone string) (time.Time, error) {
	raw, _ := cmd.Flags().GetString("date")
	if raw == "" {
		return time.Now(), nil
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid ranking timezone %q: %w", timezone, err)
	}
	t, err := time.ParseInLocation(time.DateOnly, raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q, expected YYYY-MM-DD: %w", raw, err)
	}
	return t, nil
}

func init() {
	rankingsComputeCmd.Flags().String("date", "", "Ranking date (YYYY-MM-DD), defaults to today")
	rankingsShowCmd.Flags().String("date", "", "Ranking date (YYYY-MM-DD), defaults to today")

	rankingsCmd.AddCommand(rankingsComputeCmd)
	rankingsCmd.AddCommand(rankingsShowCmd)
	rootCmd.AddCommand(rankingsCmd)
}
