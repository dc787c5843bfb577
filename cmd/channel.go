package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	channelsvc "github.com/Taichi-iskw/yt-shorts-trend/internal/service/channel"
	"github.com/Taichi-iskw/yt-shorts-trend/internal/worker"
)

// channelCmd represents the channel command
var channelCmd = &cobra.Command{
	Use:   "channel",
	Short: "Per-channel keyword analysis",
	Long:  `Request, list and inspect keyword analyses of individual YouTube channels.`,
}

// channelAnalyzeCmd requests an analysis of a channel
var channelAnalyzeCmd = &cobra.Command{
	Use:   "analyze [HANDLE]",
	Short: "Analyze a channel's uploads",
	Long: `Request a keyword analysis of a channel. By default the request is sent to a
running "shortstrend serve" instance, which analyzes it in the background.
With --wait the analysis runs in this process and the top keywords are printed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		handle := args[0]
		wait, _ := cmd.Flags().GetBool("wait")
		if !wait {
			server, _ := cmd.Flags().GetString("server")
			return requestRemoteAnalysis(cmd.Context(), server, handle)
		}

		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		ctx := context.Background()
		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		results := make(chan worker.Result, 1)
		jobs := worker.NewPool(worker.Config{Workers: 1, QueueSize: 1}, logger, a.metrics)
		jobs.OnResult(func(r worker.Result) { results <- r })
		jobs.Start()
		defer func() { _ = jobs.Stop(cfg.Worker.StopTimeout) }()

		svc, err := a.channelService(ctx, jobs)
		if err != nil {
			return err
		}

		ack, err := svc.RequestAnalysis(ctx, handle)
		if err != nil {
			return fmt.Errorf("failed to request analysis: %w", err)
		}
		fmt.Printf("Analyzing %s (job %s)...\n", ack.ChannelHandle, ack.JobID)

		result := <-results
		if result.Err != nil {
			return fmt.Errorf("analysis failed after %s: %w", result.Duration.Round(time.Second), result.Err)
		}

		keywords, err := svc.GetChannelKeywords(ctx, ack.ChannelHandle)
		if err != nil {
			return err
		}
		fmt.Printf("Analysis finished in %s, %d keyword(s):\n", result.Duration.Round(time.Second), len(keywords))
		for i, k := range keywords {
			fmt.Printf("%3d. %-30s %d\n", i+1, k.KeywordText, k.ViewCount)
		}
		return nil
	},
}

// channelListCmd lists analyzed channels
var channelListCmd = &cobra.Command{
	Use:   "list",
	Short: "List analyzed channels",
	Long:  `List recorded channels, newest first, with their completion status.`,
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

		svc, err := a.channelService(ctx, nil)
		if err != nil {
			return err
		}

		page, _ := cmd.Flags().GetInt("page")
		size, _ := cmd.Flags().GetInt("size")
		result, err := svc.ListChannels(ctx, page, size)
		if err != nil {
			return fmt.Errorf("failed to list channels: %w", err)
		}

		if len(result.Items) == 0 {
			fmt.Println("No channels found in the database.")
			return nil
		}

		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format result: %w", err)
		}
		fmt.Printf("Page %d of %d (%d channel(s)):\n%s\n", result.Page+1, result.TotalPages, result.TotalItems, string(out))
		return nil
	},
}

// channelKeywordsCmd prints a channel's top keywords
var channelKeywordsCmd = &cobra.Command{
	Use:   "keywords [HANDLE]",
	Short: "Show a channel's top keywords by view count",
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

		svc, err := a.channelService(ctx, nil)
		if err != nil {
			return err
		}

		keywords, err := svc.GetChannelKeywords(ctx, args[0])
		if err != nil {
			return err
		}
		if len(keywords) == 0 {
			fmt.Println("No keywords found (analysis missing or still running).")
			return nil
		}
		for i, k := range keywords {
			fmt.Printf("%3d. %-30s %d\n", i+1, k.KeywordText, k.ViewCount)
		}
		return nil
	},
}

// channelCleanupCmd deletes abandoned analyses
var channelCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete channels whose analysis never completed",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
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

		svc, err := a.channelService(ctx, nil)
		if err != nil {
			return err
		}

		deleted, err := svc.CleanupStale(ctx, time.Now())
		if err != nil {
			return fmt.Errorf("cleanup failed: %w", err)
		}
		fmt.Printf("Deleted %d stale channel(s).\n", deleted)
		return nil
	},
}

// requestRemoteAnalysis posts the handle to a running server's analysis endpoint
func requestRemoteAnalysis(ctx context.Context, server, handle string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	endpoint := strings.TrimRight(server, "/") + "/channel/keyword?channel_handle=" + url.QueryEscape(handle)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, http.NoBody)
	if err != nil {
		return err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach %s (is \"shortstrend serve\" running? use --wait to analyze locally): %w", server, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("server rejected the request (%s): %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var ack channelsvc.Ack
	if err := json.Unmarshal(body, &ack); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	var pretty bytes.Buffer
	_ = json.Indent(&pretty, body, "", "  ")
	fmt.Printf("Analysis of %s accepted:\n%s\n", ack.ChannelHandle, pretty.String())
	return nil
}

func init() {
	channelAnalyzeCmd.Flags().Bool("wait", false, "Run the analysis in this process and print the keywords")
	channelAnalyzeCmd.Flags().String("server", "http://localhost:8080", "Base URL of a running shortstrend server")
	channelListCmd.Flags().Int("page", 0, "Zero-based page number")
	channelListCmd.Flags().Int("size", 10, "Page size")

	channelCmd.AddCommand(channelAnalyzeCmd)
	channelCmd.AddCommand(channelListCmd)
	channelCmd.AddCommand(channelKeywordsCmd)
	channelCmd.AddCommand(channelCleanupCmd)
	rootCmd.AddCommand(channelCmd)
}
