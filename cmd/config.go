package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Taichi-iskw/yt-shorts-trend/internal/config"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration settings",
	Long:  `Manage configuration settings for shortstrend.`,
}

// configInitCmd represents the config init command
var configInitCmd = &cobra.Command{
	Use:   "init [DATABASE_URL]",
	Short: "Initialize configuration file",
	Long:  `Create a commented configuration file with database, YouTube, extractor and scheduler settings.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var databaseURL string
		if len(args) > 0 {
			databaseURL = args[0]
		}

		if err := config.InitConfig(databaseURL); err != nil {
			return err
		}

		configPath, err := config.GetConfigPath()
		if err != nil {
			return err
		}

		fmt.Printf("Created configuration file: %s\n", configPath)
		fmt.Println("Set database_url and the API keys, or export them as environment variables.")
		return nil
	},
}

// configShowCmd represents the config show command
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the configuration file path and the effective settings, with secrets masked.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, err := config.GetConfigPath()
		if err != nil {
			return err
		}
		fmt.Printf("Configuration file: %s\n\n", configPath)

		cfg, err := config.NewConfig()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		dbCfg, err := cfg.ParseDatabaseConfig()
		if err != nil {
			return err
		}
		fmt.Printf("database:        %s@%s:%d/%s\n", dbCfg.User, dbCfg.Host, dbCfg.Port, dbCfg.DBName)
		fmt.Printf("server.address:  %s\n", cfg.Server.Address)
		fmt.Printf("youtube.api_key: %s\n", mask(cfg.YouTube.APIKey))
		fmt.Printf("youtube.batch:   %s\n", mask(cfg.YouTube.BatchAPIKey))
		fmt.Printf("extractor:       %s (%s), key %s\n", cfg.Extractor.Provider, cfg.Extractor.Model, mask(cfg.Extractor.APIKey(cfg.YouTube.APIKey)))
		fmt.Printf("pipeline:        %q, %d day(s), %d-%ds, script %s\n",
			cfg.Pipeline.HashtagQuery, cfg.Pipeline.DiscoveryDays,
			cfg.Pipeline.MinDurationSeconds, cfg.Pipeline.MaxDurationSeconds, cfg.Pipeline.Script)
		fmt.Printf("ranking:         %d-day window, top %d, anchor %s, %s\n",
			cfg.Ranking.WindowDays, cfg.Ranking.Limit, cfg.Ranking.Anchor, cfg.Ranking.Timezone)
		fmt.Printf("scheduler:       enabled=%t collect=%q cleanup=%q\n",
			cfg.Scheduler.Enabled, cfg.Scheduler.CollectionSpec, cfg.Scheduler.CleanupSpec)
		fmt.Printf("redis:           %s\n", orDisabled(cfg.Redis.URL != ""))
		fmt.Printf("s3 archive:      %s\n", orDisabled(cfg.S3.Endpoint != ""))
		return nil
	},
}

func mask(secret string) string {
	if secret == "" {
		return "(not set)"
	}
	if len(secret) <= 4 {
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}

func orDisabled(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}
