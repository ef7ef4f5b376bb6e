package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/locvowork/conductores_admin/internal/config"
	"github.com/locvowork/conductores_admin/internal/logger"
	"github.com/locvowork/conductores_admin/internal/repository"
	"github.com/locvowork/conductores_admin/internal/seed"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "seeder",
	Short: "Generate conductores and load them into the upstream API",
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create generated conductores through the API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadEnvConfig(); err != nil {
			return fmt.Errorf("loading env config: %w", err)
		}
		cfg := config.DefaultEnvConfig
		logger.InitLogging(cfg.LOG_FILE_PATH, cfg.LOG_LEVEL)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		token, _ := cmd.Flags().GetString("token")
		if token != "" {
			ctx = repository.WithAuthorization(ctx, "Bearer "+token)
		}

		client, err := repository.NewClient(cfg.API_BASE_URL, cfg.REQUEST_TIMEOUT)
		if err != nil {
			return fmt.Errorf("creating upstream client: %w", err)
		}
		workers, _ := cmd.Flags().GetInt("workers")
		seeder := seed.NewSeeder(repository.NewConductorRepository(client), seedValue(cmd), workers)

		records := seeder.Generate(count(cmd))
		logger.InfoLog(ctx, "seeding %d conductores into %s", len(records), cfg.API_BASE_URL)
		created, err := seeder.Seed(ctx, records)
		if err != nil {
			return fmt.Errorf("seeding stopped after %d conductores: %w", created, err)
		}
		fmt.Printf("Created %d conductores\n", created)
		return nil
	},
}

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Print generated conductores as JSON without calling the API",
	RunE: func(cmd *cobra.Command, args []string) error {
		records := seed.NewSeeder(nil, seedValue(cmd), 1).Generate(count(cmd))
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	},
}

func count(cmd *cobra.Command) int {
	if n, _ := cmd.Flags().GetInt("count"); n > 0 {
		return n
	}
	preset, _ := cmd.Flags().GetString("preset")
	return seed.CountFor(seed.Preset(preset))
}

func seedValue(cmd *cobra.Command) int64 {
	if v, _ := cmd.Flags().GetInt64("seed"); v != 0 {
		return v
	}
	return time.Now().UnixNano()
}

func init() {
	for _, c := range []*cobra.Command{seedCmd, previewCmd} {
		c.Flags().StringP("preset", "p", string(seed.PresetMedium), "Data preset: small, medium, large, xlarge")
		c.Flags().IntP("count", "n", 0, "Number of conductores (overrides preset)")
		c.Flags().Int64("seed", 0, "Random seed (0 uses the current time)")
		rootCmd.AddCommand(c)
	}
	seedCmd.Flags().IntP("workers", "w", 4, "Concurrent create requests")
	seedCmd.Flags().String("token", "", "Bearer token sent to the API")
}

