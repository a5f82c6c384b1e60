package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/couchcryptid/climate-atlas/internal/adapter/tables"
	"github.com/couchcryptid/climate-atlas/internal/config"
	"github.com/couchcryptid/climate-atlas/internal/domain"
	"github.com/couchcryptid/climate-atlas/internal/observability"
	"github.com/spf13/cobra"
)

var (
	cfg        *config.Config
	logger     *slog.Logger
	classifier *domain.ColorClassifier
)

var rootCmd = &cobra.Command{
	Use:   "atlasctl",
	Short: "Climate atlas region and styling tools",
	Long:  "Query region containment, color classification, and legends, and publish styled data layers to Kafka.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c
		logger = observability.NewLoggerTo(cmd.ErrOrStderr(), cfg)
		classifier, err = tables.Load(cfg.ScalesFile)
		if err != nil {
			return fmt.Errorf("load classification tables: %w", err)
		}
		return nil
	},
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
