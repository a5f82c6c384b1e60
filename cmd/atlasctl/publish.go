package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/couchcryptid/climate-atlas/internal/adapter/geojson"
	kafkaadapter "github.com/couchcryptid/climate-atlas/internal/adapter/kafka"
	"github.com/couchcryptid/climate-atlas/internal/domain"
	"github.com/couchcryptid/climate-atlas/internal/observability"
	"github.com/couchcryptid/climate-atlas/internal/pipeline"
	"github.com/spf13/cobra"
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Style a data layer and publish it to Kafka",
	Long: "Read every feature of a data-layer GeoJSON file, style it for the given layer and period, " +
		"optionally flag whether it lies inside a region, and write the styled features to KAFKA_SINK_TOPIC.",
	RunE: runPublish,
}

func init() {
	f := publishCmd.Flags()
	f.String("file", "", "data-layer GeoJSON file")
	f.String("layer", "", "layer display name, e.g. \"Mean temperature\"")
	f.String("time", "", "period: hist, 2050 or 2080")
	f.Float64("opacity", 1, "fill opacity in [0, 1]")
	f.String("region", "", "region key to check each feature against")
	_ = publishCmd.MarkFlagRequired("file")
	_ = publishCmd.MarkFlagRequired("layer")

	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	file, _ := cmd.Flags().GetString("file")
	layer, _ := cmd.Flags().GetString("layer")
	period, _ := cmd.Flags().GetString("time")
	opacity, _ := cmd.Flags().GetFloat64("opacity")
	region, _ := cmd.Flags().GetString("region")

	source, err := geojson.OpenFeatureSource(os.DirFS(filepath.Dir(file)), filepath.Base(file))
	if err != nil {
		return err
	}

	var regions *domain.RegionIndex
	if region != "" {
		regions, err = geojson.LoadRegions(os.DirFS(cfg.RegionsDir), logger)
		if err != nil {
			return err
		}
	}

	metrics := observability.NewMetrics()
	transformer := pipeline.NewStyleTransformer(classifier, regions, domain.StyleOptions{
		Layer:   layer,
		Period:  domain.ParsePeriod(period),
		Opacity: opacity,
		Region:  region,
	}, metrics, logger)

	writer := kafkaadapter.NewWriter(cfg, logger)
	defer func() {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}()

	p := pipeline.New(source, transformer, writer, logger, metrics, cfg.BatchSize)
	if err := p.Run(ctx); err != nil {
		return fmt.Errorf("publish %s: %w", file, err)
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "published %d of %d features to %s\n", p.Produced(), source.Len(), cfg.KafkaSinkTopic)
	return err
}
