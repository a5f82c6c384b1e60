package main

import (
	"os"

	"github.com/couchcryptid/climate-atlas/internal/adapter/geojson"
	"github.com/couchcryptid/climate-atlas/internal/domain"
	"github.com/spf13/cobra"
)

var containsCmd = &cobra.Command{
	Use:   "contains",
	Short: "Check whether a point lies inside a region",
	Long:  "Load the region boundaries and report whether the given latitude and longitude fall inside the named region.",
	RunE:  runContains,
}

var styleCmd = &cobra.Command{
	Use:   "style",
	Short: "Resolve the fill color and style for a value",
	RunE:  runStyle,
}

var legendCmd = &cobra.Command{
	Use:   "legend",
	Short: "Print the scalebar legend for a layer",
	RunE:  runLegend,
}

func init() {
	f := containsCmd.Flags()
	f.String("region", "", "region key, e.g. zimbabwe")
	f.Float64("lat", 0, "latitude")
	f.Float64("lng", 0, "longitude")
	f.String("regions-dir", "", "directory of region GeoJSON files (default REGIONS_DIR)")
	_ = containsCmd.MarkFlagRequired("region")

	f = styleCmd.Flags()
	f.String("layer", "", "layer display name, e.g. \"Total rainfall\"")
	f.String("value", "", "value to classify")
	f.String("time", "", "period: hist, 2050 or 2080")
	f.Float64("opacity", 1, "fill opacity in [0, 1]")
	_ = styleCmd.MarkFlagRequired("layer")

	f = legendCmd.Flags()
	f.String("layer", "", "layer display name")
	f.String("time", "", "period: hist, 2050 or 2080")

	rootCmd.AddCommand(containsCmd, styleCmd, legendCmd)
}

func runContains(cmd *cobra.Command, _ []string) error {
	region, _ := cmd.Flags().GetString("region")
	lat, _ := cmd.Flags().GetFloat64("lat")
	lng, _ := cmd.Flags().GetFloat64("lng")
	dir, _ := cmd.Flags().GetString("regions-dir")
	if dir == "" {
		dir = cfg.RegionsDir
	}

	regions, err := geojson.LoadRegions(os.DirFS(dir), logger)
	if err != nil {
		return err
	}

	inside, err := regions.Locate(domain.LatLng{Lat: lat, Lng: lng}, region)
	return printJSON(cmd.OutOrStdout(), map[string]any{
		"region":     region,
		"lat":        lat,
		"lng":        lng,
		"inside":     inside,
		"diagnostic": domain.DiagnosticKind(err),
	})
}

func runStyle(cmd *cobra.Command, _ []string) error {
	layer, _ := cmd.Flags().GetString("layer")
	raw, _ := cmd.Flags().GetString("value")
	period, _ := cmd.Flags().GetString("time")
	opacity, _ := cmd.Flags().GetFloat64("opacity")

	var value any
	if cmd.Flags().Changed("value") {
		value = raw
	}

	p := domain.ParsePeriod(period)
	color, err := classifier.Classify(value, layer, p)
	return printJSON(cmd.OutOrStdout(), map[string]any{
		"layer":      layer,
		"period":     p,
		"color":      color,
		"style":      classifier.Style(value, layer, p, opacity),
		"diagnostic": domain.DiagnosticKind(err),
	})
}

func runLegend(cmd *cobra.Command, _ []string) error {
	layer, _ := cmd.Flags().GetString("layer")
	period, _ := cmd.Flags().GetString("time")

	legend, ok := classifier.Legend(layer, domain.ParsePeriod(period))
	if !ok {
		return printJSON(cmd.OutOrStdout(), []domain.Legend{})
	}
	return printJSON(cmd.OutOrStdout(), []domain.Legend{legend})
}
