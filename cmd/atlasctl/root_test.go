package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/climate-atlas/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"contains", "style", "legend", "publish"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestPublishCommand_Flags(t *testing.T) {
	for _, name := range []string{"file", "layer", "time", "opacity", "region"} {
		assert.NotNil(t, publishCmd.Flags().Lookup(name), "publish should have --%s", name)
	}
	assert.Equal(t, "1", publishCmd.Flags().Lookup("opacity").DefValue)
}

func TestStyleCommand(t *testing.T) {
	out := execute(t, "style", "--layer", "Total rainfall", "--value", "1000", "--opacity", "0.5")

	var got struct {
		Color      string              `json:"color"`
		Diagnostic string              `json:"diagnostic"`
		Style      domain.FeatureStyle `json:"style"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))

	want, err := domain.DefaultColorClassifier().Classify(1000.0, "Total rainfall", domain.PeriodHistorical)
	require.NoError(t, err)
	assert.Equal(t, want, got.Color)
	assert.Equal(t, "ok", got.Diagnostic)
	assert.InDelta(t, 0.5, got.Style.FillOpacity, 1e-9)
}

func TestLegendCommand_Unclassified(t *testing.T) {
	out := execute(t, "legend", "--layer", "Wind speed")
	assert.JSONEq(t, `[]`, out)
}

func TestContainsCommand(t *testing.T) {
	dir := t.TempDir()
	square := `{"type":"Feature","properties":{},"geometry":{"type":"Polygon",` +
		`"coordinates":[[[25,-22],[33,-22],[33,-16],[25,-16],[25,-22]]]}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "zimbabwe.geojson"), []byte(square), 0o600))

	out := execute(t, "contains", "--regions-dir", dir, "--region", "zimbabwe", "--lat=-19", "--lng=29")

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, true, got["inside"])
	assert.Equal(t, "ok", got["diagnostic"])
}
