package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtm0/aodsubset/internal/swath"
	"github.com/rtm0/aodsubset/internal/swath/swathtest"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"subset", "plot", "export", "push"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "aodsubset", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	require.NotNil(t, rootCmd.PersistentFlags().Lookup("workers"))
	assert.True(t, rootCmd.SilenceErrors)
	assert.True(t, rootCmd.SilenceUsage)
}

func TestCommandFlags(t *testing.T) {
	require.NotNil(t, plotCmd.Flags().Lookup("output"))
	require.NotNil(t, plotCmd.Flags().Lookup("x"))
	require.NotNil(t, plotCmd.Flags().Lookup("y"))
	require.NotNil(t, exportCmd.Flags().Lookup("format"))
	require.NotNil(t, pushCmd.Flags().Lookup("url"))
}

// fixtures writes one single-point swath per point into a fresh working
// directory and returns their paths.
func fixtures(t *testing.T) []string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	points := []swathtest.Point{
		{Lat: 10, Lon: 20, Value: 0.5},
		{Lat: 60, Lon: 20, Value: 0.25},
		{Lat: -30, Lon: 45, Value: 0.75},
	}
	paths := make([]string, len(points))
	for i, p := range points {
		paths[i] = swathtest.WriteFile(t, dir, filepath.Base(t.Name())+string(rune('a'+i))+".nc", []swathtest.Point{p})
	}
	return paths
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	return out.String(), err
}

func TestSubsetCommand(t *testing.T) {
	paths := fixtures(t)

	out, err := execute(t, append([]string{"subset", "--workers", "2"}, paths...)...)
	require.NoError(t, err)
	assert.Equal(t, "AOD550: 2 points kept from 3 files\n", out)
}

func TestSubsetCommandMissingFile(t *testing.T) {
	paths := fixtures(t)

	_, err := execute(t, "subset", paths[0], "missing.nc")
	var readErr *swath.DataReadError
	require.ErrorAs(t, err, &readErr)
	assert.Equal(t, "missing.nc", readErr.Path)
}

func TestExportCommandGeoJSON(t *testing.T) {
	paths := fixtures(t)
	output := filepath.Join(t.TempDir(), "africa.geojson")

	_, err := execute(t, append([]string{"export", "--format", "geojson", "--output", output}, paths...)...)
	require.NoError(t, err)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	var fc struct {
		Features []json.RawMessage `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &fc))
	assert.Len(t, fc.Features, 2)
}

func TestPlotCommand(t *testing.T) {
	paths := fixtures(t)
	output := filepath.Join(t.TempDir(), "africa.png")

	_, err := execute(t, append([]string{"plot", "--output", output}, paths...)...)
	require.NoError(t, err)
	assert.FileExists(t, output)
}

func TestInvalidConfigFailsBeforeRunning(t *testing.T) {
	paths := fixtures(t)
	require.NoError(t, os.WriteFile("aodsubset.yaml", []byte("workers: 0\n"), 0644))

	out, err := execute(t, append([]string{"subset"}, paths...)...)
	assert.ErrorContains(t, err, "load config")
	assert.Empty(t, out)
}

func TestWriteGeoJSON(t *testing.T) {
	d := &swath.Dataset{Name: "AOD550", Lat: []float64{10}, Lon: []float64{20}, Value: []float64{0.5}}
	dir := t.TempDir()

	output := filepath.Join(dir, "out.geojson")
	require.NoError(t, writeGeoJSON(output, d))
	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(data), "FeatureCollection")

	err = writeGeoJSON(filepath.Join(dir, "missing", "out.geojson"), d)
	assert.ErrorContains(t, err, "export: create")
}
