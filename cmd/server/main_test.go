package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecoroute/internal/config"
)

const testRegistry = `
garbage:
  - name: North
    email: north@example.com
    latitude: 10
    longitude: 10
  - name: South
    email: south@example.com
    latitude: -10
    longitude: -10
recycling:
  - name: Depot
    email: depot@example.com
    latitude: 0
    longitude: 0
`

func TestRootCommand_Subcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "migrate", "centers"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
}

func TestMigrationsPath_Configured(t *testing.T) {
	assert.Equal(t, "/srv/migrations", migrationsPath("/srv/migrations"))
}

func TestMigrationsPath_WorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "migrations"), 0o755))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	got := migrationsPath("")
	resolved, err := filepath.EvalSymlinks(got)
	require.NoError(t, err)
	want, err := filepath.EvalSymlinks(filepath.Join(dir, "migrations"))
	require.NoError(t, err)
	assert.Equal(t, want, resolved)
}

func TestCentersNearest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "centers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testRegistry), 0o600))

	prev := cfg
	cfg = &config.Config{Centers: config.CentersConfig{RegistryPath: path}}
	t.Cleanup(func() { cfg = prev })

	tests := []struct {
		kind     string
		lat, lon float64
		want     string
	}{
		{"garbage", 9, 9, "North"},
		{"garbage", -9, -9, "South"},
		{"recycling", 40, 40, "Depot"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			centersKind, centersLat, centersLon = tt.kind, tt.lat, tt.lon

			var out bytes.Buffer
			centersNearestCmd.SetOut(&out)
			require.NoError(t, centersNearestCmd.RunE(centersNearestCmd, nil))
			assert.Contains(t, out.String(), tt.want)
		})
	}
}

func TestCentersNearest_InvalidCoordinates(t *testing.T) {
	prev := cfg
	cfg = &config.Config{}
	t.Cleanup(func() { cfg = prev })

	centersKind, centersLat, centersLon = "garbage", 200, 10
	err := centersNearestCmd.RunE(centersNearestCmd, nil)
	assert.Error(t, err)
}
