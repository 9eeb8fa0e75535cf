// Package swathtest writes small NetCDF swath files for tests.
package swathtest

import (
	"path/filepath"
	"testing"

	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/cdf"
	"github.com/batchatco/go-native-netcdf/netcdf/util"
	"github.com/stretchr/testify/require"
)

const dim = "pixel_number"

// Point is one sample written to a fixture.
type Point struct {
	Lat, Lon, Value float32
}

// WriteFile writes points as AOD550/latitude/longitude variables to name
// inside dir and returns the full path.
func WriteFile(t testing.TB, dir, name string, points []Point) string {
	t.Helper()
	return write(t, filepath.Join(dir, name), points, nil)
}

// WriteFileWithFill is WriteFile with a _FillValue attribute on AOD550.
func WriteFileWithFill(t testing.TB, dir, name string, points []Point, fill float32) string {
	t.Helper()
	return write(t, filepath.Join(dir, name), points, &fill)
}

// WriteVariables writes arbitrary variables to name inside dir.
func WriteVariables(t testing.TB, dir, name string, vars map[string]api.Variable) string {
	t.Helper()
	path := filepath.Join(dir, name)
	cw, err := cdf.OpenWriter(path)
	require.NoError(t, err)
	for n, v := range vars {
		require.NoError(t, cw.AddVar(n, v))
	}
	require.NoError(t, cw.Close())
	return path
}

// Variable builds a one-dimensional variable along the pixel dimension.
func Variable(t testing.TB, values any, units string) api.Variable {
	t.Helper()
	return VariableOn(t, values, dim, units)
}

// VariableOn builds a one-dimensional variable along the named dimension.
func VariableOn(t testing.TB, values any, dimension, units string) api.Variable {
	t.Helper()
	return VariableWithAttrs(t, values, dimension, []string{"units"}, map[string]any{"units": units})
}

// VariableWithAttrs builds a one-dimensional variable carrying the given
// attributes in keys order.
func VariableWithAttrs(t testing.TB, values any, dimension string, keys []string, attrs map[string]any) api.Variable {
	t.Helper()
	m, err := util.NewOrderedMap(keys, attrs)
	require.NoError(t, err)
	return api.Variable{
		Values:     values,
		Dimensions: []string{dimension},
		Attributes: m,
	}
}

func write(t testing.TB, path string, points []Point, fill *float32) string {
	t.Helper()
	lat := make([]float32, len(points))
	lon := make([]float32, len(points))
	aod := make([]float32, len(points))
	for i, p := range points {
		lat[i], lon[i], aod[i] = p.Lat, p.Lon, p.Value
	}

	aodVar := Variable(t, aod, "1")
	if fill != nil {
		aodVar = VariableWithAttrs(t, aod, dim,
			[]string{"units", "_FillValue"},
			map[string]any{"units": "1", "_FillValue": *fill})
	}

	cw, err := cdf.OpenWriter(path)
	require.NoError(t, err)
	require.NoError(t, cw.AddVar("latitude", Variable(t, lat, "degrees_north")))
	require.NoError(t, cw.AddVar("longitude", Variable(t, lon, "degrees_east")))
	require.NoError(t, cw.AddVar("AOD550", aodVar))
	require.NoError(t, cw.Close())
	return path
}
