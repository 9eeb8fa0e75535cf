package subset

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/rtm0/aodsubset/internal/region"
	"github.com/rtm0/aodsubset/internal/swath"
	"github.com/rtm0/aodsubset/internal/swath/swathtest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSubset(t *testing.T) {
	d := &swath.Dataset{
		Name:  "AOD550",
		Lat:   []float64{10, 60, -20, -45},
		Lon:   []float64{20, 20, 20, 20},
		Value: []float64{0.1, 0.2, 0.3, 0.4},
	}

	out := Subset(d, region.Africa())
	assert.Equal(t, []float64{10, -20}, out.Lat)
	assert.Equal(t, []float64{0.1, 0.3}, out.Value)
	assert.Equal(t, 4, d.Len())
}

func TestSubsetDeterministic(t *testing.T) {
	d := &swath.Dataset{
		Name:  "AOD550",
		Lat:   []float64{1, 2, 3},
		Lon:   []float64{1, 2, 3},
		Value: []float64{1, 2, 3},
	}
	assert.Equal(t, Subset(d, region.Africa()), Subset(d, region.Africa()))
}

func TestSubsetNilDataset(t *testing.T) {
	out := Subset(nil, region.Africa())
	require.NotNil(t, out)
	assert.Equal(t, 0, out.Len())
}

func TestNewDriverDefaults(t *testing.T) {
	d := NewDriver()
	assert.Positive(t, d.workers)
	assert.Len(t, d.boxes, 2)
	assert.Equal(t, swath.DefaultVariables(), d.vars)
	assert.NotNil(t, d.load)

	assert.Equal(t, 3, NewDriver(WithWorkers(3)).workers)
	assert.Equal(t, d.workers, NewDriver(WithWorkers(0)).workers)
}

// delayedLoader returns a single in-region point whose value is the file's
// index, sleeping longer for earlier files so they finish last.
func delayedLoader(paths []string) LoadFunc {
	index := make(map[string]int, len(paths))
	for i, p := range paths {
		index[p] = i
	}
	return func(path string, vars swath.Variables) (*swath.Dataset, error) {
		i := index[path]
		time.Sleep(time.Duration(len(paths)-i) * 10 * time.Millisecond)
		return &swath.Dataset{
			Name:  vars.Value,
			Lat:   []float64{10},
			Lon:   []float64{20},
			Value: []float64{float64(i)},
		}, nil
	}
}

func TestRunPreservesInputOrder(t *testing.T) {
	paths := []string{"a.nc", "b.nc", "c.nc", "d.nc", "e.nc"}
	d := NewDriver(WithWorkers(len(paths)), WithLoader(delayedLoader(paths)))

	results, err := d.Run(context.Background(), paths)
	require.NoError(t, err)
	require.Len(t, results, len(paths))
	for i, r := range results {
		assert.Equal(t, []float64{float64(i)}, r.Value, "result %d", i)
	}
}

func TestRunEmpty(t *testing.T) {
	results, err := NewDriver().Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRunRespectsWorkerLimit(t *testing.T) {
	var running, peak atomic.Int32
	load := func(path string, vars swath.Variables) (*swath.Dataset, error) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		running.Add(-1)
		return &swath.Dataset{Name: vars.Value}, nil
	}

	paths := make([]string, 10)
	for i := range paths {
		paths[i] = fmt.Sprintf("f%d.nc", i)
	}
	_, err := NewDriver(WithWorkers(2), WithLoader(load)).Run(context.Background(), paths)
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestRunFailsOnReadError(t *testing.T) {
	load := func(path string, vars swath.Variables) (*swath.Dataset, error) {
		if path == "bad.nc" {
			return nil, &swath.DataReadError{Path: path, Variable: vars.Value, Err: errors.New("corrupt")}
		}
		return &swath.Dataset{Name: vars.Value}, nil
	}

	results, err := NewDriver(WithLoader(load)).Run(context.Background(), []string{"ok.nc", "bad.nc", "ok2.nc"})
	assert.Nil(t, results)

	var readErr *swath.DataReadError
	require.True(t, errors.As(err, &readErr))
	assert.Equal(t, "bad.nc", readErr.Path)
}

func TestRunLoaderReturnsNil(t *testing.T) {
	load := func(path string, vars swath.Variables) (*swath.Dataset, error) {
		return nil, nil
	}

	results, err := NewDriver(WithLoader(load)).Run(context.Background(), []string{"empty.nc"})
	assert.Nil(t, results)

	var readErr *swath.DataReadError
	require.True(t, errors.As(err, &readErr))
	assert.Equal(t, "empty.nc", readErr.Path)
	assert.True(t, errors.Is(err, errNoDataset))
}

func TestRunCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	load := func(path string, vars swath.Variables) (*swath.Dataset, error) {
		calls.Add(1)
		return &swath.Dataset{Name: vars.Value}, nil
	}

	_, err := NewDriver(WithLoader(load)).Run(ctx, []string{"a.nc", "b.nc"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls.Load())
}

func TestRunMergedEmpty(t *testing.T) {
	_, err := NewDriver().RunMerged(context.Background(), nil)
	assert.True(t, errors.Is(err, swath.ErrEmptyInput))
}

func TestRunMergedEndToEnd(t *testing.T) {
	dir := t.TempDir()
	points := []swathtest.Point{
		{Lat: 10, Lon: 20, Value: 0.5},   // northern Africa
		{Lat: 60, Lon: 20, Value: 0.25},  // Europe
		{Lat: -30, Lon: 45, Value: 0.75}, // southern Africa only
		{Lat: -20, Lon: 0, Value: 0.125}, // on both boundaries
		{Lat: -20, Lon: 20, Value: 1.5},  // northern edge, southern interior
	}
	paths := make([]string, len(points))
	for i, p := range points {
		paths[i] = swathtest.WriteFile(t, dir, fmt.Sprintf("orbit%d.nc", i), []swathtest.Point{p})
	}

	merged, err := NewDriver(WithWorkers(2)).RunMerged(context.Background(), paths)
	require.NoError(t, err)

	assert.Equal(t, "AOD550", merged.Name)
	assert.Equal(t, []float64{0.5, 0.75, 1.5}, merged.Value)
	assert.Equal(t, []float64{10, -30, -20}, merged.Lat)
	assert.Equal(t, []float64{20, 45, 20}, merged.Lon)
}

func TestRunMergedMissingFile(t *testing.T) {
	dir := t.TempDir()
	good := swathtest.WriteFile(t, dir, "good.nc", []swathtest.Point{{Lat: 10, Lon: 20, Value: 0.5}})

	_, err := NewDriver().RunMerged(context.Background(), []string{good, dir + "/missing.nc"})

	var readErr *swath.DataReadError
	require.True(t, errors.As(err, &readErr))
	assert.Equal(t, dir+"/missing.nc", readErr.Path)
}
