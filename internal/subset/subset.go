// Package subset reads swath files in parallel and keeps the points that
// fall inside a set of regions.
package subset

import (
	"context"
	"runtime"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rtm0/aodsubset/internal/region"
	"github.com/rtm0/aodsubset/internal/swath"
)

// Subset returns the points of d lying inside at least one of the boxes. A
// nil dataset yields an empty one.
func Subset(d *swath.Dataset, boxes []region.Box) *swath.Dataset {
	if d == nil {
		return d.Select(nil)
	}
	return d.Select(region.Mask(d.Lat, d.Lon, boxes))
}

var errNoDataset = eris.New("subset: loader returned no dataset")

// LoadFunc reads one swath file.
type LoadFunc func(path string, vars swath.Variables) (*swath.Dataset, error)

// Driver loads and subsets files on a bounded pool of goroutines.
type Driver struct {
	workers int
	boxes   []region.Box
	vars    swath.Variables
	load    LoadFunc
}

// Option configures a Driver.
type Option func(*Driver)

// WithWorkers sets the number of files processed concurrently. Values below
// one are ignored.
func WithWorkers(n int) Option {
	return func(d *Driver) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithRegions sets the boxes points are kept in.
func WithRegions(boxes []region.Box) Option {
	return func(d *Driver) { d.boxes = boxes }
}

// WithVariables sets the variable names read from every file.
func WithVariables(vars swath.Variables) Option {
	return func(d *Driver) { d.vars = vars }
}

// WithLoader replaces the file reader.
func WithLoader(fn LoadFunc) Option {
	return func(d *Driver) { d.load = fn }
}

// NewDriver creates a driver that by default keeps African AOD550 points
// using one worker per CPU.
func NewDriver(opts ...Option) *Driver {
	d := &Driver{
		workers: runtime.NumCPU(),
		boxes:   region.Africa(),
		vars:    swath.DefaultVariables(),
		load:    swath.Load,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run loads and subsets every file. The i-th result belongs to paths[i]
// whatever order the files finish in. The first failure stops the batch and
// is returned without any results.
func (d *Driver) Run(ctx context.Context, paths []string) ([]*swath.Dataset, error) {
	results := make([]*swath.Dataset, len(paths))
	if len(paths) == 0 {
		return results, nil
	}

	zap.L().Info("subset: processing files",
		zap.Int("files", len(paths)),
		zap.Int("workers", d.workers),
		zap.Int("regions", len(d.boxes)),
	)
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			loaded, err := d.load(path, d.vars)
			if err != nil {
				zap.L().Error("subset: load failed", zap.String("file", path), zap.Error(err))
				return err
			}
			if loaded == nil {
				return &swath.DataReadError{Path: path, Variable: d.vars.Value, Err: errNoDataset}
			}
			kept := Subset(loaded, d.boxes)
			zap.L().Debug("subset: file done",
				zap.String("file", path),
				zap.Int("points", loaded.Len()),
				zap.Int("kept", kept.Len()),
			)
			results[i] = kept
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	zap.L().Info("subset: files processed",
		zap.Int("files", len(paths)),
		zap.Duration("elapsed", time.Since(start).Round(time.Millisecond)),
	)
	return results, nil
}

// RunMerged runs the batch and concatenates its results in input order.
func (d *Driver) RunMerged(ctx context.Context, paths []string) (*swath.Dataset, error) {
	results, err := d.Run(ctx, paths)
	if err != nil {
		return nil, err
	}
	merged, err := swath.Concatenate(results)
	if err != nil {
		return nil, eris.Wrap(err, "subset: merge")
	}
	return merged, nil
}
