// Package swath holds ungridded satellite measurements: points that each
// carry their own latitude, longitude and measured value.
package swath

import (
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var (
	// ErrEmptyInput is returned when concatenating zero datasets.
	ErrEmptyInput = eris.New("swath: no datasets to concatenate")
	// ErrVariableMismatch is returned when concatenating datasets of
	// different variables.
	ErrVariableMismatch = eris.New("swath: datasets hold different variables")
	// ErrUnknownField is returned by Field for names it cannot resolve.
	ErrUnknownField = eris.New("swath: unknown field")
)

// Dataset is an ordered collection of sample points. Lat, Lon and Value are
// index-aligned and always have the same length.
type Dataset struct {
	// Name is the measured variable, e.g. AOD550.
	Name  string
	Lat   []float64
	Lon   []float64
	Value []float64
}

// Len returns the number of points.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Value)
}

// Select returns a new dataset holding the points whose mask entry is true,
// in their original order. Mask entries past the dataset length are ignored.
// Selecting from a nil dataset yields an empty one.
func (d *Dataset) Select(mask []bool) *Dataset {
	if d == nil {
		return &Dataset{Lat: []float64{}, Lon: []float64{}, Value: []float64{}}
	}
	n := 0
	for i, ok := range mask {
		if ok && i < d.Len() {
			n++
		}
	}
	out := &Dataset{
		Name:  d.Name,
		Lat:   make([]float64, 0, n),
		Lon:   make([]float64, 0, n),
		Value: make([]float64, 0, n),
	}
	for i := range min(len(mask), d.Len()) {
		if !mask[i] {
			continue
		}
		out.Lat = append(out.Lat, d.Lat[i])
		out.Lon = append(out.Lon, d.Lon[i])
		out.Value = append(out.Value, d.Value[i])
	}
	return out
}

// Field returns the slice backing the named field. Latitude and longitude
// accept their long and short names; the values are reachable by the
// variable name or "value".
func (d *Dataset) Field(name string) ([]float64, error) {
	switch strings.ToLower(name) {
	case "latitude", "lat":
		return d.Lat, nil
	case "longitude", "lon":
		return d.Lon, nil
	case "value", strings.ToLower(d.Name):
		return d.Value, nil
	}
	return nil, eris.Wrapf(ErrUnknownField, "swath: field %q", name)
}

// Summary returns fields describing the dataset suitable for logging.
func (d *Dataset) Summary() []zap.Field {
	fields := []zap.Field{
		zap.String("variable", d.Name),
		zap.Int("points", d.Len()),
	}
	if d.Len() == 0 {
		return fields
	}
	return append(fields,
		zap.Float64("min", floats.Min(d.Value)),
		zap.Float64("max", floats.Max(d.Value)),
		zap.Float64("mean", stat.Mean(d.Value, nil)),
		zap.Float64s("lat_range", []float64{floats.Min(d.Lat), floats.Max(d.Lat)}),
		zap.Float64s("lon_range", []float64{floats.Min(d.Lon), floats.Max(d.Lon)}),
	)
}

// Concatenate joins the datasets end to end, preserving their order. Nil
// entries are skipped. The result has as many points as all inputs combined.
func Concatenate(datasets []*Dataset) (*Dataset, error) {
	if len(datasets) == 0 {
		return nil, ErrEmptyInput
	}

	var name string
	total := 0
	seen := false
	for _, d := range datasets {
		if d == nil {
			continue
		}
		if !seen {
			name = d.Name
			seen = true
		} else if d.Name != name {
			return nil, eris.Wrapf(ErrVariableMismatch, "swath: %q and %q", name, d.Name)
		}
		total += d.Len()
	}

	out := &Dataset{
		Name:  name,
		Lat:   make([]float64, 0, total),
		Lon:   make([]float64, 0, total),
		Value: make([]float64, 0, total),
	}
	for _, d := range datasets {
		if d == nil {
			continue
		}
		out.Lat = append(out.Lat, d.Lat...)
		out.Lon = append(out.Lon, d.Lon...)
		out.Value = append(out.Value, d.Value...)
	}
	return out, nil
}
