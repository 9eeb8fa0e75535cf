// Package region selects geolocated points that fall inside axis-aligned
// latitude/longitude boxes.
package region

import (
	"math"

	"github.com/twpayne/go-geom"
)

// Box is an axis-aligned latitude/longitude rectangle. Bounds are stored in
// XY order, x being the longitude and y the latitude. Containment is strict:
// a point lying exactly on any edge is outside the box.
type Box struct {
	Name   string
	bounds *geom.Bounds
}

// NewBox creates a box covering the open interval (latMin, latMax) x
// (lonMin, lonMax).
func NewBox(name string, latMin, latMax, lonMin, lonMax float64) Box {
	return Box{
		Name:   name,
		bounds: geom.NewBounds(geom.XY).Set(lonMin, latMin, lonMax, latMax),
	}
}

var (
	// NorthernAfrica covers latitudes (-20, 50) and longitudes (0, 40).
	NorthernAfrica = NewBox("northern_africa", -20, 50, 0, 40)
	// SouthernAfrica covers latitudes (-40, 0) and longitudes (10, 50).
	SouthernAfrica = NewBox("southern_africa", -40, 0, 10, 50)
)

// Africa returns the two boxes whose union approximates the African continent.
func Africa() []Box {
	return []Box{NorthernAfrica, SouthernAfrica}
}

// LatMin returns the lower latitude bound.
func (b Box) LatMin() float64 { return b.bounds.Min(1) }

// LatMax returns the upper latitude bound.
func (b Box) LatMax() float64 { return b.bounds.Max(1) }

// LonMin returns the lower longitude bound.
func (b Box) LonMin() float64 { return b.bounds.Min(0) }

// LonMax returns the upper longitude bound.
func (b Box) LonMax() float64 { return b.bounds.Max(0) }

// Contains reports whether the point lies strictly inside the box. NaN
// coordinates are never inside.
func (b Box) Contains(lat, lon float64) bool {
	if b.bounds == nil || math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	return b.LatMin() < lat && lat < b.LatMax() &&
		b.LonMin() < lon && lon < b.LonMax()
}

// Mask returns one entry per latitude, true iff the point at that index is
// inside at least one of the boxes. When lons is shorter than lats, the
// trailing entries are false.
func Mask(lats, lons []float64, boxes []Box) []bool {
	mask := make([]bool, len(lats))
	n := min(len(lats), len(lons))
	for i := range n {
		for _, b := range boxes {
			if b.Contains(lats[i], lons[i]) {
				mask[i] = true
				break
			}
		}
	}
	return mask
}
