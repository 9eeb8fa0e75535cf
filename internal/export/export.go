// Package export writes swath points to GIS interchange formats.
package export

import (
	"encoding/json"
	"io"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/rtm0/aodsubset/internal/swath"
)

// dBASE field names are limited to 10 bytes.
const maxFieldName = 10

// GeoJSON writes d as a FeatureCollection of points. Each feature carries
// the measured value as a property named after the variable.
func GeoJSON(w io.Writer, d *swath.Dataset) error {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, d.Len())}
	for i := range d.Len() {
		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry: geom.NewPointFlat(geom.XY, []float64{d.Lon[i], d.Lat[i]}),
			Properties: map[string]any{
				d.Name: d.Value[i],
			},
		})
	}

	data, err := json.Marshal(fc)
	if err != nil {
		return eris.Wrap(err, "export: encode geojson")
	}
	if _, err := w.Write(data); err != nil {
		return eris.Wrap(err, "export: write geojson")
	}
	return nil
}

// Shapefile writes d as a POINT shapefile at path (plus its .shx and .dbf
// siblings) with a single float attribute holding the measured value.
func Shapefile(path string, d *swath.Dataset) error {
	w, err := shp.Create(path, shp.POINT)
	if err != nil {
		return eris.Wrapf(err, "export: create shapefile %s", path)
	}
	defer w.Close()

	if err := w.SetFields([]shp.Field{shp.FloatField(FieldName(d.Name), 16, 6)}); err != nil {
		return eris.Wrap(err, "export: set shapefile fields")
	}
	for i := range d.Len() {
		row := w.Write(&shp.Point{X: d.Lon[i], Y: d.Lat[i]})
		if err := w.WriteAttribute(int(row), 0, d.Value[i]); err != nil {
			return eris.Wrapf(err, "export: write attribute for point %d", i)
		}
	}

	zap.L().Debug("export: shapefile written", zap.String("path", path), zap.Int("points", d.Len()))
	return nil
}

// FieldName returns the dBASE attribute name used for a variable.
func FieldName(variable string) string {
	if variable == "" {
		return "VALUE"
	}
	if len(variable) > maxFieldName {
		return variable[:maxFieldName]
	}
	return variable
}
