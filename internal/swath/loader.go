package swath

import (
	"math"
	"os"
	"reflect"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/rotisserie/eris"
)

const (
	fillValueAttr   = "_FillValue"
	validMinAttr    = "valid_min"
	validMaxAttr    = "valid_max"
	validRangeAttr  = "valid_range"
	scaleFactorAttr = "scale_factor"
	addOffsetAttr   = "add_offset"
)

// Variables names the NetCDF variables a swath is read from.
type Variables struct {
	Value     string
	Latitude  string
	Longitude string
}

// DefaultVariables returns the variable names used by Aerosol CCI L2P
// products.
func DefaultVariables() Variables {
	return Variables{
		Value:     "AOD550",
		Latitude:  "latitude",
		Longitude: "longitude",
	}
}

// Load reads the measurement and coordinate variables of one swath file.
// Packed variables are unpacked with their scale_factor and add_offset.
// Points where any of the three is NaN, equal to its _FillValue or outside
// its valid range are dropped. Every failure is reported as a *DataReadError.
func Load(path string, vars Variables) (*Dataset, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &DataReadError{Path: path, Err: eris.Wrap(err, "swath: stat")}
	}
	nc, err := netcdf.Open(path)
	if err != nil {
		return nil, &DataReadError{Path: path, Err: eris.Wrap(err, "swath: open netcdf")}
	}
	defer nc.Close()

	value, err := variableValues(nc, vars.Value)
	if err != nil {
		return nil, &DataReadError{Path: path, Variable: vars.Value, Err: err}
	}
	lat, err := variableValues(nc, vars.Latitude)
	if err != nil {
		return nil, &DataReadError{Path: path, Variable: vars.Latitude, Err: err}
	}
	lon, err := variableValues(nc, vars.Longitude)
	if err != nil {
		return nil, &DataReadError{Path: path, Variable: vars.Longitude, Err: err}
	}
	if len(lat) != len(value) || len(lon) != len(value) {
		return nil, &DataReadError{
			Path:     path,
			Variable: vars.Value,
			Err: eris.Errorf("swath: misaligned variables: %d values, %d latitudes, %d longitudes",
				len(value), len(lat), len(lon)),
		}
	}

	d := &Dataset{
		Name:  vars.Value,
		Lat:   make([]float64, 0, len(value)),
		Lon:   make([]float64, 0, len(value)),
		Value: make([]float64, 0, len(value)),
	}
	for i, v := range value {
		if math.IsNaN(v) || math.IsNaN(lat[i]) || math.IsNaN(lon[i]) {
			continue
		}
		d.Lat = append(d.Lat, lat[i])
		d.Lon = append(d.Lon, lon[i])
		d.Value = append(d.Value, v)
	}
	return d, nil
}

// packing holds the CF attributes that mask and unpack a variable. Fill
// and valid range apply to the stored values, before unpacking.
type packing struct {
	fill     *float64
	validMin *float64
	validMax *float64
	scale    float64
	offset   float64
}

func readPacking(attrs api.AttributeMap) packing {
	p := packing{scale: 1}
	if attrs == nil {
		return p
	}
	p.fill = attrScalar(attrs, fillValueAttr)
	p.validMin = attrScalar(attrs, validMinAttr)
	p.validMax = attrScalar(attrs, validMaxAttr)
	if vals := attrValues(attrs, validRangeAttr); len(vals) >= 2 {
		p.validMin, p.validMax = &vals[0], &vals[1]
	}
	if s := attrScalar(attrs, scaleFactorAttr); s != nil {
		p.scale = *s
	}
	if o := attrScalar(attrs, addOffsetAttr); o != nil {
		p.offset = *o
	}
	return p
}

// apply returns the unpacked value, or NaN when raw is masked.
func (p packing) apply(raw float64) float64 {
	switch {
	case math.IsNaN(raw),
		p.fill != nil && raw == *p.fill,
		p.validMin != nil && raw < *p.validMin,
		p.validMax != nil && raw > *p.validMax:
		return math.NaN()
	}
	return raw*p.scale + p.offset
}

// variableValues returns the variable's values flattened in row-major order,
// unpacked to float64. Masked values are NaN.
func variableValues(nc api.Group, name string) ([]float64, error) {
	v, err := nc.GetVariable(name)
	if err != nil {
		return nil, eris.Wrapf(err, "swath: variable %q", name)
	}
	values, err := flatten(v.Values)
	if err != nil {
		return nil, eris.Wrapf(err, "swath: variable %q", name)
	}
	p := readPacking(v.Attributes)
	for i, raw := range values {
		values[i] = p.apply(raw)
	}
	return values, nil
}

func attrValues(attrs api.AttributeMap, name string) []float64 {
	raw, ok := attrs.Get(name)
	if !ok {
		return nil
	}
	vals, err := flatten(raw)
	if err != nil {
		return nil
	}
	return vals
}

func attrScalar(attrs api.AttributeMap, name string) *float64 {
	vals := attrValues(attrs, name)
	if len(vals) == 0 {
		return nil
	}
	return &vals[0]
}

// flatten walks nested slices of any numeric type and returns their
// elements as float64.
func flatten(values any) ([]float64, error) {
	if values == nil {
		return nil, eris.New("swath: no values")
	}
	var out []float64
	var walk func(v reflect.Value) error
	walk = func(v reflect.Value) error {
		switch v.Kind() {
		case reflect.Slice, reflect.Array:
			for i := range v.Len() {
				if err := walk(v.Index(i)); err != nil {
					return err
				}
			}
		case reflect.Float32, reflect.Float64:
			out = append(out, v.Float())
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			out = append(out, float64(v.Int()))
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			out = append(out, float64(v.Uint()))
		case reflect.Interface, reflect.Pointer:
			if v.IsNil() {
				return eris.New("swath: nil element")
			}
			return walk(v.Elem())
		default:
			return eris.Errorf("swath: non-numeric type %s", v.Type())
		}
		return nil
	}
	if err := walk(reflect.ValueOf(values)); err != nil {
		return nil, err
	}
	return out, nil
}
