package config

import (
	"runtime"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rtm0/aodsubset/internal/region"
	"github.com/rtm0/aodsubset/internal/swath"
)

// Config holds the full application configuration.
type Config struct {
	Files     []string        `yaml:"files" mapstructure:"files" validate:"dive,required"`
	Variables VariablesConfig `yaml:"variables" mapstructure:"variables"`
	Regions   []RegionConfig  `yaml:"regions" mapstructure:"regions" validate:"min=1,dive"`
	Workers   int             `yaml:"workers" mapstructure:"workers" validate:"min=1"`
	Plot      PlotConfig      `yaml:"plot" mapstructure:"plot"`
	Export    ExportConfig    `yaml:"export" mapstructure:"export"`
	VM        VMConfig        `yaml:"vm" mapstructure:"vm"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// VariablesConfig names the NetCDF variables read from every file.
type VariablesConfig struct {
	Value     string `yaml:"value" mapstructure:"value" validate:"required"`
	Latitude  string `yaml:"latitude" mapstructure:"latitude" validate:"required"`
	Longitude string `yaml:"longitude" mapstructure:"longitude" validate:"required"`
}

// RegionConfig is one latitude/longitude box. Bounds are exclusive.
type RegionConfig struct {
	Name   string  `yaml:"name" mapstructure:"name"`
	LatMin float64 `yaml:"lat_min" mapstructure:"lat_min" validate:"gte=-90,lte=90"`
	LatMax float64 `yaml:"lat_max" mapstructure:"lat_max" validate:"gte=-90,lte=90,gtfield=LatMin"`
	LonMin float64 `yaml:"lon_min" mapstructure:"lon_min" validate:"gte=-180,lte=360"`
	LonMax float64 `yaml:"lon_max" mapstructure:"lon_max" validate:"gte=-180,lte=360,gtfield=LonMin"`
}

// PlotConfig configures the scatter plot.
type PlotConfig struct {
	Output string  `yaml:"output" mapstructure:"output" validate:"required"`
	XField string  `yaml:"x_field" mapstructure:"x_field" validate:"required"`
	YField string  `yaml:"y_field" mapstructure:"y_field" validate:"required"`
	Width  float64 `yaml:"width_in" mapstructure:"width_in" validate:"gt=0"`
	Height float64 `yaml:"height_in" mapstructure:"height_in" validate:"gt=0"`
}

// ExportConfig configures file exports.
type ExportConfig struct {
	Format string `yaml:"format" mapstructure:"format" validate:"oneof=geojson shapefile"`
	Output string `yaml:"output" mapstructure:"output" validate:"required"`
}

// VMConfig configures the Victoria Metrics sink.
type VMConfig struct {
	InsertURL    string `yaml:"insert_url" mapstructure:"insert_url" validate:"required,url"`
	MetricPrefix string `yaml:"metric_prefix" mapstructure:"metric_prefix" validate:"required,alphanum"`
	Concurrency  int    `yaml:"concurrency" mapstructure:"concurrency" validate:"min=1"`
	BatchSize    int    `yaml:"batch_size" mapstructure:"batch_size" validate:"min=1"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format" validate:"oneof=json console"`
}

// DefaultFiles are the Aerosol CCI ORAC swaths of 2008-04-11.
var DefaultFiles = []string{
	"../../resources/WorkshopData2016/AerosolCCI/20080411002335-ESACCI-L2P_AEROSOL-AER_PRODUCTS-AATSR-ENVISAT-ORAC_31962-fv03.04.nc",
	"../../resources/WorkshopData2016/AerosolCCI/20080411020411-ESACCI-L2P_AEROSOL-AER_PRODUCTS-AATSR-ENVISAT-ORAC_31963-fv03.04.nc",
	"../../resources/WorkshopData2016/AerosolCCI/20080411034447-ESACCI-L2P_AEROSOL-AER_PRODUCTS-AATSR-ENVISAT-ORAC_31964-fv03.04.nc",
	"../../resources/WorkshopData2016/AerosolCCI/20080411052523-ESACCI-L2P_AEROSOL-AER_PRODUCTS-AATSR-ENVISAT-ORAC_31965-fv03.04.nc",
	"../../resources/WorkshopData2016/AerosolCCI/20080411070559-ESACCI-L2P_AEROSOL-AER_PRODUCTS-AATSR-ENVISAT-ORAC_31966-fv03.04.nc",
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("aodsubset")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("AODSUBSET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	vars := swath.DefaultVariables()
	v.SetDefault("files", DefaultFiles)
	v.SetDefault("variables.value", vars.Value)
	v.SetDefault("variables.latitude", vars.Latitude)
	v.SetDefault("variables.longitude", vars.Longitude)
	v.SetDefault("regions", defaultRegions())
	v.SetDefault("workers", runtime.NumCPU())
	v.SetDefault("plot.output", "africa.png")
	v.SetDefault("plot.x_field", "longitude")
	v.SetDefault("plot.y_field", "latitude")
	v.SetDefault("plot.width_in", 10)
	v.SetDefault("plot.height_in", 6)
	v.SetDefault("export.format", "geojson")
	v.SetDefault("export.output", "africa.geojson")
	v.SetDefault("vm.insert_url", "http://localhost:8428/write")
	v.SetDefault("vm.metric_prefix", "aerosol")
	v.SetDefault("vm.concurrency", runtime.NumCPU())
	v.SetDefault("vm.batch_size", 500)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the configuration against its struct tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return eris.Wrap(err, "config: validate")
	}
	return nil
}

func defaultRegions() []map[string]any {
	boxes := region.Africa()
	out := make([]map[string]any, len(boxes))
	for i, b := range boxes {
		out[i] = map[string]any{
			"name":    b.Name,
			"lat_min": b.LatMin(),
			"lat_max": b.LatMax(),
			"lon_min": b.LonMin(),
			"lon_max": b.LonMax(),
		}
	}
	return out
}

// Boxes converts the configured regions.
func (c *Config) Boxes() []region.Box {
	boxes := make([]region.Box, len(c.Regions))
	for i, r := range c.Regions {
		boxes[i] = region.NewBox(r.Name, r.LatMin, r.LatMax, r.LonMin, r.LonMax)
	}
	return boxes
}

// SwathVariables converts the configured variable names.
func (c *Config) SwathVariables() swath.Variables {
	return swath.Variables{
		Value:     c.Variables.Value,
		Latitude:  c.Variables.Latitude,
		Longitude: c.Variables.Longitude,
	}
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
