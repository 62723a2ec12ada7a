// Package config loads the run configuration from defaults, an optional
// JSON/YAML/TOML file, WRFXSECT_* environment variables and command-line
// flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/rtm0/wrfxsect/internal/grid"
	"github.com/rtm0/wrfxsect/internal/pipeline"
	"github.com/rtm0/wrfxsect/internal/xsect"
)

// ErrNoFile is returned when no WRF output file is configured.
var ErrNoFile = errors.New("no WRF output file given")

// Point is a configured latitude/longitude.
type Point struct {
	Lat float64 `mapstructure:"lat"`
	Lon float64 `mapstructure:"lon"`
}

// Slot names the variable drawn in one plot slot and how it is rescaled.
type Slot struct {
	Variable   string  `mapstructure:"variable"`
	Multiplier float64 `mapstructure:"multiplier"`
	Addition   float64 `mapstructure:"addition"`
}

// Config holds every setting of a run.
type Config struct {
	File        string `mapstructure:"file"`
	Concurrency int    `mapstructure:"concurrency"`
	LogLevel    string `mapstructure:"logLevel"`
	LogsDir     string `mapstructure:"logsDir"`

	Line struct {
		Start Point `mapstructure:"start"`
		End   Point `mapstructure:"end"`
	} `mapstructure:"line"`

	Vertical struct {
		Coordinate string  `mapstructure:"coordinate"`
		Bottom     float64 `mapstructure:"bottom"`
		Top        float64 `mapstructure:"top"`
		Interval   float64 `mapstructure:"interval"`
	} `mapstructure:"vertical"`

	Shade   Slot `mapstructure:"shade"`
	Contour Slot `mapstructure:"contour"`
	Vector  struct {
		Horizontal string `mapstructure:"horizontal"`
		Vertical   string `mapstructure:"vertical"`
	} `mapstructure:"vector"`

	Output struct {
		Dir            string  `mapstructure:"dir"`
		NetCDF         bool    `mapstructure:"netcdf"`
		Archive        bool    `mapstructure:"archive"`
		Info           bool    `mapstructure:"info"`
		Timezone       string  `mapstructure:"timezone"`
		UTCOffsetHours float64 `mapstructure:"utcOffsetHours"`
	} `mapstructure:"output"`

	Push          bool   `mapstructure:"push"`
	VMInsertURL   string `mapstructure:"vmInsertUrl"`
	MetricPrefix  string `mapstructure:"metricPrefix"`
	RecsPerInsert int    `mapstructure:"recsPerInsert"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("file", "")
	v.SetDefault("concurrency", runtime.NumCPU())
	v.SetDefault("logLevel", "info")
	v.SetDefault("logsDir", "")

	v.SetDefault("line.start.lat", 33.7)
	v.SetDefault("line.start.lon", 130.5)
	v.SetDefault("line.end.lat", 33.7)
	v.SetDefault("line.end.lon", 131.1)

	v.SetDefault("vertical.coordinate", "height")
	v.SetDefault("vertical.bottom", 0)
	v.SetDefault("vertical.top", 1500)
	v.SetDefault("vertical.interval", 10)

	v.SetDefault("shade.variable", "th")
	v.SetDefault("shade.multiplier", 1)
	v.SetDefault("shade.addition", 0)
	v.SetDefault("contour.variable", "rh")
	v.SetDefault("contour.multiplier", 1)
	v.SetDefault("contour.addition", 0)
	v.SetDefault("vector.horizontal", "uvmet")
	v.SetDefault("vector.vertical", "wa")

	v.SetDefault("output.dir", "./output")
	v.SetDefault("output.netcdf", true)
	v.SetDefault("output.archive", true)
	v.SetDefault("output.info", true)
	v.SetDefault("output.timezone", "JST")
	v.SetDefault("output.utcOffsetHours", 9)

	v.SetDefault("push", false)
	v.SetDefault("vmInsertUrl", "http://localhost:8428/write")
	v.SetDefault("metricPrefix", "wrf")
	v.SetDefault("recsPerInsert", 500)
}

// Flags returns the command-line flags Load understands.
func Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("wrfxsect", pflag.ContinueOnError)
	fs.StringP("config", "c", "", "path to a JSON, YAML or TOML config file")
	fs.String("file", "", "path to a WRF output file in NetCDF format")
	fs.Int("concurrency", runtime.NumCPU(), "number of frames extracted and batches pushed concurrently")
	fs.String("logLevel", "info", "log level: debug, info, warn or error")
	fs.String("logsDir", "", "directory of the rotating JSON log file; none when empty")
	fs.String("outputDir", "./output", "directory the cross-sections are written to")
	fs.String("vertical", "height", "vertical coordinate: height or pressure")
	fs.Bool("push", false, "push every cross-section cell to Victoria Metrics")
	fs.Int("recsPerInsert", 500, "number of records sent to VM in one batch")
	fs.String("vmInsertUrl", "http://localhost:8428/write", "Victoria Metrics insert API URL. Default: InfluxDB line protocol v2")
	fs.String("metricPrefix", "wrf", "Victoria Metrics metric name prefix")
	return fs
}

// flagKeys maps flag names onto config keys where they differ.
var flagKeys = map[string]string{
	"outputDir": "output.dir",
	"vertical":  "vertical.coordinate",
}

// Load parses args and builds the configuration.
func Load(args []string) (*Config, error) {
	fs := Flags()
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("WRFXSECT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var err error
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Name == "config" || err != nil {
			return
		}
		key := f.Name
		if k, ok := flagKeys[key]; ok {
			key = k
		}
		err = v.BindPFlag(key, f)
	})
	if err != nil {
		return nil, err
	}

	if path, _ := fs.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	// A positional argument stands for -file.
	if fs.NArg() > 0 && v.GetString("file") == "" {
		v.Set("file", fs.Arg(0))
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the settings that do not need the dataset.
func (c *Config) Validate() error {
	if c.File == "" {
		return ErrNoFile
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be positive, got %d", c.Concurrency)
	}
	if c.RecsPerInsert < 1 {
		return fmt.Errorf("recsPerInsert must be positive, got %d", c.RecsPerInsert)
	}
	if _, err := c.Request(); err != nil {
		return err
	}
	return nil
}

// Request builds the extraction request described by c.
func (c *Config) Request() (pipeline.Request, error) {
	kind, err := xsect.ParseVerticalCoord(c.Vertical.Coordinate)
	if err != nil {
		return pipeline.Request{}, err
	}
	levels, err := xsect.Levels(kind, c.Vertical.Bottom, c.Vertical.Top, c.Vertical.Interval)
	if err != nil {
		return pipeline.Request{}, err
	}
	return pipeline.Request{
		Start:            grid.GeoPoint{Lat: c.Line.Start.Lat, Lon: c.Line.Start.Lon},
		End:              grid.GeoPoint{Lat: c.Line.End.Lat, Lon: c.Line.End.Lon},
		Vertical:         kind,
		Levels:           levels,
		Shade:            c.Shade.Variable,
		ShadeScale:       pipeline.Scale{Multiplier: c.Shade.Multiplier, Addition: c.Shade.Addition},
		Contour:          c.Contour.Variable,
		ContourScale:     pipeline.Scale{Multiplier: c.Contour.Multiplier, Addition: c.Contour.Addition},
		VectorHorizontal: c.Vector.Horizontal,
		VectorVertical:   c.Vector.Vertical,
	}, nil
}
