// Package config loads the pointvol command configuration from defaults,
// an optional config file, POINTVOL_ environment variables and flags,
// in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/soypat/pointvol/interp"
	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds the configuration of a pointvol run.
type Config struct {
	Cloud     CloudConfig
	Interp    InterpConfig
	Colormap  string
	Threshold ThresholdConfig
	View      ViewConfig
	Output    OutputConfig
	S3        S3Config
	LogLevel  string
}

// CloudConfig describes the random point cloud sampled.
type CloudConfig struct {
	Points int
	Seed   int64
}

// InterpConfig holds interpolation settings.
type InterpConfig struct {
	Kernel  string
	Radius  float64
	N       int // N closest footprint when positive, else radius footprint
	Dims    [3]int
	Workers int
}

// ThresholdConfig replaces volume values in [Above, Below) with Replace.
type ThresholdConfig struct {
	Enabled bool
	Above   float64
	Below   float64
	Replace float64
}

// ViewConfig holds scene render settings.
type ViewConfig struct {
	Width, Height int
	Elevation     float64
	Azimuth       float64
	Axes          bool
	Supersample   int
}

// OutputConfig holds where run artifacts are written.
type OutputConfig struct {
	Dir      string
	Compress bool
}

// S3Config holds optional artifact upload settings. Upload is enabled
// when Bucket is set. Endpoint selects an S3 compatible server such as MinIO.
type S3Config struct {
	Bucket   string
	Prefix   string
	Region   string
	Endpoint string
}

const envPrefix = "POINTVOL"

func setDefaults(v *viper.Viper) {
	v.SetDefault("cloud.points", 500)
	v.SetDefault("cloud.seed", 1)
	v.SetDefault("interp.kernel", "shepard")
	v.SetDefault("interp.radius", 0.2)
	v.SetDefault("interp.n", 0)
	v.SetDefault("interp.dims", []int{90, 90, 90})
	v.SetDefault("interp.workers", 0)
	v.SetDefault("colormap", "tomato,g,b")
	v.SetDefault("threshold.enabled", true)
	v.SetDefault("threshold.above", 0.3)
	v.SetDefault("threshold.below", 0.4)
	v.SetDefault("threshold.replace", 0.6)
	v.SetDefault("view.width", 800)
	v.SetDefault("view.height", 600)
	v.SetDefault("view.elevation", -30.0)
	v.SetDefault("view.azimuth", 0.0)
	v.SetDefault("view.axes", true)
	v.SetDefault("view.supersample", 2)
	v.SetDefault("output.dir", "out")
	v.SetDefault("output.compress", true)
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.prefix", "runs")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("log.level", "info")
}

// flagKeys maps command line flags to configuration keys.
var flagKeys = map[string]string{
	"npts":      "cloud.points",
	"seed":      "cloud.seed",
	"kernel":    "interp.kernel",
	"radius":    "interp.radius",
	"nclosest":  "interp.n",
	"dims":      "interp.dims",
	"workers":   "interp.workers",
	"cmap":      "colormap",
	"threshold": "threshold.enabled",
	"above":     "threshold.above",
	"below":     "threshold.below",
	"replace":   "threshold.replace",
	"width":     "view.width",
	"height":    "view.height",
	"elevation": "view.elevation",
	"azimuth":   "view.azimuth",
	"axes":      "view.axes",
	"out":       "output.dir",
	"compress":  "output.compress",
	"bucket":    "s3.bucket",
	"endpoint":  "s3.endpoint",
	"log-level": "log.level",
}

// NewFlagSet returns the command line flags understood by Load.
func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", "", "config file (default ./pointvol.yaml if present)")
	fs.Int("npts", 500, "number of random points")
	fs.Int64("seed", 1, "random seed")
	fs.String("kernel", "shepard", "interpolation kernel: shepard, gaussian, voronoi or linear")
	fs.Float64("radius", 0.2, "kernel footprint radius")
	fs.Int("nclosest", 0, "use the N closest points instead of a radius")
	fs.IntSlice("dims", []int{90, 90, 90}, "volume samples along x,y,z")
	fs.Int("workers", 0, "interpolation workers (0 means GOMAXPROCS)")
	fs.String("cmap", "tomato,g,b", "colormap name or comma separated colors")
	fs.Bool("threshold", true, "replace values in [above, below)")
	fs.Float64("above", 0.3, "threshold lower bound, inclusive")
	fs.Float64("below", 0.4, "threshold upper bound, exclusive")
	fs.Float64("replace", 0.6, "threshold replacement value")
	fs.Int("width", 800, "image width")
	fs.Int("height", 600, "image height")
	fs.Float64("elevation", -30, "camera elevation in degrees")
	fs.Float64("azimuth", 0, "camera azimuth in degrees")
	fs.Bool("axes", true, "draw axes")
	fs.String("out", "out", "output directory")
	fs.Bool("compress", true, "zstd compress the saved volume")
	fs.String("bucket", "", "S3 bucket to publish artifacts to")
	fs.String("endpoint", "", "S3 compatible endpoint, e.g. localhost:9000 for MinIO")
	fs.String("log-level", "info", "log level")
	return fs
}

// Load parses args with the flags of NewFlagSet and returns the merged
// configuration.
func Load(args []string) (*Config, error) {
	fs := NewFlagSet("pointvol")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return FromFlags(fs)
}

// FromFlags merges defaults, config file, environment and the parsed
// flags in fs.
func FromFlags(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	if path, _ := fs.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("pointvol")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return nil, err
		}
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	dims, err := intTriple(v.Get("interp.dims"))
	if err != nil {
		return nil, fmt.Errorf("interp.dims: %w", err)
	}
	cfg := &Config{
		Cloud: CloudConfig{
			Points: v.GetInt("cloud.points"),
			Seed:   v.GetInt64("cloud.seed"),
		},
		Interp: InterpConfig{
			Kernel:  v.GetString("interp.kernel"),
			Radius:  v.GetFloat64("interp.radius"),
			N:       v.GetInt("interp.n"),
			Dims:    [3]int{dims[0], dims[1], dims[2]},
			Workers: v.GetInt("interp.workers"),
		},
		Colormap: v.GetString("colormap"),
		Threshold: ThresholdConfig{
			Enabled: v.GetBool("threshold.enabled"),
			Above:   v.GetFloat64("threshold.above"),
			Below:   v.GetFloat64("threshold.below"),
			Replace: v.GetFloat64("threshold.replace"),
		},
		View: ViewConfig{
			Width:       v.GetInt("view.width"),
			Height:      v.GetInt("view.height"),
			Elevation:   v.GetFloat64("view.elevation"),
			Azimuth:     v.GetFloat64("view.azimuth"),
			Axes:        v.GetBool("view.axes"),
			Supersample: v.GetInt("view.supersample"),
		},
		Output: OutputConfig{
			Dir:      v.GetString("output.dir"),
			Compress: v.GetBool("output.compress"),
		},
		S3: S3Config{
			Bucket:   v.GetString("s3.bucket"),
			Prefix:   v.GetString("s3.prefix"),
			Region:   v.GetString("s3.region"),
			Endpoint: v.GetString("s3.endpoint"),
		},
		LogLevel: v.GetString("log.level"),
	}
	return cfg, cfg.Validate()
}

// intTriple reads three integers from a flag, file or environment value.
// Environment values are comma or space separated strings.
func intTriple(raw any) ([3]int, error) {
	var vals []int
	var err error
	switch t := raw.(type) {
	case string:
		vals, err = cast.ToIntSliceE(strings.FieldsFunc(t, func(r rune) bool {
			return r == ',' || r == ' ' || r == 'x'
		}))
	default:
		vals, err = cast.ToIntSliceE(t)
	}
	if err != nil {
		return [3]int{}, err
	}
	if len(vals) != 3 {
		return [3]int{}, fmt.Errorf("need 3 values, got %v", raw)
	}
	return [3]int{vals[0], vals[1], vals[2]}, nil
}

// Default returns the configuration with every value at its default.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg, err := fromViper(v)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Validate reports the first invalid setting found.
func (c *Config) Validate() error {
	switch {
	case c.Cloud.Points <= 0:
		return fmt.Errorf("cloud.points must be positive, got %d", c.Cloud.Points)
	case c.Interp.Dims[0] < 1 || c.Interp.Dims[1] < 1 || c.Interp.Dims[2] < 1:
		return fmt.Errorf("interp.dims must be positive, got %v", c.Interp.Dims)
	case c.Interp.N < 0:
		return fmt.Errorf("interp.n must not be negative, got %d", c.Interp.N)
	case c.Interp.N == 0 && c.Interp.Radius <= 0:
		return fmt.Errorf("interp.radius must be positive, got %g", c.Interp.Radius)
	case c.View.Width <= 0 || c.View.Height <= 0:
		return fmt.Errorf("view size must be positive, got %dx%d", c.View.Width, c.View.Height)
	case c.Threshold.Enabled && c.Threshold.Above > c.Threshold.Below:
		return fmt.Errorf("threshold above %g exceeds below %g", c.Threshold.Above, c.Threshold.Below)
	case c.Output.Dir == "":
		return errors.New("output.dir must be set")
	}
	if _, err := interp.ParseKernel(c.Interp.Kernel); err != nil {
		return err
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level returns the zerolog level named by LogLevel.
func (c *Config) Level() (zerolog.Level, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("log.level: %w", err)
	}
	return lvl, nil
}
