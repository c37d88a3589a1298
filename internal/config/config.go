// Public domain.

// Package config loads run settings from a YAML file, ICQSPLIT_ environment
// variables and command line flags, and validates them.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/curtisa1/icqsplitter/internal/correct"
	"github.com/curtisa1/icqsplitter/internal/ephemeris"
	"github.com/curtisa1/icqsplitter/internal/regress"
)

// EnvPrefix prefixes environment variable names.  Nested keys join with
// an underscore: ICQSPLIT_EPHEMERIS_INCREMENT.
const EnvPrefix = "ICQSPLIT"

// Sentinel validation errors.
var (
	ErrNoInput              = errors.New("no input file")
	ErrStatsNeedsCorrection = errors.New("stats needs heliocentric or phase corrections")
	ErrPlotNeedsCorrection  = errors.New("plot needs heliocentric or phase corrections")
	ErrNoPerihelion         = errors.New("stats needs a perihelion date")
	ErrNoTarget             = errors.New("horizons ephemeris needs a target")
	ErrNoEphemerisFile      = errors.New("file ephemeris needs a path")
	ErrNoPhaseTable         = errors.New("phase correction needs a phase function table")
)

// Config is the full run configuration.
type Config struct {
	Input string `mapstructure:"input"`
	// Name labels the plot and archive, for example "Hale-Bopp".
	Name string `mapstructure:"name"`
	// Perihelion is the date, optionally with time, separating the pre and
	// post perihelion partitions.
	Perihelion string `mapstructure:"perihelion" validate:"omitempty,timestamp"`
	// Target is the Horizons COMMAND, for example "902014;".
	Target string `mapstructure:"target"`

	Heliocentric bool `mapstructure:"heliocentric"`
	Phase        bool `mapstructure:"phase"`
	Stats        bool `mapstructure:"stats"`
	Plot         bool `mapstructure:"plot"`
	CCD          bool `mapstructure:"ccd"`

	Ephemeris  EphemerisConfig  `mapstructure:"ephemeris"`
	PhaseTable string           `mapstructure:"phase_table"`
	Catalogs   CatalogConfig    `mapstructure:"catalogs"`
	Regression RegressionConfig `mapstructure:"regression"`
	Outputs    OutputConfig     `mapstructure:"outputs"`
	Log        LogConfig        `mapstructure:"log"`
}

// EphemerisConfig selects and tunes the ephemeris source.
type EphemerisConfig struct {
	Source    string        `mapstructure:"source" validate:"oneof=horizons file"`
	File      string        `mapstructure:"file"`
	URL       string        `mapstructure:"url" validate:"omitempty,url"`
	Increment int           `mapstructure:"increment" validate:"min=1,max=60,divides60"` // minutes
	MaxSteps  int           `mapstructure:"max_steps" validate:"min=2"`
	Timeout   time.Duration `mapstructure:"timeout" validate:"gt=0"`
	Rate      float64       `mapstructure:"rate" validate:"gt=0"` // requests per second
	Attempts  int           `mapstructure:"attempts" validate:"min=1"`
}

// CatalogConfig lists reference catalogs to reject.
type CatalogConfig struct {
	Rejected []string `mapstructure:"rejected"`
}

// RegressionConfig tunes the solve.
type RegressionConfig struct {
	MaxOuter int     `mapstructure:"max_outer" validate:"min=1"`
	Alpha    float64 `mapstructure:"alpha" validate:"gt=0,lt=1"`
	Parallel bool    `mapstructure:"parallel"`
}

// OutputConfig names output files, relative to Dir.  Empty names disable
// the optional outputs.
type OutputConfig struct {
	Dir      string `mapstructure:"dir"`
	Kept     string `mapstructure:"kept" validate:"required"`
	Removed  string `mapstructure:"removed" validate:"required"`
	Pre      string `mapstructure:"pre"`
	Post     string `mapstructure:"post"`
	Workbook string `mapstructure:"workbook"`
	Report   string `mapstructure:"report"`
	Plot     string `mapstructure:"plot"`
	Archive  string `mapstructure:"archive"`
	Metrics  string `mapstructure:"metrics"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=console json"`
	Output string `mapstructure:"output"`
}

// SetDefaults installs the default values in v.
func SetDefaults(v *viper.Viper) {
	for _, k := range []string{"input", "name", "perihelion", "target"} {
		v.SetDefault(k, "")
	}
	for _, k := range []string{"heliocentric", "phase", "stats", "plot", "ccd"} {
		v.SetDefault(k, false)
	}

	v.SetDefault("ephemeris.source", "horizons")
	v.SetDefault("ephemeris.file", "")
	v.SetDefault("ephemeris.url", ephemeris.HorizonsURL)
	v.SetDefault("ephemeris.increment", 30)
	v.SetDefault("ephemeris.max_steps", 90000)
	v.SetDefault("ephemeris.timeout", 2*time.Minute)
	v.SetDefault("ephemeris.rate", 1.)
	v.SetDefault("ephemeris.attempts", 3)

	v.SetDefault("phase_table", "Schleicher_Composite_Phase_Function.txt")
	v.SetDefault("catalogs.rejected", []string{})

	v.SetDefault("regression.max_outer", regress.DefaultOptions().MaxOuter)
	v.SetDefault("regression.alpha", regress.Alpha)
	v.SetDefault("regression.parallel", true)

	v.SetDefault("outputs.dir", ".")
	v.SetDefault("outputs.kept", "keepers.csv")
	v.SetDefault("outputs.removed", "removed.csv")
	v.SetDefault("outputs.pre", "pre-stats.csv")
	v.SetDefault("outputs.post", "post-stats.csv")
	v.SetDefault("outputs.plot", "lightcurve.png")
	for _, k := range []string{"workbook", "report", "archive", "metrics"} {
		v.SetDefault("outputs."+k, "")
	}

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stderr")
}

// New returns a viper instance with defaults and the environment bound.
func New() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// Load reads the config file, if any, and returns the validated
// configuration.  With file empty, icqsplitter.yaml is looked for in the
// working directory and its absence is not an error.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("icqsplitter")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &nf) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("divides60", func(fl validator.FieldLevel) bool {
		n := fl.Field().Int()
		return n > 0 && 60%n == 0
	})
	v.RegisterValidation("timestamp", func(fl validator.FieldLevel) bool {
		_, err := ParseTime(fl.Field().String())
		return err == nil
	})
	return v
}

var timeLayouts = []string{
	"2006/01/02",
	"2006-01-02",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// ParseTime parses a date as accepted for perihelion: YYYY/MM/DD,
// YYYY-MM-DD, optionally with a time, or RFC 3339.
func ParseTime(s string) (time.Time, error) {
	for _, l := range timeLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// Validate checks field constraints and the relations between settings.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	corrected := c.Heliocentric || c.Phase
	switch {
	case c.Stats && !corrected:
		return ErrStatsNeedsCorrection
	case c.Plot && !corrected:
		return ErrPlotNeedsCorrection
	case c.Stats && c.Perihelion == "":
		return ErrNoPerihelion
	case c.Phase && c.PhaseTable == "":
		return ErrNoPhaseTable
	case corrected && c.Ephemeris.Source == "horizons" && c.Target == "":
		return ErrNoTarget
	case corrected && c.Ephemeris.Source == "file" && c.Ephemeris.File == "":
		return ErrNoEphemerisFile
	}
	return nil
}

// Mode returns the selected corrections.
func (c *Config) Mode() correct.Mode {
	return correct.Mode{Helio: c.Heliocentric, Phase: c.Phase}
}

// PerihelionTime returns the parsed perihelion, zero if not set.
func (c *Config) PerihelionTime() time.Time {
	t, _ := ParseTime(c.Perihelion)
	return t
}

// IncrementDuration returns the ephemeris grid increment.
func (e *EphemerisConfig) IncrementDuration() time.Duration {
	return time.Duration(e.Increment) * time.Minute
}

// RegressOptions returns the solve options.
func (c *Config) RegressOptions() regress.Options {
	return regress.Options{
		MaxOuter: c.Regression.MaxOuter,
		Alpha:    c.Regression.Alpha,
		Parallel: c.Regression.Parallel,
	}
}

// Path returns the path of an output file name, empty if name is empty.
func (o *OutputConfig) Path(name string) string {
	if name == "" {
		return ""
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(o.Dir, name)
}
