package config

import (
	"flag"
	"fmt"
)

// Flags holds the command-line overrides registered on a FlagSet.
type Flags struct {
	fs *flag.FlagSet

	config          *string
	debug           *bool
	ratio           *float64
	target          *int
	aggressiveness  *float64
	borderWeight    *float64
	refreshQuadrics *bool
	verbose         *bool
	format          *string
	overwrite       *bool
	logFile         *string
}

// RegisterFlags adds the config override flags to fs. Parse fs before
// calling Load.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	return &Flags{
		fs:              fs,
		config:          fs.String("config", "", "Path to config file"),
		debug:           fs.Bool("debug", false, "Enable debug logging"),
		ratio:           fs.Float64("ratio", 0, "Fraction of triangles to keep"),
		target:          fs.Int("target", 0, "Target triangle count, at least 1 (overrides -ratio)"),
		aggressiveness:  fs.Float64("agg", 0, "Threshold growth exponent"),
		borderWeight:    fs.Float64("border", 0, "Weight of border-preserving planes"),
		refreshQuadrics: fs.Bool("refresh", false, "Recompute quadrics on every rebuild"),
		verbose:         fs.Bool("v", false, "Log progress while simplifying"),
		format:          fs.String("format", "", "Output format (obj, stl)"),
		overwrite:       fs.Bool("f", false, "Overwrite existing output"),
		logFile:         fs.String("log", "", "Also write logs to this file"),
	}
}

// ConfigPath returns the explicit config path if provided via -config.
func (f *Flags) ConfigPath() string {
	if f == nil {
		return ""
	}
	return *f.config
}

// apply applies flags that were set on the command line. An explicit
// -target must be positive since zero means "use the ratio".
func (f *Flags) apply(cfg *Config) error {
	if f == nil {
		return nil
	}
	var err error
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "debug":
			if *f.debug {
				cfg.Logging.Level = "debug"
			}
		case "ratio":
			cfg.Simplify.TargetRatio = *f.ratio
			cfg.Simplify.TargetCount = 0
		case "target":
			if *f.target < 1 {
				err = fmt.Errorf("%w: -target %d", ErrInvalidTarget, *f.target)
			}
			cfg.Simplify.TargetCount = *f.target
		case "agg":
			cfg.Simplify.Aggressiveness = *f.aggressiveness
		case "border":
			cfg.Simplify.BorderWeight = *f.borderWeight
		case "refresh":
			cfg.Simplify.RefreshQuadrics = *f.refreshQuadrics
		case "v":
			cfg.Simplify.Verbose = *f.verbose
		case "format":
			cfg.Output.Format = *f.format
		case "f":
			cfg.Output.Overwrite = *f.overwrite
		case "log":
			cfg.Logging.LogFile = *f.logFile
		}
	})
	return err
}
