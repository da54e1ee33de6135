package config

import (
	"github.com/spf13/pflag"

	"github.com/dw2tools/dw2file/dw2l"
)

// Flags holds the command-line overrides for a Config.
type Flags struct {
	Config      string
	LogLevel    string
	LogFile     string
	MetricsFile string
	Overlap     string
	Alignment   int
}

// BindFlags registers the configuration flags on fs and returns the values
// they are parsed into.
func BindFlags(fs *pflag.FlagSet) *Flags {
	f := &Flags{}
	fs.StringVar(&f.Config, "config", "", "Path to config file")
	fs.StringVar(&f.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&f.LogFile, "log-file", "", "Write logs to this file")
	fs.StringVar(&f.MetricsFile, "metrics-file", "", "Write Prometheus metrics to this file on exit")
	fs.StringVar(&f.Overlap, "overlap", "", "Chunk overlap policy (strict, allow)")
	fs.IntVar(&f.Alignment, "align", 0, "Chunk alignment in bytes")
	return f
}

// apply applies flag overrides to the config.
func (f *Flags) apply(cfg *Config) {
	if f == nil {
		return
	}
	if f.LogLevel != "" {
		cfg.Logging.Level = f.LogLevel
	}
	if f.LogFile != "" {
		cfg.Logging.LogFile = f.LogFile
	}
	if f.MetricsFile != "" {
		cfg.Metrics.File = f.MetricsFile
	}
	if f.Overlap != "" {
		cfg.Policy.Overlap = dw2l.OverlapPolicy(f.Overlap)
	}
	if f.Alignment > 0 {
		cfg.Policy.Alignment = f.Alignment
	}
}
