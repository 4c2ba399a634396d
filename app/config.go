// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package app

import (
	"strings"

	"github.com/redstrate/XIVPacketTools/capture"
	"github.com/redstrate/XIVPacketTools/expand"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// envPrefix prefixes environment variables that override configuration,
	// e.g. XIVCAP_OUTPUT.
	envPrefix = "xivcap"

	// defaultConfigName is the name of the configuration file that is loaded
	// from the working directory when none is specified.
	defaultConfigName = "xivcap"
)

// Config is the tool's configuration.
type Config struct {
	// OpCodes is the path of the opcode table.
	OpCodes string `mapstructure:"opcodes"`
	// Output is the directory that captures are expanded into.
	Output string `mapstructure:"output"`
	// Atomic, if true, stages each capture's output and moves it into place
	// once it has been fully expanded.
	Atomic bool `mapstructure:"atomic"`
	// TempDir is where atomic output is staged. Empty stages in Output.
	TempDir string `mapstructure:"temp_dir"`
	// IndexScope is "capture" or "protocol".
	IndexScope string `mapstructure:"index_scope"`
	// Compression is the compression of capture Data entries.
	Compression string `mapstructure:"compression"`

	LogLevel string `mapstructure:"log_level"`
	// LogFile, if not empty, receives log output instead of stderr.
	LogFile       string `mapstructure:"log_file"`
	LogMaxSize    int    `mapstructure:"log_max_size"`
	LogMaxBackups int    `mapstructure:"log_max_backups"`
	LogCompress   bool   `mapstructure:"log_compress"`

	// MetricsFile, if not empty, receives expansion metrics in the prometheus
	// text format.
	MetricsFile string `mapstructure:"metrics_file"`
}

// compression returns the parsed Compression value.
func (c *Config) compression() (capture.Compression, error) {
	return capture.ParseCompression(c.Compression)
}

// indexScope returns the parsed IndexScope value.
func (c *Config) indexScope() (expand.IndexScope, error) {
	return expand.ParseIndexScope(c.IndexScope)
}

func (c *Config) validate() error {
	if _, err := c.compression(); err != nil {
		return errors.Wrap(err, "compression")
	}
	if _, err := c.indexScope(); err != nil {
		return errors.Wrap(err, "index_scope")
	}
	if c.Output == "" {
		return errors.New("output must not be empty")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("opcodes", "opcodes.json")
	v.SetDefault("output", ".")
	v.SetDefault("atomic", false)
	v.SetDefault("temp_dir", "")
	v.SetDefault("index_scope", expand.ScopeCapture.String())
	v.SetDefault("compression", capture.CompressionAuto.String())
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("log_max_size", 100)
	v.SetDefault("log_max_backups", 3)
	v.SetDefault("log_compress", false)
	v.SetDefault("metrics_file", "")
}

// loadConfig builds a Config from, in increasing order of precedence,
// defaults, the configuration file, environment variables, and flags that
// were explicitly set.
//
// If path is empty, a configuration file named "xivcap" is loaded from the
// working directory if one exists.
func loadConfig(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			if bindErr != nil || f.Name == "config" {
				return
			}
			key := strings.Replace(f.Name, "-", "_", -1)
			bindErr = v.BindPFlag(key, f)
		})
		if bindErr != nil {
			return nil, errors.Wrap(bindErr, "binding flags")
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "reading config file %q", path)
		}
	} else {
		v.SetConfigName(defaultConfigName)
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, errors.Wrap(err, "reading config file")
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decoding config")
	}
	if err := cfg.validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return &cfg, nil
}
