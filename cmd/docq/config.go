package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/vinicius-lino-figueiredo/docq"
)

// config is the optional YAML file given with --config.
type config struct {
	LogLevel string        `yaml:"log_level"`
	Indexes  []indexConfig `yaml:"indexes"`
}

type indexConfig struct {
	Fields []fieldConfig `yaml:"fields"`
	Unique bool          `yaml:"unique"`
	Sparse bool          `yaml:"sparse"`
}

type fieldConfig struct {
	Field     string `yaml:"field"`
	Direction int    `yaml:"direction"`
}

func defaultConfig() config {
	return config{LogLevel: "info"}
}

// loadConfig reads path over the defaults. An empty path returns the
// defaults. Unknown keys are rejected.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return config{}, fmt.Errorf("reading config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}

	for n, idx := range cfg.Indexes {
		if len(idx.Fields) == 0 {
			return config{}, fmt.Errorf("index %d: no fields", n)
		}
		for m, f := range idx.Fields {
			switch f.Direction {
			case 0:
				cfg.Indexes[n].Fields[m].Direction = 1
			case 1, -1:
			default:
				return config{}, fmt.Errorf("index %d: field %q: direction must be 1 or -1", n, f.Field)
			}
		}
	}
	return cfg, nil
}

func (c indexConfig) spec() docq.IndexSpec {
	spec := docq.IndexSpec{Unique: c.Unique, Sparse: c.Sparse}
	for _, f := range c.Fields {
		spec.Fields = append(spec.Fields, docq.IndexField{Field: f.Field, Direction: f.Direction})
	}
	return spec
}

// newLogger builds a development logger for debug and a production one for
// every other level, both writing to stderr.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	if lvl == zapcore.DebugLevel {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}
