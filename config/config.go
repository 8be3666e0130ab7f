// Package config - YAML runtime configuration for the detector library and CLI.
package config

import (
	"bytes"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/nvr-ai/go-yolo-ffi/inference/detectors"
	"github.com/nvr-ai/go-yolo-ffi/inference/providers"
	"github.com/nvr-ai/go-yolo-ffi/logging"
)

// Config is the full runtime configuration.
//
// Example:
//
//	runtime:
//	  shared_library_path: /usr/lib/libonnxruntime.so
//	  intra_op_threads: 4
//	  graph_optimization: all
//	logging:
//	  level: debug
type Config struct {
	Runtime Runtime        `yaml:"runtime"`
	Logging logging.Config `yaml:"logging"`
}

// Runtime configures ONNX Runtime and the model input.
type Runtime struct {
	SharedLibraryPath string                      `yaml:"shared_library_path"`
	IntraOpThreads    int                         `yaml:"intra_op_threads"`
	InterOpThreads    int                         `yaml:"inter_op_threads"`
	GraphOptimization providers.GraphOptimization `yaml:"graph_optimization"`
	InputSize         int                         `yaml:"input_size"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	d := detectors.DefaultConfig()
	return Config{
		Runtime: Runtime{
			IntraOpThreads:    d.Session.IntraOpThreads,
			InterOpThreads:    d.Session.InterOpThreads,
			GraphOptimization: d.Session.GraphOptimization,
			InputSize:         d.InputSize,
		},
		Logging: logging.DefaultConfig(),
	}
}

// Parse decodes YAML over the defaults and validates the result.
// Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if len(data) == 0 {
		return cfg, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "failed to parse config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads and parses the file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "failed to read config %s", path)
	}
	return Parse(data)
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.DetectorConfig().Validate(); err != nil {
		return errors.Wrap(err, "runtime")
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return errors.Wrap(err, "logging")
	}
	return nil
}

// DetectorConfig maps the runtime section onto the engine configuration.
func (c Config) DetectorConfig() detectors.Config {
	d := detectors.DefaultConfig()
	d.SharedLibraryPath = c.Runtime.SharedLibraryPath
	d.Session = providers.SessionConfig{
		IntraOpThreads:    c.Runtime.IntraOpThreads,
		InterOpThreads:    c.Runtime.InterOpThreads,
		GraphOptimization: c.Runtime.GraphOptimization,
	}
	d.InputSize = c.Runtime.InputSize
	return d
}

// Marshal renders the configuration as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
