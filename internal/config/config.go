package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultTestFraction is the held-out share used by the reference runs.
const DefaultTestFraction = 0.255

// Config captures the runtime knobs for a training run.
type Config struct {
	Data  DataConfig  `yaml:"data"`
	Core  CoreConfig  `yaml:"core"`
	Train TrainConfig `yaml:"train"`

	// Modes is the allow-list of CLI run modes.
	Modes      []string `yaml:"modes"`
	LogLevel   string   `yaml:"log_level"`
	HistoryDB  string   `yaml:"history_db"`
	ParamsPath string   `yaml:"params_out"`
}

// DataConfig describes where images live and how they are split.
type DataConfig struct {
	Dim          int      `yaml:"dim"`
	DirTrain     string   `yaml:"dir_train"`
	Seed         int64    `yaml:"seed"`
	Allowed      []string `yaml:"allowed"`
	TestFraction float64  `yaml:"test_fraction"`
}

// CoreConfig holds the encoding knobs.
type CoreConfig struct {
	BinThreshold float64 `yaml:"bin_threshold"`
}

// TrainConfig holds the training loop options.
type TrainConfig struct {
	BatchSize    int     `yaml:"batch_size"`
	Epochs       int     `yaml:"epochs"`
	Verbose      int     `yaml:"verbose"`
	NumExamples  int     `yaml:"num_examples"`
	LearningRate float64 `yaml:"learning_rate"`
	Workers      int     `yaml:"workers"`
}

// Overrides captures CLI supplied values. Zero values leave the config
// untouched, except Seed which applies whenever it is non-nil so that seed 0
// can be selected.
type Overrides struct {
	DirTrain    string
	Epochs      int
	BatchSize   int
	Seed        *int64
	NumExamples int
	Workers     int
}

// Default returns the configuration used when a key is absent from the file.
func Default() *Config {
	return &Config{
		Data: DataConfig{
			Dim:          4,
			Seed:         2,
			Allowed:      []string{".png", ".jpg", ".jpeg"},
			TestFraction: DefaultTestFraction,
		},
		Core: CoreConfig{BinThreshold: 0.5},
		Train: TrainConfig{
			BatchSize:    32,
			Epochs:       3,
			Verbose:      1,
			LearningRate: 0.001,
		},
		Modes:    []string{"train", "evaluate"},
		LogLevel: "info",
	}
}

// Load reads a Config from YAML, then layers .env and QNN_* environment
// variables on top, and validates the result.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// A missing .env file is not an error.
	_ = godotenv.Load()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.Data.Allowed = NormalizeExtensions(cfg.Data.Allowed)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("QNN_DIR_TRAIN"); v != "" {
		c.Data.DirTrain = v
	}
	if v := os.Getenv("QNN_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("QNN_HISTORY_DB"); v != "" {
		c.HistoryDB = v
	}
	if v := os.Getenv("QNN_PARAMS_OUT"); v != "" {
		c.ParamsPath = v
	}
	if v := os.Getenv("QNN_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("QNN_SEED: %w", err)
		}
		c.Data.Seed = seed
	}
	if v := os.Getenv("QNN_WORKERS"); v != "" {
		workers, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("QNN_WORKERS: %w", err)
		}
		c.Train.Workers = workers
	}
	return nil
}

// ApplyOverrides updates cfg using any non-zero override.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.DirTrain != "" {
		c.Data.DirTrain = o.DirTrain
	}
	if o.Epochs > 0 {
		c.Train.Epochs = o.Epochs
	}
	if o.BatchSize > 0 {
		c.Train.BatchSize = o.BatchSize
	}
	if o.Seed != nil {
		c.Data.Seed = *o.Seed
	}
	if o.NumExamples > 0 {
		c.Train.NumExamples = o.NumExamples
	}
	if o.Workers > 0 {
		c.Train.Workers = o.Workers
	}
}

// Validate verifies the config is runnable. It does not modify c.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Data.DirTrain == "" {
		return errors.New("data.dir_train must be set")
	}
	if c.Data.Dim <= 0 {
		return fmt.Errorf("data.dim must be > 0 (got %d)", c.Data.Dim)
	}
	// 2^(dim*dim+1) amplitudes are simulated per example.
	if c.Data.Dim > 4 {
		return fmt.Errorf("data.dim must be <= 4 (got %d)", c.Data.Dim)
	}
	if len(c.Data.Allowed) == 0 {
		return errors.New("data.allowed must list at least one extension")
	}
	if c.Data.TestFraction <= 0 || c.Data.TestFraction >= 1 {
		return fmt.Errorf("data.test_fraction must be in (0, 1) (got %g)", c.Data.TestFraction)
	}
	if c.Core.BinThreshold < 0 || c.Core.BinThreshold > 1 {
		return fmt.Errorf("core.bin_threshold must be in [0, 1] (got %g)", c.Core.BinThreshold)
	}
	if c.Train.BatchSize <= 0 {
		return fmt.Errorf("train.batch_size must be > 0 (got %d)", c.Train.BatchSize)
	}
	if c.Train.Epochs <= 0 {
		return fmt.Errorf("train.epochs must be > 0 (got %d)", c.Train.Epochs)
	}
	if c.Train.Verbose < 0 || c.Train.Verbose > 2 {
		return fmt.Errorf("train.verbose must be 0, 1 or 2 (got %d)", c.Train.Verbose)
	}
	if c.Train.NumExamples < 0 {
		return fmt.Errorf("train.num_examples must be >= 0 (got %d)", c.Train.NumExamples)
	}
	if c.Train.LearningRate <= 0 {
		return fmt.Errorf("train.learning_rate must be > 0 (got %g)", c.Train.LearningRate)
	}
	if c.Train.Workers < 0 {
		return fmt.Errorf("train.workers must be >= 0 (got %d)", c.Train.Workers)
	}
	if len(c.Modes) == 0 {
		return errors.New("modes must list at least one run mode")
	}
	for _, ext := range c.Data.Allowed {
		if ext == "." || !strings.HasPrefix(ext, ".") || ext != strings.ToLower(ext) {
			return fmt.Errorf("data.allowed entry %q must be a lowercase extension with a leading dot", ext)
		}
	}
	return nil
}

// NormalizeExtensions returns exts lowercased with a leading dot, in a new
// slice.
func NormalizeExtensions(exts []string) []string {
	out := make([]string, len(exts))
	for i, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out[i] = ext
	}
	return out
}

// ModeAllowed reports whether mode is in the configured allow-list.
func (c *Config) ModeAllowed(mode string) bool {
	for _, m := range c.Modes {
		if strings.EqualFold(m, mode) {
			return true
		}
	}
	return false
}
