package reporter

import (
	"fmt"
	"os"
	"strconv"

	"github.com/ethereum/go-ethereum/log"
	"gopkg.in/yaml.v3"

	"github.com/ethereum-optimism/infra/op-reporter/backend"
)

// Option/env names understood by the configuration resolver.
const (
	EnvMode        = "OP_REPORTER_MODE"
	EnvFallback    = "OP_REPORTER_FALLBACK"
	EnvCaptureLogs = "OP_REPORTER_CAPTURE_LOGS"
	EnvRootDir     = "OP_REPORTER_ROOT_DIR"
	EnvAPIURL      = "OP_REPORTER_API_URL"
	EnvAPIToken    = "OP_REPORTER_API_TOKEN"
	EnvProject     = "OP_REPORTER_PROJECT"
	EnvRunID       = "OP_REPORTER_RUN_ID"
	EnvRunTitle    = "OP_REPORTER_RUN_TITLE"
	EnvOutputDir   = "OP_REPORTER_OUTPUT_DIR"
	EnvConfigFile  = "OP_REPORTER_CONFIG"

	// DefaultConfigFile is looked up in the working directory when no
	// explicit config file is given.
	DefaultConfigFile = ".op-reporter.yaml"

	defaultOutputDir = "reports"
)

// Options are the caller-supplied inputs to configuration resolution.
// Environment values override these; run-state overrides (applied by the
// façade on top of the resolved config) override everything.
type Options struct {
	Mode        string
	Fallback    string
	CaptureLogs bool
	RootDir     string // Directory holding the shared run-state record
	ConfigFile  string
	Backends    backend.Config
	Log         log.Logger
}

// Config is the resolved, immutable configuration the façade owns for
// its lifetime.
type Config struct {
	Mode        backend.Mode
	Fallback    backend.Mode
	CaptureLogs bool
	RootDir     string
	Backends    backend.Config
	Log         log.Logger
}

// fileConfig mirrors the YAML config file layout.
type fileConfig struct {
	Mode        string `yaml:"mode,omitempty"`
	Fallback    string `yaml:"fallback,omitempty"`
	CaptureLogs *bool  `yaml:"capture_logs,omitempty"`
	RootDir     string `yaml:"root_dir,omitempty"`
	Remote      struct {
		BaseURL  string `yaml:"base_url,omitempty"`
		Token    string `yaml:"token,omitempty"`
		Project  string `yaml:"project,omitempty"`
		RunTitle string `yaml:"run_title,omitempty"`
	} `yaml:"remote,omitempty"`
	Local struct {
		OutputDir string `yaml:"output_dir,omitempty"`
	} `yaml:"local,omitempty"`
}

// NewConfig resolves options, config file, and environment into one
// Config. Precedence, lowest to highest: built-in defaults, config file,
// caller options, environment. Run-state overrides outrank all of these;
// the façade applies them to the resolved config after resolution.
func NewConfig(opts Options, logger log.Logger) (*Config, error) {
	cfg := &Config{
		Backends: opts.Backends,
		RootDir:  opts.RootDir,
		Log:      logger,
	}

	// Config file, if present.
	path := opts.ConfigFile
	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	explicit := path != ""
	if path == "" {
		path = DefaultConfigFile
	}
	if data, err := os.ReadFile(path); err == nil {
		var fc fileConfig
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		applyFileConfig(cfg, &fc, opts)
		logger.Debug("Loaded reporter config file", "path", path)
	} else if explicit {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	// Caller options override the file.
	mode := firstNonEmpty(opts.Mode, string(cfg.Mode))
	fallback := firstNonEmpty(opts.Fallback, string(cfg.Fallback))
	if opts.CaptureLogs {
		cfg.CaptureLogs = true
	}

	// Environment overrides everything caller-supplied.
	mode = firstNonEmpty(os.Getenv(EnvMode), mode)
	fallback = firstNonEmpty(os.Getenv(EnvFallback), fallback)
	if v := os.Getenv(EnvCaptureLogs); v != "" {
		capture, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s value %q: %w", EnvCaptureLogs, v, err)
		}
		cfg.CaptureLogs = capture
	}
	cfg.RootDir = firstNonEmpty(os.Getenv(EnvRootDir), cfg.RootDir)
	cfg.Backends.Remote.BaseURL = firstNonEmpty(os.Getenv(EnvAPIURL), cfg.Backends.Remote.BaseURL)
	cfg.Backends.Remote.Token = firstNonEmpty(os.Getenv(EnvAPIToken), cfg.Backends.Remote.Token)
	cfg.Backends.Remote.Project = firstNonEmpty(os.Getenv(EnvProject), cfg.Backends.Remote.Project)
	cfg.Backends.Remote.RunID = firstNonEmpty(os.Getenv(EnvRunID), cfg.Backends.Remote.RunID)
	cfg.Backends.Remote.RunTitle = firstNonEmpty(os.Getenv(EnvRunTitle), cfg.Backends.Remote.RunTitle)
	cfg.Backends.Local.OutputDir = firstNonEmpty(os.Getenv(EnvOutputDir), cfg.Backends.Local.OutputDir)

	parsedMode, err := backend.ParseMode(mode)
	if err != nil {
		return nil, err
	}
	parsedFallback, err := backend.ParseMode(fallback)
	if err != nil {
		return nil, fmt.Errorf("invalid fallback: %w", err)
	}
	cfg.Mode = parsedMode
	cfg.Fallback = parsedFallback

	// Defaults.
	if cfg.Mode == "" {
		cfg.Mode = backend.ModeLocal
	}
	if cfg.Backends.Local.OutputDir == "" {
		cfg.Backends.Local.OutputDir = defaultOutputDir
	}
	if cfg.Mode == cfg.Fallback {
		// A fallback equal to the primary cannot help; treat as unset.
		cfg.Fallback = ""
	}
	return cfg, nil
}

func applyFileConfig(cfg *Config, fc *fileConfig, opts Options) {
	cfg.Mode = backend.Mode(fc.Mode)
	cfg.Fallback = backend.Mode(fc.Fallback)
	if fc.CaptureLogs != nil {
		cfg.CaptureLogs = *fc.CaptureLogs
	}
	cfg.RootDir = firstNonEmpty(opts.RootDir, fc.RootDir)
	cfg.Backends.Remote.BaseURL = firstNonEmpty(opts.Backends.Remote.BaseURL, fc.Remote.BaseURL)
	cfg.Backends.Remote.Token = firstNonEmpty(opts.Backends.Remote.Token, fc.Remote.Token)
	cfg.Backends.Remote.Project = firstNonEmpty(opts.Backends.Remote.Project, fc.Remote.Project)
	cfg.Backends.Remote.RunTitle = firstNonEmpty(opts.Backends.Remote.RunTitle, fc.Remote.RunTitle)
	cfg.Backends.Local.OutputDir = firstNonEmpty(opts.Backends.Local.OutputDir, fc.Local.OutputDir)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
