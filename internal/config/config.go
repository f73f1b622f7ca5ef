package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	apperrors "c19pulse/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Sources   SourcesConfig   `yaml:"sources" envconfig:"SOURCES"`
	HTTP      HTTPConfig      `yaml:"http" envconfig:"HTTP"`
	Cache     CacheConfig     `yaml:"cache" envconfig:"CACHE"`
	Pipeline  PipelineConfig  `yaml:"pipeline" envconfig:"PIPELINE"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
	Export    ExportConfig    `yaml:"export" envconfig:"EXPORT"`
}

// SourcesConfig holds the location of each dataset. A value is either an
// http(s) URL or a local file path.
type SourcesConfig struct {
	Cases             string `yaml:"cases" envconfig:"CASES" validate:"required"`
	VaccinationStatus string `yaml:"vaccination_status" envconfig:"VACCINATION_STATUS" validate:"required"`
	Vaccines          string `yaml:"vaccines" envconfig:"VACCINES" validate:"required"`
	Hospitalizations  string `yaml:"hospitalizations" envconfig:"HOSPITALIZATIONS" validate:"required"`
	CaseDetail        string `yaml:"case_detail" envconfig:"CASE_DETAIL" validate:"required"`
}

// HTTPConfig controls dataset downloads
type HTTPConfig struct {
	Timeout           time.Duration `yaml:"timeout" envconfig:"TIMEOUT" validate:"gt=0"`
	MaxRetries        int           `yaml:"max_retries" envconfig:"MAX_RETRIES" validate:"min=1,max=10"`
	RetryDelay        time.Duration `yaml:"retry_delay" envconfig:"RETRY_DELAY" validate:"min=0"`
	RequestsPerSecond float64       `yaml:"requests_per_second" envconfig:"REQUESTS_PER_SECOND" validate:"gt=0"`
	Burst             int           `yaml:"burst" envconfig:"BURST" validate:"min=1"`
	UserAgent         string        `yaml:"user_agent" envconfig:"USER_AGENT" validate:"required"`
}

// CacheConfig controls memoization of loaded datasets
type CacheConfig struct {
	Enabled    bool          `yaml:"enabled" envconfig:"ENABLED"`
	MaxEntries int           `yaml:"max_entries" envconfig:"MAX_ENTRIES" validate:"min=0"`
	TTL        time.Duration `yaml:"ttl" envconfig:"TTL" validate:"min=0"`
}

// PipelineConfig holds the constants the derived metrics depend on
type PipelineConfig struct {
	RollingWindow        int     `yaml:"rolling_window" envconfig:"ROLLING_WINDOW" validate:"min=1"`
	UnderReportingFactor float64 `yaml:"under_reporting_factor" envconfig:"UNDER_REPORTING_FACTOR" validate:"gt=0"`
	Population           int64   `yaml:"population" envconfig:"POPULATION" validate:"gt=0"`
	PopulationUnderFive  int64   `yaml:"population_under_five" envconfig:"POPULATION_UNDER_FIVE" validate:"min=0,ltfield=Population"`
	Concurrency          int     `yaml:"concurrency" envconfig:"CONCURRENCY" validate:"min=1,max=5"`
}

// EligiblePopulation is the population old enough to be vaccinated
func (p PipelineConfig) EligiblePopulation() int64 {
	return p.Population - p.PopulationUnderFive
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Format      string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json"`
	Output      string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// TelemetryConfig controls tracing and metrics
type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name" envconfig:"SERVICE_NAME" validate:"required"`
	TraceExporter  string `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" validate:"oneof=stdout none"`
	MetricsEnabled bool   `yaml:"metrics_enabled" envconfig:"METRICS_ENABLED"`
	MetricsFile    string `yaml:"metrics_file" envconfig:"METRICS_FILE"`
}

// ExportConfig controls the export command
type ExportConfig struct {
	OutputDir string   `yaml:"output_dir" envconfig:"OUTPUT_DIR" validate:"required"`
	Formats   []string `yaml:"formats" envconfig:"FORMATS" validate:"min=1,dive,oneof=csv xlsx json"`
}

// Defaults returns the configuration used when neither a file nor the
// environment sets a value.
func Defaults() Config {
	return Config{
		Sources: SourcesConfig{
			Cases:             CasesURL,
			VaccinationStatus: VaccinationStatusURL,
			Vaccines:          VaccinesURL,
			Hospitalizations:  HospitalizationsURL,
			CaseDetail:        CaseDetailURL,
		},
		HTTP: HTTPConfig{
			Timeout:           DefaultHTTPTimeout,
			MaxRetries:        DefaultMaxRetries,
			RetryDelay:        DefaultRetryDelay,
			RequestsPerSecond: DefaultRequestsPerSecond,
			Burst:             DefaultBurst,
			UserAgent:         AppName + "/" + AppVersion,
		},
		Cache: CacheConfig{
			Enabled:    true,
			MaxEntries: 16,
		},
		Pipeline: PipelineConfig{
			RollingWindow:        DefaultRollingWindow,
			UnderReportingFactor: DefaultUnderReportingFactor,
			Population:           OntarioPopulation,
			PopulationUnderFive:  OntarioPopulationUnderFive,
			Concurrency:          DefaultConcurrency,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/dashboard.log",
		},
		Telemetry: TelemetryConfig{
			ServiceName:   "c19pulse",
			TraceExporter: "none",
		},
		Export: ExportConfig{
			OutputDir: "exports",
			Formats:   []string{"csv", "xlsx", "json"},
		},
	}
}

// Load builds the configuration. Precedence, lowest first: defaults, the
// YAML file, a .env file, then the process environment.
func Load(configFile string) (*Config, error) {
	cfg := Defaults()

	explicit := configFile != ""
	if !explicit {
		configFile, explicit = getConfigFilePath()
	}
	if _, err := os.Stat(configFile); err == nil {
		if err := loadFromFile(configFile, &cfg); err != nil {
			return nil, apperrors.NewConfigError(fmt.Sprintf("failed to load config file %s", configFile), err)
		}
	} else if explicit {
		return nil, apperrors.NewConfigError(fmt.Sprintf("config file %s not found", configFile), err)
	}

	// A missing .env file is normal.
	_ = godotenv.Load()

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, apperrors.NewConfigError("failed to load config from env", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadFromFile overlays the YAML file onto cfg. Keys absent from the file
// keep their current values.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// getConfigFilePath reports the file to read and whether the user asked for it
func getConfigFilePath() (string, bool) {
	if path := os.Getenv(EnvPrefix + "_CONFIG"); path != "" {
		return path, true
	}
	return DefaultConfigFile, false
}

// Validate checks struct-tag constraints
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return apperrors.NewConfigError("config validation failed", err)
	}
	return nil
}
