package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = "COLLISIO"

// ConfigFileEnv names the variable that points at an explicit YAML file.
const ConfigFileEnv = "COLLISIO_CONFIG"

// ErrInvalidConfig is returned when the merged configuration fails validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Narrative NarrativeConfig `yaml:"narrative" envconfig:"NARRATIVE"`
	Report    ReportConfig    `yaml:"report" envconfig:"REPORT"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
	Sheets    SheetsConfig    `yaml:"sheets" envconfig:"SHEETS"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"HOST"`
	Port            int           `yaml:"port" envconfig:"PORT" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" validate:"gt=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES" validate:"gt=0"`
	// RunRetention is how long finished web runs and their files are kept; 0 keeps them forever.
	RunRetention    time.Duration `yaml:"run_retention" envconfig:"RUN_RETENTION" validate:"min=0"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Format   string `yaml:"format" envconfig:"FORMAT"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console stdout file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// NarrativeConfig configures the language-model client that writes section summaries.
type NarrativeConfig struct {
	Enabled     bool          `yaml:"enabled" envconfig:"ENABLED"`
	APIKey      string        `yaml:"api_key" envconfig:"API_KEY"`
	BaseURL     string        `yaml:"base_url" envconfig:"BASE_URL" validate:"omitempty,url"`
	Model       string        `yaml:"model" envconfig:"MODEL" validate:"required"`
	MaxTokens   int           `yaml:"max_tokens" envconfig:"MAX_TOKENS" validate:"min=1,max=4096"`
	Temperature float32       `yaml:"temperature" envconfig:"TEMPERATURE" validate:"min=0,max=2"`
	Timeout     time.Duration `yaml:"timeout" envconfig:"TIMEOUT" validate:"gt=0"`
	Style       string        `yaml:"style" envconfig:"STYLE" validate:"oneof=basic enhanced advanced"`
}

// ReportConfig controls what goes into a generated report.
type ReportConfig struct {
	Title        string   `yaml:"title" envconfig:"TITLE" validate:"required"`
	Organization string   `yaml:"organization" envconfig:"ORGANIZATION"`
	PieMax       int      `yaml:"pie_max" envconfig:"PIE_MAX" validate:"min=2"`
	MinDistinct  int      `yaml:"min_distinct" envconfig:"MIN_DISTINCT" validate:"min=1"`
	MaxDistinct  int      `yaml:"max_distinct" envconfig:"MAX_DISTINCT" validate:"gtefield=MinDistinct"`
	Formats      []string `yaml:"formats" envconfig:"FORMATS" validate:"min=1,dive,oneof=docx html pdf"`
	Worklist     string   `yaml:"worklist" envconfig:"WORKLIST"`
	ExportCSV    bool     `yaml:"export_csv" envconfig:"EXPORT_CSV"`
	Map          bool     `yaml:"map" envconfig:"MAP"`
	HotspotRes   int      `yaml:"hotspot_resolution" envconfig:"HOTSPOT_RESOLUTION" validate:"min=0,max=15"`
	PDF          bool     `yaml:"pdf" envconfig:"PDF"`
	ChromePath   string   `yaml:"chrome_path" envconfig:"CHROME_PATH"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	OutputDir string `yaml:"output_dir" envconfig:"OUTPUT_DIR" validate:"required"`
	UploadDir string `yaml:"upload_dir" envconfig:"UPLOAD_DIR" validate:"required"`
	WebDir    string `yaml:"web_dir" envconfig:"WEB_DIR"`
}

// TelemetryConfig toggles OpenTelemetry metrics and tracing.
type TelemetryConfig struct {
	Metrics       bool   `yaml:"metrics" envconfig:"METRICS"`
	Tracing       bool   `yaml:"tracing" envconfig:"TRACING"`
	TraceExporter string `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" validate:"oneof=stdout none"`
}

// SheetsConfig authenticates gsheet:// sources. With neither field set,
// application default credentials are tried.
type SheetsConfig struct {
	APIKey          string `yaml:"api_key" envconfig:"API_KEY"`
	CredentialsFile string `yaml:"credentials_file" envconfig:"CREDENTIALS_FILE"`
}

// PDFEnabled reports whether a headless browser should be set up for PDF output.
func (c *Config) PDFEnabled() bool {
	return c.Report.PDF || c.HasFormat("pdf")
}

// Load loads configuration from defaults, an optional YAML file and environment variables
func Load() (*Config, error) {
	return LoadFrom(getConfigFilePath())
}

// LoadFrom is Load with an explicit YAML file; an empty path skips the file.
func LoadFrom(configFile string) (*Config, error) {
	// A missing .env file is the normal case
	_ = godotenv.Load()

	cfg := Default()

	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if cfg.Narrative.APIKey == "" {
		cfg.Narrative.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg; keys absent from the file keep their value
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate normalises and validates the configuration
func (c *Config) Validate() error {
	c.Logging.Level = strings.ToLower(c.Logging.Level)
	c.Logging.Format = "json"
	if c.Logging.Output == "" {
		c.Logging.Output = "console"
	}
	for i, f := range c.Report.Formats {
		c.Report.Formats[i] = strings.ToLower(strings.TrimSpace(f))
	}

	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if (c.Logging.Output == "file" || c.Logging.Output == "both") && c.Logging.FilePath == "" {
		return fmt.Errorf("%w: logging.file_path required for output %q", ErrInvalidConfig, c.Logging.Output)
	}

	return nil
}

// HasFormat reports whether the report should be written in the given format.
func (c *Config) HasFormat(format string) bool {
	for _, f := range c.Report.Formats {
		if f == format {
			return true
		}
	}
	return false
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if explicit := os.Getenv(ConfigFileEnv); explicit != "" {
		return explicit
	}

	locations := []string{
		"collisio.yaml",
		"config.yaml",
		"configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    10 * time.Minute,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxUploadBytes:  32 << 20, // 32MB
			RunRetention:    24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/collisio.log",
		},
		Narrative: NarrativeConfig{
			Enabled:     true,
			Model:       "gpt-4o",
			MaxTokens:   300,
			Temperature: 0.7,
			Timeout:     60 * time.Second,
			Style:       "basic",
		},
		Report: ReportConfig{
			Title:        "Collision Analysis Report",
			Organization: "Mobility Edge Solution",
			PieMax:       6,
			MinDistinct:  2,
			MaxDistinct:  15,
			Formats:      []string{"docx"},
			Map:          true,
			HotspotRes:   8,
		},
		Paths: PathsConfig{
			OutputDir: "reports",
			UploadDir: "uploads",
			WebDir:    "",
		},
		Telemetry: TelemetryConfig{
			Metrics:       true,
			Tracing:       false,
			TraceExporter: "none",
		},
	}
}
