package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment override, e.g. HERD_EQUITY_TOKEN
const EnvPrefix = "HERD"

// Config represents the complete dataset builder configuration
type Config struct {
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Sample    SampleConfig    `yaml:"sample" envconfig:"SAMPLE"`
	Equity    EquityConfig    `yaml:"equity" envconfig:"EQUITY"`
	Policy    PolicyConfig    `yaml:"policy" envconfig:"POLICY"`
	Epidemic  EpidemicConfig  `yaml:"epidemic" envconfig:"EPIDEMIC"`
	Retry     RetryConfig     `yaml:"retry" envconfig:"RETRY"`
	Assembler AssemblerConfig `yaml:"assembler" envconfig:"ASSEMBLER"`
	Output    OutputConfig    `yaml:"output" envconfig:"OUTPUT"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Output     string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath   string `yaml:"file_path" envconfig:"FILE_PATH"`
	MaxSizeMB  int    `yaml:"max_size_mb" envconfig:"MAX_SIZE_MB" validate:"gte=0"`
	MaxBackups int    `yaml:"max_backups" envconfig:"MAX_BACKUPS" validate:"gte=0"`
	MaxAgeDays int    `yaml:"max_age_days" envconfig:"MAX_AGE_DAYS" validate:"gte=0"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	DataDir string `yaml:"data_dir" envconfig:"DATA_DIR" validate:"required"`
	LogsDir string `yaml:"logs_dir" envconfig:"LOGS_DIR" validate:"required"`
}

// SampleConfig bounds the sample window. ResetDate is the first date of
// the clean sample: every return on it is discarded.
type SampleConfig struct {
	Start     string `yaml:"start" envconfig:"START" validate:"required,datetime=2006-01-02"`
	End       string `yaml:"end" envconfig:"END" validate:"required,datetime=2006-01-02"`
	ResetDate string `yaml:"reset_date" envconfig:"RESET_DATE" validate:"omitempty,datetime=2006-01-02"`
}

// EquityConfig configures the daily close price feed
type EquityConfig struct {
	BaseURL         string        `yaml:"base_url" envconfig:"BASE_URL" validate:"omitempty,url"`
	Token           string        `yaml:"token" envconfig:"TOKEN"`
	InstrumentsFile string        `yaml:"instruments_file" envconfig:"INSTRUMENTS_FILE"`
	InstrumentSheet string        `yaml:"instrument_sheet" envconfig:"INSTRUMENT_SHEET"`
	PricesFile      string        `yaml:"prices_file" envconfig:"PRICES_FILE"`
	WindowDays      int           `yaml:"window_days" envconfig:"WINDOW_DAYS" validate:"gte=1,lte=20"`
	StrideDays      int           `yaml:"stride_days" envconfig:"STRIDE_DAYS" validate:"gtfield=WindowDays"`
	RPS             float64       `yaml:"rps" envconfig:"RPS" validate:"gt=0"`
	Burst           int           `yaml:"burst" envconfig:"BURST" validate:"gte=1"`
	Timeout         time.Duration `yaml:"timeout" envconfig:"TIMEOUT" validate:"gt=0"`
}

// PolicyConfig configures the government response (stringency) feed.
// Files maps a year to the URL or local path of that year's CSV.
type PolicyConfig struct {
	Country       string            `yaml:"country" envconfig:"COUNTRY" validate:"required"`
	Files         map[string]string `yaml:"files" envconfig:"FILES" validate:"required,min=1"`
	SubIndicators []string          `yaml:"sub_indicators" envconfig:"SUB_INDICATORS"`
	Parallelism   int               `yaml:"parallelism" envconfig:"PARALLELISM" validate:"gte=1"`
}

// EpidemicConfig configures the case and death count feed
type EpidemicConfig struct {
	Country       string `yaml:"country" envconfig:"COUNTRY" validate:"required"`
	DeathsSource  string `yaml:"deaths_source" envconfig:"DEATHS_SOURCE" validate:"required"`
	CasesSource   string `yaml:"cases_source" envconfig:"CASES_SOURCE" validate:"required"`
	RollingWindow int    `yaml:"rolling_window" envconfig:"ROLLING_WINDOW" validate:"gte=1"`
}

// RetryConfig defines retry behaviour for upstream fetches
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts" envconfig:"MAX_ATTEMPTS" validate:"gte=1"`
	InitialDelay time.Duration `yaml:"initial_delay" envconfig:"INITIAL_DELAY" validate:"gte=0"`
	MaxDelay     time.Duration `yaml:"max_delay" envconfig:"MAX_DELAY" validate:"gtefield=InitialDelay"`
	Multiplier   float64       `yaml:"multiplier" envconfig:"MULTIPLIER" validate:"gte=1"`
}

// AssemblerConfig controls how gaps in the trading calendar are handled
type AssemblerConfig struct {
	Strict bool `yaml:"strict" envconfig:"STRICT"`
}

// OutputConfig selects the dataset destination
type OutputConfig struct {
	Path   string `yaml:"path" envconfig:"PATH" validate:"required"`
	Format string `yaml:"format" envconfig:"FORMAT" validate:"oneof=csv parquet"`
}

// TelemetryConfig enables run tracing and the metrics textfile
type TelemetryConfig struct {
	Tracing         bool   `yaml:"tracing" envconfig:"TRACING"`
	TracesFile      string `yaml:"traces_file" envconfig:"TRACES_FILE"`
	MetricsTextfile string `yaml:"metrics_textfile" envconfig:"METRICS_TEXTFILE"`
}

// Load builds the configuration from defaults, then the YAML file at path
// (skipped when empty), then a .env file in the working directory, then
// HERD_* environment variables. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg; keys absent from the file
// keep their current value
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}

	// yaml.v2 merges into non-nil maps, so a file listing only some policy
	// years would inherit the default ones
	var probe struct {
		Policy struct {
			Files map[string]string `yaml:"files"`
		} `yaml:"policy"`
	}
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return err
	}
	if probe.Policy.Files != nil {
		cfg.Policy.Files = nil
	}

	return yaml.Unmarshal(data, cfg)
}

// Validate checks struct constraints and the cross-field date rules
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	start, end := c.Sample.StartDate(), c.Sample.EndDate()
	if end.Before(start) {
		return fmt.Errorf("sample end %s is before start %s", c.Sample.End, c.Sample.Start)
	}
	if reset := c.Sample.Reset(); !reset.IsZero() && (reset.Before(start) || reset.After(end)) {
		return fmt.Errorf("reset date %s is outside the sample", c.Sample.ResetDate)
	}

	// Inclusive windows tile the sample only when each starts the day after
	// the previous one ends
	if c.Equity.StrideDays != c.Equity.WindowDays+1 {
		return fmt.Errorf("equity.stride_days %d must be window_days+1 (%d)",
			c.Equity.StrideDays, c.Equity.WindowDays+1)
	}

	if c.Equity.PricesFile == "" {
		if c.Equity.InstrumentsFile == "" {
			return fmt.Errorf("equity.instruments_file is required when no prices_file is given")
		}
		if c.Equity.BaseURL == "" {
			return fmt.Errorf("equity.base_url is required when no prices_file is given")
		}
	}

	for year := range c.Policy.Files {
		if _, err := strconv.Atoi(year); err != nil {
			return fmt.Errorf("policy.files key %q is not a year", year)
		}
	}

	return nil
}

// StartDate returns the parsed sample start
func (s SampleConfig) StartDate() time.Time { return mustDate(s.Start) }

// EndDate returns the parsed sample end
func (s SampleConfig) EndDate() time.Time { return mustDate(s.End) }

// Reset returns the parsed reset date; it falls back to the sample start
func (s SampleConfig) Reset() time.Time {
	if s.ResetDate == "" {
		return s.StartDate()
	}
	return mustDate(s.ResetDate)
}

// mustDate parses a validated YYYY-MM-DD string; invalid input yields zero
func mustDate(v string) time.Time {
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}
	}
	return t
}

// PolicyYears returns the configured policy file years in ascending order
func (p PolicyConfig) PolicyYears() []string {
	years := make([]string, 0, len(p.Files))
	for y := range p.Files {
		years = append(years, y)
	}
	sort.Strings(years)
	return years
}

// DefaultSubIndicators are the containment and closure indicators used in
// the herding regressions
var DefaultSubIndicators = []string{
	"C1M_School closing",
	"C2M_Workplace closing",
	"C3M_Cancel public events",
	"C4M_Restrictions on gatherings",
	"C5M_Close public transport",
	"C6M_Stay at home requirements",
	"C7M_Restrictions on internal movement",
	"C8EV_International travel controls",
	"H6M_Facial Coverings",
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:      "info",
			Output:     "console",
			FilePath:   "logs/dataset.log",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Paths: PathsConfig{
			DataDir: "data",
			LogsDir: "logs",
		},
		Sample: SampleConfig{
			Start:     "2020-01-02",
			End:       "2022-12-30",
			ResetDate: "2020-01-02",
		},
		Equity: EquityConfig{
			BaseURL:         "http://api.tushare.pro",
			InstrumentsFile: "data/instruments.xlsx",
			WindowDays:      20,
			StrideDays:      21,
			RPS:             3,
			Burst:           1,
			Timeout:         30 * time.Second,
		},
		Policy: PolicyConfig{
			Country: "China",
			Files: map[string]string{
				"2020": "https://raw.githubusercontent.com/OxCGRT/covid-policy-dataset/main/data/OxCGRT_nat_differentiated_withnotes_2020.csv",
				"2021": "https://raw.githubusercontent.com/OxCGRT/covid-policy-dataset/main/data/OxCGRT_nat_differentiated_withnotes_2021.csv",
				"2022": "https://raw.githubusercontent.com/OxCGRT/covid-policy-dataset/main/data/OxCGRT_nat_differentiated_withnotes_2022.csv",
			},
			SubIndicators: append([]string(nil), DefaultSubIndicators...),
			Parallelism:   1,
		},
		Epidemic: EpidemicConfig{
			Country:       "China",
			DeathsSource:  "https://covid.ourworldindata.org/data/jhu/new_deaths.csv",
			CasesSource:   "https://covid.ourworldindata.org/data/jhu/new_cases.csv",
			RollingWindow: 7,
		},
		Retry: RetryConfig{
			MaxAttempts:  3,
			InitialDelay: 1 * time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		},
		Output: OutputConfig{
			Path:   "data/reports/specification.csv",
			Format: "csv",
		},
		Telemetry: TelemetryConfig{
			TracesFile: "logs/traces.json",
		},
	}
}
