// =============================================================================
// Loyalty Purchase Report - Configuration Module
// =============================================================================
//
// This module is responsible for loading the run configuration. Every value
// has a default, so the configuration file is optional; CLI flags that were
// set explicitly override whatever the file says (see cmd/run.go).
//
// PRECEDENCE:
//   defaults < config.yaml < command line flags
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// DEFAULTS
// =============================================================================

const (
	DefaultCustomersLocation    = "./input_data/starter/customers.csv"
	DefaultProductsLocation     = "./input_data/starter/products.csv"
	DefaultTransactionsLocation = "./input_data/starter/transactions/"
	DefaultOutputLocation       = "./output_data/outputs/"
	DefaultOutputFile           = "output.json"
)

// Error policies for malformed transaction lines.
const (
	ErrorPolicyStrict = "strict"
	ErrorPolicySkip   = "skip"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the configuration of a single report run.
type MainConfig struct {
	// =========================================================================
	// INPUT / OUTPUT LOCATIONS
	// =========================================================================

	// CustomersLocation is the customer roster file (CSV or XLSX).
	// Default: "./input_data/starter/customers.csv"
	CustomersLocation string `yaml:"customers_location"`

	// ProductsLocation is the product catalog file (CSV or XLSX).
	// Default: "./input_data/starter/products.csv"
	ProductsLocation string `yaml:"products_location"`

	// TransactionsLocation is the directory of day partitions.
	// Default: "./input_data/starter/transactions/"
	TransactionsLocation string `yaml:"transactions_location"`

	// OutputLocation is the directory the report is written to. It is
	// created if it does not exist.
	// Default: "./output_data/outputs/"
	OutputLocation string `yaml:"output_location"`

	// OutputFile is the report file name inside OutputLocation.
	// Default: "output.json"
	OutputFile string `yaml:"output_file"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// LogFormat selects the log handler.
	// Valid values: "text", "json"
	// Default: "text"
	LogFormat string `yaml:"log_format"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// Workers is the number of day partitions aggregated concurrently.
	// Set to 1 for sequential processing.
	// Default: 1
	Workers int `yaml:"workers"`

	// ErrorPolicy decides what happens to a malformed transaction line.
	//   - "strict": abort the run (default)
	//   - "skip"  : log the line and continue
	ErrorPolicy string `yaml:"error_policy"`

	// CSVSettings contains settings for parsing the roster and catalog.
	CSVSettings CSVSettings `yaml:"csv_settings"`

	// Report contains output settings.
	Report ReportSettings `yaml:"report"`
}

// CSVSettings contains settings for parsing tabular input files.
type CSVSettings struct {
	// Delimiter is the character used to separate fields.
	// Common values: "," (comma), "|" (pipe), "\t" (tab)
	// Default: ","
	Delimiter string `yaml:"delimiter"`

	// HeaderRows is the number of header rows skipped before the data.
	// Default: 1
	HeaderRows *int `yaml:"header_rows"`

	// Sheet is the worksheet read from XLSX inputs. Empty means the first.
	Sheet string `yaml:"sheet"`
}

// HeaderRowCount returns the configured header row count.
func (s CSVSettings) HeaderRowCount() int {
	if s.HeaderRows == nil {
		return 1
	}
	return *s.HeaderRows
}

// ReportSettings controls how the report is written.
type ReportSettings struct {
	// Indent pretty-prints the JSON report.
	Indent bool `yaml:"indent"`

	// XLSX additionally writes the report as an Excel workbook next to the
	// JSON file, with the same base name.
	XLSX bool `yaml:"xlsx"`

	// SummaryLog writes a plain-text run summary next to the report.
	SummaryLog bool `yaml:"summary_log"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// Default returns a configuration with every default applied.
func Default() *MainConfig {
	cfg := &MainConfig{}
	applyMainConfigDefaults(cfg)
	return cfg
}

// LoadMainConfig loads the configuration from a YAML file.
//
// PARAMETERS:
//   - configPath: The path to the configuration file. An empty path, or a
//     path that does not exist, yields the defaults.
//
// RETURNS:
//   - A pointer to the MainConfig struct.
//   - An error if the file cannot be read, parsed or validated.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	var config MainConfig

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// Fall through to defaults.
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, &config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	applyMainConfigDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// applyMainConfigDefaults sets default values for any unset option.
func applyMainConfigDefaults(config *MainConfig) {
	if config.CustomersLocation == "" {
		config.CustomersLocation = DefaultCustomersLocation
	}
	if config.ProductsLocation == "" {
		config.ProductsLocation = DefaultProductsLocation
	}
	if config.TransactionsLocation == "" {
		config.TransactionsLocation = DefaultTransactionsLocation
	}
	if config.OutputLocation == "" {
		config.OutputLocation = DefaultOutputLocation
	}
	if config.OutputFile == "" {
		config.OutputFile = DefaultOutputFile
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.LogFormat == "" {
		config.LogFormat = "text"
	}
	if config.Workers == 0 {
		config.Workers = 1
	}
	if config.ErrorPolicy == "" {
		config.ErrorPolicy = ErrorPolicyStrict
	}
	if config.CSVSettings.Delimiter == "" {
		config.CSVSettings.Delimiter = ","
	}
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *MainConfig) Validate() error {
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log_format %q", c.LogFormat)
	}

	switch c.ErrorPolicy {
	case ErrorPolicyStrict, ErrorPolicySkip:
	default:
		return fmt.Errorf("unknown error_policy %q (want %q or %q)", c.ErrorPolicy, ErrorPolicyStrict, ErrorPolicySkip)
	}

	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}

	if c.CSVSettings.HeaderRowCount() < 0 {
		return fmt.Errorf("header_rows must not be negative")
	}

	if strings.ContainsAny(c.OutputFile, `/\`) {
		return fmt.Errorf("output_file %q must be a file name, not a path", c.OutputFile)
	}

	return nil
}
