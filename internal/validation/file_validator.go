package validation

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/SLBlundell/Economics-Dissertation/internal/config"
	"github.com/SLBlundell/Economics-Dissertation/internal/sources"
)

// FileValidator checks the local inputs and output location of a run
// before any feed is contacted
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger,
	}
}

// ValidateFile checks if a specific file exists and is readable
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("File does not exist",
			slog.String("file", path))
		return fmt.Errorf("file %s does not exist", path)
	}
	if err != nil {
		v.logger.Error("Failed to stat file",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		v.logger.Error("Path is a directory, not a file",
			slog.String("path", path))
		return fmt.Errorf("%s is a directory, not a file", path)
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("File is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	file.Close()

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateCSVFile checks that path is a readable .csv file
func (v *FileValidator) ValidateCSVFile(path string) error {
	if err := v.ValidateFile(path); err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".csv" {
		v.logger.Error("File is not a CSV file",
			slog.String("file", path),
			slog.String("extension", ext))
		return fmt.Errorf("file %s is not a CSV file (extension: %s)", path, ext)
	}
	return nil
}

// ValidateInstrumentFile accepts a readable .xlsx or .csv instrument list.
// Excel lock files (~$name.xlsx) are rejected.
func (v *FileValidator) ValidateInstrumentFile(path string) error {
	if err := v.ValidateFile(path); err != nil {
		return err
	}

	base := filepath.Base(path)
	if strings.HasPrefix(base, "~$") {
		v.logger.Warn("Temporary Excel file given as instrument list",
			slog.String("file", path))
		return fmt.Errorf("file %s is a temporary Excel file", path)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx", ".csv":
		return nil
	default:
		v.logger.Error("Unsupported instrument list",
			slog.String("file", path),
			slog.String("extension", ext))
		return fmt.Errorf("instrument list %s must be .xlsx or .csv (extension: %s)", path, ext)
	}
}

// ValidateSource checks a feed location. Remote locations are left to the
// fetcher; local ones must be readable files.
func (v *FileValidator) ValidateSource(location string) error {
	if sources.IsRemote(location) {
		return nil
	}
	return v.ValidateFile(location)
}

// ValidateOutputDirectory ensures output directory exists or can be created
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	// Verify it's writable by creating a test file
	file, err := os.CreateTemp(dir, ".write_test*")
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	name := file.Name()
	file.Close()
	os.Remove(name)

	v.logger.Debug("Output directory validated",
		slog.String("directory", dir))
	return nil
}

// ValidateRun checks every local input the configuration names and the
// directory the dataset will be written to. outputPath is the resolved
// output file. All problems are reported together.
func (v *FileValidator) ValidateRun(cfg *config.Config, outputPath string) error {
	var errs []error

	if cfg.Equity.PricesFile != "" {
		if err := v.ValidateCSVFile(cfg.Equity.PricesFile); err != nil {
			errs = append(errs, fmt.Errorf("equity prices: %w", err))
		}
	} else if err := v.ValidateInstrumentFile(cfg.Equity.InstrumentsFile); err != nil {
		errs = append(errs, fmt.Errorf("equity instruments: %w", err))
	}

	years := make([]string, 0, len(cfg.Policy.Files))
	for y := range cfg.Policy.Files {
		years = append(years, y)
	}
	sort.Strings(years)
	for _, y := range years {
		if err := v.ValidateSource(cfg.Policy.Files[y]); err != nil {
			errs = append(errs, fmt.Errorf("policy %s: %w", y, err))
		}
	}

	if err := v.ValidateSource(cfg.Epidemic.DeathsSource); err != nil {
		errs = append(errs, fmt.Errorf("epidemic deaths: %w", err))
	}
	if err := v.ValidateSource(cfg.Epidemic.CasesSource); err != nil {
		errs = append(errs, fmt.Errorf("epidemic cases: %w", err))
	}

	if err := v.ValidateOutputDirectory(filepath.Dir(outputPath)); err != nil {
		errs = append(errs, fmt.Errorf("output: %w", err))
	}

	if len(errs) == 0 {
		v.logger.Info("Run inputs validated",
			slog.Bool("local_prices", cfg.Equity.PricesFile != ""),
			slog.Int("policy_files", len(years)),
			slog.String("output_dir", filepath.Dir(outputPath)))
	}
	return errors.Join(errs...)
}
