package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains all the directories the dataset builder reads and writes.
// This is the single source of truth for file locations.
type Paths struct {
	DataDir    string
	CacheDir   string
	ReportsDir string
	LogsDir    string

	// Well-known files
	PriceCacheCSV   string
	CrossSectionCSV string
}

// GetPaths resolves the directory layout from the paths configuration.
// Relative directories are taken relative to the working directory.
//
//	data/
//	  ├── cache/     (downloaded feeds and fetched prices)
//	  └── reports/   (specification table, cross sections)
//	logs/
func GetPaths(cfg PathsConfig) (*Paths, error) {
	dataDir, err := filepath.Abs(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data dir: %w", err)
	}
	logsDir, err := filepath.Abs(cfg.LogsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve logs dir: %w", err)
	}

	cacheDir := filepath.Join(dataDir, "cache")
	reportsDir := filepath.Join(dataDir, "reports")

	return &Paths{
		DataDir:         dataDir,
		CacheDir:        cacheDir,
		ReportsDir:      reportsDir,
		LogsDir:         logsDir,
		PriceCacheCSV:   filepath.Join(cacheDir, "prices.csv"),
		CrossSectionCSV: filepath.Join(reportsDir, "cross_sections.csv"),
	}, nil
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.DataDir, p.CacheDir, p.ReportsDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// GetCachePath returns the full path of a file in the cache directory
func (p *Paths) GetCachePath(filename string) string {
	return filepath.Join(p.CacheDir, filename)
}

// GetReportPath returns the full path of a file in the reports directory
func (p *Paths) GetReportPath(filename string) string {
	return filepath.Join(p.ReportsDir, filename)
}

// GetLogPath returns the full path of a file in the logs directory
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// LogPathResolution logs all resolved paths for debugging
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	logger.Debug("Resolved paths",
		slog.String("data_dir", p.DataDir),
		slog.String("cache_dir", p.CacheDir),
		slog.String("reports_dir", p.ReportsDir),
		slog.String("logs_dir", p.LogsDir))
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
