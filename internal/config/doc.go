// Package config provides centralized configuration management for the
// herding dataset builder. It loads configuration from multiple sources,
// validates it, and resolves the on-disk directory layout.
//
// # Configuration Sources
//
// Configuration is layered in the following order, later sources winning:
//
//  1. Default() values
//  2. A YAML file passed to Load
//  3. A .env file in the working directory (never overrides the real environment)
//  4. Environment variables with the HERD_ prefix
//
// # Environment Variables
//
//	HERD_EQUITY_TOKEN=...              price feed credential
//	HERD_SAMPLE_START=2020-01-02
//	HERD_SAMPLE_RESET_DATE=2020-01-02
//	HERD_POLICY_COUNTRY=China
//	HERD_OUTPUT_FORMAT=parquet
//	HERD_LOGGING_LEVEL=debug
//
// The price feed credential is only ever read from configuration; nothing
// in the module embeds it.
//
// # Path Management
//
// GetPaths resolves the data, cache, reports and logs directories:
//
//	paths, err := config.GetPaths(cfg.Paths)
//	cachePath := paths.GetCachePath("prices.csv")
//
// # Usage
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
