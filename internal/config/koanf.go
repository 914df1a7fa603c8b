// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/genecascade/internal/api"
	"github.com/tomtom215/genecascade/internal/catalog"
	"github.com/tomtom215/genecascade/internal/classify"
	"github.com/tomtom215/genecascade/internal/predict"
	"github.com/tomtom215/genecascade/internal/taxonomy"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"genecascade.yaml",
	"genecascade.yml",
	"/etc/genecascade/config.yaml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "GENECASCADE_CONFIG"

// envPrefix starts every mapped environment variable.
const envPrefix = "GENECASCADE_"

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	breaker := catalog.DefaultBreakerConfig()
	client := catalog.DefaultClientConfig()
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
		},
		Threads: 1,
		Primary: PrimaryConfig{
			Command:      "gmes_petap.pl",
			GTFToProtein: "get_sequence_from_GTF.pl",
			Fungus:       true,
			MinContig:    5000,
			Domains:      append([]int(nil), predict.DefaultPrimaryDomains...),
		},
		Secondary: SecondaryConfig{
			Enabled: true,
			Command: "prodigal",
			Mode:    "meta",
		},
		Aligner: AlignerConfig{
			Command:       "diamond",
			EValue:        1e-20,
			MaxTargetSeqs: 3,
		},
		Classify: ClassifyConfig{
			SampleSize: classify.DefaultSampleSize,
			Fraction:   taxonomy.DefaultFraction,
		},
		Catalog: CatalogConfig{
			Enabled:           true,
			BaseURL:           client.BaseURL,
			Timeout:           client.Timeout,
			RetryAttempts:     client.RetryAttempts,
			RetryDelay:        client.RetryDelay,
			RequestsPerSecond: client.RequestsPerSecond,
			Burst:             client.Burst,
			Candidates:        catalog.DefaultCandidates,
			Breaker: BreakerConfig{
				MaxRequests:  breaker.MaxRequests,
				Interval:     breaker.Interval,
				Timeout:      breaker.Timeout,
				MinRequests:  breaker.MinRequests,
				FailureRatio: breaker.FailureRatio,
			},
		},
		Cache: CacheConfig{
			Enabled: true,
		},
		Taxonomy: TaxonomyConfig{
			DBPath:    filepath.Join(defaultDataDir(), "taxonomy"),
			CacheSize: taxonomy.DefaultCacheSize,
		},
		Batch: BatchConfig{
			Workers: 1,
			Clean:   true,
		},
		Metrics: MetricsConfig{
			RateLimit: api.DefaultConfig().RateLimitRequests,
		},
	}
}

// defaultDataDir is the per-user state directory.
func defaultDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "genecascade")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "genecascade")
	}
	return filepath.Join(os.TempDir(), "genecascade")
}

// DefaultCacheDir is the result cache root used when cache.dir is empty.
func DefaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "genecascade", "results")
	}
	return filepath.Join(defaultDataDir(), "results")
}

// Load reads configuration from defaults, the YAML file at path (or the first
// default path found when path is empty) and GENECASCADE_* environment
// variables. Validation is left to the caller so command-line flags can be
// applied first.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return defaultConfig()
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths are settings that may arrive as comma-separated strings.
var sliceConfigPaths = []string{
	"primary.domains",
	"metrics.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps GENECASCADE_* variables (prefix removed, lower case) to koanf keys.
var envMappings = map[string]string{
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	"threads": "threads",

	"primary_command":        "primary.command",
	"primary_gtf_to_protein": "primary.gtf_to_protein",
	"primary_fungus":         "primary.fungus",
	"primary_min_contig":     "primary.min_contig",
	"primary_timeout":        "primary.timeout",
	"primary_domains":        "primary.domains",
	"primary_models":         "primary.models",

	"secondary_enabled": "secondary.enabled",
	"secondary_command": "secondary.command",
	"secondary_mode":    "secondary.mode",
	"secondary_timeout": "secondary.timeout",

	"diamond_command":         "aligner.command",
	"diamond_db":              "aligner.database",
	"diamond_evalue":          "aligner.evalue",
	"diamond_max_target_seqs": "aligner.max_target_seqs",
	"diamond_timeout":         "aligner.timeout",

	"classify_sample_size": "classify.sample_size",
	"classify_fraction":    "classify.fraction",
	"classify_seed":        "classify.seed",

	"catalog_enabled":        "catalog.enabled",
	"catalog_url":            "catalog.base_url",
	"catalog_timeout":        "catalog.timeout",
	"catalog_retry_attempts": "catalog.retry_attempts",
	"catalog_retry_delay":    "catalog.retry_delay",
	"catalog_rps":            "catalog.requests_per_second",
	"catalog_burst":          "catalog.burst",
	"catalog_candidates":     "catalog.candidates",

	"cache_enabled": "cache.enabled",
	"cache_dir":     "cache.dir",

	"taxonomy_db":         "taxonomy.db_path",
	"taxonomy_cache_size": "taxonomy.cache_size",

	"workers": "batch.workers",
	"clean":   "batch.clean",

	"metrics_addr":         "metrics.addr",
	"metrics_textfile":     "metrics.textfile",
	"metrics_cors_origins": "metrics.cors_origins",
	"metrics_rate_limit":   "metrics.rate_limit",
}

// envTransformFunc maps environment variable names to koanf keys. Unmapped
// variables are dropped.
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}
