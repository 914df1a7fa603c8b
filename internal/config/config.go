// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

// Package config loads genecascade settings.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: built-in values for every setting
//  2. Config File: optional YAML file (--config, GENECASCADE_CONFIG or a default path)
//  3. Environment Variables: GENECASCADE_* overrides from an explicit mapping table
//  4. Command-line flags, applied by the caller after Load
//
// Config is immutable after loading and safe for concurrent reads.
package config

import (
	"time"

	"github.com/tomtom215/genecascade/internal/api"
	"github.com/tomtom215/genecascade/internal/catalog"
	"github.com/tomtom215/genecascade/internal/classify"
	"github.com/tomtom215/genecascade/internal/logging"
	"github.com/tomtom215/genecascade/internal/tools"
)

// Config holds all genecascade settings.
type Config struct {
	Logging   LoggingConfig   `koanf:"logging"`
	Threads   int             `koanf:"threads" validate:"min=1,max=1024"`
	Primary   PrimaryConfig   `koanf:"primary"`
	Secondary SecondaryConfig `koanf:"secondary"`
	Aligner   AlignerConfig   `koanf:"aligner"`
	Classify  ClassifyConfig  `koanf:"classify"`
	Catalog   CatalogConfig   `koanf:"catalog"`
	Cache     CacheConfig     `koanf:"cache"`
	Taxonomy  TaxonomyConfig  `koanf:"taxonomy"`
	Batch     BatchConfig     `koanf:"batch"`
	Metrics   MetricsConfig   `koanf:"metrics"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console auto"`
	Caller bool   `koanf:"caller"`
}

// PrimaryConfig configures the eukaryotic predictor.
type PrimaryConfig struct {
	Command      string        `koanf:"command" validate:"required"`
	GTFToProtein string        `koanf:"gtf_to_protein" validate:"required"`
	Fungus       bool          `koanf:"fungus"`
	MinContig    int           `koanf:"min_contig" validate:"min=0"`
	Timeout      time.Duration `koanf:"timeout" validate:"gte=0"`

	// Domains are the taxids a borrowed-model lineage must contain to skip
	// the secondary predictor.
	Domains []int `koanf:"domains" validate:"min=1,dive,gt=0"`

	// Models is the stage-one model directory of single-sample runs.
	Models string `koanf:"models"`
}

// SecondaryConfig configures the prokaryotic predictor.
type SecondaryConfig struct {
	Enabled bool          `koanf:"enabled"`
	Command string        `koanf:"command" validate:"required"`
	Mode    string        `koanf:"mode" validate:"oneof=meta single"`
	Timeout time.Duration `koanf:"timeout" validate:"gte=0"`
}

// AlignerConfig configures the protein aligner.
type AlignerConfig struct {
	Command       string        `koanf:"command" validate:"required"`
	Database      string        `koanf:"database"`
	EValue        float64       `koanf:"evalue" validate:"gt=0"`
	MaxTargetSeqs int           `koanf:"max_target_seqs" validate:"min=1"`
	Timeout       time.Duration `koanf:"timeout" validate:"gte=0"`
}

// ClassifyConfig configures proteome classification.
type ClassifyConfig struct {
	SampleSize int     `koanf:"sample_size" validate:"min=0"`
	Fraction   float64 `koanf:"fraction" validate:"gt=0,lte=1"`
	Seed       uint64  `koanf:"seed"`
}

// CatalogConfig configures the remote model catalog.
type CatalogConfig struct {
	Enabled           bool          `koanf:"enabled"`
	BaseURL           string        `koanf:"base_url" validate:"omitempty,http_url"`
	Timeout           time.Duration `koanf:"timeout" validate:"gt=0"`
	RetryAttempts     int           `koanf:"retry_attempts" validate:"min=1,max=20"`
	RetryDelay        time.Duration `koanf:"retry_delay" validate:"gte=0"`
	RequestsPerSecond float64       `koanf:"requests_per_second" validate:"gte=0"`
	Burst             int           `koanf:"burst" validate:"min=1"`
	Candidates        int           `koanf:"candidates" validate:"min=1,max=100"`
	Breaker           BreakerConfig `koanf:"breaker"`
}

// BreakerConfig configures the catalog circuit breaker.
type BreakerConfig struct {
	MaxRequests  uint32        `koanf:"max_requests" validate:"min=1"`
	Interval     time.Duration `koanf:"interval" validate:"gte=0"`
	Timeout      time.Duration `koanf:"timeout" validate:"gt=0"`
	MinRequests  uint32        `koanf:"min_requests" validate:"min=1"`
	FailureRatio float64       `koanf:"failure_ratio" validate:"gt=0,lte=1"`
}

// CacheConfig configures the content-addressed result cache.
type CacheConfig struct {
	Enabled bool `koanf:"enabled"`

	// Dir is the cache root. Empty uses the user cache directory.
	Dir string `koanf:"dir"`
}

// TaxonomyConfig configures lineage lookups.
type TaxonomyConfig struct {
	DBPath    string `koanf:"db_path" validate:"required"`
	CacheSize int    `koanf:"cache_size" validate:"min=0"`
}

// BatchConfig configures multi-sample runs.
type BatchConfig struct {
	Workers int  `koanf:"workers" validate:"min=1,max=1024"`
	Clean   bool `koanf:"clean"`
}

// MetricsConfig configures metric exposure.
type MetricsConfig struct {
	// Addr serves /metrics, /healthz and /status when set.
	Addr string `koanf:"addr" validate:"omitempty,listen_addr"`

	// Textfile receives a Prometheus text dump at exit when set.
	Textfile string `koanf:"textfile"`

	// CORSOrigins may read /status from a browser.
	CORSOrigins []string `koanf:"cors_origins" validate:"dive,http_url"`

	// RateLimit is the per-IP /status request budget per minute. Zero disables it.
	RateLimit int `koanf:"rate_limit" validate:"min=0"`
}

// LoggingSettings converts the logging section for logging.Init.
func (c *Config) LoggingSettings() logging.Config {
	return logging.Config{
		Level:     c.Logging.Level,
		Format:    c.Logging.Format,
		Caller:    c.Logging.Caller,
		Timestamp: true,
	}
}

// GeneMark returns the primary predictor adapter settings.
func (c *Config) GeneMark() tools.GeneMarkConfig {
	return tools.GeneMarkConfig{
		Command:      c.Primary.Command,
		GTFToProtein: c.Primary.GTFToProtein,
		Threads:      c.Threads,
		MinContig:    c.Primary.MinContig,
		Fungus:       c.Primary.Fungus,
		Timeout:      c.Primary.Timeout,
	}
}

// Prodigal returns the secondary predictor adapter settings.
func (c *Config) Prodigal() tools.ProdigalConfig {
	return tools.ProdigalConfig{
		Command: c.Secondary.Command,
		Mode:    c.Secondary.Mode,
		Timeout: c.Secondary.Timeout,
	}
}

// Diamond returns the aligner adapter settings.
func (c *Config) Diamond() tools.DiamondConfig {
	return tools.DiamondConfig{
		Command:       c.Aligner.Command,
		Database:      c.Aligner.Database,
		Threads:       c.Threads,
		EValue:        c.Aligner.EValue,
		MaxTargetSeqs: c.Aligner.MaxTargetSeqs,
		Timeout:       c.Aligner.Timeout,
	}
}

// Classifier returns the classification settings.
func (c *Config) Classifier() classify.Config {
	return classify.Config{
		SampleSize: c.Classify.SampleSize,
		Fraction:   c.Classify.Fraction,
		Seed:       c.Classify.Seed,
	}
}

// CatalogClient returns the HTTP catalog client settings.
func (c *Config) CatalogClient() catalog.ClientConfig {
	return catalog.ClientConfig{
		BaseURL:           c.Catalog.BaseURL,
		Timeout:           c.Catalog.Timeout,
		RetryAttempts:     c.Catalog.RetryAttempts,
		RetryDelay:        c.Catalog.RetryDelay,
		RequestsPerSecond: c.Catalog.RequestsPerSecond,
		Burst:             c.Catalog.Burst,
		Breaker: catalog.BreakerConfig{
			MaxRequests:  c.Catalog.Breaker.MaxRequests,
			Interval:     c.Catalog.Breaker.Interval,
			Timeout:      c.Catalog.Breaker.Timeout,
			MinRequests:  c.Catalog.Breaker.MinRequests,
			FailureRatio: c.Catalog.Breaker.FailureRatio,
		},
	}
}

// StatusAPI returns the status router settings.
func (c *Config) StatusAPI() api.Config {
	return api.Config{
		CORSOrigins:       c.Metrics.CORSOrigins,
		RateLimitRequests: c.Metrics.RateLimit,
		RateLimitWindow:   time.Minute,
	}
}
