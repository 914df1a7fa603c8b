// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/tomtom215/genecascade/internal/validation"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, verr)
	}

	if err := c.validateCatalog(); err != nil {
		return err
	}

	return c.validatePrimaryModels()
}

// ValidateForPrediction additionally requires the aligner database, which
// only prediction commands use.
func (c *Config) ValidateForPrediction() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Aligner.Database == "" {
		return fmt.Errorf("%w: aligner.database is required (--db)", ErrInvalidConfig)
	}
	return nil
}

// validateCatalog requires a base URL when the catalog is enabled and a
// breaker counting window of at least one request timeout.
func (c *Config) validateCatalog() error {
	if !c.Catalog.Enabled {
		return nil
	}
	if c.Catalog.BaseURL == "" {
		return fmt.Errorf("%w: catalog.base_url is required when catalog.enabled is true", ErrInvalidConfig)
	}
	if iv := c.Catalog.Breaker.Interval; iv > 0 && iv < c.Catalog.Timeout {
		return fmt.Errorf("%w: catalog.breaker.interval (%s) must not be shorter than catalog.timeout (%s)",
			ErrInvalidConfig, iv, c.Catalog.Timeout)
	}
	return nil
}

// validatePrimaryModels checks that a configured model directory exists.
func (c *Config) validatePrimaryModels() error {
	if c.Primary.Models == "" {
		return nil
	}
	info, err := os.Stat(c.Primary.Models)
	if err != nil {
		return fmt.Errorf("%w: primary.models: %w", ErrInvalidConfig, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: primary.models %s is not a directory", ErrInvalidConfig, c.Primary.Models)
	}
	return nil
}
