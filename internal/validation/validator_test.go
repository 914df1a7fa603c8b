// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

package validation

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestGetValidator_Singleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()

	if v1 != v2 {
		t.Error("GetValidator() should return the same singleton instance")
	}

	if v1 == nil {
		t.Error("GetValidator() should not return nil")
	}
}

type innerConfig struct {
	Timeout int    `koanf:"timeout" validate:"min=1"`
	Mode    string `koanf:"mode" validate:"oneof=json console auto"`
}

type testConfig struct {
	Name    string      `koanf:"name" validate:"required,max=8"`
	Addr    string      `koanf:"addr" validate:"omitempty,listen_addr"`
	Ratio   float64     `koanf:"ratio" validate:"gt=0,lte=1"`
	Inner   innerConfig `koanf:"inner"`
	NoTag   int         `validate:"gte=0"`
	Skipped string      `koanf:"-" validate:"omitempty,min=100"`
}

func validConfig() testConfig {
	return testConfig{
		Name:  "ok",
		Addr:  ":9464",
		Ratio: 0.6,
		Inner: innerConfig{Timeout: 1, Mode: "json"},
	}
}

func TestValidateStruct_Valid(t *testing.T) {
	cfg := validConfig()
	if err := ValidateStruct(&cfg); err != nil {
		t.Fatalf("ValidateStruct() = %v", err)
	}
}

func TestValidateStruct_FieldPaths(t *testing.T) {
	cfg := validConfig()
	cfg.Name = ""
	cfg.Ratio = 1.5
	cfg.Inner.Timeout = 0
	cfg.Inner.Mode = "xml"
	cfg.NoTag = -1

	err := ValidateStruct(&cfg)
	if err == nil {
		t.Fatal("ValidateStruct() = nil, want errors")
	}
	want := []string{"name", "ratio", "inner.timeout", "inner.mode", "NoTag"}
	if diff := cmp.Diff(want, err.Fields()); diff != "" {
		t.Errorf("fields mismatch (-want +got):\n%s", diff)
	}
	msg := err.Error()
	for _, part := range []string{
		"name is required",
		"ratio must be less than or equal to 1",
		"inner.timeout must be at least 1",
		"inner.mode must be one of: json console auto",
	} {
		if !strings.Contains(msg, part) {
			t.Errorf("error %q does not contain %q", msg, part)
		}
	}
}

func TestValidateStruct_StringLength(t *testing.T) {
	cfg := validConfig()
	cfg.Name = "much-too-long"
	err := ValidateStruct(&cfg)
	if err == nil {
		t.Fatal("ValidateStruct() = nil, want error")
	}
	if got := err.Errors()[0].Error(); got != "name must be at most 8 characters" {
		t.Errorf("message = %q", got)
	}
	if got := err.Errors()[0].Tag(); got != "max" {
		t.Errorf("tag = %q", got)
	}
}

func TestListenAddr(t *testing.T) {
	tests := []struct {
		addr string
		ok   bool
	}{
		{":9464", true},
		{"127.0.0.1:8080", true},
		{"localhost:0", true},
		{"[::1]:9464", true},
		{"9464", false},
		{"host:port", false},
		{":70000", false},
		{"bad host:80", false},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			cfg := validConfig()
			cfg.Addr = tt.addr
			err := ValidateStruct(&cfg)
			if (err == nil) != tt.ok {
				t.Errorf("ValidateStruct(addr=%q) = %v, want ok=%v", tt.addr, err, tt.ok)
			}
		})
	}
}
