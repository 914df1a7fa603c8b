// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

package tools

import (
	"errors"
	"fmt"
)

// ErrExternalTool matches every *ToolError.
var ErrExternalTool = errors.New("external tool failed")

// ToolError reports a failed external invocation. Callers treat it as "this
// stage did not succeed", never as fatal.
type ToolError struct {
	Tool     string
	Command  string
	ExitCode int
	LogFile  string
	Err      error
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("%s failed", e.Tool)
	if e.ExitCode >= 0 {
		msg += fmt.Sprintf(" with exit code %d", e.ExitCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.LogFile != "" {
		msg += " (see " + e.LogFile + ")"
	}
	return msg
}

func (e *ToolError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrExternalTool) true for any ToolError.
func (e *ToolError) Is(target error) bool { return target == ErrExternalTool }
