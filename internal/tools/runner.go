// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

// Package tools wraps the external programs genecascade drives: the
// GeneMark-ES primary predictor, the Prodigal secondary predictor and the
// DIAMOND aligner.
//
// Every invocation goes through a Runner so that adapters can be exercised in
// tests without the real binaries. Tool output (stdout and stderr) is
// appended to a per-step log file inside the working directory.
package tools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/tomtom215/genecascade/internal/logging"
	"github.com/tomtom215/genecascade/internal/metrics"
)

// Command describes one external tool invocation.
type Command struct {
	// Tool is a short label used in logs and metrics ("genemark", "diamond").
	Tool string

	// Path is the executable name or path.
	Path string

	Args []string

	// Dir is the working directory. Empty means the current directory.
	Dir string

	// LogFile receives stdout and stderr in append mode. Empty discards output.
	LogFile string

	// Timeout bounds the invocation. Zero uses the runner default.
	Timeout time.Duration
}

// String renders the command line for logs.
func (c Command) String() string {
	return strings.TrimSpace(c.Path + " " + strings.Join(c.Args, " "))
}

// Runner executes external commands.
type Runner interface {
	Run(ctx context.Context, cmd Command) error
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	// DefaultTimeout applies when Command.Timeout is zero. Zero means no limit.
	DefaultTimeout time.Duration
}

// NewExecRunner creates an ExecRunner.
func NewExecRunner(defaultTimeout time.Duration) *ExecRunner {
	return &ExecRunner{DefaultTimeout: defaultTimeout}
}

// Run executes cmd and blocks until it exits. A non-zero exit, a missing
// binary and a timeout are all reported as *ToolError.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) error {
	timeout := cmd.Timeout
	if timeout == 0 {
		timeout = r.DefaultTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	c := exec.CommandContext(ctx, cmd.Path, cmd.Args...)
	c.Dir = cmd.Dir

	if cmd.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cmd.LogFile), 0o755); err != nil {
			return err
		}
		lf, err := os.OpenFile(cmd.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open tool log: %w", err)
		}
		defer lf.Close()
		_, _ = fmt.Fprintf(lf, "# %s %s\n", time.Now().Format(time.RFC3339), cmd.String())
		c.Stdout = lf
		c.Stderr = lf
	}

	logging.Ctx(ctx).Debug().
		Str("tool", cmd.Tool).
		Str("cmd", cmd.String()).
		Str("dir", cmd.Dir).
		Msg("Running external tool")

	start := time.Now()
	err := c.Run()
	metrics.RecordToolInvocation(cmd.Tool, time.Since(start), err)
	if err == nil {
		return nil
	}

	te := &ToolError{Tool: cmd.Tool, Command: cmd.String(), LogFile: cmd.LogFile, ExitCode: -1, Err: err}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		te.ExitCode = exitErr.ExitCode()
	}
	if ctx.Err() != nil {
		te.Err = fmt.Errorf("%w (%v)", ctx.Err(), err)
	}
	return te
}

var _ Runner = (*ExecRunner)(nil)

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}
