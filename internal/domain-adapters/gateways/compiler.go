package gateways

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/knes1/elktail-release/internal/domain/entities"
	"github.com/knes1/elktail-release/internal/domain/interfaces/gateways"
)

// GoCompiler cross-compiles with the go toolchain
type GoCompiler struct {
	goBinary       string
	workingDir     string
	defaultTimeout time.Duration
}

// CompilerOption configures a GoCompiler
type CompilerOption func(*GoCompiler)

// WithGoBinary overrides the toolchain executable (default "go" from PATH)
func WithGoBinary(path string) CompilerOption {
	return func(c *GoCompiler) {
		if path != "" {
			c.goBinary = path
		}
	}
}

// WithWorkingDir sets the directory the compiler runs in (the module root)
func WithWorkingDir(dir string) CompilerOption {
	return func(c *GoCompiler) {
		c.workingDir = dir
	}
}

// WithTimeout bounds a single compile invocation
func WithTimeout(d time.Duration) CompilerOption {
	return func(c *GoCompiler) {
		if d > 0 {
			c.defaultTimeout = d
		}
	}
}

// NewGoCompiler creates a new compiler gateway
func NewGoCompiler(opts ...CompilerOption) *GoCompiler {
	c := &GoCompiler{
		goBinary:       "go",
		defaultTimeout: 10 * time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile runs "go build" for the request's target and reports the outcome.
// A non-zero exit is reported through the result, never as a panic or log.Fatal.
func (c *GoCompiler) Compile(ctx context.Context, req gateways.CompileRequest) *gateways.CompileResult {
	startTime := time.Now()
	result := &gateways.CompileResult{
		Command: c.CommandLine(req),
	}

	execCtx, cancel := context.WithTimeout(ctx, c.defaultTimeout)
	defer cancel()

	//nolint:gosec // G204: toolchain path and arguments come from release configuration
	cmd := exec.CommandContext(execCtx, c.goBinary, c.buildArgs(req)...)
	if c.workingDir != "" {
		cmd.Dir = c.workingDir
	}

	cmd.Env = append(os.Environ(), sortedEnv(buildEnv(req))...)

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	err := cmd.Run()
	result.Duration = time.Since(startTime)
	result.Output = output.String()

	if err != nil {
		result.Error = err
		result.ExitCode = -1
		var exitErr *exec.ExitError
		switch {
		case execCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil:
			result.Error = fmt.Errorf("compile timeout after %v", c.defaultTimeout)
		case errors.As(err, &exitErr):
			result.ExitCode = exitErr.ExitCode()
		}
		return result
	}

	// A toolchain that exits zero without writing the binary is still a failure
	if _, statErr := os.Stat(req.OutputPath); statErr != nil {
		result.Error = fmt.Errorf("compiler produced no binary at %s: %w", req.OutputPath, statErr)
		result.ExitCode = 0
		return result
	}

	result.Success = true
	result.ExitCode = 0
	return result
}

// CommandLine renders the invocation the way a shell user would type it
func (c *GoCompiler) CommandLine(req gateways.CompileRequest) string {
	parts := sortedEnv(buildEnv(req))
	parts = append(parts, c.goBinary)
	for _, arg := range c.buildArgs(req) {
		if strings.ContainsAny(arg, " \t") {
			arg = fmt.Sprintf("%q", arg)
		}
		parts = append(parts, arg)
	}
	return strings.Join(parts, " ")
}

func (c *GoCompiler) buildArgs(req gateways.CompileRequest) []string {
	args := []string{"build"}
	if req.Flags.Trimpath {
		args = append(args, "-trimpath")
	}
	if req.Flags.LDFlags != "" {
		args = append(args, "-ldflags", req.Flags.LDFlags)
	}
	args = append(args, "-o", req.OutputPath)

	entry := req.EntryPoint
	if entry == "" {
		entry = entities.DefaultEntryPoint
	}
	return append(args, entry)
}

func buildEnv(req gateways.CompileRequest) map[string]string {
	cgo := "0"
	if req.Flags.CGOEnabled {
		cgo = "1"
	}
	return map[string]string{
		"GOOS":        req.Target.OS,
		"GOARCH":      req.Target.Arch,
		"CGO_ENABLED": cgo,
	}
}

// sortedEnv keeps GOOS and GOARCH first so printed commands read like the familiar form
func sortedEnv(env map[string]string) []string {
	order := map[string]int{"GOOS": 0, "GOARCH": 1}
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		oi, iok := order[keys[i]]
		oj, jok := order[keys[j]]
		switch {
		case iok && jok:
			return oi < oj
		case iok:
			return true
		case jok:
			return false
		default:
			return keys[i] < keys[j]
		}
	})

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}
