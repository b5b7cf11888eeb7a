// Package gateways defines interfaces for external tool adapters.
package gateways

import (
	"context"
	"time"

	"github.com/knes1/elktail-release/internal/domain/entities"
)

// CompileRequest describes one cross-compilation
type CompileRequest struct {
	Target     entities.BuildTarget
	EntryPoint string
	OutputPath string
	Flags      entities.BuildFlags
}

// CompileResult carries the outcome of a compiler invocation
type CompileResult struct {
	Command  string
	Success  bool
	ExitCode int
	Output   string
	Duration time.Duration
	Error    error
}

// Compiler cross-compiles the project for a single target
type Compiler interface {
	Compile(ctx context.Context, req CompileRequest) *CompileResult
	// CommandLine renders the invocation for display before it runs
	CommandLine(req CompileRequest) string
}

// Packager bundles a compiled binary into a distributable archive
type Packager interface {
	PackageBinary(ctx context.Context, target entities.BuildTarget, binaryPath, nameInArchive, archivePath string) (*entities.Artifact, error)
}

// Checksummer computes and records archive digests
type Checksummer interface {
	CalculateChecksum(filePath string) (string, error)
	WriteChecksumFile(dir string, artifacts []*entities.Artifact) (string, error)
}

// Signer produces detached signatures for release files
type Signer interface {
	SignFile(ctx context.Context, filePath string) (string, error)
}

// ProvenanceRecord describes one release run for the provenance statement
type ProvenanceRecord struct {
	Definition     *entities.ReleaseDefinition
	Artifacts      []*entities.Artifact
	BuilderVersion string
	StartedOn      time.Time
	FinishedOn     time.Time
}

// ProvenanceWriter records how the release archives were produced
type ProvenanceWriter interface {
	WriteProvenance(ctx context.Context, record ProvenanceRecord) (string, error)
}
