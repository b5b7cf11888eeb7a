// Package orchestrators coordinates complex workflows across multiple domain services.
package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knes1/elktail-release/internal/domain/entities"
	"github.com/knes1/elktail-release/internal/domain/interfaces"
	"github.com/knes1/elktail-release/internal/domain/interfaces/gateways"
)

// ReleaseOrchestrator compiles and packages every target of a release definition
type ReleaseOrchestrator struct {
	compiler     gateways.Compiler
	packager     gateways.Packager
	checksummer  gateways.Checksummer
	signer       gateways.Signer
	provenance   gateways.ProvenanceWriter
	logger       interfaces.Logger
	workspaceDir string
	version      string
}

// ReleaseOrchestratorConfig holds configuration for the orchestrator
type ReleaseOrchestratorConfig struct {
	// WorkspaceDir is the parent for the transient build directory (default: os.TempDir)
	WorkspaceDir string
	// Provenance, when set, writes a provenance statement for the produced archives
	Provenance gateways.ProvenanceWriter
	// BuilderVersion is recorded in the provenance statement
	BuilderVersion string
}

// NewReleaseOrchestrator creates a new release orchestrator.
// checksummer and signer may be nil to skip those steps.
func NewReleaseOrchestrator(
	compiler gateways.Compiler,
	packager gateways.Packager,
	checksummer gateways.Checksummer,
	signer gateways.Signer,
	logger interfaces.Logger,
	config ReleaseOrchestratorConfig,
) *ReleaseOrchestrator {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}

	return &ReleaseOrchestrator{
		compiler:     compiler,
		packager:     packager,
		checksummer:  checksummer,
		signer:       signer,
		provenance:   config.Provenance,
		logger:       logger,
		workspaceDir: config.WorkspaceDir,
		version:      config.BuilderVersion,
	}
}

// TargetResult contains the outcome for one build target
type TargetResult struct {
	Target          entities.BuildTarget
	ArchivePath     string
	Artifact        *entities.Artifact
	Compile         *gateways.CompileResult
	CompileDuration time.Duration
	ArchiveDuration time.Duration
	Err             error
}

// Success reports whether the target produced its archive
func (r *TargetResult) Success() bool {
	return r.Err == nil && r.Artifact != nil
}

// ReleaseReport collects the results of one run
type ReleaseReport struct {
	Definition     *entities.ReleaseDefinition
	Results        []*TargetResult
	ChecksumFile   string
	ProvenanceFile string
	Errors         []error
	TotalDuration  time.Duration
}

// Artifacts returns the archives that were produced, in target order
func (r *ReleaseReport) Artifacts() []*entities.Artifact {
	artifacts := make([]*entities.Artifact, 0, len(r.Results))
	for _, res := range r.Results {
		if res.Success() {
			artifacts = append(artifacts, res.Artifact)
		}
	}
	return artifacts
}

// Failed returns results of targets that did not produce an archive
func (r *ReleaseReport) Failed() []*TargetResult {
	var failed []*TargetResult
	for _, res := range r.Results {
		if !res.Success() {
			failed = append(failed, res)
		}
	}
	return failed
}

// Err aggregates every failure of the run, or nil when the release is complete
func (r *ReleaseReport) Err() error {
	var errs []error
	for _, res := range r.Failed() {
		errs = append(errs, res.Err)
	}
	errs = append(errs, r.Errors...)
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(append([]error{ErrTargetsFailed}, errs...)...)
}

// Summary returns a human-readable summary of the run
func (r *ReleaseReport) Summary() string {
	var b strings.Builder
	succeeded := len(r.Results) - len(r.Failed())
	fmt.Fprintf(&b, "Release %s: %d/%d targets packaged in %v\n",
		r.Definition.ProjectName, succeeded, len(r.Results), r.TotalDuration.Round(time.Millisecond))

	for _, res := range r.Results {
		if res.Success() {
			fmt.Fprintf(&b, "  ok      %-16s %s\n", res.Target.Platform(), res.ArchivePath)
		} else {
			fmt.Fprintf(&b, "  FAILED  %-16s %v\n", res.Target.Platform(), res.Err)
		}
	}
	if r.ChecksumFile != "" {
		fmt.Fprintf(&b, "  checksums: %s\n", r.ChecksumFile)
	}
	if r.ProvenanceFile != "" {
		fmt.Fprintf(&b, "  provenance: %s\n", r.ProvenanceFile)
	}
	for _, err := range r.Errors {
		fmt.Fprintf(&b, "  error: %v\n", err)
	}
	return b.String()
}

// Run builds every target of def in order. The output directory is created once up front;
// a failing target is recorded and skipped without stopping the others.
// The returned error is non-nil when anything failed; the report is always returned
// once the output directory exists.
func (o *ReleaseOrchestrator) Run(ctx context.Context, def *entities.ReleaseDefinition) (*ReleaseReport, error) {
	startTime := time.Now()

	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("invalid release definition: %w", err)
	}

	//nolint:gosec // G301: release directories are meant to be shared
	if err := os.MkdirAll(def.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrOutputDir, def.OutputDir, err)
	}
	o.removeManifests(def)

	workspace, err := os.MkdirTemp(o.workspaceDir, def.ProjectName+"-build-")
	if err != nil {
		return nil, fmt.Errorf("failed to create build workspace: %w", err)
	}
	//nolint:errcheck // Best-effort cleanup of transient binaries
	defer os.RemoveAll(workspace)

	report := &ReleaseReport{Definition: def}
	for _, target := range def.Targets() {
		if ctxErr := ctx.Err(); ctxErr != nil {
			report.Results = append(report.Results, &TargetResult{
				Target:      target,
				ArchivePath: filepath.Join(def.OutputDir, target.ArchiveName(def.ProjectName)),
				Err:         &StageError{Stage: StageCompile, Target: target, Err: ctxErr},
			})
			continue
		}
		report.Results = append(report.Results, o.buildTarget(ctx, def, target, workspace))
	}

	artifacts := report.Artifacts()
	o.writeChecksums(def, report, artifacts)
	o.writeProvenance(ctx, def, report, artifacts, startTime)
	o.signArtifacts(ctx, report, artifacts)

	report.TotalDuration = time.Since(startTime)
	if err := report.Err(); err != nil {
		o.logger.Error("Release incomplete",
			interfaces.F("failed_targets", len(report.Failed())),
			interfaces.F("errors", len(report.Errors)),
		)
		return report, err
	}

	o.logger.Info("Release complete",
		interfaces.F("artifacts", len(artifacts)),
		interfaces.F("output_dir", def.OutputDir),
		interfaces.F("duration", report.TotalDuration),
	)
	return report, nil
}

// buildTarget compiles into the private workspace and packages the result
func (o *ReleaseOrchestrator) buildTarget(
	ctx context.Context,
	def *entities.ReleaseDefinition,
	target entities.BuildTarget,
	workspace string,
) *TargetResult {
	archivePath := filepath.Join(def.OutputDir, target.ArchiveName(def.ProjectName))
	result := &TargetResult{Target: target, ArchivePath: archivePath}
	fail := func(stage Stage, err error) *TargetResult {
		result.Err = &StageError{Stage: stage, Target: target, Err: err}
		o.logger.Error("Target failed",
			interfaces.F("target", target.Platform()),
			interfaces.F("stage", string(stage)),
			interfaces.F("error", err),
		)
		o.removeStale(archivePath)
		return result
	}

	binDir := filepath.Join(workspace, target.ID())
	if err := os.MkdirAll(binDir, 0750); err != nil {
		return fail(StageCompile, fmt.Errorf("failed to create build directory: %w", err))
	}
	binaryName := target.BinaryName(def.ProjectName)
	binaryPath := filepath.Join(binDir, binaryName)

	req := gateways.CompileRequest{
		Target:     target,
		EntryPoint: def.EntryPoint,
		OutputPath: binaryPath,
		Flags:      def.Build,
	}

	o.logger.Info("Building",
		interfaces.F("target", target.Platform()),
		interfaces.F("command", o.compiler.CommandLine(req)),
	)
	compileStart := time.Now()
	compiled := o.compiler.Compile(ctx, req)
	result.Compile = compiled
	result.CompileDuration = time.Since(compileStart)

	o.logger.Info("Build finished",
		interfaces.F("target", target.Platform()),
		interfaces.F("success", compiled.Success),
		interfaces.F("exit_code", compiled.ExitCode),
		interfaces.F("duration", compiled.Duration),
	)
	if out := strings.TrimSpace(compiled.Output); out != "" {
		o.logger.Info("Compiler output", interfaces.F("target", target.Platform()), interfaces.F("output", out))
	}

	if !compiled.Success {
		err := compiled.Error
		if err == nil {
			err = fmt.Errorf("compiler exited with status %d", compiled.ExitCode)
		}
		return fail(StageCompile, err)
	}

	o.logger.Info("Packaging",
		interfaces.F("target", target.Platform()),
		interfaces.F("format", string(target.Format)),
		interfaces.F("binary", binaryName),
		interfaces.F("archive", archivePath),
	)
	archiveStart := time.Now()
	artifact, err := o.packager.PackageBinary(ctx, target, binaryPath, binaryName, archivePath)
	result.ArchiveDuration = time.Since(archiveStart)
	if err != nil {
		return fail(StageArchive, err)
	}

	//nolint:errcheck // The workspace is removed at the end of the run anyway
	os.Remove(binaryPath)

	o.logger.Info("Packaged",
		interfaces.F("target", target.Platform()),
		interfaces.F("archive", archivePath),
		interfaces.F("duration", result.ArchiveDuration),
	)
	result.Artifact = artifact
	return result
}

// removeStale deletes an archive (and its signature) left over from an earlier run,
// so a failed target never ships an outdated package
func (o *ReleaseOrchestrator) removeStale(archivePath string) {
	for _, path := range o.removeWithSignature(archivePath) {
		o.logger.Warn("Removed stale artifact", interfaces.F("path", path))
	}
}

// removeManifests drops checksums and provenance of a previous run. They are
// rewritten from this run's archives, or left absent when nothing was produced.
func (o *ReleaseOrchestrator) removeManifests(def *entities.ReleaseDefinition) {
	for _, manifest := range def.ManifestPaths() {
		for _, path := range o.removeWithSignature(manifest) {
			o.logger.Debug("Removed previous manifest", interfaces.F("path", path))
		}
	}
}

// removeWithSignature deletes path and path.asc, returning the files that existed
func (o *ReleaseOrchestrator) removeWithSignature(target string) []string {
	var removed []string
	for _, path := range []string{target, target + ".asc"} {
		if err := os.Remove(path); err == nil {
			removed = append(removed, path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			o.logger.Warn("Failed to remove stale artifact", interfaces.F("path", path), interfaces.F("error", err))
		}
	}
	return removed
}

func (o *ReleaseOrchestrator) writeChecksums(def *entities.ReleaseDefinition, report *ReleaseReport, artifacts []*entities.Artifact) {
	if o.checksummer == nil {
		return
	}
	if len(artifacts) == 0 {
		return
	}

	path, err := o.checksummer.WriteChecksumFile(def.OutputDir, artifacts)
	if err != nil {
		report.Errors = append(report.Errors, &StageError{Stage: StageChecksum, Err: err})
		o.logger.Error("Checksums failed", interfaces.F("error", err))
		return
	}
	report.ChecksumFile = path
	o.logger.Info("Checksums written", interfaces.F("path", path))
}

func (o *ReleaseOrchestrator) signArtifacts(ctx context.Context, report *ReleaseReport, artifacts []*entities.Artifact) {
	if o.signer == nil {
		return
	}

	for _, artifact := range artifacts {
		sigPath, err := o.signer.SignFile(ctx, artifact.Path)
		if err != nil {
			report.Errors = append(report.Errors, &StageError{Stage: StageSign, Target: artifact.Target, Err: err})
			o.logger.Error("Signing failed", interfaces.F("archive", artifact.Path), interfaces.F("error", err))
			continue
		}
		artifact.SignaturePath = sigPath
		o.logger.Info("Signed", interfaces.F("archive", artifact.Path), interfaces.F("signature", sigPath))
	}

	for _, path := range []string{report.ChecksumFile, report.ProvenanceFile} {
		if path == "" {
			continue
		}
		if _, err := o.signer.SignFile(ctx, path); err != nil {
			report.Errors = append(report.Errors, &StageError{Stage: StageSign, Err: err})
			o.logger.Error("Signing failed", interfaces.F("file", path), interfaces.F("error", err))
		}
	}
}

func (o *ReleaseOrchestrator) writeProvenance(
	ctx context.Context,
	def *entities.ReleaseDefinition,
	report *ReleaseReport,
	artifacts []*entities.Artifact,
	startTime time.Time,
) {
	if o.provenance == nil || len(artifacts) == 0 {
		return
	}

	path, err := o.provenance.WriteProvenance(ctx, gateways.ProvenanceRecord{
		Definition:     def,
		Artifacts:      artifacts,
		BuilderVersion: o.version,
		StartedOn:      startTime,
		FinishedOn:     time.Now(),
	})
	if err != nil {
		report.Errors = append(report.Errors, &StageError{Stage: StageProvenance, Err: err})
		o.logger.Error("Provenance failed", interfaces.F("error", err))
		return
	}
	report.ProvenanceFile = path
	o.logger.Info("Provenance written", interfaces.F("path", path))
}
