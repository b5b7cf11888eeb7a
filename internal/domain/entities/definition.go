package entities

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Release definition defaults
const (
	DefaultProjectName = "elktail"
	DefaultEntryPoint  = "."
	DefaultOutputDir   = "release"
)

// Release-wide manifests written next to the archives
const (
	ChecksumFileName = "SHA256SUMS"
	ProvenanceSuffix = ".intoto.json"
)

// ReleaseDefinition describes everything needed to produce a release
type ReleaseDefinition struct {
	ProjectName string
	EntryPoint  string
	OutputDir   string
	Build       BuildFlags
	Signing     SigningConfig
	targets     []BuildTarget
}

// BuildFlags are passed to every compile invocation
type BuildFlags struct {
	Trimpath   bool
	LDFlags    string
	CGOEnabled bool
}

// SigningConfig controls detached signatures for produced archives
type SigningConfig struct {
	Enabled bool
	KeyFile string
}

// NewReleaseDefinition builds a definition over a private copy of targets
func NewReleaseDefinition(project, entryPoint, outputDir string, targets []BuildTarget) *ReleaseDefinition {
	def := &ReleaseDefinition{
		ProjectName: project,
		EntryPoint:  entryPoint,
		OutputDir:   outputDir,
		targets:     append([]BuildTarget(nil), targets...),
	}
	return def
}

// DefaultTargets returns the stock target table: 64-bit macOS, Linux and Windows
func DefaultTargets() []BuildTarget {
	return []BuildTarget{
		{OS: "darwin", Arch: "amd64", Format: FormatZip, Suffix: "_osx"},
		{OS: "linux", Arch: "amd64", Format: FormatTarGz, Suffix: "_linux_amd64"},
		{OS: "windows", Arch: "amd64", Format: FormatZip, Suffix: "_win"},
	}
}

// DefaultDefinition returns the built-in release definition for elktail
func DefaultDefinition() *ReleaseDefinition {
	return NewReleaseDefinition(DefaultProjectName, DefaultEntryPoint, DefaultOutputDir, DefaultTargets())
}

// Targets returns a copy of the target list
func (d *ReleaseDefinition) Targets() []BuildTarget {
	return append([]BuildTarget(nil), d.targets...)
}

// WithTargets returns a shallow copy of the definition using targets instead
func (d *ReleaseDefinition) WithTargets(targets []BuildTarget) *ReleaseDefinition {
	c := *d
	c.targets = append([]BuildTarget(nil), targets...)
	return &c
}

// WithOutputDir returns a shallow copy of the definition writing to dir
func (d *ReleaseDefinition) WithOutputDir(dir string) *ReleaseDefinition {
	c := *d
	c.OutputDir = dir
	return &c
}

// Validate checks the definition and every target in it.
// Two targets producing the same archive name are rejected.
func (d *ReleaseDefinition) Validate() error {
	if strings.TrimSpace(d.ProjectName) == "" {
		return fmt.Errorf("project name is required")
	}
	if strings.ContainsAny(d.ProjectName, `/\`) {
		return fmt.Errorf("project name must not contain path separators")
	}
	if strings.TrimSpace(d.OutputDir) == "" {
		return fmt.Errorf("output directory is required")
	}
	if len(d.targets) == 0 {
		return fmt.Errorf("at least one build target is required")
	}

	seen := make(map[string]bool, len(d.targets))
	for _, t := range d.targets {
		if err := t.Validate(); err != nil {
			return err
		}
		name := t.ArchiveName(d.ProjectName)
		if seen[name] {
			return fmt.Errorf("duplicate archive name %s", name)
		}
		seen[name] = true
	}
	if d.Signing.Enabled && strings.TrimSpace(d.Signing.KeyFile) == "" {
		return fmt.Errorf("signing enabled but no key file configured")
	}
	return nil
}

// ManifestPaths returns the release-wide files whose content depends on the archive set
func (d *ReleaseDefinition) ManifestPaths() []string {
	return []string{
		filepath.Join(d.OutputDir, ChecksumFileName),
		filepath.Join(d.OutputDir, d.ProjectName+ProvenanceSuffix),
	}
}

// ArchiveNames returns the expected archive file names in target order
func (d *ReleaseDefinition) ArchiveNames() []string {
	names := make([]string, 0, len(d.targets))
	for _, t := range d.targets {
		names = append(names, t.ArchiveName(d.ProjectName))
	}
	return names
}
