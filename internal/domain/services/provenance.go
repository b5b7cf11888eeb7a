package services

import (
	"context"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/knes1/elktail-release/internal/domain/entities"
	"github.com/knes1/elktail-release/internal/domain/interfaces/gateways"
)

// In-toto statement and SLSA predicate identifiers
const (
	StatementType = "https://in-toto.io/Statement/v0.1"
	PredicateType = "https://slsa.dev/provenance/v0.2"
	BuilderID     = "https://github.com/knes1/elktail/release"
	BuildType     = "https://github.com/knes1/elktail/release@v1"
)

// ProvenanceService writes an in-toto provenance statement covering every release archive
type ProvenanceService struct{}

// NewProvenanceService creates a new provenance service
func NewProvenanceService() *ProvenanceService {
	return &ProvenanceService{}
}

// Statement is the in-toto envelope written next to the archives
type Statement struct {
	Type          string    `json:"_type"`
	Subject       []Subject `json:"subject"`
	PredicateType string    `json:"predicateType"`
	Predicate     Predicate `json:"predicate"`
}

// Subject identifies one archive by name and digest
type Subject struct {
	Name   string            `json:"name"`
	Digest map[string]string `json:"digest"`
	Size   int64             `json:"size"`
}

// Predicate carries the SLSA build description
type Predicate struct {
	Builder    Builder    `json:"builder"`
	BuildType  string     `json:"buildType"`
	Invocation Invocation `json:"invocation"`
	Metadata   Metadata   `json:"metadata"`
}

// Builder identifies the tool that produced the release
type Builder struct {
	ID      string `json:"id"`
	Version string `json:"version,omitempty"`
}

// Invocation records the parameters of the build
type Invocation struct {
	Parameters Parameters `json:"parameters"`
}

// Parameters are the release definition values that shaped the archives
type Parameters struct {
	Project    string   `json:"project"`
	EntryPoint string   `json:"entryPoint"`
	Targets    []string `json:"targets"`
	Trimpath   bool     `json:"trimpath"`
	LDFlags    string   `json:"ldflags,omitempty"`
	CGOEnabled bool     `json:"cgoEnabled"`
}

// Metadata holds timing and completeness claims
type Metadata struct {
	BuildStartedOn  string          `json:"buildStartedOn"`
	BuildFinishedOn string          `json:"buildFinishedOn"`
	Completeness    map[string]bool `json:"completeness"`
	Reproducible    bool            `json:"reproducible"`
}

// ProvenancePath returns where the statement for a project is written
func ProvenancePath(outputDir, project string) string {
	return filepath.Join(outputDir, project+entities.ProvenanceSuffix)
}

// BuildStatement assembles the statement for the produced archives.
// Archives are hashed from disk so the statement matches what ships.
func (s *ProvenanceService) BuildStatement(record gateways.ProvenanceRecord) (*Statement, error) {
	def := record.Definition
	stmt := &Statement{
		Type:          StatementType,
		PredicateType: PredicateType,
		Subject:       make([]Subject, 0, len(record.Artifacts)),
		Predicate: Predicate{
			Builder:   Builder{ID: BuilderID, Version: record.BuilderVersion},
			BuildType: BuildType,
			Invocation: Invocation{Parameters: Parameters{
				Project:    def.ProjectName,
				EntryPoint: def.EntryPoint,
				Trimpath:   def.Build.Trimpath,
				LDFlags:    def.Build.LDFlags,
				CGOEnabled: def.Build.CGOEnabled,
			}},
			Metadata: Metadata{
				BuildStartedOn:  record.StartedOn.UTC().Format(time.RFC3339),
				BuildFinishedOn: record.FinishedOn.UTC().Format(time.RFC3339),
				Completeness: map[string]bool{
					"parameters":  true,
					"environment": false,
					"materials":   false,
				},
			},
		},
	}
	for _, target := range def.Targets() {
		stmt.Predicate.Invocation.Parameters.Targets = append(stmt.Predicate.Invocation.Parameters.Targets, target.Platform())
	}

	for _, artifact := range record.Artifacts {
		sha256sum, sha512sum, size, err := digestFile(artifact.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to hash %s: %w", artifact.Name, err)
		}
		stmt.Subject = append(stmt.Subject, Subject{
			Name:   artifact.Name,
			Digest: map[string]string{"sha256": sha256sum, "sha512": sha512sum},
			Size:   size,
		})
	}
	return stmt, nil
}

// WriteProvenance writes <project>.intoto.json into the definition's output directory
func (s *ProvenanceService) WriteProvenance(ctx context.Context, record gateways.ProvenanceRecord) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	stmt, err := s.BuildStatement(record)
	if err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(stmt, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal provenance: %w", err)
	}

	path := ProvenancePath(record.Definition.OutputDir, record.Definition.ProjectName)
	//nolint:gosec // G306: provenance is published with the release
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return "", fmt.Errorf("failed to write provenance file: %w", err)
	}
	return path, nil
}

// digestFile computes SHA-256 and SHA-512 in a single read
func digestFile(filePath string) (string, string, int64, error) {
	//nolint:gosec // G304: filePath is a release archive produced by this tool
	f, err := os.Open(filePath)
	if err != nil {
		return "", "", 0, err
	}
	//nolint:errcheck // Defer close
	defer f.Close()

	h256, h512 := sha256.New(), sha512.New()
	size, err := io.Copy(io.MultiWriter(h256, h512), f)
	if err != nil {
		return "", "", 0, err
	}
	return sum(h256), sum(h512), size, nil
}

func sum(h hash.Hash) string {
	return hex.EncodeToString(h.Sum(nil))
}
