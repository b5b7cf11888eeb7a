// Package services holds domain logic that needs no external adapters.
package services

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/knes1/elktail-release/internal/domain/entities"
)

// ReleaseStatus represents the completeness of a release directory
type ReleaseStatus string

// Release validation statuses
const (
	StatusReady              ReleaseStatus = "ready"
	StatusNoArtifacts        ReleaseStatus = "no_artifacts"
	StatusMissingArchives    ReleaseStatus = "missing_archives"
	StatusUnexpectedArchives ReleaseStatus = "unexpected_archives"
)

// ReleaseValidation contains the validation result for a release directory
type ReleaseValidation struct {
	Status             ReleaseStatus
	ExpectedArchives   []string
	AvailableArchives  []string
	MissingArchives    []string
	UnexpectedArchives []string
}

// IsReady returns true if every expected archive is present and nothing else is
func (rv *ReleaseValidation) IsReady() bool {
	return rv.Status == StatusReady
}

// ErrorMessage returns a human-readable error message if not ready
func (rv *ReleaseValidation) ErrorMessage() string {
	switch rv.Status {
	case StatusReady:
		return ""
	case StatusNoArtifacts:
		return fmt.Sprintf("No archives found (expected: %d)", len(rv.ExpectedArchives))
	case StatusMissingArchives:
		msg := fmt.Sprintf("Missing archives (expected: %d, have: %d)\n   Missing: %s",
			len(rv.ExpectedArchives), len(rv.AvailableArchives), strings.Join(rv.MissingArchives, ", "))
		if len(rv.UnexpectedArchives) > 0 {
			msg += fmt.Sprintf("\n   Unexpected: %s", strings.Join(rv.UnexpectedArchives, ", "))
		}
		return msg
	case StatusUnexpectedArchives:
		return fmt.Sprintf("Unexpected archives found: %s", strings.Join(rv.UnexpectedArchives, ", "))
	default:
		return "Unknown status"
	}
}

// ReleaseService handles target selection and release validation logic
type ReleaseService struct{}

// NewReleaseService creates a new release service
func NewReleaseService() *ReleaseService {
	return &ReleaseService{}
}

// ValidateRelease compares the archives a definition should produce with the files found.
// Only .zip and .tar.gz names count as archives; checksums and signatures are ignored.
func (s *ReleaseService) ValidateRelease(def *entities.ReleaseDefinition, filePaths []string) *ReleaseValidation {
	validation := &ReleaseValidation{
		ExpectedArchives: def.ArchiveNames(),
	}
	sort.Strings(validation.ExpectedArchives)

	for _, path := range filePaths {
		name := filepath.Base(path)
		if isArchiveName(name) {
			validation.AvailableArchives = append(validation.AvailableArchives, name)
		}
	}
	sort.Strings(validation.AvailableArchives)

	validation.MissingArchives = difference(validation.ExpectedArchives, validation.AvailableArchives)
	validation.UnexpectedArchives = difference(validation.AvailableArchives, validation.ExpectedArchives)

	switch {
	case len(validation.AvailableArchives) == 0:
		validation.Status = StatusNoArtifacts
	case len(validation.MissingArchives) > 0:
		validation.Status = StatusMissingArchives
	case len(validation.UnexpectedArchives) > 0:
		validation.Status = StatusUnexpectedArchives
	default:
		validation.Status = StatusReady
	}

	return validation
}

// SelectTargets narrows a definition to the targets matching any selector.
// A selector matches an OS ("linux"), a platform ("linux/amd64") or a suffix ("_win").
// No selectors keeps every target.
func (s *ReleaseService) SelectTargets(def *entities.ReleaseDefinition, selectors []string) (*entities.ReleaseDefinition, error) {
	selectors = splitSelectors(selectors)
	if len(selectors) == 0 {
		return def, nil
	}

	var selected []entities.BuildTarget
	matched := make(map[string]bool, len(selectors))
	for _, target := range def.Targets() {
		hit := false
		for _, sel := range selectors {
			if matchesTarget(target, sel) {
				matched[sel] = true
				hit = true
			}
		}
		if hit {
			selected = append(selected, target)
		}
	}

	for _, sel := range selectors {
		if !matched[sel] {
			return nil, fmt.Errorf("no target matches %q", sel)
		}
	}

	return def.WithTargets(selected), nil
}

// splitSelectors accepts comma or space separated lists inside each value,
// as environment variables arrive as a single string
func splitSelectors(values []string) []string {
	var out []string
	for _, v := range values {
		out = append(out, strings.FieldsFunc(v, func(r rune) bool {
			return r == ',' || unicode.IsSpace(r)
		})...)
	}
	return out
}

func matchesTarget(target entities.BuildTarget, selector string) bool {
	sel := strings.TrimSpace(selector)
	return sel == target.OS ||
		sel == target.Platform() ||
		strings.ReplaceAll(sel, "-", "/") == target.Platform() ||
		(target.Suffix != "" && sel == target.Suffix)
}

func isArchiveName(name string) bool {
	return strings.HasSuffix(name, "."+entities.FormatZip.Extension()) ||
		strings.HasSuffix(name, "."+entities.FormatTarGz.Extension())
}

// difference returns the elements of a that are not in b, keeping the order of a
func difference(a, b []string) []string {
	in := make(map[string]bool, len(b))
	for _, v := range b {
		in[v] = true
	}
	var out []string
	for _, v := range a {
		if !in[v] {
			out = append(out, v)
		}
	}
	return out
}
