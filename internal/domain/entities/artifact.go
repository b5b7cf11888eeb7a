// Package entities defines core domain models and data structures.
package entities

// ArtifactTypeArchive marks a packaged release archive
const ArtifactTypeArchive = "archive"

// Artifact represents a file produced for one build target
type Artifact struct {
	Target        BuildTarget
	Name          string
	Path          string
	Type          string
	Checksum      string // hex encoded SHA-256, empty until calculated
	SignaturePath string
}
