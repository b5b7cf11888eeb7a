package entities

import (
	"fmt"
	"strings"
)

// ArchiveFormat selects the container a binary is packaged into
type ArchiveFormat string

// Supported archive formats
const (
	FormatZip   ArchiveFormat = "zip"
	FormatTarGz ArchiveFormat = "tar.gz"
)

// Valid reports whether the format is one we know how to write
func (f ArchiveFormat) Valid() bool {
	return f == FormatZip || f == FormatTarGz
}

// Extension returns the file extension without the leading dot
func (f ArchiveFormat) Extension() string {
	return string(f)
}

// ParseArchiveFormat normalizes user input ("tgz", ".tar.gz", "ZIP") into an ArchiveFormat
func ParseArchiveFormat(s string) (ArchiveFormat, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".") {
	case "zip":
		return FormatZip, nil
	case "tar.gz", "tgz":
		return FormatTarGz, nil
	default:
		return "", fmt.Errorf("unsupported archive format %q", s)
	}
}

// BuildTarget describes one release artifact: where it runs and how it is packaged.
// Values are treated as immutable once constructed.
type BuildTarget struct {
	OS     string
	Arch   string
	Format ArchiveFormat
	Suffix string
}

// Platform returns the Go-style os/arch pair
func (t BuildTarget) Platform() string {
	return t.OS + "/" + t.Arch
}

// ID returns a filesystem-safe identifier unique per os, arch and suffix
func (t BuildTarget) ID() string {
	return t.OS + "_" + t.Arch + t.Suffix
}

// BinaryName returns the compiled binary's file name for this target.
// Windows binaries carry the .exe extension, all others have none.
func (t BuildTarget) BinaryName(project string) string {
	if t.OS == "windows" {
		return project + ".exe"
	}
	return project
}

// ArchiveName returns the archive file name, e.g. elktail_linux_amd64.tar.gz
func (t BuildTarget) ArchiveName(project string) string {
	return project + t.Suffix + "." + t.Format.Extension()
}

// Validate checks that the target can be built and packaged
func (t BuildTarget) Validate() error {
	if strings.TrimSpace(t.OS) == "" {
		return fmt.Errorf("target os is required")
	}
	if strings.TrimSpace(t.Arch) == "" {
		return fmt.Errorf("target %s: arch is required", t.OS)
	}
	if !t.Format.Valid() {
		return fmt.Errorf("target %s: unsupported archive format %q", t.Platform(), t.Format)
	}
	if strings.ContainsAny(t.Suffix, `/\`) {
		return fmt.Errorf("target %s: suffix must not contain path separators", t.Platform())
	}
	return nil
}

// String implements fmt.Stringer
func (t BuildTarget) String() string {
	return fmt.Sprintf("%s (%s)", t.Platform(), t.Format)
}
