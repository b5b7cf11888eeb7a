package gateways

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/knes1/elktail-release/internal/domain/entities"
)

// ChecksumFileName is the manifest written next to the archives
const ChecksumFileName = entities.ChecksumFileName

// checksumVerifier implements checksum calculation and verification using pure Go
type checksumVerifier struct{}

// NewChecksumVerifier creates a new checksum verifier
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewChecksumVerifier() *checksumVerifier {
	return &checksumVerifier{}
}

// VerifyChecksum verifies a file's SHA256 checksum
func (v *checksumVerifier) VerifyChecksum(_ context.Context, filePath, expectedSum string) error {
	actualSum, err := v.CalculateChecksum(filePath)
	if err != nil {
		return err
	}

	if !strings.EqualFold(actualSum, expectedSum) {
		return fmt.Errorf("checksum mismatch: expected %s, got %s", expectedSum, actualSum)
	}

	return nil
}

// CalculateChecksum calculates the SHA256 checksum of a file
func (v *checksumVerifier) CalculateChecksum(filePath string) (string, error) {
	//nolint:gosec // G304: File path is a release artifact produced by this tool
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash file: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// WriteChecksumFile writes dir/SHA256SUMS in the coreutils "sum  name" format,
// sorted by archive name. Artifacts without a checksum are hashed first.
func (v *checksumVerifier) WriteChecksumFile(dir string, artifacts []*entities.Artifact) (string, error) {
	sorted := append([]*entities.Artifact(nil), artifacts...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})

	var b strings.Builder
	for _, artifact := range sorted {
		if artifact.Checksum == "" {
			sum, err := v.CalculateChecksum(artifact.Path)
			if err != nil {
				return "", fmt.Errorf("checksum %s: %w", artifact.Name, err)
			}
			artifact.Checksum = sum
		}
		fmt.Fprintf(&b, "%s  %s\n", artifact.Checksum, artifact.Name)
	}

	checksumPath := filepath.Join(dir, ChecksumFileName)
	if err := os.WriteFile(checksumPath, []byte(b.String()), 0600); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", ChecksumFileName, err)
	}
	return checksumPath, nil
}

// ParseChecksumFile reads a "sum  name" manifest into a name -> sum map
func (v *checksumVerifier) ParseChecksumFile(path string) (map[string]string, error) {
	//nolint:gosec // G304: path is the manifest being verified
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open checksum file: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	sums := make(map[string]string)
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		parts := strings.Fields(text)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid checksum file format at line %d", line)
		}
		// "*name" marks binary mode in coreutils output
		sums[strings.TrimPrefix(parts[1], "*")] = parts[0]
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read checksum file: %w", err)
	}
	return sums, nil
}
