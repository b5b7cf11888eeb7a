package gateways

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/knes1/elktail-release/internal/domain/entities"
)

// Packager handles packaging built binaries into distributable archives
type Packager struct{}

// NewPackager creates a new packager
func NewPackager() *Packager {
	return &Packager{}
}

// PackageBinary writes binaryPath into archivePath using the target's archive format.
// The binary is stored at the archive root as nameInArchive.
// Returns a new artifact pointing to the archive.
func (p *Packager) PackageBinary(
	ctx context.Context,
	target entities.BuildTarget,
	binaryPath, nameInArchive, archivePath string,
) (*entities.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(binaryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat binary: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("binary %s is not a regular file", binaryPath)
	}

	switch target.Format {
	case entities.FormatZip:
		err = p.createZipFromFile(binaryPath, archivePath, nameInArchive)
	case entities.FormatTarGz:
		err = p.createTarballFromFile(binaryPath, archivePath, nameInArchive)
	default:
		return nil, fmt.Errorf("unsupported archive format %q", target.Format)
	}
	if err != nil {
		// Never leave a half-written archive behind
		_ = os.Remove(archivePath)
		return nil, err
	}

	return &entities.Artifact{
		Target: target,
		Name:   filepath.Base(archivePath),
		Path:   archivePath,
		Type:   entities.ArtifactTypeArchive,
	}, nil
}

// createTarballFromFile creates a gzipped tar archive from a single file
func (p *Packager) createTarballFromFile(sourceFile, tarballPath, nameInArchive string) (err error) {
	if err := os.MkdirAll(filepath.Dir(tarballPath), 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	//nolint:gosec // G304: tarballPath is constructed for package output
	outFile, err := os.Create(tarballPath)
	if err != nil {
		return fmt.Errorf("failed to create tarball file: %w", err)
	}
	defer closeInto(outFile, &err)

	gzipWriter := gzip.NewWriter(outFile)
	defer closeInto(gzipWriter, &err)

	tarWriter := tar.NewWriter(gzipWriter)
	defer closeInto(tarWriter, &err)

	//nolint:gosec // G304: sourceFile is the compiled binary for this target
	file, err := os.Open(sourceFile)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat source file: %w", err)
	}

	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return fmt.Errorf("failed to create tar header: %w", err)
	}
	header.Name = nameInArchive

	if err := tarWriter.WriteHeader(header); err != nil {
		return fmt.Errorf("failed to write tar header: %w", err)
	}

	if _, err := io.Copy(tarWriter, file); err != nil {
		return fmt.Errorf("failed to write file to tar: %w", err)
	}

	return nil
}

// createZipFromFile creates a deflated zip archive from a single file
func (p *Packager) createZipFromFile(sourceFile, zipPath, nameInArchive string) (err error) {
	if err := os.MkdirAll(filepath.Dir(zipPath), 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	//nolint:gosec // G304: zipPath is constructed for package output
	outFile, err := os.Create(zipPath)
	if err != nil {
		return fmt.Errorf("failed to create zip file: %w", err)
	}
	defer closeInto(outFile, &err)

	zipWriter := zip.NewWriter(outFile)
	defer closeInto(zipWriter, &err)

	//nolint:gosec // G304: sourceFile is the compiled binary for this target
	file, err := os.Open(sourceFile)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat source file: %w", err)
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("failed to create zip header: %w", err)
	}
	header.Name = nameInArchive
	header.Method = zip.Deflate

	writer, err := zipWriter.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("failed to write zip header: %w", err)
	}

	if _, err := io.Copy(writer, file); err != nil {
		return fmt.Errorf("failed to write file to zip: %w", err)
	}

	return nil
}

// closeInto closes c and records its error in *errp unless one is already set.
// Writers for archives flush trailers on Close, so the error matters.
func closeInto(c io.Closer, errp *error) {
	if cerr := c.Close(); cerr != nil && *errp == nil {
		*errp = fmt.Errorf("failed to finalize archive: %w", cerr)
	}
}
