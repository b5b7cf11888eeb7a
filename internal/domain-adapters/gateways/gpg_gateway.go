package gateways

import (
	"context"
	"fmt"

	"github.com/knes1/elktail-release/internal/external-adapters/gpg"
)

// gpgSigner wraps the external GPG adapter to implement the domain Signer gateway
type gpgSigner struct {
	signer *gpg.Signer
}

// NewGPGSigner loads the signing key at keyPath
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewGPGSigner(keyPath string, passphrase []byte) (*gpgSigner, error) {
	signer, err := gpg.NewSignerFromFile(keyPath, passphrase)
	if err != nil {
		return nil, fmt.Errorf("failed to load signing key: %w", err)
	}
	return &gpgSigner{signer: signer}, nil
}

// SignFile writes a detached armored signature next to filePath
func (g *gpgSigner) SignFile(ctx context.Context, filePath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	sigPath, err := g.signer.SignFile(filePath)
	if err != nil {
		return "", fmt.Errorf("GPG signing failed: %w", err)
	}
	return sigPath, nil
}

// Fingerprint identifies the key signatures are made with
func (g *gpgSigner) Fingerprint() string {
	return g.signer.Fingerprint()
}

// ExportPublicKey writes the armored public key to path
func (g *gpgSigner) ExportPublicKey(path string) error {
	return g.signer.WritePublicKey(path)
}

// gpgVerifier wraps the external GPG adapter for signature checks
type gpgVerifier struct {
	verifier *gpg.Verifier
}

// NewGPGVerifier creates a new GPG verifier gateway
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewGPGVerifier() *gpgVerifier {
	return &gpgVerifier{
		verifier: gpg.NewVerifier(),
	}
}

// ImportGPGKeyFromFile imports a GPG key from a local file
func (g *gpgVerifier) ImportGPGKeyFromFile(keyPath string) error {
	if err := g.verifier.ImportKeyFromFile(keyPath); err != nil {
		return fmt.Errorf("failed to import GPG key from file: %w", err)
	}
	return nil
}

// VerifyGPGSignatureFromFile verifies a detached GPG signature from a local file
func (g *gpgVerifier) VerifyGPGSignatureFromFile(filePath, sigPath string) error {
	if err := g.verifier.VerifySignatureFromFile(filePath, sigPath); err != nil {
		return fmt.Errorf("GPG signature verification failed: %w", err)
	}
	return nil
}

// GetKeyringSize returns the number of keys loaded
func (g *gpgVerifier) GetKeyringSize() int {
	return g.verifier.GetKeyringSize()
}
