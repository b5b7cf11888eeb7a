package gpg

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
)

// SignatureExtension is appended to a file name to form its detached signature path
const SignatureExtension = ".asc"

// Signer produces armored detached signatures with a single private key
type Signer struct {
	entity *openpgp.Entity
	config *packet.Config
}

// NewSignerFromFile loads an armored secret key and decrypts it with passphrase if needed
func NewSignerFromFile(keyPath string, passphrase []byte) (*Signer, error) {
	//nolint:gosec // G304: keyPath is the configured release signing key
	f, err := os.Open(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open signing key: %w", err)
	}
	//nolint:errcheck // Defer close
	defer f.Close()

	return NewSigner(f, passphrase)
}

// NewSigner reads an armored keyring and picks the first entity holding a private key
func NewSigner(r io.Reader, passphrase []byte) (*Signer, error) {
	keyring, err := openpgp.ReadArmoredKeyRing(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read signing key: %w", err)
	}

	var entity *openpgp.Entity
	for _, e := range keyring {
		if e.PrivateKey != nil {
			entity = e
			break
		}
	}
	if entity == nil {
		return nil, fmt.Errorf("no private key found in keyring")
	}

	if err := decryptEntity(entity, passphrase); err != nil {
		return nil, err
	}

	return &Signer{entity: entity, config: &packet.Config{}}, nil
}

// NewSignerFromEntity wraps an entity that already holds a decrypted private key
func NewSignerFromEntity(entity *openpgp.Entity) (*Signer, error) {
	if entity == nil || entity.PrivateKey == nil {
		return nil, fmt.Errorf("no private key found in keyring")
	}
	if entity.PrivateKey.Encrypted {
		return nil, fmt.Errorf("private key is encrypted")
	}
	return &Signer{entity: entity, config: &packet.Config{}}, nil
}

func decryptEntity(entity *openpgp.Entity, passphrase []byte) error {
	if entity.PrivateKey.Encrypted {
		if len(passphrase) == 0 {
			return fmt.Errorf("signing key is encrypted and no passphrase was given")
		}
		if err := entity.PrivateKey.Decrypt(passphrase); err != nil {
			return fmt.Errorf("failed to decrypt signing key: %w", err)
		}
	}
	for _, sub := range entity.Subkeys {
		if sub.PrivateKey != nil && sub.PrivateKey.Encrypted {
			if err := sub.PrivateKey.Decrypt(passphrase); err != nil {
				return fmt.Errorf("failed to decrypt signing subkey: %w", err)
			}
		}
	}
	return nil
}

// SignFile writes filePath.asc next to filePath and returns its path
func (s *Signer) SignFile(filePath string) (string, error) {
	//nolint:gosec // G304: filePath is a release artifact produced by this tool
	data, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open file to sign: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer data.Close()

	var sig bytes.Buffer
	if err := openpgp.ArmoredDetachSign(&sig, s.entity, data, s.config); err != nil {
		return "", fmt.Errorf("failed to sign %s: %w", filePath, err)
	}

	sigPath := filePath + SignatureExtension
	if err := os.WriteFile(sigPath, sig.Bytes(), 0600); err != nil {
		return "", fmt.Errorf("failed to write signature: %w", err)
	}
	return sigPath, nil
}

// Fingerprint returns the signing key fingerprint in upper-case hex
func (s *Signer) Fingerprint() string {
	return fmt.Sprintf("%X", s.entity.PrimaryKey.Fingerprint)
}

// WritePublicKey exports the armored public key so users can verify the release
func (s *Signer) WritePublicKey(path string) error {
	var buf bytes.Buffer
	w, err := armor.Encode(&buf, openpgp.PublicKeyType, nil)
	if err != nil {
		return fmt.Errorf("failed to encode public key: %w", err)
	}
	if err := s.entity.Serialize(w); err != nil {
		return fmt.Errorf("failed to serialize public key: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to encode public key: %w", err)
	}
	//nolint:gosec // G306: public keys are meant to be world readable
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write public key: %w", err)
	}
	return nil
}
