package gateways

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSigningKey(t *testing.T, dir string) string {
	t.Helper()
	entity, err := openpgp.NewEntity("Release Bot", "", "release@example.com", &packet.Config{
		Algorithm: packet.PubKeyAlgoEdDSA,
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	w, err := armor.Encode(&buf, openpgp.PrivateKeyType, nil)
	require.NoError(t, err)
	require.NoError(t, entity.SerializePrivate(w, nil))
	require.NoError(t, w.Close())

	path := filepath.Join(dir, "release.key.asc")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0600))
	return path
}

func TestGPGGateway_SignAndVerify(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "elktail_linux_amd64.tar.gz")
	require.NoError(t, os.WriteFile(archive, []byte("archive"), 0600))

	signer, err := NewGPGSigner(writeSigningKey(t, dir), nil)
	require.NoError(t, err)
	assert.Len(t, signer.Fingerprint(), 40)

	sigPath, err := signer.SignFile(context.Background(), archive)
	require.NoError(t, err)
	assert.Equal(t, archive+".asc", sigPath)

	publicKey := filepath.Join(dir, "release.pub.asc")
	require.NoError(t, signer.ExportPublicKey(publicKey))

	verifier := NewGPGVerifier()
	require.NoError(t, verifier.ImportGPGKeyFromFile(publicKey))
	assert.Equal(t, 1, verifier.GetKeyringSize())
	require.NoError(t, verifier.VerifyGPGSignatureFromFile(archive, sigPath))

	require.NoError(t, os.WriteFile(archive, []byte("tampered"), 0600))
	assert.ErrorContains(t, verifier.VerifyGPGSignatureFromFile(archive, sigPath), "GPG signature verification failed")
}

func TestGPGGateway_SignFileCanceled(t *testing.T) {
	dir := t.TempDir()
	signer, err := NewGPGSigner(writeSigningKey(t, dir), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = signer.SignFile(ctx, filepath.Join(dir, "missing"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGPGGateway_MissingKey(t *testing.T) {
	_, err := NewGPGSigner(filepath.Join(t.TempDir(), "nope.asc"), nil)
	assert.ErrorContains(t, err, "failed to load signing key")

	err = NewGPGVerifier().ImportGPGKeyFromFile(filepath.Join(t.TempDir(), "nope.asc"))
	assert.ErrorContains(t, err, "failed to import GPG key from file")
}
