package main

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

	"github.com/knes1/elktail-release/internal/testutils"
)

// runCLI executes a fresh root command and captures stdout and stderr
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	a := newApp()
	cmd := a.rootCmd()
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := a.execute(context.Background(), cmd)
	return stdout.String(), stderr.String(), err
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestCLI_Version(t *testing.T) {
	out, _, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Equal(t, Version+"\n", out)
}

func TestCLI_Help(t *testing.T) {
	for _, sub := range []string{"", "build", "targets", "verify", "version"} {
		t.Run("help "+sub, func(t *testing.T) {
			args := []string{"--help"}
			if sub != "" {
				args = []string{sub, "--help"}
			}
			out, _, err := runCLI(t, args...)
			require.NoError(t, err)
			assert.Contains(t, out, "Usage:")
		})
	}
}

func TestCLI_RejectsArguments(t *testing.T) {
	_, _, err := runCLI(t, "build", "extra")
	assert.Error(t, err)
}

func TestCLI_Build_AllTargets(t *testing.T) {
	stub := testutils.StubCompiler(t)
	outDir := filepath.Join(t.TempDir(), "release")

	out, _, err := runCLI(t, "build", "--go", stub, "--output-dir", outDir)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{
		"elktail_osx.zip",
		"elktail_linux_amd64.tar.gz",
		"elktail_win.zip",
		"SHA256SUMS",
	}, listDir(t, outDir))
	assert.Contains(t, out, "3/3 targets packaged")
}

func TestCLI_NoSubcommandBuildsDefaults(t *testing.T) {
	stub := testutils.StubCompiler(t)
	outDir := filepath.Join(t.TempDir(), "release")
	t.Setenv("ELKTAIL_RELEASE_GO", stub)
	t.Setenv("ELKTAIL_RELEASE_OUTPUT_DIR", outDir)

	out, _, err := runCLI(t)
	require.NoError(t, err)
	assert.Contains(t, out, "3/3 targets packaged")
	assert.FileExists(t, filepath.Join(outDir, "elktail_linux_amd64.tar.gz"))
}

func TestCLI_Build_FailingTargetExitsNonZero(t *testing.T) {
	stub := testutils.StubCompiler(t, "windows")
	outDir := filepath.Join(t.TempDir(), "release")

	out, _, err := runCLI(t, "build", "--go", stub, "--output-dir", outDir)
	require.Error(t, err)

	assert.Contains(t, out, "2/3 targets packaged")
	assert.Contains(t, out, "FAILED  windows/amd64")
	assert.NoFileExists(t, filepath.Join(outDir, "elktail_win.zip"))
	assert.FileExists(t, filepath.Join(outDir, "elktail_osx.zip"))
	assert.FileExists(t, filepath.Join(outDir, "elktail_linux_amd64.tar.gz"))
}

func TestCLI_Build_Only(t *testing.T) {
	stub := testutils.StubCompiler(t)
	outDir := filepath.Join(t.TempDir(), "release")

	_, _, err := runCLI(t, "build", "--go", stub, "--output-dir", outDir, "--only", "linux", "--no-checksums")
	require.NoError(t, err)
	assert.Equal(t, []string{"elktail_linux_amd64.tar.gz"}, listDir(t, outDir))
}

func TestCLI_Build_Provenance(t *testing.T) {
	stub := testutils.StubCompiler(t)
	outDir := filepath.Join(t.TempDir(), "release")

	out, _, err := runCLI(t, "build", "--go", stub, "--output-dir", outDir, "--provenance")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(outDir, "elktail.intoto.json"))
	assert.Contains(t, out, "provenance: ")

	_, _, err = runCLI(t, "verify", "--output-dir", outDir)
	require.NoError(t, err, "provenance statements are not counted as archives")
}

func TestCLI_Build_OnlyFromEnvironment(t *testing.T) {
	stub := testutils.StubCompiler(t)
	outDir := filepath.Join(t.TempDir(), "release")
	t.Setenv("ELKTAIL_RELEASE_ONLY", "linux,windows")

	_, _, err := runCLI(t, "build", "--go", stub, "--output-dir", outDir, "--no-checksums")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"elktail_linux_amd64.tar.gz", "elktail_win.zip"}, listDir(t, outDir))
}

func TestCLI_FailedBuildWritesLogFile(t *testing.T) {
	stub := testutils.StubCompiler(t, "darwin", "linux", "windows")
	logFile := filepath.Join(t.TempDir(), "release.log")

	a := newApp()
	cmd := a.rootCmd()
	cmd.SetArgs([]string{"--log-file", logFile, "build", "--go", stub, "--output-dir", t.TempDir()})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	require.Error(t, a.execute(context.Background(), cmd))
	require.NotNil(t, a.logger)

	//nolint:gosec // G304: test log file
	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Target failed")
	assert.Contains(t, string(data), "Release incomplete")
}

func TestCLI_Build_OnlyUnknownTarget(t *testing.T) {
	stub := testutils.StubCompiler(t)

	_, _, err := runCLI(t, "build", "--go", stub, "--output-dir", t.TempDir(), "--only", "plan9")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no target matches "plan9"`)
}

func TestCLI_Build_ExportPublicKeyWithoutSigning(t *testing.T) {
	stub := testutils.StubCompiler(t)

	_, _, err := runCLI(t, "build", "--go", stub, "--output-dir", t.TempDir(), "--export-public-key", filepath.Join(t.TempDir(), "k.asc"))
	assert.ErrorContains(t, err, "requires a signing key")
}

func TestCLI_Build_MissingConfig(t *testing.T) {
	_, _, err := runCLI(t, "--config", filepath.Join(t.TempDir(), "missing.yml"), "build")
	assert.Error(t, err)
}

func TestCLI_Targets(t *testing.T) {
	out, _, err := runCLI(t, "targets")
	require.NoError(t, err)

	assert.Contains(t, out, "Release targets for elktail (3 total)")
	for _, want := range []string{"darwin/amd64", "linux/amd64", "windows/amd64", "elktail.exe", "elktail_osx.zip", "elktail_linux_amd64.tar.gz", "elktail_win.zip"} {
		assert.Contains(t, out, want)
	}
}

func TestCLI_Targets_FromConfig(t *testing.T) {
	config := filepath.Join(t.TempDir(), "release.yml")
	require.NoError(t, os.WriteFile(config, []byte(`project: elktail
targets:
  - os: linux
    arch: arm64
    format: tar.gz
    suffix: _linux_arm64
`), 0600))

	out, _, err := runCLI(t, "--config", config, "targets")
	require.NoError(t, err)
	assert.Contains(t, out, "(1 total)")
	assert.Contains(t, out, "elktail_linux_arm64.tar.gz")
	assert.NotContains(t, out, "elktail_osx.zip")
}

func TestCLI_Verify(t *testing.T) {
	stub := testutils.StubCompiler(t)
	outDir := filepath.Join(t.TempDir(), "release")
	_, _, err := runCLI(t, "build", "--go", stub, "--output-dir", outDir)
	require.NoError(t, err)

	t.Run("intact release", func(t *testing.T) {
		out, _, err := runCLI(t, "verify", "--output-dir", outDir)
		require.NoError(t, err)
		assert.Contains(t, out, "✅ All 3 archives present")
		assert.Contains(t, out, "✅ Checksum elktail_win.zip")
	})

	t.Run("tampered archive", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(outDir, "elktail_win.zip"), []byte("tampered"), 0600))

		out, _, err := runCLI(t, "verify", "--output-dir", outDir)
		require.Error(t, err)
		assert.Contains(t, out, "❌ Checksum elktail_win.zip")
	})

	t.Run("missing archive", func(t *testing.T) {
		require.NoError(t, os.Remove(filepath.Join(outDir, "elktail_osx.zip")))

		out, _, err := runCLI(t, "verify", "--output-dir", outDir)
		require.Error(t, err)
		assert.Contains(t, out, "elktail_osx.zip")
	})
}

func TestCLI_Verify_MissingDirectory(t *testing.T) {
	_, _, err := runCLI(t, "verify", "--output-dir", filepath.Join(t.TempDir(), "nope"))
	assert.ErrorContains(t, err, "failed to read release directory")
}

func TestCLI_SignAndVerify(t *testing.T) {
	stub := testutils.StubCompiler(t)
	outDir := filepath.Join(t.TempDir(), "release")
	keyDir := t.TempDir()

	entity, err := openpgp.NewEntity("Release Bot", "test", "release@example.com", &packet.Config{
		Algorithm: packet.PubKeyAlgoEdDSA,
	})
	require.NoError(t, err)

	var secret bytes.Buffer
	w, err := armor.Encode(&secret, openpgp.PrivateKeyType, nil)
	require.NoError(t, err)
	require.NoError(t, entity.SerializePrivate(w, nil))
	require.NoError(t, w.Close())
	secretPath := filepath.Join(keyDir, "release.key.asc")
	require.NoError(t, os.WriteFile(secretPath, secret.Bytes(), 0600))

	publicPath := filepath.Join(keyDir, "release.pub.asc")

	_, _, err = runCLI(t, "build", "--go", stub, "--output-dir", outDir, "--sign-key", secretPath, "--export-public-key", publicPath)
	require.NoError(t, err)
	assert.FileExists(t, publicPath)
	assert.FileExists(t, filepath.Join(outDir, "elktail_osx.zip.asc"))
	assert.FileExists(t, filepath.Join(outDir, "SHA256SUMS.asc"))

	out, _, err := runCLI(t, "verify", "--output-dir", outDir, "--public-key", publicPath)
	require.NoError(t, err)
	assert.Contains(t, out, "✅ Signature elktail_linux_amd64.tar.gz")
	assert.Contains(t, out, "✅ Signature SHA256SUMS")

	require.NoError(t, os.WriteFile(filepath.Join(outDir, "elktail_osx.zip.asc"), []byte("garbage"), 0600))
	out, _, err = runCLI(t, "verify", "--output-dir", outDir, "--public-key", publicPath)
	require.Error(t, err)
	assert.Contains(t, out, "❌ Signature elktail_osx.zip")
}
