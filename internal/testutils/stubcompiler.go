// Package testutils provides helpers shared by package tests.
package testutils

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// stubCompilerScript mimics "go build -o <out> <pkg>": it writes "$GOOS/$GOARCH"
// into the output path, or exits 2 when GOOS is in the failing list.
const stubCompilerScript = `#!/bin/sh
for os in %s; do
  if [ "$GOOS" = "$os" ]; then
    echo "stub: cannot build for $GOOS" >&2
    exit 2
  fi
done
out=""
while [ $# -gt 0 ]; do
  if [ "$1" = "-o" ]; then
    out="$2"
    shift
  fi
  shift
done
if [ -z "$out" ]; then
  echo "stub: missing -o" >&2
  exit 1
fi
printf '%%s/%%s' "$GOOS" "$GOARCH" > "$out"
echo "stub: built $out"
`

// StubCompiler writes an executable fake toolchain into a temp dir and returns its path.
// Builds for any OS named in failOS exit non-zero without producing a binary.
func StubCompiler(t *testing.T, failOS ...string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub compiler requires /bin/sh")
	}

	path := filepath.Join(t.TempDir(), "go")
	script := fmt.Sprintf(stubCompilerScript, strings.Join(failOS, " "))
	//nolint:gosec // G306: the stub must be executable
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("failed to write stub compiler: %v", err)
	}
	return path
}

// SilentCompiler returns a fake toolchain that exits zero without writing anything
func SilentCompiler(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub compiler requires /bin/sh")
	}

	path := filepath.Join(t.TempDir(), "go")
	//nolint:gosec // G306: the stub must be executable
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("failed to write stub compiler: %v", err)
	}
	return path
}
