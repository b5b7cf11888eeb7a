package yaml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knes1/elktail-release/internal/domain/entities"
)

func TestDefinitionParser_Parse_Valid(t *testing.T) {
	parser := NewDefinitionParser()
	yamlData := []byte(`project: elktail
entry_point: ./cmd/elktail
output_dir: dist
build:
  trimpath: true
  ldflags: "-s -w"
targets:
  - os: darwin
    arch: arm64
    format: zip
    suffix: _osx_arm64
  - os: linux
    arch: arm64
    format: tgz
signing:
  enabled: true
  key_file: keys/release.asc
`)

	def, err := parser.Parse(yamlData)
	require.NoError(t, err)

	assert.Equal(t, "elktail", def.ProjectName)
	assert.Equal(t, "./cmd/elktail", def.EntryPoint)
	assert.Equal(t, "dist", def.OutputDir)
	assert.True(t, def.Build.Trimpath)
	assert.Equal(t, "-s -w", def.Build.LDFlags)
	assert.False(t, def.Build.CGOEnabled)
	assert.True(t, def.Signing.Enabled)
	assert.Equal(t, "keys/release.asc", def.Signing.KeyFile)

	require.Len(t, def.Targets(), 2)
	assert.Equal(t, entities.BuildTarget{OS: "darwin", Arch: "arm64", Format: entities.FormatZip, Suffix: "_osx_arm64"}, def.Targets()[0])
	assert.Equal(t, entities.BuildTarget{OS: "linux", Arch: "arm64", Format: entities.FormatTarGz, Suffix: "_linux_arm64"}, def.Targets()[1])
}

func TestDefinitionParser_Parse_Defaults(t *testing.T) {
	def, err := NewDefinitionParser().Parse([]byte("project: elktail\n"))
	require.NoError(t, err)

	assert.Equal(t, entities.DefaultTargets(), def.Targets())
	assert.Equal(t, entities.DefaultOutputDir, def.OutputDir)
	assert.Equal(t, entities.DefaultEntryPoint, def.EntryPoint)
}

func TestDefinitionParser_Parse_EmptyDocument(t *testing.T) {
	def, err := NewDefinitionParser().Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, entities.DefaultProjectName, def.ProjectName)
}

func TestDefinitionParser_Parse_FormatDefaults(t *testing.T) {
	def, err := NewDefinitionParser().Parse([]byte(`targets:
  - {os: windows, arch: arm64}
  - {os: freebsd, arch: amd64}
`))
	require.NoError(t, err)

	targets := def.Targets()
	assert.Equal(t, entities.FormatZip, targets[0].Format)
	assert.Equal(t, entities.FormatTarGz, targets[1].Format)
}

func TestDefinitionParser_Parse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"invalid yaml", "project: test\n  invalid: [broken yaml\n", "failed to parse YAML"},
		{"bad format", "targets:\n  - {os: linux, arch: amd64, format: rar}\n", "target 1: unsupported archive format"},
		{"missing arch", "targets:\n  - {os: linux, format: zip}\n", "arch is required"},
		{"duplicate names", "targets:\n  - {os: linux, arch: amd64, suffix: _x}\n  - {os: plan9, arch: amd64, format: tar.gz, suffix: _x}\n", "duplicate archive name"},
		{"signing without key", "signing:\n  enabled: true\n", "no key file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDefinitionParser().Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
