// Package yaml provides YAML-based release definition parsing and repository implementations.
package yaml

import (
	"fmt"
	"os"

	"github.com/knes1/elktail-release/internal/domain/entities"
	"gopkg.in/yaml.v3"
)

// yamlDefinition represents the raw release.yml structure
type yamlDefinition struct {
	Project    string       `yaml:"project"`
	EntryPoint string       `yaml:"entry_point"`
	OutputDir  string       `yaml:"output_dir"`
	Build      *yamlBuild   `yaml:"build"`
	Targets    []yamlTarget `yaml:"targets"`
	Signing    yamlSigning  `yaml:"signing"`
}

type yamlBuild struct {
	Trimpath   *bool  `yaml:"trimpath"`
	LDFlags    string `yaml:"ldflags"`
	CGOEnabled bool   `yaml:"cgo_enabled"`
}

type yamlTarget struct {
	OS     string `yaml:"os"`
	Arch   string `yaml:"arch"`
	Format string `yaml:"format"`
	Suffix string `yaml:"suffix"`
}

type yamlSigning struct {
	Enabled bool   `yaml:"enabled"`
	KeyFile string `yaml:"key_file"`
}

// DefinitionParser parses release.yml files
type DefinitionParser struct{}

// NewDefinitionParser creates a new YAML parser
func NewDefinitionParser() *DefinitionParser {
	return &DefinitionParser{}
}

// ParseFile parses a YAML release file into a ReleaseDefinition entity
func (p *DefinitionParser) ParseFile(filePath string) (*entities.ReleaseDefinition, error) {
	//nolint:gosec // G304: filePath is the configured release definition
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}

	return p.Parse(data)
}

// Parse parses YAML bytes into a ReleaseDefinition entity.
// Omitted fields take the built-in defaults, including the default target table.
func (p *DefinitionParser) Parse(data []byte) (*entities.ReleaseDefinition, error) {
	var yamlDef yamlDefinition
	if err := yaml.Unmarshal(data, &yamlDef); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	targets := entities.DefaultTargets()
	if len(yamlDef.Targets) > 0 {
		targets = make([]entities.BuildTarget, 0, len(yamlDef.Targets))
		for i, yt := range yamlDef.Targets {
			target, err := convertTarget(yt)
			if err != nil {
				return nil, fmt.Errorf("target %d: %w", i+1, err)
			}
			targets = append(targets, target)
		}
	}

	def := entities.NewReleaseDefinition(
		orDefault(yamlDef.Project, entities.DefaultProjectName),
		orDefault(yamlDef.EntryPoint, entities.DefaultEntryPoint),
		orDefault(yamlDef.OutputDir, entities.DefaultOutputDir),
		targets,
	)
	def.Build = convertBuild(yamlDef.Build)
	def.Signing = entities.SigningConfig{
		Enabled: yamlDef.Signing.Enabled,
		KeyFile: yamlDef.Signing.KeyFile,
	}

	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("invalid release definition: %w", err)
	}

	return def, nil
}

func convertTarget(yt yamlTarget) (entities.BuildTarget, error) {
	format := defaultFormat(yt.OS)
	if yt.Format != "" {
		parsed, err := entities.ParseArchiveFormat(yt.Format)
		if err != nil {
			return entities.BuildTarget{}, err
		}
		format = parsed
	}
	target := entities.BuildTarget{
		OS:     yt.OS,
		Arch:   yt.Arch,
		Format: format,
		Suffix: yt.Suffix,
	}
	if target.Suffix == "" {
		target.Suffix = "_" + yt.OS + "_" + yt.Arch
	}
	return target, target.Validate()
}

// defaultFormat follows platform habits: zip where users double-click, tar.gz elsewhere
func defaultFormat(goos string) entities.ArchiveFormat {
	switch goos {
	case "windows", "darwin":
		return entities.FormatZip
	default:
		return entities.FormatTarGz
	}
}

func convertBuild(yb *yamlBuild) entities.BuildFlags {
	if yb == nil {
		return entities.BuildFlags{}
	}
	flags := entities.BuildFlags{
		LDFlags:    yb.LDFlags,
		CGOEnabled: yb.CGOEnabled,
	}
	if yb.Trimpath != nil {
		flags.Trimpath = *yb.Trimpath
	}
	return flags
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
