package yaml

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/knes1/elktail-release/internal/domain/entities"
)

// DefaultDefinitionFile is looked up in the working directory when no path is configured
const DefaultDefinitionFile = "release.yml"

// DefinitionRepository implements repositories.DefinitionRepository using a YAML file
type DefinitionRepository struct {
	path     string
	required bool
	parser   *DefinitionParser
}

// NewDefinitionRepository creates a repository reading path.
// When required is false a missing file yields the built-in definition.
func NewDefinitionRepository(path string, required bool) *DefinitionRepository {
	if path == "" {
		path = DefaultDefinitionFile
	}
	return &DefinitionRepository{
		path:     path,
		required: required,
		parser:   NewDefinitionParser(),
	}
}

// GetDefinition loads the release definition
func (r *DefinitionRepository) GetDefinition(_ context.Context) (*entities.ReleaseDefinition, error) {
	if _, err := os.Stat(r.path); errors.Is(err, fs.ErrNotExist) && !r.required {
		return entities.DefaultDefinition(), nil
	}

	return r.parser.ParseFile(r.path)
}

// Path returns the file the repository reads
func (r *DefinitionRepository) Path() string {
	return r.path
}
