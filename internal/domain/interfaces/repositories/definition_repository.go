// Package repositories defines interfaces for data access layers.
package repositories

import (
	"context"

	"github.com/knes1/elktail-release/internal/domain/entities"
)

// DefinitionRepository provides the release definition to build from
type DefinitionRepository interface {
	// GetDefinition loads the release definition
	GetDefinition(ctx context.Context) (*entities.ReleaseDefinition, error)
}
