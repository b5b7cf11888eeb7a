package orchestrators

import (
	"errors"
	"fmt"

	"github.com/knes1/elktail-release/internal/domain/entities"
)

// Stage names the pipeline step an error came from
type Stage string

// Pipeline stages
const (
	StageCompile    Stage = "compile"
	StageArchive    Stage = "archive"
	StageChecksum   Stage = "checksum"
	StageSign       Stage = "sign"
	StageProvenance Stage = "provenance"
)

var (
	// ErrOutputDir is returned when the output directory cannot be created
	ErrOutputDir = errors.New("cannot prepare output directory")

	// ErrTargetsFailed is returned when at least one target did not produce its archive
	ErrTargetsFailed = errors.New("one or more release targets failed")
)

// StageError ties a failure to the stage and target it happened in
type StageError struct {
	Stage  Stage
	Target entities.BuildTarget
	Err    error
}

func (e *StageError) Error() string {
	if e.Target.OS == "" {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Target.Platform(), e.Err)
}

// Unwrap returns the underlying error
func (e *StageError) Unwrap() error {
	return e.Err
}
