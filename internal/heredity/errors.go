package heredity

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPedigree is returned when the pedigree structure cannot be used
	// for inference: unknown parents, half-specified parentage, duplicate ids or
	// an ancestry cycle.
	ErrInvalidPedigree = errors.New("invalid pedigree")

	// ErrDivisionUndefined is returned by normalization when an individual has
	// accumulated zero probability mass, which only happens when the evidence
	// rules out every world.
	ErrDivisionUndefined = errors.New("division undefined: zero probability mass")

	ErrEmptyPopulation    = errors.New("population is empty")
	ErrPopulationTooLarge = errors.New("population too large for exact enumeration")
	ErrInvalidCPT         = errors.New("invalid conditional probability table")
)

// PedigreeError aggregates every structural issue found while building a
// Population. It unwraps to ErrInvalidPedigree.
type PedigreeError struct {
	Issues []string
}

func (e *PedigreeError) Error() string {
	if len(e.Issues) == 0 {
		return ErrInvalidPedigree.Error()
	}
	if len(e.Issues) == 1 {
		return fmt.Sprintf("%s: %s", ErrInvalidPedigree, e.Issues[0])
	}
	return fmt.Sprintf("%s: %d issues, first: %s", ErrInvalidPedigree, len(e.Issues), e.Issues[0])
}

func (e *PedigreeError) Unwrap() error {
	return ErrInvalidPedigree
}
