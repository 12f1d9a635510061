package api

import (
	"errors"
	"net/http"

	"heredity/internal/executor"
	"heredity/internal/heredity"
	"heredity/internal/storage"
)

// statusForError maps domain errors onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, heredity.ErrInvalidPedigree),
		errors.Is(err, heredity.ErrEmptyPopulation),
		errors.Is(err, heredity.ErrPopulationTooLarge):
		return http.StatusBadRequest
	case errors.Is(err, heredity.ErrDivisionUndefined):
		return http.StatusUnprocessableEntity
	case errors.Is(err, executor.ErrRunInProgress),
		errors.Is(err, executor.ErrRunExists):
		return http.StatusConflict
	case errors.Is(err, storage.ErrRunNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
