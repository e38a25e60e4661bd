package app

import (
	"errors"
	"fmt"
	"net/http"

	"pintopics/api/internal/pets"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func errUnauthorized(action string) *DomainError {
	return domainError(http.StatusForbidden, "UNAUTHORIZED", "Caller is not allowed to "+action, nil)
}

func errValidation(message string) *DomainError {
	return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", message, nil)
}

// asDomainError maps core errors onto the HTTP taxonomy. Errors that are
// already domain errors pass through.
func asDomainError(err error) *DomainError {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	var validationErr *pets.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return errValidation(validationErr.Message)
	case errors.Is(err, pets.ErrEmptyTerm):
		return errValidation(err.Error())
	case errors.Is(err, pets.ErrUnknownKeyword):
		return domainError(http.StatusNotFound, "NOT_FOUND", "Unknown keyword", nil)
	case errors.Is(err, pets.ErrStorageUnavailable):
		return domainError(http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "Storage is unavailable", nil)
	default:
		return domainError(http.StatusInternalServerError, "INTERNAL", "Internal error", nil)
	}
}
