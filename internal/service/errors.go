package service

import (
	"errors"
	"fmt"

	"example.com/ecoguard/internal/repository"
)

// Sentinel errors. Use errors.Is to classify anything the service returns.
var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrConflict           = errors.New("conflict")
)

// ValidationError carries a message fit for the client
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func validationf(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError names the missing resource
type NotFoundError struct {
	Resource string
	ID       interface{}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// notFoundOr converts a repository miss into a NotFoundError and leaves other errors alone
func notFoundOr(err error, resource string, id interface{}) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return &NotFoundError{Resource: resource, ID: id}
	case errors.Is(err, repository.ErrDuplicate):
		return fmt.Errorf("%s %v: %w", resource, id, ErrConflict)
	}
	return err
}
