package domain

import (
	"errors"
	"strings"
)

var (
	ErrListingNotFound        = errors.New("listing not found")
	ErrInvalidListingData     = errors.New("invalid listing data")
	ErrDuplicateID            = errors.New("listing id already exists")
	ErrLocationUnavailable    = errors.New("location unavailable")
	ErrPersistenceUnavailable = errors.New("persistence unavailable")
)

// ValidationError lists the fields that failed validation.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid listing data: " + strings.Join(e.Fields, ", ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidListingData
}

func (e *ValidationError) Add(field string) {
	e.Fields = append(e.Fields, field)
}

// Err returns nil when no field was recorded.
func (e *ValidationError) Err() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
