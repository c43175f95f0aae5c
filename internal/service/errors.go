package service

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Error taxonomy surfaced to handlers. Wrap with fmt.Errorf("...: %w") to add context.
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict")
)

func validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// lookupErr turns a repository lookup failure into the taxonomy: missing rows become "<entity> not found".
func lookupErr(entity string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %w", entity, ErrNotFound)
	}
	return fmt.Errorf("database error: %w", err)
}

// refErr is lookupErr for ids that arrived in a request body: a dangling reference is a validation failure.
func refErr(entity string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return validationf("%s does not exist", entity)
	}
	return fmt.Errorf("database error: %w", err)
}

func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
