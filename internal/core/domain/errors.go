package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrTemporary        = errors.New("temporary failure")

	// Embedding preconditions, fatal for the caller.
	ErrEmptyInput    = errors.New("empty input")
	ErrMissingConfig = errors.New("missing configuration")

	// Document-fatal extraction outcomes.
	ErrFileNotFound = errors.New("source file missing or empty")
	ErrOCRFailed    = errors.New("ocr job failed")
	ErrOCRTimeout   = errors.New("ocr job timed out")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
