package model

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed input: bad files, empty or too long questions.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks an unknown or expired session or a missing index.
	ErrNotFound = errors.New("not found")
	// ErrDocumentProcessing marks a document that produced no chunks.
	ErrDocumentProcessing = errors.New("document appears empty or unreadable")
	// ErrGenerationFailure marks that neither generator produced an answer.
	ErrGenerationFailure = errors.New("could not generate an answer")
)

// Messages shown to the user in place of a generated answer.
const (
	NoAnswerMessage    = "Sorry, I could not generate an answer to your question right now. Please try again later."
	NoGroundingMessage = "I could not find information relevant to your question in the document."
)

func NewValidationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func NewNotFoundError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}
