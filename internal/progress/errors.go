package progress

import "errors"

var (
	// ErrPatternNotFound is returned when an operation references a pattern
	// id absent from the content catalog.
	ErrPatternNotFound = errors.New("pattern not found")

	// ErrQuestionNotFound is returned when an operation references a quiz or
	// diagnostic question id absent from the content catalog.
	ErrQuestionNotFound = errors.New("question not found")
)
