package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrEventNotFound is returned when an event id does not resolve.
	ErrEventNotFound = errors.New("event not found")
	// ErrQuestionNotFound is returned when a question id does not resolve.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrDuplicateSubmission is returned when a user has already answered a question.
	ErrDuplicateSubmission = errors.New("answer already submitted for this question")
	// ErrRateLimited is returned when a fixed-window quota is exhausted.
	ErrRateLimited = errors.New("rate limit exceeded")
	// ErrUnsupportedFormat is returned for export formats other than CSV.
	ErrUnsupportedFormat = errors.New("only csv format is supported")
	// ErrQuestionsExist is returned when generating questions for an event that already has them.
	ErrQuestionsExist = errors.New("questions already exist for this event")
	// ErrForbidden is returned when the auth collaborator denies admin access.
	ErrForbidden = errors.New("admin access required")
	// ErrNoQuestions is returned when a batch submission targets an event with no questions.
	ErrNoQuestions = errors.New("no questions found for this event")
)

// ValidationError carries per-field messages so a form layer can highlight
// specific inputs.
type ValidationError struct {
	Fields map[string][]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string][]string)}
}

// Add appends a message for a field and returns the error for chaining.
func (e *ValidationError) Add(field, message string) *ValidationError {
	e.Fields[field] = append(e.Fields[field], message)
	return e
}

// Empty reports whether no field has errors.
func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return "missing or invalid fields: " + strings.Join(fields, ", ")
}

// IncompleteSubmissionError names the first event question that a batch
// submission left unanswered.
type IncompleteSubmissionError struct {
	QuestionID   string
	QuestionText string
}

func (e *IncompleteSubmissionError) Error() string {
	return fmt.Sprintf("no answer provided for question: %s", e.QuestionText)
}

// StoreError wraps an unexpected persistence failure. Expected conditions
// (not found, duplicates) use the sentinel errors above instead.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
