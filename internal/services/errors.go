package services

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	ErrorInvalid      ErrorCode = "invalid"
	ErrorForbidden    ErrorCode = "forbidden"
	ErrorNotFound     ErrorCode = "not_found"
	ErrorConflict     ErrorCode = "conflict"
	ErrorUnauthorized ErrorCode = "unauthorized"
)

type ServiceError struct {
	Code    ErrorCode
	Message string
}

func (e *ServiceError) Error() string { return e.Message }

func NewInvalidError(msg string) error   { return &ServiceError{Code: ErrorInvalid, Message: msg} }
func NewForbiddenError(msg string) error { return &ServiceError{Code: ErrorForbidden, Message: msg} }
func NewNotFoundError(msg string) error  { return &ServiceError{Code: ErrorNotFound, Message: msg} }
func NewConflictError(msg string) error  { return &ServiceError{Code: ErrorConflict, Message: msg} }
func NewUnauthorizedError(msg string) error {
	return &ServiceError{Code: ErrorUnauthorized, Message: msg}
}

func AsServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// IssueCode classifies one per-question submission problem.
type IssueCode string

const (
	IssueMissingRequired IssueCode = "missing_required_answer"
	IssueMalformed       IssueCode = "malformed_answer"
	IssueInvalidChoice   IssueCode = "invalid_choice_reference"
	IssueInvalidRating   IssueCode = "invalid_rating_value"
)

// Issue is one validation finding, attributed to a question.
type Issue struct {
	QuestionID string    `json:"question_id"`
	Code       IssueCode `json:"code"`
	Message    string    `json:"message"`
}

// ValidationError aggregates every issue found in a submission so the caller
// can report all problems at once.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "invalid submission"
	}
	first := e.Issues[0]
	if len(e.Issues) == 1 {
		return fmt.Sprintf("question %s: %s", first.QuestionID, first.Message)
	}
	return fmt.Sprintf("question %s: %s (and %d more)", first.QuestionID, first.Message, len(e.Issues)-1)
}

func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
