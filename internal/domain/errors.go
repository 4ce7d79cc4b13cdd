package domain

import (
	"errors"
	"fmt"
)

// Code is the reason code reported to clients in an error event.
type Code string

const (
	CodeNotFound            Code = "not-found"
	CodeNotOngoing          Code = "not-ongoing"
	CodeSessionInactive     Code = "session-inactive"
	CodeTimeExpired         Code = "time-expired"
	CodeNotParticipant      Code = "not-a-participant"
	CodeAlreadyProcessed    Code = "already-processed"
	CodeQuestionUnavailable Code = "question-unavailable"
	CodeInvalidRequest      Code = "invalid-request"
	CodeUserNotFound        Code = "user-not-found"
	CodeNoQuestions         Code = "no-questions"
	CodeSessionExists       Code = "session-exists"
	CodeInternal            Code = "internal"
)

var defaultMessages = map[Code]string{
	CodeNotFound:            "match not found",
	CodeNotOngoing:          "match is not ongoing",
	CodeSessionInactive:     "match session is not active",
	CodeTimeExpired:         "match time has expired",
	CodeNotParticipant:      "player is not a participant of this match",
	CodeAlreadyProcessed:    "question already answered or skipped",
	CodeQuestionUnavailable: "question is not available in this match",
	CodeInvalidRequest:      "invalid request",
	CodeUserNotFound:        "user not found",
	CodeNoQuestions:         "no questions available for match",
	CodeSessionExists:       "match session already registered",
	CodeInternal:            "internal error",
}

var (
	ErrMatchNotFound       = New(CodeNotFound)
	ErrMatchNotOngoing     = New(CodeNotOngoing)
	ErrSessionInactive     = New(CodeSessionInactive)
	ErrTimeExpired         = New(CodeTimeExpired)
	ErrNotParticipant      = New(CodeNotParticipant)
	ErrAlreadyProcessed    = New(CodeAlreadyProcessed)
	ErrQuestionUnavailable = New(CodeQuestionUnavailable)
	ErrInvalidRequest      = New(CodeInvalidRequest)
	ErrUserNotFound        = New(CodeUserNotFound)
	ErrNoQuestions         = New(CodeNoQuestions)
	ErrSessionExists       = New(CodeSessionExists)
)

// Error is a coded domain error. Two errors match under errors.Is when their codes are equal.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	err     error
}

func New(code Code, opts ...ErrorOption) *Error {
	e := &Error{Code: code, Message: defaultMessages[code]}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Error) Error() string {
	s := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.err != nil {
		s += fmt.Sprintf(": %v", e.err)
	}
	return s
}

func (e *Error) Unwrap() error {
	return e.err
}

func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Convert maps any error onto a domain error; unknown errors become internal.
func Convert(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return New(CodeInternal, WithCause(err))
}

// ErrorOption configures an Error built with New.
type ErrorOption func(*Error)

func WithCause(err error) ErrorOption {
	return func(e *Error) {
		e.err = err
	}
}

func WithMessagef(format string, args ...any) ErrorOption {
	return func(e *Error) {
		e.Message = fmt.Sprintf(format, args...)
	}
}
