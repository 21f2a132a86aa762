package kafka

import (
	"errors"
	"strings"
)

var (
	ErrProducerClosed = errors.New("kafka producer is closed")
	ErrConsumerClosed = errors.New("kafka consumer is closed")
	ErrEmptyKey       = errors.New("message key cannot be empty")
	ErrEmptyValue     = errors.New("message value cannot be empty")
)

// ErrorType classifies a processing error for retry decisions.
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeTransient covers network issues and timeouts worth retrying.
	ErrorTypeTransient
	// ErrorTypePermanent covers schema mismatches and invalid payloads that
	// retrying cannot fix.
	ErrorTypePermanent
)

type ProcessingError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *ProcessingError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

func NewTransientError(message string, err error) *ProcessingError {
	return &ProcessingError{Type: ErrorTypeTransient, Message: message, Err: err}
}

func NewPermanentError(message string, err error) *ProcessingError {
	return &ProcessingError{Type: ErrorTypePermanent, Message: message, Err: err}
}

var transientPatterns = []string{
	"connection refused",
	"timeout",
	"deadline exceeded",
	"no such host",
	"network is unreachable",
	"broken pipe",
	"connection reset",
	"i/o timeout",
	"temporary failure",
}

// ClassifyError maps an error onto retry semantics. Unclassifiable errors
// are treated as permanent so they reach the DLQ instead of looping forever.
func ClassifyError(err error) ErrorType {
	if err == nil {
		return ErrorTypeUnknown
	}

	var procErr *ProcessingError
	if errors.As(err, &procErr) {
		return procErr.Type
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range transientPatterns {
		if strings.Contains(msg, pattern) {
			return ErrorTypeTransient
		}
	}

	return ErrorTypePermanent
}

// ShouldRetry reports whether a failed message warrants another attempt.
func ShouldRetry(err error, currentRetries, maxRetries int) bool {
	if err == nil || currentRetries >= maxRetries {
		return false
	}
	return ClassifyError(err) == ErrorTypeTransient
}
