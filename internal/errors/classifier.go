package errors

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
)

type ErrorClass int

const (
	ClassInternal ErrorClass = iota
	ClassValidation
	ClassNotFound
	ClassRateLimit
	ClassUnavailable
	ClassConfig
	ClassConnectivity
	ClassParse
)

func (c ErrorClass) String() string {
	switch c {
	case ClassValidation:
		return "validation"
	case ClassNotFound:
		return "not_found"
	case ClassRateLimit:
		return "rate_limit"
	case ClassUnavailable:
		return "unavailable"
	case ClassConfig:
		return "config"
	case ClassConnectivity:
		return "connectivity"
	case ClassParse:
		return "parse"
	default:
		return "internal"
	}
}

type ClassifiedError struct {
	Class         ErrorClass
	InternalError error
	ClientMessage string
	OperationName string
	Metadata      map[string]any
}

// SanitizedError is what callers outside the process get to see.
type SanitizedError struct {
	StatusCode int
	Message    string
}

func (e *SanitizedError) Error() string { return e.Message }

type ErrorClassifier struct {
	logger *slog.Logger
}

func NewErrorClassifier(logger *slog.Logger) *ErrorClassifier {
	return &ErrorClassifier{logger: logger}
}

var errorPool = sync.Pool{
	New: func() any {
		return &ClassifiedError{
			Metadata: make(map[string]any, 4),
		}
	},
}

// ClassOf maps err to its class without allocating a ClassifiedError.
func ClassOf(err error) ErrorClass {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return ClassValidation
	case errors.Is(err, ErrNotFound):
		return ClassNotFound
	case errors.Is(err, ErrRateLimit):
		return ClassRateLimit
	case errors.Is(err, ErrUnavailable):
		return ClassUnavailable
	case errors.Is(err, ErrConfig):
		return ClassConfig
	case errors.Is(err, ErrConnectivity):
		return ClassConnectivity
	case errors.Is(err, ErrParse):
		return ClassParse
	default:
		return ClassInternal
	}
}

func (ec *ErrorClassifier) Classify(err error, operation string) *ClassifiedError {
	classified := errorPool.Get().(*ClassifiedError)
	classified.InternalError = err
	classified.OperationName = operation
	classified.Class = ClassOf(err)

	switch classified.Class {
	case ClassValidation:
		classified.ClientMessage = "The request contains invalid parameters"
	case ClassNotFound:
		classified.ClientMessage = "The requested resource was not found"
	case ClassRateLimit:
		classified.ClientMessage = "You have exceeded the rate limit"
	case ClassUnavailable:
		classified.ClientMessage = "The service is temporarily unavailable"
	default:
		classified.ClientMessage = "An unexpected internal error occurred"
	}

	return classified
}

// LogAndSanitize logs the classified error with its internal detail and
// returns a client-safe error carrying an HTTP status code. The classified
// error is returned to the pool and must not be used afterwards.
func (ec *ErrorClassifier) LogAndSanitize(ctx context.Context, classified *ClassifiedError) *SanitizedError {
	defer ec.putError(classified)

	level := slog.LevelError
	if classified.Class == ClassValidation || classified.Class == ClassRateLimit || classified.Class == ClassNotFound {
		level = slog.LevelWarn
	}
	ec.logger.Log(ctx, level, "operation failed",
		"operation", classified.OperationName,
		"error_class", classified.Class.String(),
		"internal_error", classified.InternalError.Error(),
		"metadata", classified.Metadata,
	)

	return &SanitizedError{
		StatusCode: ec.toHTTPStatus(classified),
		Message:    classified.ClientMessage,
	}
}

func (ec *ErrorClassifier) toHTTPStatus(classified *ClassifiedError) int {
	switch classified.Class {
	case ClassValidation:
		return http.StatusBadRequest
	case ClassNotFound:
		return http.StatusNotFound
	case ClassRateLimit:
		return http.StatusTooManyRequests
	case ClassUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (ec *ErrorClassifier) putError(err *ClassifiedError) {
	err.InternalError = nil
	for k := range err.Metadata {
		delete(err.Metadata, k)
	}
	err.OperationName = ""
	errorPool.Put(err)
}
