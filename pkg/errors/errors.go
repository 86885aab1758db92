package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation   Code = "VALIDATION_ERROR"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeNotFound     Code = "NOT_FOUND"
	CodeIdempotency  Code = "IDEMPOTENCY_KEY_REUSED"
	CodeInternal     Code = "INTERNAL_ERROR"
	CodeDependency   Code = "DEPENDENCY_ERROR"

	// command ingress
	CodeMissingCommandParameter   Code = "MISSING_COMMAND_PARAMETER"
	CodeMalformedCommandParameter Code = "MALFORMED_COMMAND_PARAMETER"
	CodeUnsupportedCommand        Code = "UNSUPPORTED_COMMAND"
	CodeMalformedRequestBody      Code = "MALFORMED_REQUEST_BODY"
	CodePublishFailed             Code = "PUBLISH_FAILED"

	// command envelope
	CodeMissingMessage           Code = "MISSING_MESSAGE"
	CodeMalformedMessage         Code = "MALFORMED_MESSAGE"
	CodeMissingSchemaVersion     Code = "MISSING_SCHEMA_VERSION"
	CodeUnsupportedSchemaVersion Code = "UNSUPPORTED_SCHEMA_VERSION"
	CodeMissingOriginSource      Code = "MISSING_ORIGIN_SOURCE"
	CodeMissingCommandName       Code = "MISSING_COMMAND_NAME"
	CodeMissingOwner             Code = "MISSING_OWNER"

	// processors
	CodeStoreUnavailable Code = "STORE_UNAVAILABLE"
	CodeCreateFailed     Code = "CREATE_FAILED"
	CodeCommandInFlight  Code = "COMMAND_IN_FLIGHT"
)

type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		PublicMessage:  "validation failed",
		DetailsAllowed: true,
	},
	CodeUnauthorized: {
		HTTPStatus:    http.StatusUnauthorized,
		PublicMessage: "authentication required",
	},
	CodeNotFound: {
		HTTPStatus:    http.StatusNotFound,
		PublicMessage: "resource not found",
	},
	CodeIdempotency: {
		HTTPStatus:     http.StatusConflict,
		PublicMessage:  "idempotency key reused",
		DetailsAllowed: true,
	},
	CodeInternal: {
		HTTPStatus:    http.StatusInternalServerError,
		Retryable:     true,
		PublicMessage: "internal server error",
	},
	CodeDependency: {
		HTTPStatus:     http.StatusServiceUnavailable,
		Retryable:      true,
		PublicMessage:  "dependency unavailable",
		DetailsAllowed: true,
	},
	CodeMissingCommandParameter: {
		HTTPStatus:    http.StatusNotFound,
		PublicMessage: "Valid domain-command parameter required on Content-Type header.",
	},
	CodeMalformedCommandParameter: {
		HTTPStatus:    http.StatusNotFound,
		PublicMessage: "Valid domain-command parameter required on Content-Type header.",
	},
	CodeUnsupportedCommand: {
		HTTPStatus:     http.StatusNotFound,
		PublicMessage:  "domain command not supported",
		DetailsAllowed: true,
	},
	CodeMalformedRequestBody: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		PublicMessage:  "request body could not be decoded",
		DetailsAllowed: true,
	},
	CodePublishFailed: {
		HTTPStatus:    http.StatusInternalServerError,
		Retryable:     true,
		PublicMessage: "failed to create the workbook",
	},
	CodeMissingMessage: {
		HTTPStatus:    http.StatusBadRequest,
		PublicMessage: "notification message is missing",
	},
	CodeMalformedMessage: {
		HTTPStatus:     http.StatusBadRequest,
		PublicMessage:  "notification message could not be decoded",
		DetailsAllowed: true,
	},
	CodeMissingSchemaVersion: {
		HTTPStatus:    http.StatusBadRequest,
		PublicMessage: "notification schema version is missing",
	},
	CodeUnsupportedSchemaVersion: {
		HTTPStatus:     http.StatusBadRequest,
		PublicMessage:  "notification schema version is not supported",
		DetailsAllowed: true,
	},
	CodeMissingOriginSource: {
		HTTPStatus:    http.StatusBadRequest,
		PublicMessage: "notification origin source is missing",
	},
	CodeMissingCommandName: {
		HTTPStatus:    http.StatusBadRequest,
		PublicMessage: "notification command name is missing",
	},
	CodeMissingOwner: {
		HTTPStatus:    http.StatusBadRequest,
		PublicMessage: "notification record owner is missing",
	},
	CodeStoreUnavailable: {
		HTTPStatus:    http.StatusServiceUnavailable,
		Retryable:     true,
		PublicMessage: "store unavailable",
	},
	CodeCreateFailed: {
		HTTPStatus:    http.StatusServiceUnavailable,
		Retryable:     true,
		PublicMessage: "failed to create record",
	},
	CodeCommandInFlight: {
		HTTPStatus:    http.StatusConflict,
		Retryable:     true,
		PublicMessage: "command already in flight",
	},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// CodeOf returns the code carried by err, or CodeInternal for untyped errors.
func CodeOf(err error) Code {
	if typed := As(err); typed != nil {
		return typed.Code()
	}
	return CodeInternal
}

// IsCode reports whether err carries the given code anywhere in its chain.
func IsCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// IsRetryable reports whether redelivery may succeed for err.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return MetadataFor(CodeOf(err)).Retryable
}
