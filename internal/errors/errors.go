// Package errors provides the typed error taxonomy shared by the recorder,
// locators, verifier and replay engine. Codes survive a round trip through
// the OCR sidecar as google.rpc.ErrorInfo details.
package errors

import (
	stderrors "errors"
	"fmt"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Domain is the ErrorInfo domain attached to statuses built from AppError.
const Domain = "autoui"

// Code classifies an AppError.
type Code int32

const (
	Unknown Code = iota
	Internal
	InvalidArgument
	InvalidState
	InvalidSession
	NotFound
	TemplateNotFound
	TextNotFound
	AmbiguousLocalization
	DimensionMismatch
	CaptureFailure
	InjectionFailure
	ImageUnreadable
	OCRUnavailable
	Timeout
	Cancelled
)

var codeNames = map[Code]string{
	Unknown:               "UNKNOWN",
	Internal:              "INTERNAL",
	InvalidArgument:       "INVALID_ARGUMENT",
	InvalidState:          "INVALID_STATE",
	InvalidSession:        "INVALID_SESSION",
	NotFound:              "NOT_FOUND",
	TemplateNotFound:      "TEMPLATE_NOT_FOUND",
	TextNotFound:          "TEXT_NOT_FOUND",
	AmbiguousLocalization: "AMBIGUOUS_LOCALIZATION",
	DimensionMismatch:     "DIMENSION_MISMATCH",
	CaptureFailure:        "CAPTURE_FAILURE",
	InjectionFailure:      "INJECTION_FAILURE",
	ImageUnreadable:       "IMAGE_UNREADABLE",
	OCRUnavailable:        "OCR_UNAVAILABLE",
	Timeout:               "TIMEOUT",
	Cancelled:             "CANCELLED",
}

func (c Code) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return fmt.Sprintf("CODE_%d", int32(c))
}

// ParseCode is the inverse of Code.String. Unrecognized names map to Unknown.
func ParseCode(s string) Code {
	for c, name := range codeNames {
		if name == s {
			return c
		}
	}
	return Unknown
}

// grpcCodeMap maps Code to gRPC status codes.
var grpcCodeMap = map[Code]codes.Code{
	Unknown:               codes.Unknown,
	Internal:              codes.Internal,
	InvalidArgument:       codes.InvalidArgument,
	InvalidState:          codes.FailedPrecondition,
	InvalidSession:        codes.InvalidArgument,
	NotFound:              codes.NotFound,
	TemplateNotFound:      codes.NotFound,
	TextNotFound:          codes.NotFound,
	AmbiguousLocalization: codes.FailedPrecondition,
	DimensionMismatch:     codes.InvalidArgument,
	CaptureFailure:        codes.Internal,
	InjectionFailure:      codes.Internal,
	ImageUnreadable:       codes.InvalidArgument,
	OCRUnavailable:        codes.Unavailable,
	Timeout:               codes.DeadlineExceeded,
	Cancelled:             codes.Canceled,
}

// AppError is the base error type with structured error code and metadata.
type AppError struct {
	Code     Code
	Message  string
	Metadata map[string]string
	Cause    error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	s := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if len(e.Metadata) > 0 {
		s += fmt.Sprintf(" %v", e.Metadata)
	}
	if e.Cause != nil {
		s += fmt.Sprintf(" caused by: %v", e.Cause)
	}
	return s
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *AppError) Unwrap() error { return e.Cause }

// GRPCCode returns the corresponding gRPC status code.
func (e *AppError) GRPCCode() codes.Code {
	if c, ok := grpcCodeMap[e.Code]; ok {
		return c
	}
	return codes.Unknown
}

// ErrorInfo converts to a google.rpc.ErrorInfo detail.
func (e *AppError) ErrorInfo() *errdetails.ErrorInfo {
	info := &errdetails.ErrorInfo{Reason: e.Code.String(), Domain: Domain}
	if len(e.Metadata) > 0 {
		info.Metadata = make(map[string]string, len(e.Metadata)+1)
		for k, v := range e.Metadata {
			info.Metadata[k] = v
		}
	}
	if info.Metadata == nil {
		info.Metadata = map[string]string{}
	}
	info.Metadata["message"] = e.Message
	return info
}

// GRPCStatus returns a gRPC status with the ErrorInfo attached.
func (e *AppError) GRPCStatus() *status.Status {
	st := status.New(e.GRPCCode(), e.Error())
	if withDetail, err := st.WithDetails(e.ErrorInfo()); err == nil {
		return withDetail
	}
	return st
}

// New creates a new AppError with the given code and message.
func New(code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg}
}

// Newf creates a new AppError with formatted message.
func Newf(code Code, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with an AppError.
func Wrap(err error, code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg, Cause: err}
}

// Wrapf wraps an existing error with formatted message.
func Wrapf(err error, code Code, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// WithMetadata adds metadata to an AppError.
func (e *AppError) WithMetadata(key, value string) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// FromGRPCError extracts an AppError from a gRPC error. ErrorInfo details in
// our domain restore the original code; otherwise the gRPC code is mapped.
func FromGRPCError(err error) *AppError {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return &AppError{Code: Unknown, Message: err.Error(), Cause: err}
	}

	for _, detail := range st.Details() {
		info, ok := detail.(*errdetails.ErrorInfo)
		if !ok || info.GetDomain() != Domain {
			continue
		}
		md := make(map[string]string, len(info.GetMetadata()))
		msg := st.Message()
		for k, v := range info.GetMetadata() {
			if k == "message" {
				msg = v
				continue
			}
			md[k] = v
		}
		if len(md) == 0 {
			md = nil
		}
		return &AppError{Code: ParseCode(info.GetReason()), Message: msg, Metadata: md, Cause: err}
	}

	return &AppError{Code: grpcToCode(st.Code()), Message: st.Message(), Cause: err}
}

// grpcToCode maps gRPC codes back to our codes (best effort).
func grpcToCode(c codes.Code) Code {
	switch c {
	case codes.InvalidArgument:
		return InvalidArgument
	case codes.NotFound:
		return NotFound
	case codes.Unavailable:
		return OCRUnavailable
	case codes.DeadlineExceeded:
		return Timeout
	case codes.Canceled:
		return Cancelled
	case codes.Internal:
		return Internal
	case codes.FailedPrecondition:
		return InvalidState
	default:
		return Unknown
	}
}

// CodeOf returns the code of the first AppError in err's chain, or Unknown.
func CodeOf(err error) Code {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return Unknown
}

// IsCode checks if an error chain carries a specific code.
func IsCode(err error, code Code) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr) && appErr.Code == code
}

// IsNotFound reports whether err is any flavour of not-found.
func IsNotFound(err error) bool {
	switch CodeOf(err) {
	case NotFound, TemplateNotFound, TextNotFound:
		return true
	}
	return false
}
