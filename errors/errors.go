package errors

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// Input errors
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeRequired   ErrorType = "required"
	ErrorTypeInvalid    ErrorType = "invalid"

	// Image pipeline errors
	ErrorTypeDecode ErrorType = "decode"
	ErrorTypeCrop   ErrorType = "crop"
	ErrorTypeResize ErrorType = "resize"
	ErrorTypeEncode ErrorType = "encode"

	// Output errors
	ErrorTypeIO      ErrorType = "io"
	ErrorTypeArchive ErrorType = "archive"
	ErrorTypeStorage ErrorType = "storage"

	// System errors
	ErrorTypeInternal ErrorType = "internal"
	ErrorTypeUnknown  ErrorType = "unknown"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType      `json:"type"`
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	InnerError error          `json:"-"`
	Stack      []string       `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Type)
	}
	if e.InnerError != nil && e.InnerError.Error() != msg {
		return msg + ": " + e.InnerError.Error()
	}
	return msg
}

// Unwrap returns the inner error
func (e *AppError) Unwrap() error {
	return e.InnerError
}

// WithMessage adds a message to the error
func (e *AppError) WithMessage(msg string) *AppError {
	e.Message = msg
	return e
}

// WithCode adds a code to the error
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// WithDetail adds a detail to the error
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithInnerError sets the inner error
func (e *AppError) WithInnerError(err error) *AppError {
	e.InnerError = err
	return e
}

// WithStack captures the call stack
func (e *AppError) WithStack() *AppError {
	e.Stack = captureStack(3)
	return e
}

// Is checks if this error is of a specific type
func (e *AppError) Is(target error) bool {
	if targetApp, ok := target.(*AppError); ok {
		return e.Type == targetApp.Type
	}
	return false
}

// Detail returns a detail value, or nil.
func (e *AppError) Detail(key string) any {
	if e.Details == nil {
		return nil
	}
	return e.Details[key]
}

// New creates a new AppError
func New(errType ErrorType, message string) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Code:    string(errType),
	}
}

// FromError converts a standard error to AppError
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	return &AppError{
		Type:       ErrorTypeUnknown,
		Code:       string(ErrorTypeUnknown),
		Message:    err.Error(),
		InnerError: err,
	}
}

// Wrap wraps an error with additional context, keeping its type.
func Wrap(err error, message string) *AppError {
	if err == nil {
		return nil
	}
	inner := FromError(err)
	return &AppError{
		Type:       inner.Type,
		Code:       inner.Code,
		Message:    message,
		InnerError: err,
	}
}

// WrapWithType wraps an error with a specific type
func WrapWithType(err error, errType ErrorType, message string) *AppError {
	return &AppError{
		Type:       errType,
		Message:    message,
		InnerError: err,
		Code:       string(errType),
	}
}

// IsType reports whether any error in err's chain is an AppError of errType.
func IsType(err error, errType ErrorType) bool {
	return errors.Is(err, &AppError{Type: errType})
}

func NewValidation(message string) *AppError {
	return New(ErrorTypeValidation, message).WithCode(CodeValidationFailed)
}

func NewRequired(field string) *AppError {
	return New(ErrorTypeRequired, fmt.Sprintf("%s is required", field)).
		WithCode(CodeRequiredField).
		WithDetail("field", field)
}

func NewInvalid(field string, value any, reason string) *AppError {
	return New(ErrorTypeInvalid, fmt.Sprintf("invalid value for %s: %v", field, value)).
		WithCode(CodeInvalidField).
		WithDetail("field", field).
		WithDetail("value", value).
		WithDetail("reason", reason)
}

func NewDecode(file string, err error) *AppError {
	return WrapWithType(err, ErrorTypeDecode, "failed to decode image").
		WithCode(CodeDecodeFailed).
		WithDetail("file", file)
}

func NewCrop(message string) *AppError {
	return New(ErrorTypeCrop, message).WithCode(CodeCropFailed)
}

func NewEncode(err error) *AppError {
	return WrapWithType(err, ErrorTypeEncode, "failed to encode image").WithCode(CodeEncodeFailed)
}

func NewIO(path string, err error) *AppError {
	return WrapWithType(err, ErrorTypeIO, fmt.Sprintf("io failure on %s", path)).
		WithCode(CodeIOFailed).
		WithDetail("path", path)
}

func NewArchive(err error) *AppError {
	return WrapWithType(err, ErrorTypeArchive, "failed to create archive").WithCode(CodeArchiveFailed)
}

func NewStorage(provider string, err error) *AppError {
	return WrapWithType(err, ErrorTypeStorage, fmt.Sprintf("storage provider %s failed", provider)).
		WithCode(CodeStorageFailed).
		WithDetail("provider", provider)
}

func NewInternal(message string) *AppError {
	return New(ErrorTypeInternal, message).WithCode(CodeInternalError)
}

// Error codes for specific scenarios
const (
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeRequiredField    = "REQUIRED_FIELD"
	CodeInvalidField     = "INVALID_FIELD"
	CodeDecodeFailed     = "DECODE_FAILED"
	CodeCropFailed       = "CROP_FAILED"
	CodeEncodeFailed     = "ENCODE_FAILED"
	CodeIOFailed         = "IO_FAILED"
	CodeArchiveFailed    = "ARCHIVE_FAILED"
	CodeStorageFailed    = "STORAGE_FAILED"
	CodeInternalError    = "INTERNAL_ERROR"
)

// ErrorFormatter formats errors for display
type ErrorFormatter struct {
	showStack bool
	showInner bool
}

// NewErrorFormatter creates a new error formatter
func NewErrorFormatter(showStack bool, showInner bool) *ErrorFormatter {
	return &ErrorFormatter{
		showStack: showStack,
		showInner: showInner,
	}
}

// Format formats an error as a string
func (f *ErrorFormatter) Format(err error) string {
	if err == nil {
		return ""
	}

	appErr := FromError(err)

	var parts []string
	parts = append(parts, fmt.Sprintf("[%s] %s", appErr.Type, appErr.Message))

	if appErr.Code != "" {
		parts = append(parts, fmt.Sprintf("code=%s", appErr.Code))
	}

	if len(appErr.Details) > 0 {
		keys := make([]string, 0, len(appErr.Details))
		for k := range appErr.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%v", k, appErr.Details[k]))
		}
	}

	if f.showStack && len(appErr.Stack) > 0 {
		parts = append(parts, "stack:")
		for _, s := range appErr.Stack {
			parts = append(parts, "  "+s)
		}
	}

	if f.showInner && appErr.InnerError != nil {
		parts = append(parts, "caused_by: "+appErr.InnerError.Error())
	}

	return strings.Join(parts, " | ")
}

// ErrorRecover recovers from panics and converts them to errors.
// Pass it the value returned by recover() inside a deferred function.
func ErrorRecover(r any) error {
	if r == nil {
		return nil
	}
	var err error
	switch v := r.(type) {
	case error:
		err = v
	case string:
		err = errors.New(v)
	default:
		err = fmt.Errorf("%v", v)
	}
	return WrapWithType(err, ErrorTypeInternal, "panic recovered").WithStack()
}

// captureStack captures the call stack
func captureStack(skip int) []string {
	var stack []string
	for i := skip; i < 10; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		funcName := fn.Name()
		if idx := strings.LastIndex(funcName, "/"); idx >= 0 {
			funcName = funcName[idx+1:]
		}

		stack = append(stack, fmt.Sprintf("%s:%d %s", file, line, funcName))
	}
	return stack
}
