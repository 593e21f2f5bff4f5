package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Standard error types
var (
	ErrNotFound               = errors.New("resource not found")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrForbidden              = errors.New("forbidden")
	ErrBadRequest             = errors.New("bad request")
	ErrConflict               = errors.New("resource conflict")
	ErrInternal               = errors.New("internal server error")
	ErrValidation             = errors.New("validation error")
	ErrStagePrecondition      = errors.New("stage precondition not met")
	ErrStageClosed            = errors.New("counting stage is not open")
	ErrInventoryClosed        = errors.New("inventory is closed")
	ErrUnknownSerial          = errors.New("unknown serial number")
	ErrConcurrentModification = errors.New("concurrent modification")
	ErrAlreadyMigrated        = errors.New("inventory already migrated")
	ErrOutOfScopeRead         = errors.New("serial reading outside inventory scope")
	ErrCountAlreadyRecorded   = errors.New("count already recorded for stage")
)

// AppError represents an application error with context
type AppError struct {
	Err        error             `json:"-"`
	Message    string            `json:"message"`
	Code       string            `json:"code"`
	StatusCode int               `json:"status_code"`
	Details    map[string]string `json:"details,omitempty"`
	// Retryable marks errors the caller may safely retry after backoff
	Retryable bool `json:"retryable,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError
func New(code string, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, code string, message string, statusCode int) *AppError {
	return &AppError{
		Err:        err,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// WithDetails adds details to an AppError
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// Common error constructors

func NotFound(resource string) *AppError {
	return &AppError{
		Err:        ErrNotFound,
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
	}
}

func Unauthorized(message string) *AppError {
	return &AppError{
		Err:        ErrUnauthorized,
		Code:       "UNAUTHORIZED",
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func Forbidden(message string) *AppError {
	return &AppError{
		Err:        ErrForbidden,
		Code:       "FORBIDDEN",
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func BadRequest(message string) *AppError {
	return &AppError{
		Err:        ErrBadRequest,
		Code:       "BAD_REQUEST",
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Err:        ErrConflict,
		Code:       "CONFLICT",
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func Internal(message string) *AppError {
	return &AppError{
		Err:        ErrInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

// Database wraps a storage error without leaking driver detail to the client
func Database(err error) *AppError {
	return &AppError{
		Err:        err,
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		StatusCode: http.StatusInternalServerError,
	}
}

func Validation(details map[string]string) *AppError {
	return &AppError{
		Err:        ErrValidation,
		Code:       "VALIDATION_ERROR",
		Message:    "validation failed",
		StatusCode: http.StatusBadRequest,
		Details:    details,
	}
}

// Counting error constructors

// StagePrecondition is returned when a stage transition is attempted while
// items still block it. The unresolved item ids are carried in the details.
func StagePrecondition(message string, unresolvedItemIDs []string) *AppError {
	e := &AppError{
		Err:        ErrStagePrecondition,
		Code:       "STAGE_PRECONDITION",
		Message:    message,
		StatusCode: http.StatusConflict,
	}
	if len(unresolvedItemIDs) > 0 {
		e.Details = map[string]string{"unresolved_items": strings.Join(unresolvedItemIDs, ",")}
	}
	return e
}

// StageClosed is returned when a count or serial reading arrives while no
// counting stage is open. Stage zero means no pass at all is accepting
// submissions.
func StageClosed(stage int) *AppError {
	message := "no counting stage is open"
	if stage > 0 {
		message = fmt.Sprintf("count stage %d is not open", stage)
	}
	return &AppError{
		Err:        ErrStageClosed,
		Code:       "STAGE_CLOSED",
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

// InventoryClosed is returned for submissions against a closed or cancelled inventory.
func InventoryClosed(status string) *AppError {
	return &AppError{
		Err:        ErrInventoryClosed,
		Code:       "INVENTORY_CLOSED",
		Message:    fmt.Sprintf("inventory is %s and no longer accepts changes", status),
		StatusCode: http.StatusConflict,
	}
}

// UnknownSerial is returned when a scanned serial exists neither in the
// inventory snapshot nor in the asset registry. Not retryable: the registry
// needs correcting first.
func UnknownSerial(serialNumber string) *AppError {
	return &AppError{
		Err:        ErrUnknownSerial,
		Code:       "UNKNOWN_SERIAL",
		Message:    fmt.Sprintf("serial number %s is not known to the asset registry", serialNumber),
		StatusCode: http.StatusNotFound,
	}
}

// ConcurrentModification is returned when an optimistic version check fails.
// The caller should re-read and retry.
func ConcurrentModification(resource string) *AppError {
	return &AppError{
		Err:        ErrConcurrentModification,
		Code:       "CONCURRENT_MODIFICATION",
		Message:    fmt.Sprintf("%s was modified concurrently, retry the operation", resource),
		StatusCode: http.StatusConflict,
		Retryable:  true,
	}
}

// AlreadyMigrated is returned when the stock-commit collaborator is invoked
// for an inventory whose final quantities were already applied.
func AlreadyMigrated(inventoryID string) *AppError {
	return &AppError{
		Err:        ErrAlreadyMigrated,
		Code:       "ALREADY_MIGRATED",
		Message:    fmt.Sprintf("inventory %s has already been migrated to stock", inventoryID),
		StatusCode: http.StatusConflict,
	}
}

// OutOfScopeRead is returned when a serial is found at a location outside the
// inventory's selected scope.
func OutOfScopeRead(serialNumber, locationID string) *AppError {
	return &AppError{
		Err:        ErrOutOfScopeRead,
		Code:       "OUT_OF_SCOPE_READ",
		Message:    fmt.Sprintf("serial %s was found at location %s which is outside the inventory scope", serialNumber, locationID),
		StatusCode: http.StatusUnprocessableEntity,
	}
}

// CountAlreadyRecorded is returned when a blind count would overwrite an
// existing value. Overwrites go through the explicit correction path.
func CountAlreadyRecorded(stage int) *AppError {
	return &AppError{
		Err:        ErrCountAlreadyRecorded,
		Code:       "COUNT_ALREADY_RECORDED",
		Message:    fmt.Sprintf("count %d is already recorded for this item, use an explicit correction", stage),
		StatusCode: http.StatusConflict,
	}
}

// Is checks if the error matches a target error
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As attempts to convert an error to a specific type
func As(err error, target any) bool {
	return errors.As(err, target)
}
