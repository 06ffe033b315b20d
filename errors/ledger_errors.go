package errors

import (
	stderrors "errors"
	"fmt"

	"github.com/mezonai/vessel/jsonx"
)

// ErrorCode identifies the kind of a LedgerError
type ErrorCode string

const (
	// Payload values that have no canonical encoding
	ErrCodeSerialization ErrorCode = "serialization_error"

	// Image too small for the payload being embedded or the length it declares
	ErrCodeCapacity ErrorCode = "capacity_error"

	// CRC trailer does not match the extracted payload
	ErrCodeIntegrity ErrorCode = "integrity_error"

	// Hash chain verification failed
	ErrCodeChainInvalid ErrorCode = "chain_invalid"

	// Merge candidate does not extend the local chain
	ErrCodeImportConflict ErrorCode = "import_conflict"

	// Image colour model has no per-channel LSB freedom
	ErrCodeUnsupportedImage ErrorCode = "unsupported_image"
)

// Error message constants
const (
	ErrMsgSerialization    = "Payload cannot be serialized canonically"
	ErrMsgCapacity         = "Image does not have enough channel bits for the payload"
	ErrMsgDeclaredLength   = "Declared payload length exceeds image capacity"
	ErrMsgIntegrity        = "Embedded payload checksum mismatch"
	ErrMsgChainInvalid     = "Ledger hash chain is invalid"
	ErrMsgImportConflict   = "Imported chain does not match local chain"
	ErrMsgUnsupportedImage = "Image colour model is not supported"
)

// LedgerError is the structured error returned by the ledger, codec and adapter
// layers. Only the fields relevant to a given code are set.
type LedgerError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Index     *uint64   `json:"index,omitempty"`
	Expected  string    `json:"expected,omitempty"`
	Actual    string    `json:"actual,omitempty"`
	Required  uint64    `json:"required_bits,omitempty"`
	Available uint64    `json:"available_bits,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

// Error implements the error interface
func (e *LedgerError) Error() string {
	data, err := jsonx.Marshal(e)
	if err != nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return string(data)
}

func indexPtr(i uint64) *uint64 {
	return &i
}

// NewSerializationError reports a value without canonical form
func NewSerializationError(detail string) error {
	return &LedgerError{
		Code:    ErrCodeSerialization,
		Message: ErrMsgSerialization,
		Detail:  detail,
	}
}

// NewCapacityError reports that required bits exceed the available channel bits
func NewCapacityError(required, available uint64) error {
	return &LedgerError{
		Code:      ErrCodeCapacity,
		Message:   ErrMsgCapacity,
		Required:  required,
		Available: available,
	}
}

// NewDeclaredLengthError reports a decoded length header inconsistent with the image
func NewDeclaredLengthError(declared uint32, required, available uint64) error {
	return &LedgerError{
		Code:      ErrCodeCapacity,
		Message:   ErrMsgDeclaredLength,
		Required:  required,
		Available: available,
		Detail:    fmt.Sprintf("declared length %d bytes", declared),
	}
}

// NewIntegrityError reports a CRC mismatch
func NewIntegrityError(stored, computed uint32) error {
	return &LedgerError{
		Code:     ErrCodeIntegrity,
		Message:  ErrMsgIntegrity,
		Expected: fmt.Sprintf("%08x", stored),
		Actual:   fmt.Sprintf("%08x", computed),
	}
}

// NewChainInvalidError reports the first block at which verification failed
func NewChainInvalidError(index uint64, reason, expected, actual string) error {
	return &LedgerError{
		Code:     ErrCodeChainInvalid,
		Message:  ErrMsgChainInvalid,
		Index:    indexPtr(index),
		Expected: expected,
		Actual:   actual,
		Detail:   reason,
	}
}

// NewImportConflictError reports the first source block that does not fit the local chain
func NewImportConflictError(index uint64, expected, actual string) error {
	return &LedgerError{
		Code:     ErrCodeImportConflict,
		Message:  ErrMsgImportConflict,
		Index:    indexPtr(index),
		Expected: expected,
		Actual:   actual,
	}
}

// NewUnsupportedImageError reports an image model the codec cannot embed into
func NewUnsupportedImageError(model string) error {
	return &LedgerError{
		Code:    ErrCodeUnsupportedImage,
		Message: ErrMsgUnsupportedImage,
		Detail:  model,
	}
}

// CodeOf returns the code of the first LedgerError in err's chain, or "" if none
func CodeOf(err error) ErrorCode {
	var le *LedgerError
	if stderrors.As(err, &le) {
		return le.Code
	}
	return ""
}

// Is reports whether err wraps a LedgerError with the given code
func Is(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// As exposes the LedgerError carried by err, if any
func As(err error) (*LedgerError, bool) {
	var le *LedgerError
	ok := stderrors.As(err, &le)
	return le, ok
}
