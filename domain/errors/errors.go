// Package errors provides the error taxonomy of the oracle extension protocol.
// All error types support error unwrapping via errors.As() and errors.Is().
//
// Recoverable outcomes (the closed failure kinds of a protocol version, capacity
// and routing errors) are values the caller branches on. Decode failures and
// protocol violations are fatal: they mean the two sides of the boundary disagree
// on the contract, and the caller cannot partially recover.
package errors

import (
	stdErrors "errors"
	"fmt"

	"github.com/reglet-dev/reglet-oracle/domain/entities"
)

// ErrorDetail is an alias to entities.ErrorDetail for convenience.
type ErrorDetail = entities.ErrorDetail

// DetailedError is implemented by error types that can convert themselves
// to a structured ErrorDetail.
type DetailedError interface {
	error
	ToErrorDetail() *entities.ErrorDetail
}

// ToErrorDetail converts a Go error to our structured ErrorDetail.
func ToErrorDetail(err error) *entities.ErrorDetail {
	if err == nil {
		return nil
	}

	var e *entities.ErrorDetail
	if stdErrors.As(err, &e) {
		return e
	}

	var de DetailedError
	if stdErrors.As(err, &de) {
		return de.ToErrorDetail()
	}

	return &entities.ErrorDetail{
		Message: err.Error(),
		Type:    "internal",
	}
}

// IsFatal reports whether err belongs to the unrecoverable class: a decode
// failure or a protocol violation anywhere in its chain.
func IsFatal(err error) bool {
	var de *DecodeError
	if stdErrors.As(err, &de) {
		return true
	}
	var pv *ProtocolViolationError
	return stdErrors.As(err, &pv)
}

// ModuleError is one of the closed failure kinds a host reports through a
// nonzero status code.
type ModuleError struct {
	Kind    string
	Status  entities.StatusCode
	Version entities.ProtocolVersion
}

func (e *ModuleError) Error() string {
	return fmt.Sprintf("extension call failed: %s (status %d, %s)", e.Kind, e.Status, e.Version)
}

// Is matches module errors by version and status so the package sentinels can
// be used with errors.Is.
func (e *ModuleError) Is(target error) bool {
	t, ok := target.(*ModuleError)
	if !ok {
		return false
	}
	return t.Version == e.Version && t.Status == e.Status
}

// ToErrorDetail implements DetailedError.
func (e *ModuleError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "source", Code: e.Kind}
}

// Failure kinds of ProtocolV1.
var (
	ErrQueryFailed = &ModuleError{Kind: "query_error", Status: entities.StatusQueryError, Version: entities.ProtocolV1}
)

// Failure kinds of ProtocolV2.
var (
	ErrInvalidKey        = &ModuleError{Kind: "invalid_key", Status: entities.StatusInvalidKey, Version: entities.ProtocolV2}
	ErrCannotWriteToKey  = &ModuleError{Kind: "cannot_write_to_key", Status: entities.StatusCannotWriteToKey, Version: entities.ProtocolV2}
	ErrCannotReadFromKey = &ModuleError{Kind: "cannot_read_from_key", Status: entities.StatusCannotReadFromKey, Version: entities.ProtocolV2}
)

// ProtocolViolationError reports a status code outside the closed set of the
// active protocol version. It is never treated as success.
type ProtocolViolationError struct {
	Version entities.ProtocolVersion
	Status  entities.StatusCode
}

func (e *ProtocolViolationError) Error() string {
	return fmt.Sprintf("protocol violation: unknown status code %d for protocol %s", e.Status, e.Version)
}

// ToErrorDetail implements DetailedError.
func (e *ProtocolViolationError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{
		Message: e.Error(),
		Type:    "protocol",
		Code:    fmt.Sprintf("unknown_status_%d", e.Status),
		Fatal:   true,
	}
}

// DecodeError reports bytes that cannot represent the expected value.
type DecodeError struct {
	Err    error
	Type   string // Expected value, e.g. "u64", "bytes", "price_snapshot"
	Offset int    // Byte offset where decoding stopped
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s failed at offset %d: %v", e.Type, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *DecodeError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "decode", Code: e.Type, Fatal: true}
}

// EncodeError reports a handler result that could not be turned into bytes.
type EncodeError struct {
	Err  error
	Type string
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode %s failed: %v", e.Type, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *EncodeError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "encode", Code: e.Type}
}

// BufferTooSmallError reports an output larger than the capacity the caller
// provided. Required is the exact size needed to retry.
type BufferTooSmallError struct {
	Required uint32
	Capacity uint32
}

func (e *BufferTooSmallError) Error() string {
	return fmt.Sprintf("output buffer too small: required %d bytes, capacity %d bytes", e.Required, e.Capacity)
}

// ToErrorDetail implements DetailedError.
func (e *BufferTooSmallError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{
		Message: e.Error(),
		Type:    "capacity",
		Code:    "buffer_too_small",
		Details: map[string]any{"required": e.Required, "capacity": e.Capacity},
	}
}

// UnimplementedOperationError reports an operation id outside the registered set.
type UnimplementedOperationError struct {
	Operation entities.OperationID
	Version   entities.ProtocolVersion
}

func (e *UnimplementedOperationError) Error() string {
	return fmt.Sprintf("unimplemented operation %d for protocol %s", e.Operation, e.Version)
}

// ToErrorDetail implements DetailedError.
func (e *UnimplementedOperationError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "routing", Code: "unimplemented_operation"}
}

// VersionMismatchError reports a guest and host configured for different
// protocol versions.
type VersionMismatchError struct {
	Guest entities.ProtocolVersion
	Host  entities.ProtocolVersion
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("protocol version mismatch: guest %s, host %s", e.Guest, e.Host)
}

// ToErrorDetail implements DetailedError.
func (e *VersionMismatchError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "protocol", Code: "version_mismatch", Fatal: true}
}

// TransportError reports a call that failed at the boundary: the host could
// not read the request or write the result (memory fault) or answered with a
// transport code the guest does not know.
type TransportError struct {
	Transport entities.TransportCode
}

func (e *TransportError) Error() string {
	if e.Transport == entities.TransportMemoryFault {
		return "extension call memory fault"
	}
	return fmt.Sprintf("unknown transport code %d", e.Transport)
}

// ToErrorDetail implements DetailedError.
func (e *TransportError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "transport", Code: fmt.Sprintf("transport_%d", e.Transport), Fatal: true}
}

// StatusError lets a host handler choose the status code it reports.
// Handlers returning any other error get the version's read failure status.
type StatusError struct {
	Err    error
	Status entities.StatusCode
}

func (e *StatusError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("status %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("status %d", e.Status)
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// SourceError represents a failure of the off-chain data source.
type SourceError struct {
	Err    error
	Source string
	DataID entities.DataID
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s failed for data id %d: %v", e.Source, e.DataID, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *SourceError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "source", Code: e.Source}
}

// ErrDataNotFound is returned by data sources that hold nothing for an id.
var ErrDataNotFound = stdErrors.New("data not found")

// ErrStorageNotFound is returned when no value is stored at a key.
var ErrStorageNotFound = stdErrors.New("storage key not found")

// StorageError represents a failure of the host storage reader itself.
type StorageError struct {
	Err     error
	Backend string
	Key     string
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s read of %s failed: %v", e.Backend, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *StorageError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "storage", Code: e.Backend}
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Err   error
	Field string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config validation failed for field '%s': %v", e.Field, e.Err)
	}
	return fmt.Sprintf("config validation failed: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *ConfigError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "config", Code: e.Field}
}
