package entities

// StatusCode is the numeric result of an extension call. Zero means success;
// every other known value names exactly one failure.
type StatusCode uint32

// StatusOK is the success status of every protocol version.
const StatusOK StatusCode = 0

// ProtocolV1 failure codes.
const (
	StatusQueryError StatusCode = 1
)

// ProtocolV2 failure codes.
const (
	StatusInvalidKey        StatusCode = 1
	StatusCannotWriteToKey  StatusCode = 2
	StatusCannotReadFromKey StatusCode = 3
)

// StatusCodes returns the closed set of status codes of v, success included.
func (v ProtocolVersion) StatusCodes() []StatusCode {
	switch v {
	case ProtocolV1:
		return []StatusCode{StatusOK, StatusQueryError}
	case ProtocolV2:
		return []StatusCode{StatusOK, StatusInvalidKey, StatusCannotWriteToKey, StatusCannotReadFromKey}
	default:
		return nil
	}
}

// KnowsStatus reports whether code belongs to the closed status set of v.
func (v ProtocolVersion) KnowsStatus(code StatusCode) bool {
	for _, known := range v.StatusCodes() {
		if known == code {
			return true
		}
	}
	return false
}

// ReadFailureStatus is the status a host reports when the underlying source
// could not produce a value.
func (v ProtocolVersion) ReadFailureStatus() StatusCode {
	if v == ProtocolV1 {
		return StatusQueryError
	}
	return StatusCannotReadFromKey
}

// InvalidInputStatus is the status a host reports when the request payload
// cannot be decoded.
func (v ProtocolVersion) InvalidInputStatus() StatusCode {
	if v == ProtocolV1 {
		return StatusQueryError
	}
	return StatusInvalidKey
}

// WriteFailureStatus is the status a host reports when the result cannot be
// encoded into the output buffer.
func (v ProtocolVersion) WriteFailureStatus() StatusCode {
	if v == ProtocolV1 {
		return StatusQueryError
	}
	return StatusCannotWriteToKey
}

// TransportCode is the boundary-level outcome of a call, carried next to the
// status code. It reports conditions that happen before or after the handler
// runs and that therefore have no status of their own.
type TransportCode uint32

const (
	TransportOK                     TransportCode = 0
	TransportBufferTooSmall         TransportCode = 1
	TransportUnimplementedOperation TransportCode = 2
	TransportMemoryFault            TransportCode = 3
)

// PackResult combines a transport code and a status code into the i64 returned
// by call_chain_extension: transport in the high 32 bits, status in the low 32.
func PackResult(transport TransportCode, status StatusCode) uint64 {
	return uint64(transport)<<32 | uint64(status)
}

// UnpackResult splits a value produced by PackResult.
func UnpackResult(packed uint64) (TransportCode, StatusCode) {
	return TransportCode(packed >> 32), StatusCode(uint32(packed))
}

// StorageReadCode is the result of the get_storage import.
type StorageReadCode uint32

const (
	StorageFound          StorageReadCode = 0
	StorageNotFound       StorageReadCode = 1
	StorageBufferTooSmall StorageReadCode = 2
	StorageReadFailed     StorageReadCode = 3
)
