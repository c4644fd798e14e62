package errors

import (
	stdErrors "errors"

	"github.com/reglet-dev/reglet-oracle/domain/entities"
)

// FromStatusCode maps a status code returned by an extension call to its
// outcome under version v: nil for success, a *ModuleError for a known failure,
// and a *ProtocolViolationError for anything outside the closed set.
func FromStatusCode(v entities.ProtocolVersion, code entities.StatusCode) error {
	switch v {
	case entities.ProtocolV1:
		switch code {
		case entities.StatusOK:
			return nil
		case entities.StatusQueryError:
			return ErrQueryFailed
		}
	case entities.ProtocolV2:
		switch code {
		case entities.StatusOK:
			return nil
		case entities.StatusInvalidKey:
			return ErrInvalidKey
		case entities.StatusCannotWriteToKey:
			return ErrCannotWriteToKey
		case entities.StatusCannotReadFromKey:
			return ErrCannotReadFromKey
		}
	}
	return &ProtocolViolationError{Version: v, Status: code}
}

// StatusFor is the host-side inverse of FromStatusCode: it picks the status a
// dispatcher reports for a handler error. A *StatusError with a code known to v
// is honoured; a *ModuleError of the same version reports its own status;
// a *DecodeError of the request becomes the invalid-input status, an
// *EncodeError of the result the write failure status; anything else becomes
// the read failure status.
func StatusFor(v entities.ProtocolVersion, err error) entities.StatusCode {
	if err == nil {
		return entities.StatusOK
	}

	var se *StatusError
	if stdErrors.As(err, &se) && se.Status != entities.StatusOK && v.KnowsStatus(se.Status) {
		return se.Status
	}

	var me *ModuleError
	if stdErrors.As(err, &me) && me.Version == v {
		return me.Status
	}

	var de *DecodeError
	if stdErrors.As(err, &de) {
		return v.InvalidInputStatus()
	}

	var ee *EncodeError
	if stdErrors.As(err, &ee) {
		return v.WriteFailureStatus()
	}

	return v.ReadFailureStatus()
}
