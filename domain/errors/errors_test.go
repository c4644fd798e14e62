package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/reglet-dev/reglet-oracle/domain/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromStatusCode_Totality(t *testing.T) {
	tests := []struct {
		name    string
		version entities.ProtocolVersion
		code    entities.StatusCode
		want    error
	}{
		{"v1 success", entities.ProtocolV1, 0, nil},
		{"v1 query error", entities.ProtocolV1, 1, ErrQueryFailed},
		{"v2 success", entities.ProtocolV2, 0, nil},
		{"v2 invalid key", entities.ProtocolV2, 1, ErrInvalidKey},
		{"v2 cannot write", entities.ProtocolV2, 2, ErrCannotWriteToKey},
		{"v2 cannot read", entities.ProtocolV2, 3, ErrCannotReadFromKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first := FromStatusCode(tt.version, tt.code)
			second := FromStatusCode(tt.version, tt.code)
			if tt.want == nil {
				assert.NoError(t, first)
				assert.NoError(t, second)
				return
			}
			assert.ErrorIs(t, first, tt.want)
			assert.Equal(t, first, second, "mapping must be stable across calls")
			assert.False(t, IsFatal(first))
		})
	}
}

func TestFromStatusCode_EveryKnownCodeMapsToOneOutcome(t *testing.T) {
	for _, v := range []entities.ProtocolVersion{entities.ProtocolV1, entities.ProtocolV2} {
		seen := map[string]entities.StatusCode{}
		for _, code := range v.StatusCodes() {
			err := FromStatusCode(v, code)
			var pv *ProtocolViolationError
			require.False(t, errors.As(err, &pv), "known code %d of %s escalated", code, v)

			key := "ok"
			if err != nil {
				key = err.Error()
			}
			prev, dup := seen[key]
			require.False(t, dup, "codes %d and %d of %s share an outcome", prev, code, v)
			seen[key] = code
		}
	}
}

func TestFromStatusCode_UnknownEscalates(t *testing.T) {
	tests := []struct {
		version entities.ProtocolVersion
		code    entities.StatusCode
	}{
		{entities.ProtocolV1, 99},
		{entities.ProtocolV1, 2},
		{entities.ProtocolV2, 99},
		{entities.ProtocolV2, 4},
		{entities.ProtocolVersion(7), 0},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%d", tt.version, tt.code), func(t *testing.T) {
			err := FromStatusCode(tt.version, tt.code)
			require.Error(t, err)

			var pv *ProtocolViolationError
			require.True(t, errors.As(err, &pv))
			assert.Equal(t, tt.code, pv.Status)
			assert.True(t, IsFatal(err))

			var me *ModuleError
			assert.False(t, errors.As(err, &me), "unknown code must not look like a known failure")
		})
	}
}

func TestModuleError_IsDistinguishesVersions(t *testing.T) {
	// v1 query error and v2 invalid key share the numeric status 1.
	assert.False(t, errors.Is(ErrQueryFailed, ErrInvalidKey))
	assert.True(t, errors.Is(fmt.Errorf("wrapped: %w", ErrInvalidKey), ErrInvalidKey))
}

func TestStatusFor(t *testing.T) {
	decodeErr := &DecodeError{Type: "u64", Offset: 0, Err: fmt.Errorf("short")}

	tests := []struct {
		name    string
		version entities.ProtocolVersion
		err     error
		want    entities.StatusCode
	}{
		{"nil", entities.ProtocolV2, nil, entities.StatusOK},
		{"plain error v2", entities.ProtocolV2, fmt.Errorf("boom"), entities.StatusCannotReadFromKey},
		{"plain error v1", entities.ProtocolV1, fmt.Errorf("boom"), entities.StatusQueryError},
		{"decode v2", entities.ProtocolV2, decodeErr, entities.StatusInvalidKey},
		{"decode v1", entities.ProtocolV1, decodeErr, entities.StatusQueryError},
		{"explicit status", entities.ProtocolV2, &StatusError{Status: entities.StatusCannotWriteToKey}, entities.StatusCannotWriteToKey},
		{"explicit unknown status", entities.ProtocolV2, &StatusError{Status: 42}, entities.StatusCannotReadFromKey},
		{"explicit zero status", entities.ProtocolV2, &StatusError{Status: entities.StatusOK}, entities.StatusCannotReadFromKey},
		{"module error same version", entities.ProtocolV2, fmt.Errorf("x: %w", ErrCannotWriteToKey), entities.StatusCannotWriteToKey},
		{"module error other version", entities.ProtocolV1, ErrCannotWriteToKey, entities.StatusQueryError},
		{"encode v2", entities.ProtocolV2, &EncodeError{Type: "u64", Err: fmt.Errorf("no encoder")}, entities.StatusCannotWriteToKey},
		{"encode v1", entities.ProtocolV1, &EncodeError{Type: "u64", Err: fmt.Errorf("no encoder")}, entities.StatusQueryError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.version, tt.err))
		})
	}
}

func TestStatusFor_RoundTripsThroughMapper(t *testing.T) {
	for _, v := range []entities.ProtocolVersion{entities.ProtocolV1, entities.ProtocolV2} {
		for _, code := range v.StatusCodes() {
			if code == entities.StatusOK {
				continue
			}
			mapped := FromStatusCode(v, code)
			assert.Equal(t, code, StatusFor(v, mapped), "%s code %d", v, code)
		}
	}
}

func TestDecodeError(t *testing.T) {
	base := fmt.Errorf("unexpected end of input")
	err := &DecodeError{Type: "bytes", Offset: 4, Err: base}

	assert.Equal(t, "decode bytes failed at offset 4: unexpected end of input", err.Error())
	assert.True(t, errors.Is(err, base))
	assert.True(t, IsFatal(fmt.Errorf("call: %w", err)))

	detail := err.ToErrorDetail()
	assert.Equal(t, "decode", detail.Type)
	assert.True(t, detail.Fatal)
}

func TestBufferTooSmallError(t *testing.T) {
	err := &BufferTooSmallError{Required: 64, Capacity: 16}

	assert.Equal(t, "output buffer too small: required 64 bytes, capacity 16 bytes", err.Error())
	assert.False(t, IsFatal(err))

	detail := ToErrorDetail(fmt.Errorf("wrapped: %w", err))
	assert.Equal(t, "capacity", detail.Type)
	assert.Equal(t, uint32(64), detail.Details["required"])
}

func TestUnimplementedOperationError(t *testing.T) {
	err := &UnimplementedOperationError{Operation: 9, Version: entities.ProtocolV2}

	assert.Equal(t, "unimplemented operation 9 for protocol v2", err.Error())
	assert.Equal(t, "routing", err.ToErrorDetail().Type)
}

func TestSourceError(t *testing.T) {
	err := &SourceError{Source: "http", DataID: 42, Err: ErrDataNotFound}

	assert.Equal(t, "source http failed for data id 42: data not found", err.Error())
	assert.True(t, errors.Is(err, ErrDataNotFound))
}

func TestStorageError(t *testing.T) {
	base := fmt.Errorf("connection reset")
	err := &StorageError{Backend: "sql", Key: "0x01", Err: base}

	assert.Equal(t, "storage sql read of 0x01 failed: connection reset", err.Error())
	assert.True(t, errors.Is(err, base))
}

func TestConfigError(t *testing.T) {
	base := fmt.Errorf("must be positive")
	err := &ConfigError{Field: "output_capacity", Err: base}

	assert.Equal(t, "config validation failed for field 'output_capacity': must be positive", err.Error())
	assert.True(t, errors.Is(err, base))
}

func TestToErrorDetail(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		assert.Nil(t, ToErrorDetail(nil))
	})

	t.Run("generic error", func(t *testing.T) {
		detail := ToErrorDetail(fmt.Errorf("boom"))
		assert.Equal(t, "internal", detail.Type)
		assert.Equal(t, "boom", detail.Message)
	})

	t.Run("existing detail", func(t *testing.T) {
		orig := entities.NewErrorDetail("source", "down")
		assert.Same(t, orig, ToErrorDetail(orig))
	})

	t.Run("protocol violation", func(t *testing.T) {
		detail := ToErrorDetail(&ProtocolViolationError{Version: entities.ProtocolV2, Status: 99})
		assert.Equal(t, "protocol", detail.Type)
		assert.Equal(t, "unknown_status_99", detail.Code)
		assert.True(t, detail.Fatal)
	})
}

func TestTransportError(t *testing.T) {
	fault := &TransportError{Transport: entities.TransportMemoryFault}
	assert.Equal(t, "extension call memory fault", fault.Error())
	assert.True(t, fault.ToErrorDetail().Fatal)

	unknown := &TransportError{Transport: 9}
	assert.Equal(t, "unknown transport code 9", unknown.Error())
	assert.Equal(t, "transport_9", ToErrorDetail(unknown).Code)
}
