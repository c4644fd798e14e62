package hostfuncs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/reglet-dev/reglet-oracle/domain/errors"
)

func TestOutputBuffer_Write(t *testing.T) {
	t.Run("fits exactly", func(t *testing.T) {
		buf := NewOutputBuffer(4)
		n, err := buf.Write([]byte{0xde, 0xad, 0xbe, 0xef})
		require.NoError(t, err)
		assert.Equal(t, 4, n)
		assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, buf.Bytes())
	})

	t.Run("too small writes nothing", func(t *testing.T) {
		buf := NewOutputBuffer(3)
		n, err := buf.Write([]byte{1, 2, 3, 4, 5})
		require.Error(t, err)
		assert.Equal(t, 0, n)
		assert.Equal(t, 0, buf.Len())

		var tooSmall *domainerrors.BufferTooSmallError
		require.True(t, errors.As(err, &tooSmall))
		assert.Equal(t, uint32(5), tooSmall.Required)
		assert.Equal(t, uint32(3), tooSmall.Capacity)
	})

	t.Run("required counts earlier writes", func(t *testing.T) {
		buf := NewOutputBuffer(4)
		_, err := buf.Write([]byte{1, 2, 3})
		require.NoError(t, err)

		_, err = buf.Write([]byte{4, 5})
		var tooSmall *domainerrors.BufferTooSmallError
		require.ErrorAs(t, err, &tooSmall)
		assert.Equal(t, uint32(5), tooSmall.Required)
		assert.Equal(t, []byte{1, 2, 3}, buf.Bytes())
	})

	t.Run("zero capacity accepts empty write", func(t *testing.T) {
		buf := NewOutputBuffer(0)
		_, err := buf.Write(nil)
		require.NoError(t, err)
		assert.Equal(t, uint32(0), buf.Capacity())
	})

	t.Run("reset keeps capacity", func(t *testing.T) {
		buf := NewOutputBuffer(2)
		_, _ = buf.Write([]byte{1, 2})
		buf.Reset()
		assert.Equal(t, 0, buf.Len())
		_, err := buf.Write([]byte{3, 4})
		require.NoError(t, err)
	})
}

func TestBoundedBuffer_Write(t *testing.T) {
	tests := []struct {
		name      string
		limit     int
		writes    []string
		want      string
		truncated bool
	}{
		{name: "within limit", limit: 100, writes: []string{"hello"}, want: "hello"},
		{name: "truncates at limit", limit: 10, writes: []string{"hello world"}, want: "hello worl", truncated: true},
		{name: "multiple writes", limit: 10, writes: []string{"12345", "67890", "XXXXX"}, want: "1234567890", truncated: true},
		{name: "partial write at boundary", limit: 8, writes: []string{"12345", "67890"}, want: "12345678", truncated: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := NewBoundedBuffer(tt.limit)
			for _, w := range tt.writes {
				n, err := buf.Write([]byte(w))
				require.NoError(t, err)
				// io.Writer contract: report everything as written
				assert.Equal(t, len(w), n)
			}
			assert.Equal(t, tt.want, buf.String())
			assert.Equal(t, tt.truncated, buf.Truncated)
		})
	}
}

func TestBoundedBuffer_Reset(t *testing.T) {
	buf := NewBoundedBuffer(5)
	_, _ = buf.Write([]byte("hello world"))
	require.True(t, buf.Truncated)

	buf.Reset()

	assert.False(t, buf.Truncated)
	assert.Equal(t, 0, buf.Len())
	assert.Empty(t, buf.Bytes())
}

func TestDefaultConstants(t *testing.T) {
	assert.Equal(t, 16*1024, DefaultOutputCapacity)
	assert.Equal(t, 1*1024*1024, DefaultMaxRequestSize)
	assert.Equal(t, 10*1024*1024, DefaultMaxSourceResponseSize)
}
