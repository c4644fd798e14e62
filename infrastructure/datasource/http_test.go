package datasource

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/reglet-dev/reglet-oracle/domain/errors"
)

func newPriceServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/prices/42":
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"id":42,"price":"DEADBEEF"}`)
		case "/prices/7":
			w.WriteHeader(http.StatusInternalServerError)
		case "/prices/8":
			fmt.Fprint(w, strings.Repeat("x", 64))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewHTTPSource_Validation(t *testing.T) {
	tests := []struct {
		name string
		url  string
		opts []HTTPOption
	}{
		{name: "missing placeholder", url: "http://example.com/prices"},
		{name: "bad scheme", url: "ftp://example.com/{id}"},
		{name: "bad selector", url: "http://example.com/{id}", opts: []HTTPOption{WithSelector("css:.price")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewHTTPSource(tt.url, tt.opts...)
			assert.Error(t, err)
		})
	}
}

func TestHTTPSource_Fetch(t *testing.T) {
	srv := newPriceServer(t)
	ctx := context.Background()

	src, err := NewHTTPSource(srv.URL+"/prices/{id}", WithSelector("gjson:price"), WithMaxBodySize(32))
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/prices/42", src.URL(42))

	t.Run("selected value", func(t *testing.T) {
		got, err := src.Fetch(ctx, 42)
		require.NoError(t, err)
		assert.Equal(t, "DEADBEEF", string(got))
	})

	t.Run("not found", func(t *testing.T) {
		_, err := src.Fetch(ctx, 1)
		var se *domainerrors.SourceError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, uint64(1), se.DataID)
		assert.ErrorIs(t, err, domainerrors.ErrDataNotFound)
	})

	t.Run("server error", func(t *testing.T) {
		_, err := src.Fetch(ctx, 7)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected status 500")
	})

	t.Run("oversized body", func(t *testing.T) {
		_, err := src.Fetch(ctx, 8)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exceeds 32 bytes")
	})
}

func TestHTTPSource_CurrentDataID(t *testing.T) {
	srv := newPriceServer(t)
	ctx := context.Background()

	src, err := NewHTTPSource(srv.URL + "/prices/{id}")
	require.NoError(t, err)

	_, err = src.CurrentDataID(ctx)
	assert.ErrorIs(t, err, domainerrors.ErrDataNotFound)

	_, _ = src.Fetch(ctx, 7)
	_, _ = src.Fetch(ctx, 42)
	_, _ = src.Fetch(ctx, 8)

	id, err := src.CurrentDataID(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)

	fixed, err := NewHTTPSource(srv.URL+"/prices/{id}", WithCurrentDataID(5))
	require.NoError(t, err)
	id, err = fixed.CurrentDataID(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), id)
}

func TestHTTPSource_EgressGuard(t *testing.T) {
	srv := newPriceServer(t)
	ctx := context.Background()

	blocked, err := NewHTTPSource(srv.URL+"/prices/{id}", WithEgressGuard())
	require.NoError(t, err)
	_, err = blocked.Fetch(ctx, 42)
	assert.ErrorIs(t, err, ErrEgressBlocked)

	allowed, err := NewHTTPSource(srv.URL+"/prices/{id}",
		WithSelector("jsonpath:$.price"),
		WithEgressGuard(WithPrivateNetworks(true)))
	require.NoError(t, err)
	got, err := allowed.Fetch(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "DEADBEEF", string(got))
}

func TestHTTPSource_EgressGuardReusesPinnedTransport(t *testing.T) {
	var conns atomic.Int32
	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "1.5")
	}))
	srv.Config.ConnState = func(_ net.Conn, state http.ConnState) {
		if state == http.StateNew {
			conns.Add(1)
		}
	}
	srv.Start()
	t.Cleanup(srv.Close)

	src, err := NewHTTPSource(srv.URL+"/prices/{id}", WithEgressGuard(WithPrivateNetworks(true)))
	require.NoError(t, err)

	for id := uint64(0); id < 5; id++ {
		got, err := src.Fetch(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, "1.5", string(got))
	}

	pt, ok := src.client.Transport.(*pinningTransport)
	require.True(t, ok)
	assert.Len(t, pt.pinned, 1)
	assert.Equal(t, int32(1), conns.Load(), "one keep-alive connection serves every fetch")
	pt.CloseIdleConnections()
}

func TestHTTPSource_Headers(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Api-Key")
		fmt.Fprint(w, "1")
	}))
	defer srv.Close()

	src, err := NewHTTPSource(srv.URL+"/{id}", WithHeader("X-Api-Key", "secret"), WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	_, err = src.Fetch(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "secret", gotKey)
}
