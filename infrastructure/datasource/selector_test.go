package datasource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const priceBody = `{"data":{"symbol":"NEO","price":12.5,"decimals":8,"tags":["a","b"]}}`

func TestParseSelector(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want string
	}{
		{name: "whole body", expr: "", want: priceBody},
		{name: "gjson number", expr: "gjson:data.price", want: "12.5"},
		{name: "gjson string unquoted", expr: "gjson:data.symbol", want: "NEO"},
		{name: "gjson array", expr: "gjson:data.tags", want: `["a","b"]`},
		{name: "jsonpath number", expr: "jsonpath:$.data.price", want: "12.5"},
		{name: "jsonpath string unquoted", expr: "jsonpath:$.data.symbol", want: "NEO"},
		{name: "jsonpath array", expr: "jsonpath:$.data.tags", want: `["a","b"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, err := ParseSelector(tt.expr)
			require.NoError(t, err)
			got, err := sel([]byte(priceBody))
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestParseSelector_Invalid(t *testing.T) {
	for _, expr := range []string{"xpath://price", "gjson:", "jsonpath:$[?("} {
		t.Run(expr, func(t *testing.T) {
			_, err := ParseSelector(expr)
			assert.Error(t, err)
		})
	}
}

func TestSelector_Failures(t *testing.T) {
	tests := []struct {
		name string
		expr string
		body string
	}{
		{name: "gjson missing path", expr: "gjson:data.volume", body: priceBody},
		{name: "gjson not json", expr: "gjson:data.price", body: "<html>"},
		{name: "jsonpath missing path", expr: "jsonpath:$.data.volume", body: priceBody},
		{name: "jsonpath not json", expr: "jsonpath:$.data", body: "<html>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, err := ParseSelector(tt.expr)
			require.NoError(t, err)
			_, err = sel([]byte(tt.body))
			assert.Error(t, err)
		})
	}
}
