package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/tidwall/gjson"
)

// Selector extracts the value a source returns from a raw response body.
type Selector func(body []byte) ([]byte, error)

// Selector expression prefixes.
const (
	GJSONPrefix    = "gjson:"
	JSONPathPrefix = "jsonpath:"
)

// ParseSelector builds a Selector from an expression:
//
//	""                       whole body
//	"gjson:data.price"       github.com/tidwall/gjson path
//	"jsonpath:$.data.price"  JSONPath expression
//
// String results are returned unquoted; numbers, objects and arrays as JSON text.
func ParseSelector(expr string) (Selector, error) {
	switch {
	case expr == "":
		return func(body []byte) ([]byte, error) { return body, nil }, nil
	case strings.HasPrefix(expr, GJSONPrefix):
		path := strings.TrimPrefix(expr, GJSONPrefix)
		if path == "" {
			return nil, fmt.Errorf("empty gjson path")
		}
		return gjsonSelector(path), nil
	case strings.HasPrefix(expr, JSONPathPrefix):
		path := strings.TrimPrefix(expr, JSONPathPrefix)
		eval, err := jsonpath.New(path)
		if err != nil {
			return nil, fmt.Errorf("invalid jsonpath %q: %w", path, err)
		}
		return func(body []byte) ([]byte, error) {
			var doc any
			if err := json.Unmarshal(body, &doc); err != nil {
				return nil, fmt.Errorf("response is not JSON: %w", err)
			}
			v, err := eval(context.Background(), doc)
			if err != nil {
				return nil, fmt.Errorf("jsonpath %q: %w", path, err)
			}
			return jsonValue(v)
		}, nil
	default:
		return nil, fmt.Errorf("unknown selector %q (want %q or %q prefix)", expr, GJSONPrefix, JSONPathPrefix)
	}
}

func gjsonSelector(path string) Selector {
	return func(body []byte) ([]byte, error) {
		if !gjson.ValidBytes(body) {
			return nil, fmt.Errorf("response is not JSON")
		}
		r := gjson.GetBytes(body, path)
		if !r.Exists() {
			return nil, fmt.Errorf("gjson path %q not found", path)
		}
		if r.Type == gjson.String {
			return []byte(r.Str), nil
		}
		return []byte(r.Raw), nil
	}
}

func jsonValue(v any) ([]byte, error) {
	if s, ok := v.(string); ok {
		return []byte(s), nil
	}
	return json.Marshal(v)
}
