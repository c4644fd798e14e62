package log

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/reglet-dev/reglet-oracle/domain/entities"
)

// LogMessageWire is the JSON payload of the debug_message import.
type LogMessageWire struct {
	Timestamp time.Time            `json:"timestamp"`
	Attrs     []LogAttrWire        `json:"attrs,omitempty"`
	Level     string               `json:"level"`
	Message   string               `json:"message"`
	Source    string               `json:"source,omitempty"`
	Context   entities.ContextWire `json:"context"`
}

// LogAttrWire represents a single slog attribute for wire transfer.
type LogAttrWire struct {
	Key   string `json:"key"`
	Type  string `json:"type"`  // "string", "int64", "bool", "float64", "time", "error", "any"
	Value string `json:"value"` // String representation of the value
}

// toLogAttrWire converts a slog.Attr to LogAttrWire.
func toLogAttrWire(attr slog.Attr) LogAttrWire {
	wire := LogAttrWire{
		Key: attr.Key,
	}
	// Resolve the attribute value
	attr.Value = attr.Value.Resolve()

	switch attr.Value.Kind() {
	case slog.KindString:
		wire.Type = "string"
		wire.Value = attr.Value.String()
	case slog.KindInt64:
		wire.Type = "int64"
		wire.Value = fmt.Sprintf("%d", attr.Value.Int64())
	case slog.KindUint64:
		wire.Type = "uint64"
		wire.Value = fmt.Sprintf("%d", attr.Value.Uint64())
	case slog.KindBool:
		wire.Type = "bool"
		wire.Value = fmt.Sprintf("%t", attr.Value.Bool())
	case slog.KindFloat64:
		wire.Type = "float64"
		wire.Value = fmt.Sprintf("%f", attr.Value.Float64())
	case slog.KindTime:
		wire.Type = "time"
		wire.Value = attr.Value.Time().Format(time.RFC3339Nano)
	case slog.KindDuration:
		wire.Type = "duration"
		wire.Value = attr.Value.Duration().String()
	case slog.KindAny:
		if v := attr.Value.Any(); v != nil {
			if err, isErr := v.(error); isErr {
				wire.Type = "error"
				wire.Value = err.Error()
			} else if data, marshalErr := json.Marshal(v); marshalErr == nil {
				wire.Type = "json"
				wire.Value = string(data)
			} else {
				wire.Type = "any"
				wire.Value = fmt.Sprintf("%v", v)
			}
		} else {
			wire.Type = "any"
			wire.Value = "<nil>"
		}
	case slog.KindGroup:
		// Only reached for a group passed directly; handlers use flattenAttr.
		wire.Type = "group"
		wire.Value = fmt.Sprintf("%v", attr.Value.Any())
	case slog.KindLogValuer:
		return toLogAttrWire(slog.Attr{Key: attr.Key, Value: attr.Value.LogValuer().LogValue()})
	default:
		wire.Type = "any"
		wire.Value = fmt.Sprintf("%v", attr.Value.Any())
	}
	return wire
}

// flattenAttr converts attr to wire form, expanding groups into dotted keys.
func flattenAttr(prefix string, attr slog.Attr) []LogAttrWire {
	attr.Value = attr.Value.Resolve()
	if attr.Value.Kind() != slog.KindGroup {
		if attr.Equal(slog.Attr{}) {
			return nil
		}
		wire := toLogAttrWire(attr)
		wire.Key = prefix + wire.Key
		return []LogAttrWire{wire}
	}

	inner := prefix
	if attr.Key != "" {
		inner = prefix + attr.Key + "."
	}
	var out []LogAttrWire
	for _, a := range attr.Value.Group() {
		out = append(out, flattenAttr(inner, a)...)
	}
	return out
}

// fromLogAttrWire restores the typed slog value of a wire attribute. Values
// that fail to parse are kept as strings.
func fromLogAttrWire(w LogAttrWire) slog.Attr {
	switch w.Type {
	case "int64":
		if v, err := strconv.ParseInt(w.Value, 10, 64); err == nil {
			return slog.Int64(w.Key, v)
		}
	case "uint64":
		if v, err := strconv.ParseUint(w.Value, 10, 64); err == nil {
			return slog.Uint64(w.Key, v)
		}
	case "bool":
		if v, err := strconv.ParseBool(w.Value); err == nil {
			return slog.Bool(w.Key, v)
		}
	case "float64":
		if v, err := strconv.ParseFloat(w.Value, 64); err == nil {
			return slog.Float64(w.Key, v)
		}
	case "time":
		if v, err := time.Parse(time.RFC3339Nano, w.Value); err == nil {
			return slog.Time(w.Key, v)
		}
	case "duration":
		if v, err := time.ParseDuration(w.Value); err == nil {
			return slog.Duration(w.Key, v)
		}
	case "json":
		if json.Valid([]byte(w.Value)) {
			return slog.Any(w.Key, json.RawMessage(w.Value))
		}
	}
	return slog.String(w.Key, w.Value)
}
