// Package log routes slog records from a contract to the host, and replays
// them on the host side.
package log

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/reglet-dev/reglet-oracle/internal/wasmcontext"
)

// WasmLogHandler implements slog.Handler to route logs through the
// debug_message host import.
type WasmLogHandler struct {
	opts   handlerConfig
	attrs  []LogAttrWire
	groups []string
}

// HandlerOption configures the WasmLogHandler.
type HandlerOption func(*handlerConfig)

type handlerConfig struct {
	// fallback receives records in native builds, where there is no host import.
	fallback  *slog.Logger
	level     slog.Level
	addSource bool
}

// defaultHandlerConfig returns the default configuration.
func defaultHandlerConfig() handlerConfig {
	return handlerConfig{
		level:    slog.LevelInfo,
		fallback: slog.New(slog.NewTextHandler(os.Stderr, nil)),
	}
}

// WithLevel sets the minimum log level to report.
// Records below this level will be filtered on the guest side.
func WithLevel(level slog.Level) HandlerOption {
	return func(c *handlerConfig) {
		c.level = level
	}
}

// WithSource enables reporting of source location (file/line).
func WithSource(enabled bool) HandlerOption {
	return func(c *handlerConfig) {
		c.addSource = enabled
	}
}

// WithFallback sets the logger that replays records in native (non-WASM)
// builds. It must not itself be backed by a WasmLogHandler.
func WithFallback(l *slog.Logger) HandlerOption {
	return func(c *handlerConfig) {
		if l != nil {
			c.fallback = l
		}
	}
}

// NewHandler creates a new WasmLogHandler with the given options.
func NewHandler(opts ...HandlerOption) *WasmLogHandler {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &WasmLogHandler{opts: cfg}
}

// Enabled reports whether the handler handles records at the given level.
func (h *WasmLogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.level
}

// WithAttrs returns a new WasmLogHandler that includes the given attributes.
func (h *WasmLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := h.clone()
	prefix := h.prefix()
	for _, attr := range attrs {
		clone.attrs = append(clone.attrs, flattenAttr(prefix, attr)...)
	}
	return clone
}

// WithGroup returns a new WasmLogHandler that qualifies later keys with name.
func (h *WasmLogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := h.clone()
	clone.groups = append(clone.groups, name)
	return clone
}

func (h *WasmLogHandler) clone() *WasmLogHandler {
	return &WasmLogHandler{
		opts:   h.opts,
		attrs:  append([]LogAttrWire(nil), h.attrs...),
		groups: append([]string(nil), h.groups...),
	}
}

func (h *WasmLogHandler) prefix() string {
	if len(h.groups) == 0 {
		return ""
	}
	return strings.Join(h.groups, ".") + "."
}

// encode serializes record as the JSON LogMessageWire sent to the host.
func (h *WasmLogHandler) encode(ctx context.Context, record slog.Record) ([]byte, error) {
	if ctx == nil {
		ctx = wasmcontext.GetCurrentContext()
	}
	wire := wasmcontext.ContextToWire(ctx)
	if wire.CallID == "" && wire.Contract == "" {
		// slog's package-level helpers pass context.Background().
		wire = wasmcontext.ContextToWire(wasmcontext.GetCurrentContext())
	}

	msg := LogMessageWire{
		Context:   wire,
		Level:     record.Level.String(),
		Message:   record.Message,
		Timestamp: record.Time,
		Attrs:     append([]LogAttrWire(nil), h.attrs...),
	}
	if h.opts.addSource && record.PC != 0 {
		frames := runtime.CallersFrames([]uintptr{record.PC})
		frame, _ := frames.Next()
		msg.Source = fmt.Sprintf("%s:%d", frame.File, frame.Line)
	}

	prefix := h.prefix()
	record.Attrs(func(attr slog.Attr) bool {
		msg.Attrs = append(msg.Attrs, flattenAttr(prefix, attr)...)
		return true
	})

	return json.Marshal(msg)
}
