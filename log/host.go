package log

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Output formats accepted by NewLogger.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// LoggerConfig configures a host-side logger.
type LoggerConfig struct {
	// Output defaults to os.Stderr.
	Output    io.Writer
	Format    string
	Level     string
	AddSource bool
}

// NewLogger builds the host process logger.
func NewLogger(cfg LoggerConfig) (*slog.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: level, AddSource: cfg.AddSource}

	switch strings.ToLower(cfg.Format) {
	case "", FormatText:
		return slog.New(slog.NewTextHandler(out, opts)), nil
	case FormatJSON:
		return slog.New(slog.NewJSONHandler(out, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
}

// ParseLevel parses a slog level name. The empty string is info.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}

// Replay logs a debug_message payload through logger. A payload that is not
// a LogMessageWire is logged verbatim at debug level.
func Replay(ctx context.Context, logger *slog.Logger, payload []byte) {
	var msg LogMessageWire
	if err := json.Unmarshal(payload, &msg); err != nil || (msg.Level == "" && msg.Message == "") {
		logger.DebugContext(ctx, "contract debug message", "payload", string(payload))
		return
	}

	level := slog.LevelInfo
	if parsed, err := ParseLevel(msg.Level); err == nil {
		level = parsed
	}

	attrs := make([]slog.Attr, 0, len(msg.Attrs)+4)
	attrs = append(attrs, slog.String("origin", "contract"))
	if msg.Context.CallID != "" {
		attrs = append(attrs, slog.String("call_id", msg.Context.CallID))
	}
	if msg.Context.Contract != "" {
		attrs = append(attrs, slog.String("contract", msg.Context.Contract))
	}
	if msg.Source != "" {
		attrs = append(attrs, slog.String("contract_source", msg.Source))
	}
	for _, a := range msg.Attrs {
		attrs = append(attrs, fromLogAttrWire(a))
	}
	logger.LogAttrs(ctx, level, msg.Message, attrs...)
}
