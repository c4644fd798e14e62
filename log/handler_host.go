//go:build !wasip1

package log

import (
	"context"
	"log/slog"
)

// Handle replays the record into the fallback logger. Native builds (host
// tests, contracts run in-process) have no debug_message import, but the
// record still takes the same wire round trip.
func (h *WasmLogHandler) Handle(ctx context.Context, record slog.Record) error {
	payload, err := h.encode(ctx, record)
	if err != nil {
		return err
	}
	Replay(ctx, h.opts.fallback, payload)
	return nil
}
