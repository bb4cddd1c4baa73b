package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes device events to an slog.Logger.
// Useful for development when you want to see device events in console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger at Debug level.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("device", event.DeviceName),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}

	switch {
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Op != nil:
		attrs = append(attrs, slog.String("op", event.Op.Op))
		if event.Op.Status != "" {
			attrs = append(attrs, slog.String("status", event.Op.Status))
		}
		if event.Op.Delay != 0 {
			attrs = append(attrs, slog.Duration("delay", event.Op.Delay))
		}
		if event.Op.ImagesReceived != 0 {
			attrs = append(attrs, slog.Uint64("images_received", uint64(event.Op.ImagesReceived)))
		}
	case event.Error != nil:
		attrs = append(attrs, slog.String("error", event.Error.Message))
		if event.Error.Context != "" {
			attrs = append(attrs, slog.String("context", event.Error.Context))
		}
	case event.Trace != nil:
		attrs = append(attrs, slog.String("subject", event.Trace.Subject))
		for _, f := range event.Trace.Fields {
			attrs = append(attrs, slog.String(f.Key, f.Value))
		}
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "device", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
