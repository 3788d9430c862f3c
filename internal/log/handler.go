package log

import (
	"context"
	"io"
	"log/slog"

	"github.com/google/uuid"
)

// shortIDLen is how much of a request id debug lines show.
const shortIDLen = 8

// Handler is a slog.TextHandler that shortens request uuids, whether they are
// attached with slog.With or passed per record.
type Handler struct {
	*slog.TextHandler
	w io.Writer
}

func NewHandler(w io.Writer, opts *slog.HandlerOptions) *Handler {
	return &Handler{
		TextHandler: slog.NewTextHandler(w, opts),
		w:           w,
	}
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(shortenRequestID(a))
		return true
	})
	return h.TextHandler.Handle(ctx, out)
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	short := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		short[i] = shortenRequestID(a)
	}
	return &Handler{
		TextHandler: h.TextHandler.WithAttrs(short).(*slog.TextHandler),
		w:           h.w,
	}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{
		TextHandler: h.TextHandler.WithGroup(name).(*slog.TextHandler),
		w:           h.w,
	}
}

func shortenRequestID(a slog.Attr) slog.Attr {
	if a.Key != "request" || a.Value.Kind() != slog.KindString {
		return a
	}
	id := a.Value.String()
	if _, err := uuid.Parse(id); err != nil || len(id) != 36 {
		return a
	}
	return slog.String(a.Key, id[:shortIDLen])
}
