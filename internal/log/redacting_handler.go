package log

import (
	"context"
	"log/slog"
	"strings"
)

const redacted = "[REDACTED]"

// Credentials and session ids never reach the output.
var secretKeys = map[string]struct{}{
	"password":      {},
	"password_hash": {},
	"new_password":  {},
	"token":         {},
	"session":       {},
}

// Contact details of users and booking parties are logged masked so that a
// log line can still be matched against a record.
var contactKeys = map[string]struct{}{
	"email":            {},
	"phone_number":     {},
	"customer_contact": {},
	"driver_contact":   {},
	"owner_contact":    {},
}

// RedactingHandler hides credentials and masks contact details, at any group
// depth, before the record reaches the inner handler.
type RedactingHandler struct {
	inner slog.Handler
}

func NewRedactingHandler(inner slog.Handler) *RedactingHandler {
	return &RedactingHandler{inner: inner}
}

func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *RedactingHandler) Handle(ctx context.Context, record slog.Record) (err error) {
	defer func() {
		if r := recover(); r != nil {
			fallback := slog.NewRecord(record.Time, slog.LevelError, "log redaction failed", record.PC)
			fallback.AddAttrs(slog.String("message", record.Message))
			err = h.inner.Handle(ctx, fallback)
		}
	}()

	out := slog.NewRecord(record.Time, record.Level, record.Message, record.PC)
	record.Attrs(func(attr slog.Attr) bool {
		out.AddAttrs(scrubAttr(attr))
		return true
	})
	return h.inner.Handle(ctx, out)
}

func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	scrubbed := make([]slog.Attr, 0, len(attrs))
	for _, attr := range attrs {
		scrubbed = append(scrubbed, scrubAttr(attr))
	}
	return &RedactingHandler{inner: h.inner.WithAttrs(scrubbed)}
}

func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{inner: h.inner.WithGroup(name)}
}

func scrubAttr(attr slog.Attr) slog.Attr {
	attr.Value = attr.Value.Resolve()
	key := strings.ToLower(attr.Key)

	if _, ok := secretKeys[key]; ok {
		return slog.String(attr.Key, redacted)
	}
	if _, ok := contactKeys[key]; ok {
		return slog.String(attr.Key, maskContact(key, attr.Value.String()))
	}

	if attr.Value.Kind() == slog.KindGroup {
		group := attr.Value.Group()
		scrubbed := make([]slog.Attr, 0, len(group))
		for _, nested := range group {
			scrubbed = append(scrubbed, scrubAttr(nested))
		}
		return slog.Attr{Key: attr.Key, Value: slog.GroupValue(scrubbed...)}
	}
	return attr
}

// maskContact keeps the first letter and domain of an email and the last
// four characters of anything else.
func maskContact(key, value string) string {
	if value == "" {
		return ""
	}
	if key == "email" {
		if at := strings.LastIndex(value, "@"); at > 0 {
			return value[:1] + "***" + value[at:]
		}
		return redacted
	}
	runes := []rune(value)
	if len(runes) <= 4 {
		return strings.Repeat("*", len(runes))
	}
	return strings.Repeat("*", len(runes)-4) + string(runes[len(runes)-4:])
}
