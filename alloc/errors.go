package alloc

import (
	"fmt"
	"log/slog"
)

// InvariantError describes a violated allocator or table invariant.
// It is the panic value raised by Fatalf.
type InvariantError struct {
	Op  string
	Msg string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("swissalloc: %s: %s", e.Op, e.Msg)
}

// Fatalf logs the violation and panics with an *InvariantError.
func Fatalf(logger *slog.Logger, op, format string, args ...any) {
	err := &InvariantError{Op: op, Msg: fmt.Sprintf(format, args...)}
	if logger != nil {
		logger.Error("invariant violated", "op", op, "error", err.Msg)
	}
	panic(err)
}

// DiscardLogger returns l, or a logger that drops everything when l is nil.
func DiscardLogger(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.New(slog.DiscardHandler)
}
