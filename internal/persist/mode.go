package persist

import (
	"log/slog"
	"strings"
)

// Mode selects how writes reach the store.
type Mode string

const (
	// Direct validates and writes immediately, then asks for a match pass.
	Direct Mode = "DIRECT"
	// Deferred validates and enqueues; a worker performs the write later.
	Deferred Mode = "DEFERRED"
)

// ParseMode reads a configured mode. Anything unrecognised falls back to
// Direct with a warning so that a typo never silently defers writes.
func ParseMode(s string, logger *slog.Logger) Mode {
	switch Mode(strings.ToUpper(strings.TrimSpace(s))) {
	case Direct:
		return Direct
	case Deferred:
		return Deferred
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("unknown persistence mode, using DIRECT", "value", s)
	return Direct
}
