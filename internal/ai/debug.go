package ai

import "sync/atomic"

// debugLoggingEnabled gates the per-tick debug logs of the AI layer.
var debugLoggingEnabled atomic.Bool

// EnableDebugLogging switches AI debug logging. Call it once at startup
// from the configured log level.
func EnableDebugLogging(enabled bool) {
	debugLoggingEnabled.Store(enabled)
}

// IsDebugEnabled reports whether AI debug logging is on. Guard expensive
// debug calls with it:
//
//	if ai.IsDebugEnabled() {
//	    slog.Debug("target switched", "unit", id, "target", next)
//	}
func IsDebugEnabled() bool {
	return debugLoggingEnabled.Load()
}
