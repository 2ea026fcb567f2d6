package logging

import (
	"fmt"
	"io"
)

// Supported backends for New.
const (
	BackendSlogText = "slog-text"
	BackendSlogJSON = "slog-json"
	BackendZap      = "zap"
)

// New returns a Logger for the named backend writing to w at the given level.
func New(backend string, w io.Writer, level string) (Logger, error) {
	switch backend {
	case "", BackendSlogText:
		return NewTextSlogLogger(w, level), nil
	case BackendSlogJSON:
		return NewJSONSlogLogger(w, level), nil
	case BackendZap:
		return NewZapConsoleLogger(w, level), nil
	default:
		return nil, fmt.Errorf("unknown log backend %q", backend)
	}
}
