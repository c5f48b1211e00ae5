package logging

import (
	"os"

	"github.com/Jyouping/brooklin/types"
)

// NopLogger implements types.Logger by discarding everything except Fatal,
// which still exits since callers rely on Fatal terminating the process.
type NopLogger struct{}

// Compile-time assertion that NopLogger implements Logger.
var _ types.Logger = (*NopLogger)(nil)

// NewNop creates a new no-op logger.
//
// Returns:
//   - *NopLogger: A new logger instance that discards all non-fatal output
func NewNop() *NopLogger {
	return &NopLogger{}
}

func (l *NopLogger) Debug(_ string, _ ...any) {}

func (l *NopLogger) Info(_ string, _ ...any) {}

func (l *NopLogger) Warn(_ string, _ ...any) {}

func (l *NopLogger) Error(_ string, _ ...any) {}

func (l *NopLogger) Fatal(_ string, _ ...any) {
	os.Exit(1) //nolint:revive // Fatal should exit the program
}
