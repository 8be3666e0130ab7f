package host

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nvr-ai/go-yolo-ffi/logging"
)

// ConsoleFunc prints one rendered log line on the host console.
type ConsoleFunc func(level zapcore.Level, line string)

// consoleCore is a zapcore.Core whose sink is a host console.
type consoleCore struct {
	zapcore.LevelEnabler
	enc   zapcore.Encoder
	print ConsoleFunc
}

// NewConsoleCore returns a core that renders entries with the console encoder
// and hands each line to print. Entries below level are dropped.
func NewConsoleCore(level zapcore.LevelEnabler, print ConsoleFunc) zapcore.Core {
	enc := logging.EncoderConfig(false)
	enc.TimeKey = ""
	enc.CallerKey = ""
	enc.LevelKey = ""
	enc.NameKey = ""
	enc.StacktraceKey = ""
	return &consoleCore{
		LevelEnabler: level,
		enc:          zapcore.NewConsoleEncoder(enc),
		print:        print,
	}
}

// NewConsoleLogger wraps NewConsoleCore in a logger.
func NewConsoleLogger(level zapcore.LevelEnabler, print ConsoleFunc) *zap.Logger {
	return zap.New(NewConsoleCore(level, print))
}

func (c *consoleCore) With(fields []zapcore.Field) zapcore.Core {
	clone := &consoleCore{
		LevelEnabler: c.LevelEnabler,
		enc:          c.enc.Clone(),
		print:        c.print,
	}
	for _, f := range fields {
		f.AddTo(clone.enc)
	}
	return clone
}

func (c *consoleCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *consoleCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	buf, err := c.enc.EncodeEntry(ent, fields)
	if err != nil {
		return err
	}
	line := buf.String()
	buf.Free()
	if n := len(line); n > 0 && line[n-1] == '\n' {
		line = line[:n-1]
	}
	c.print(ent.Level, line)
	return nil
}

func (c *consoleCore) Sync() error { return nil }
