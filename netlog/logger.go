// Package netlog is a zap-backed logger that keeps the teacher's colored
// console feel (per-level color, banner/section headers) while giving every
// call site structured fields instead of Printf-style formatting.
package netlog

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ANSI color codes, kept for the banner/section helpers that print outside
// the zap pipeline.
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorCyan   = "\033[36m"
)

// Logger wraps a *zap.Logger with the console encoder configured to color
// each level the way the teacher's hand-rolled logger did.
type Logger struct {
	z *zap.Logger
}

// New builds a development-style colored console logger at the given level.
func New(level zapcore.Level) *Logger {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(cfg),
		zapcore.Lock(os.Stdout),
		level,
	)
	return &Logger{z: zap.New(core)}
}

// Sugar exposes the underlying *zap.SugaredLogger for call sites that want
// Printf-style formatting.
func (l *Logger) Sugar() *zap.SugaredLogger { return l.z.Sugar() }

func (l *Logger) Debug(msg string, fields ...zap.Field) { l.z.Debug(msg, fields...) }
func (l *Logger) Info(msg string, fields ...zap.Field)  { l.z.Info(msg, fields...) }
func (l *Logger) Warn(msg string, fields ...zap.Field)  { l.z.Warn(msg, fields...) }
func (l *Logger) Error(msg string, fields ...zap.Field) { l.z.Error(msg, fields...) }

// Success logs at info level with an added success=true field, standing in
// for the teacher's dedicated Success() call. The level is colored like any
// other INFO line.
func (l *Logger) Success(msg string, fields ...zap.Field) {
	l.z.Info(msg, append(fields, zap.Bool("success", true))...)
}

// Fatal logs at fatal level and exits, matching zap's own Fatal semantics.
func (l *Logger) Fatal(msg string, fields ...zap.Field) { l.z.Fatal(msg, fields...) }

// Sync flushes any buffered log entries.
func (l *Logger) Sync() error { return l.z.Sync() }

// Section prints a boxed section header outside the structured log stream,
// carried over from the teacher's Section() for CLI operator ergonomics.
func Section(title string) {
	border := "═══════════════════════════════════════════════════════════"
	fmt.Printf("\n%s╔%s╗%s\n", colorCyan, border, colorReset)
	fmt.Printf("%s║%s %-57s %s║%s\n", colorCyan, colorReset, title, colorCyan, colorReset)
	fmt.Printf("%s╚%s╝%s\n\n", colorCyan, border, colorReset)
}

// Banner prints the application banner, carried over from the teacher's
// Banner() with the title/version substitution it already had.
func Banner(title, version string) {
	banner := `
╔═══════════════════════════════════════════════════════════╗
║                                                           ║
║   ██╗   ██╗███████╗████████╗███████╗██╗███╗   ███╗       ║
║   ████╗  ██║██╔════╝╚══██╔══╝██╔════╝██║████╗ ████║       ║
║   ██╔██╗ ██║█████╗     ██║   ███████╗██║██╔████╔██║       ║
║   ██║╚██╗██║██╔══╝     ██║   ╚════██║██║██║╚██╔╝██║       ║
║   ██║ ╚████║███████╗   ██║   ███████║██║██║ ╚═╝ ██║       ║
║   ╚═╝  ╚═══╝╚══════╝   ╚═╝   ╚══════╝╚═╝╚═╝     ╚═╝       ║
║                                                           ║
║              %s%-37s%s║
║                    %sVersion %-7s%s                      ║
║                                                           ║
╚═══════════════════════════════════════════════════════════╝
`
	fmt.Printf(banner, colorCyan, title, colorReset, colorGreen, version, colorReset)
}
