package utils

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// ANSI colour codes — make terminal output easier to read while debugging
const (
	reset  = "\033[0m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	blue   = "\033[34m"
	cyan   = "\033[36m"
)

var (
	outMu sync.Mutex
	out   io.Writer = os.Stdout
)

// SetOutput redirects all log lines. Tests pass io.Discard.
func SetOutput(w io.Writer) {
	outMu.Lock()
	out = w
	outMu.Unlock()
}

func ts() string {
	return time.Now().Format("15:04:05")
}

func logf(colour, level, format string, a ...interface{}) {
	line := fmt.Sprintf("%s[%s] %s %s%s\n", colour, ts(), level, fmt.Sprintf(format, a...), reset)
	outMu.Lock()
	io.WriteString(out, line)
	outMu.Unlock()
}

func Info(format string, a ...interface{}) {
	logf(blue, "[INFO] ", format, a...)
}

func Success(format string, a ...interface{}) {
	logf(green, "[OK]   ", format, a...)
}

func Warn(format string, a ...interface{}) {
	logf(yellow, "[WARN] ", format, a...)
}

func Error(format string, a ...interface{}) {
	logf(red, "[ERROR]", format, a...)
}

// Progress rewrites the current terminal line, used for the queue-depth ticker.
func Progress(format string, a ...interface{}) {
	line := fmt.Sprintf("\r%s%s%s", cyan, fmt.Sprintf(format, a...), reset)
	outMu.Lock()
	io.WriteString(out, line)
	outMu.Unlock()
}

func Section(title string) {
	line := fmt.Sprintf("\n%s[%s] ══════════ %s ══════════%s\n\n", cyan, ts(), title, reset)
	outMu.Lock()
	io.WriteString(out, line)
	outMu.Unlock()
}
