// Package klog is the kernel log. Messages are filtered by a bit mask and
// colored by level.
package klog

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
)

type MaskLevel int

const (
	Nothing   MaskLevel = 0x0
	ErrorMask MaskLevel = 0x1
	WarnMask  MaskLevel = 0x2
	InfoMask  MaskLevel = 0x4
	DebugMask MaskLevel = 0x8
	TraceMask MaskLevel = 0x10
	fatalMask MaskLevel = 0x80
)

var (
	mu     sync.Mutex
	level  = fatalMask | ErrorMask | WarnMask
	output io.Writer = os.Stderr
)

var prefix = map[MaskLevel]*color.Color{
	fatalMask: color.New(color.FgRed, color.Bold),
	ErrorMask: color.New(color.FgRed),
	WarnMask:  color.New(color.FgYellow),
	InfoMask:  color.New(color.FgWhite),
	DebugMask: color.New(color.FgCyan),
	TraceMask: color.New(color.FgBlue),
}

var label = map[MaskLevel]string{
	fatalMask: "FATAL:",
	ErrorMask: "ERROR:",
	WarnMask:  " WARN:",
	InfoMask:  " INFO:",
	DebugMask: "DEBUG:",
	TraceMask: "TRACE:",
}

// SetLevel replaces the mask, e.g. ErrorMask|DebugMask, and returns the
// previous one. Fatal messages cannot be masked.
func SetLevel(mask MaskLevel) MaskLevel {
	mu.Lock()
	defer mu.Unlock()
	prev := level &^ fatalMask
	level = (mask & 0x1f) | fatalMask
	return prev
}

// Level returns the current mask without the fatal bit.
func Level() MaskLevel {
	mu.Lock()
	defer mu.Unlock()
	return level &^ fatalMask
}

// Enabled reports whether messages of level l are printed.
func Enabled(l MaskLevel) bool {
	mu.Lock()
	defer mu.Unlock()
	return level&l != 0
}

// SetOutput redirects the log and returns the previous writer.
func SetOutput(w io.Writer) io.Writer {
	mu.Lock()
	defer mu.Unlock()
	prev := output
	output = w
	return prev
}

func logf(l MaskLevel, format string, params ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	if level&l == 0 {
		return
	}
	if len(format) == 0 || format[len(format)-1] != '\n' {
		format += "\n"
	}
	prefix[l].Fprint(output, label[l])
	fmt.Fprintf(output, " "+format, params...)
}

// Fatalf logs regardless of the mask. The caller decides how to stop.
func Fatalf(format string, params ...interface{}) {
	logf(fatalMask, format, params...)
}

func Errorf(format string, params ...interface{}) {
	logf(ErrorMask, format, params...)
}

func Warnf(format string, params ...interface{}) {
	logf(WarnMask, format, params...)
}

func Infof(format string, params ...interface{}) {
	logf(InfoMask, format, params...)
}

func Debugf(format string, params ...interface{}) {
	logf(DebugMask, format, params...)
}

// Tracef is used for per-trap messages.
func Tracef(format string, params ...interface{}) {
	logf(TraceMask, format, params...)
}
