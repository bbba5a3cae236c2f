// Copyright (c) 2026 ToeiRei
// check_sshfp - SSHFP record monitoring check
// This source code is licensed under the MIT license found in the LICENSE file.

// Package logging holds the diagnostic logger. Diagnostics always go to
// stderr so stdout carries nothing but the single status line.
package logging

import (
	"fmt"
	"io"
	"os"

	clog "github.com/charmbracelet/log"
	"golang.org/x/term"
)

// L is the package-level logger. Callers should use the helper functions
// below.
var L = New(os.Stderr)

// New returns a logger writing to w at warn level. Output that is not a
// terminal is written as logfmt so it stays machine readable in monitoring
// agent logs.
func New(w io.Writer) *clog.Logger {
	l := clog.NewWithOptions(w, clog.Options{
		Prefix: "check_sshfp",
		Level:  clog.WarnLevel,
	})
	if f, ok := w.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		l.SetFormatter(clog.LogfmtFormatter)
	}
	return l
}

// SetDebug switches between debug and warn level.
func SetDebug(enabled bool) {
	if enabled {
		L.SetLevel(clog.DebugLevel)
	} else {
		L.SetLevel(clog.WarnLevel)
	}
}

// Debugf logs a debug-level formatted message.
func Debugf(format string, v ...interface{}) {
	L.Debug(fmt.Sprintf(format, v...))
}

// Infof logs an info-level formatted message.
func Infof(format string, v ...interface{}) {
	L.Info(fmt.Sprintf(format, v...))
}

// Warnf logs a warning-level formatted message.
func Warnf(format string, v ...interface{}) {
	L.Warn(fmt.Sprintf(format, v...))
}

// Errorf logs an error-level formatted message.
func Errorf(format string, v ...interface{}) {
	L.Error(fmt.Sprintf(format, v...))
}
