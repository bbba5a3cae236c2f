// Copyright (c) 2026 ToeiRei
// check_sshfp - SSHFP record monitoring check
// This source code is licensed under the MIT license found in the LICENSE file.

// Package status renders check findings in the monitoring plugin convention:
// one "<STATUS> - <message>" line and an exit code of 0, 1, 2 or 3.
package status

import (
	"fmt"
	"io"
	"strings"

	"github.com/toeirei/sshfpcheck/internal/i18n"
	"github.com/toeirei/sshfpcheck/internal/reconcile"
)

// Status is a monitoring outcome. Its value is the process exit code.
type Status int

const (
	OK       Status = 0
	Warning  Status = 1
	Critical Status = 2
	Unknown  Status = 3
)

func (s Status) String() string {
	switch s {
	case OK:
		return "OK"
	case Warning:
		return "WARNING"
	case Critical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// Code is the process exit code for s.
func (s Status) Code() int {
	switch s {
	case OK, Warning, Critical:
		return int(s)
	default:
		return int(Unknown)
	}
}

// Report is a status plus its one-line message.
type Report struct {
	Status  Status
	Message string
}

// Line renders the report as printed on stdout. Multi-line messages, such
// as wrapped decoder errors, are folded so the output stays one line.
func (r Report) Line() string {
	return fmt.Sprintf("%s - %s", r.Status, oneLine(r.Message))
}

// oneLine collapses whitespace within each line and joins the non-empty
// lines with "; ", or with a space after a trailing colon.
func oneLine(msg string) string {
	var b strings.Builder
	for _, line := range strings.Split(msg, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if b.Len() > 0 {
			if strings.HasSuffix(b.String(), ":") {
				b.WriteString(" ")
			} else {
				b.WriteString("; ")
			}
		}
		b.WriteString(strings.Join(fields, " "))
	}
	return b.String()
}

func newReport(s Status, messageID string, args ...any) Report {
	return Report{Status: s, Message: i18n.T(messageID, args...)}
}

// Okf, Warningf, Criticalf and Unknownf build reports from a message ID in
// the locale catalogue.
func Okf(messageID string, args ...any) Report {
	return newReport(OK, messageID, args...)
}

func Warningf(messageID string, args ...any) Report {
	return newReport(Warning, messageID, args...)
}

func Criticalf(messageID string, args ...any) Report {
	return newReport(Critical, messageID, args...)
}

func Unknownf(messageID string, args ...any) Report {
	return newReport(Unknown, messageID, args...)
}

// FromResult maps a reconciliation finding to a report. Coverage gaps are
// warnings, a wrong fingerprint is critical.
func FromResult(r reconcile.Result) Report {
	switch r.Kind {
	case reconcile.OK:
		return Okf("status.ok", r.Records, r.Algorithms)
	case reconcile.NoRecordForAlgorithm:
		return Warningf("status.no_record", r.Algorithm)
	case reconcile.UnusedRecord:
		return Warningf("status.unused_record", r.Algorithm)
	case reconcile.FingerprintMismatch:
		return Criticalf("status.mismatch", r.Expected, r.Observed)
	default:
		return Report{Status: Unknown, Message: fmt.Sprintf("unhandled result %s", r.Kind)}
	}
}

// Exit writes the report line to w and terminates through exit.
func Exit(w io.Writer, r Report, exit func(int)) {
	fmt.Fprintln(w, r.Line())
	exit(r.Status.Code())
}
