// Copyright (c) 2026 ToeiRei
// check_sshfp - SSHFP record monitoring check
// This source code is licensed under the MIT license found in the LICENSE file.

// Package model holds the plain records shared between the CLI and storage.
package model

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// CheckRun is the recorded outcome of one check invocation.
type CheckRun struct {
	ID        int64
	CheckedAt time.Time
	Host      string
	Port      int
	Status    string
	Message   string
}

// Target returns the host:port the run checked.
func (r CheckRun) Target() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}

// String renders the run as one history line.
func (r CheckRun) String() string {
	return fmt.Sprintf("%s %s %s - %s", r.CheckedAt.UTC().Format(time.RFC3339), r.Target(), r.Status, r.Message)
}
