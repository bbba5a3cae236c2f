// Copyright (c) 2026 ToeiRei
// check_sshfp - SSHFP record monitoring check
// This source code is licensed under the MIT license found in the LICENSE file.

// Package keyscan collects the host keys an SSH service offers by running
// ssh-keyscan.
package keyscan

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/toeirei/sshfpcheck/internal/logging"
	"github.com/toeirei/sshfpcheck/internal/sshfp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultPath is looked up in $PATH.
	DefaultPath = "ssh-keyscan"
	// DefaultTimeout bounds a single ssh-keyscan run.
	DefaultTimeout = 30 * time.Second
	// KeyTypes is passed to ssh-keyscan -t.
	KeyTypes = "rsa,dsa,ecdsa,ed25519"
)

// ErrParse is returned for ssh-keyscan output that cannot be understood.
var ErrParse = errors.New("invalid ssh-keyscan output")

// ScanError reports that no keys could be collected.
type ScanError struct {
	// Diagnostics is the stderr text with comment lines removed.
	Diagnostics string
	Err         error
}

func (e *ScanError) Error() string {
	switch {
	case e.Diagnostics != "":
		return e.Diagnostics
	case e.Err != nil:
		return e.Err.Error()
	default:
		return "no host keys returned"
	}
}

func (e *ScanError) Unwrap() error { return e.Err }

// Scanner runs ssh-keyscan.
type Scanner struct {
	Path    string
	Timeout time.Duration
}

// New returns a scanner for the given binary; empty values select the
// defaults.
func New(path string, timeout time.Duration) *Scanner {
	if path == "" {
		path = DefaultPath
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Scanner{Path: path, Timeout: timeout}
}

// drainGrace is how long the output pipes may stay open after the watchdog
// fired. A wrapper script can leave a grandchild holding them after the
// direct child was killed.
var drainGrace = time.Second

// Scan returns the keys offered by host:port in the order ssh-keyscan
// printed them.
func (s *Scanner) Scan(ctx context.Context, host string, port int) ([]sshfp.OfferedKey, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return nil, &ScanError{Err: err}
	}
	defer stdoutR.Close()
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		_ = stdoutW.Close()
		return nil, &ScanError{Err: err}
	}
	defer stderrR.Close()

	cmd := exec.CommandContext(ctx, s.Path, "-p", strconv.Itoa(port), "-t", KeyTypes, host)
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	logging.Debugf("keyscan: running %s", strings.Join(cmd.Args, " "))
	startErr := cmd.Start()
	// The child holds its own copies; ours must go or the readers never see EOF.
	_ = stdoutW.Close()
	_ = stderrW.Close()
	if startErr != nil {
		return nil, &ScanError{Err: fmt.Errorf("failed to start %s: %w", s.Path, startErr)}
	}

	// Once the watchdog fires, reads end after drainGrace even if some
	// descendant still has the pipes open.
	stop := context.AfterFunc(ctx, func() {
		deadline := time.Now().Add(drainGrace)
		_ = stdoutR.SetReadDeadline(deadline)
		_ = stderrR.SetReadDeadline(deadline)
	})
	defer stop()

	// Both pipes have to be drained concurrently, or a full stderr buffer
	// blocks the child while we sit on stdout.
	var stdout, stderr bytes.Buffer
	var g errgroup.Group
	g.Go(func() error {
		_, err := io.Copy(&stdout, stdoutR)
		return err
	})
	g.Go(func() error {
		_, err := io.Copy(&stderr, stderrR)
		return err
	})
	drainErr := g.Wait()
	waitErr := cmd.Wait()

	diag := CleanDiagnostics(stderr.String())
	if ctx.Err() == context.DeadlineExceeded {
		return nil, &ScanError{Diagnostics: diag, Err: fmt.Errorf("timed out after %s", s.Timeout)}
	}
	if waitErr != nil {
		return nil, &ScanError{Diagnostics: diag, Err: waitErr}
	}
	if drainErr != nil {
		return nil, &ScanError{Diagnostics: diag, Err: drainErr}
	}
	if strings.TrimSpace(stdout.String()) == "" {
		return nil, &ScanError{Diagnostics: diag}
	}

	keys, err := Parse(&stdout)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, &ScanError{Diagnostics: diag}
	}
	return keys, nil
}

// CleanDiagnostics drops the "# host:port SSH-2.0-..." banner lines from
// ssh-keyscan stderr and joins the rest into one line.
func CleanDiagnostics(s string) string {
	var kept []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "; ")
}

// Parse reads "host algorithm base64-key" lines. Each key is checked to be a
// well-formed public key of the algorithm it is listed under.
func Parse(r io.Reader) ([]sshfp.OfferedKey, error) {
	var keys []sshfp.OfferedKey
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 3 {
			return nil, fmt.Errorf("%w: line %d: expected host, algorithm and key", ErrParse, lineNo)
		}
		name, encoded := fields[1], fields[2]

		alg, err := sshfp.AlgorithmFromWireName(name)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrParse, lineNo, err)
		}
		raw, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: bad base64: %v", ErrParse, lineNo, err)
		}
		pub, err := ssh.ParsePublicKey(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrParse, lineNo, err)
		}
		if pub.Type() != name {
			return nil, fmt.Errorf("%w: line %d: key listed as %s is %s", ErrParse, lineNo, name, pub.Type())
		}

		logging.Debugf("keyscan: %s %s %s", fields[0], name, ssh.FingerprintSHA256(pub))
		keys = append(keys, sshfp.OfferedKey{Algorithm: alg, Raw: raw})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return keys, nil
}
