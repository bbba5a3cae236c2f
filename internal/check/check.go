// Copyright (c) 2026 ToeiRei
// check_sshfp - SSHFP record monitoring check
// This source code is licensed under the MIT license found in the LICENSE file.

// Package check runs one SSHFP check: fetch DNS records, fetch the live keys,
// reconcile them and turn the outcome into a monitoring report.
package check

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/toeirei/sshfpcheck/internal/keyscan"
	"github.com/toeirei/sshfpcheck/internal/logging"
	"github.com/toeirei/sshfpcheck/internal/reconcile"
	"github.com/toeirei/sshfpcheck/internal/resolver"
	"github.com/toeirei/sshfpcheck/internal/sshfp"
	"github.com/toeirei/sshfpcheck/internal/status"
)

// RecordFetcher returns the SSHFP records of a host.
type RecordFetcher interface {
	LookupSSHFP(ctx context.Context, host string) (*resolver.Answer, error)
}

// KeyFetcher returns the host keys offered by host:port.
type KeyFetcher interface {
	Scan(ctx context.Context, host string, port int) ([]sshfp.OfferedKey, error)
}

// Checker wires the two fetchers to the reconciliation engine.
type Checker struct {
	Records       RecordFetcher
	Keys          KeyFetcher
	RequireDNSSEC bool
	// DNSTimeout is only used to word the timeout message.
	DNSTimeout time.Duration
}

// Run performs the check. Every outcome, including fetch failures, is a
// report; the first problem found decides it.
func (c *Checker) Run(ctx context.Context, host string, port int) status.Report {
	ans, err := c.Records.LookupSSHFP(ctx, host)
	if err != nil {
		return c.dnsFailure(host, err)
	}
	if c.RequireDNSSEC && !ans.Authenticated {
		return status.Unknownf("dns.not_validated")
	}

	idx, err := sshfp.IndexFromRRs(ans.Records)
	if err != nil {
		return status.Unknownf("dns.invalid_record", err)
	}
	logging.Debugf("check: %d SSHFP records for %d algorithms", idx.Records(), idx.Len())

	keys, err := c.Keys.Scan(ctx, host, port)
	if err != nil {
		var se *keyscan.ScanError
		if errors.As(err, &se) {
			return status.Criticalf("keyscan.failed", se.Error())
		}
		return status.Unknownf("keyscan.parse_error", err)
	}

	result := reconcile.Reconcile(idx, keys)
	logging.Debugf("check: reconcile result %s", result.Kind)
	return status.FromResult(result)
}

func (c *Checker) dnsFailure(host string, err error) status.Report {
	logging.Debugf("check: dns lookup failed: %v", err)
	switch {
	case errors.Is(err, resolver.ErrNoSuchDomain):
		return status.Unknownf("dns.nxdomain", host)
	case errors.Is(err, resolver.ErrTimeout):
		// Without an overall deadline only the per-exchange client timeouts fired.
		if c.DNSTimeout <= 0 {
			return status.Unknownf("dns.timeout_unbounded")
		}
		return status.Unknownf("dns.timeout", int(c.DNSTimeout/time.Second))
	default:
		detail := strings.TrimPrefix(err.Error(), resolver.ErrServerFailure.Error()+": ")
		return status.Unknownf("dns.server_failure", detail)
	}
}
