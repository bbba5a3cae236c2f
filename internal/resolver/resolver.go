// Copyright (c) 2026 ToeiRei
// check_sshfp - SSHFP record monitoring check
// This source code is licensed under the MIT license found in the LICENSE file.

// Package resolver fetches SSHFP records and reports whether the answer was
// DNSSEC authenticated by the recursive resolver (the AD flag).
package resolver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/miekg/dns"
	"github.com/toeirei/sshfpcheck/internal/logging"
)

var (
	ErrNoSuchDomain  = errors.New("no such domain")
	ErrTimeout       = errors.New("dns query timed out")
	ErrServerFailure = errors.New("dns server failure")
)

// ResolvConf is the system resolver configuration used when no nameserver
// is given.
var ResolvConf = "/etc/resolv.conf"

// ednsUDPSize is the advertised EDNS0 payload size for DNSSEC queries.
const ednsUDPSize = 4096

// Exchanger performs a single DNS exchange; *dns.Client satisfies it.
type Exchanger interface {
	ExchangeContext(ctx context.Context, m *dns.Msg, address string) (*dns.Msg, time.Duration, error)
}

// Answer is the outcome of a successful SSHFP lookup.
type Answer struct {
	Records       []*dns.SSHFP
	Authenticated bool
}

// Config configures a Resolver.
type Config struct {
	// Nameserver overrides the system resolvers. It may carry a port.
	Nameserver string
	// Timeout bounds the whole lookup; zero means no overall bound.
	Timeout time.Duration
	// DNSSEC requests DNSSEC records (EDNS0 DO bit) and authenticated data.
	DNSSEC bool
}

// Resolver queries SSHFP records from a list of nameservers in order.
type Resolver struct {
	servers []string
	timeout time.Duration
	dnssec  bool

	udp Exchanger
	tcp Exchanger
}

// New builds a resolver for cfg, reading ResolvConf when no nameserver is
// configured.
func New(cfg Config) (*Resolver, error) {
	var servers []string
	if cfg.Nameserver != "" {
		servers = []string{withPort(cfg.Nameserver, "53")}
	} else {
		cc, err := dns.ClientConfigFromFile(ResolvConf)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", ResolvConf, err)
		}
		for _, s := range cc.Servers {
			servers = append(servers, withPort(s, cc.Port))
		}
		if len(servers) == 0 {
			return nil, fmt.Errorf("no nameservers in %s", ResolvConf)
		}
	}

	return &Resolver{
		servers: servers,
		timeout: cfg.Timeout,
		dnssec:  cfg.DNSSEC,
		udp:     &dns.Client{Net: "udp"},
		tcp:     &dns.Client{Net: "tcp"},
	}, nil
}

// NewWithExchangers is New with explicit transports, for tests.
func NewWithExchangers(cfg Config, servers []string, udp, tcp Exchanger) *Resolver {
	return &Resolver{servers: servers, timeout: cfg.Timeout, dnssec: cfg.DNSSEC, udp: udp, tcp: tcp}
}

// Servers returns the nameserver addresses in query order.
func (r *Resolver) Servers() []string {
	return r.servers
}

func withPort(host, port string) string {
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	return net.JoinHostPort(host, port)
}

// Query builds the SSHFP question for host.
func (r *Resolver) Query(host string) *dns.Msg {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(host), dns.TypeSSHFP)
	m.RecursionDesired = true
	if r.dnssec {
		m.SetEdns0(ednsUDPSize, true)
		m.AuthenticatedData = true
	}
	return m
}

// LookupSSHFP resolves the SSHFP records of host. Failures are classified as
// ErrNoSuchDomain, ErrTimeout or ErrServerFailure.
func (r *Resolver) LookupSSHFP(ctx context.Context, host string) (*Answer, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	m := r.Query(host)
	var lastErr error
	for _, server := range r.servers {
		resp, err := r.exchange(ctx, m, server)
		if err != nil {
			if isTimeout(err) && ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %s", ErrTimeout, host)
			}
			logging.Debugf("dns: %s via %s failed: %v", host, server, err)
			lastErr = err
			continue
		}

		switch resp.Rcode {
		case dns.RcodeSuccess:
			records := extractTypedRecords[*dns.SSHFP](resp.Answer)
			logging.Debugf("dns: %s via %s returned %d SSHFP records (ad=%t)", host, server, len(records), resp.AuthenticatedData)
			return &Answer{Records: records, Authenticated: resp.AuthenticatedData}, nil
		case dns.RcodeNameError:
			return nil, fmt.Errorf("%w: %s", ErrNoSuchDomain, host)
		default:
			lastErr = fmt.Errorf("%s answered %s", server, dns.RcodeToString[resp.Rcode])
			logging.Debugf("dns: %v", lastErr)
		}
	}

	if lastErr == nil {
		lastErr = errors.New("no nameservers configured")
	}
	if isTimeout(lastErr) {
		return nil, fmt.Errorf("%w: %v", ErrTimeout, lastErr)
	}
	return nil, fmt.Errorf("%w: %v", ErrServerFailure, lastErr)
}

// exchange sends m over UDP and repeats it over TCP when the answer was
// truncated.
func (r *Resolver) exchange(ctx context.Context, m *dns.Msg, server string) (*dns.Msg, error) {
	resp, _, err := r.udp.ExchangeContext(ctx, m, server)
	if err != nil {
		return nil, err
	}
	if resp.Truncated && r.tcp != nil {
		logging.Debugf("dns: truncated answer from %s, retrying over tcp", server)
		resp, _, err = r.tcp.ExchangeContext(ctx, m, server)
		if err != nil {
			return nil, err
		}
	}
	return resp, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// extractTypedRecords keeps the records of type T, skipping CNAMEs and
// anything else in the answer section.
func extractTypedRecords[T dns.RR](rrs []dns.RR) []T {
	var out []T
	for _, rr := range rrs {
		if typed, ok := rr.(T); ok {
			out = append(out, typed)
		}
	}
	return out
}
