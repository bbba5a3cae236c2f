// Copyright (c) 2026 ToeiRei
// check_sshfp - SSHFP record monitoring check
// This source code is licensed under the MIT license found in the LICENSE file.

package resolver

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/miekg/dns"
)

const testFingerprint = "c7a2f5f3d3bb20b3bf4b8d1f3a2ad3fa7c54a1cbb42a10c7e5c06a0f67f3b4f5"

// startServer runs a UDP DNS server on localhost with handler and returns
// its address.
func startServer(t *testing.T, handler dns.HandlerFunc) string {
	t.Helper()
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	started := make(chan struct{})
	srv := &dns.Server{PacketConn: pc, Handler: handler, NotifyStartedFunc: func() { close(started) }}
	go func() { _ = srv.ActivateAndServe() }()
	<-started
	t.Cleanup(func() { _ = srv.Shutdown() })
	return pc.LocalAddr().String()
}

func sshfpAnswer(t *testing.T, name string) dns.RR {
	t.Helper()
	rr, err := dns.NewRR(name + " 300 IN SSHFP 4 2 " + testFingerprint)
	if err != nil {
		t.Fatalf("NewRR: %v", err)
	}
	return rr
}

func TestLookupSSHFP_AgainstLocalServer(t *testing.T) {
	var sawDO bool
	addr := startServer(t, func(w dns.ResponseWriter, req *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(req)
		if opt := req.IsEdns0(); opt != nil && opt.Do() && opt.UDPSize() >= 1280 {
			sawDO = true
			m.AuthenticatedData = true
		}
		m.Answer = append(m.Answer, sshfpAnswer(t, req.Question[0].Name))
		_ = w.WriteMsg(m)
	})

	r, err := New(Config{Nameserver: addr, Timeout: 2 * time.Second, DNSSEC: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ans, err := r.LookupSSHFP(context.Background(), "host.example.org")
	if err != nil {
		t.Fatalf("LookupSSHFP: %v", err)
	}
	if !sawDO {
		t.Error("query did not carry EDNS0 with the DO bit")
	}
	if !ans.Authenticated {
		t.Error("expected authenticated answer")
	}
	if len(ans.Records) != 1 || ans.Records[0].Algorithm != 4 || ans.Records[0].Type != 2 {
		t.Fatalf("unexpected records: %v", ans.Records)
	}
}

func TestLookupSSHFP_WithoutDNSSECNoEDNS(t *testing.T) {
	addr := startServer(t, func(w dns.ResponseWriter, req *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(req)
		if req.IsEdns0() != nil {
			m.SetRcode(req, dns.RcodeRefused)
		}
		_ = w.WriteMsg(m)
	})

	r, err := New(Config{Nameserver: addr, Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ans, err := r.LookupSSHFP(context.Background(), "host.example.org")
	if err != nil {
		t.Fatalf("LookupSSHFP: %v", err)
	}
	if ans.Authenticated || len(ans.Records) != 0 {
		t.Fatalf("unexpected answer: %+v", ans)
	}
}

func TestQueryConstruction(t *testing.T) {
	r := NewWithExchangers(Config{DNSSEC: true}, nil, nil, nil)
	m := r.Query("host.example.org")
	if m.Question[0].Name != "host.example.org." || m.Question[0].Qtype != dns.TypeSSHFP {
		t.Fatalf("unexpected question: %v", m.Question[0])
	}
	opt := m.IsEdns0()
	if opt == nil || !opt.Do() || opt.UDPSize() < 1280 {
		t.Fatalf("expected EDNS0 with DO and payload >= 1280, got %v", opt)
	}
	if !m.RecursionDesired || !m.AuthenticatedData {
		t.Fatal("expected RD and AD bits on the query")
	}

	plain := NewWithExchangers(Config{}, nil, nil, nil).Query("host.example.org")
	if plain.IsEdns0() != nil {
		t.Fatal("EDNS0 should not be set without DNSSEC")
	}
}

type fakeExchanger struct {
	calls int
	fn    func(ctx context.Context, m *dns.Msg, addr string) (*dns.Msg, error)
}

func (f *fakeExchanger) ExchangeContext(ctx context.Context, m *dns.Msg, addr string) (*dns.Msg, time.Duration, error) {
	f.calls++
	resp, err := f.fn(ctx, m, addr)
	return resp, 0, err
}

func reply(req *dns.Msg, rcode int) *dns.Msg {
	m := new(dns.Msg)
	m.SetRcode(req, rcode)
	return m
}

func TestLookupSSHFP_Classification(t *testing.T) {
	tests := []struct {
		name string
		fn   func(ctx context.Context, m *dns.Msg, addr string) (*dns.Msg, error)
		want error
	}{
		{
			name: "nxdomain",
			fn: func(_ context.Context, m *dns.Msg, _ string) (*dns.Msg, error) {
				return reply(m, dns.RcodeNameError), nil
			},
			want: ErrNoSuchDomain,
		},
		{
			name: "servfail",
			fn: func(_ context.Context, m *dns.Msg, _ string) (*dns.Msg, error) {
				return reply(m, dns.RcodeServerFailure), nil
			},
			want: ErrServerFailure,
		},
		{
			name: "refused",
			fn: func(_ context.Context, m *dns.Msg, _ string) (*dns.Msg, error) {
				return reply(m, dns.RcodeRefused), nil
			},
			want: ErrServerFailure,
		},
		{
			name: "connection refused",
			fn: func(_ context.Context, _ *dns.Msg, _ string) (*dns.Msg, error) {
				return nil, errors.New("read udp: connection refused")
			},
			want: ErrServerFailure,
		},
		{
			name: "deadline",
			fn: func(ctx context.Context, _ *dns.Msg, _ string) (*dns.Msg, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			},
			want: ErrTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			udp := &fakeExchanger{fn: tt.fn}
			r := NewWithExchangers(Config{Timeout: 50 * time.Millisecond}, []string{"192.0.2.1:53"}, udp, nil)
			_, err := r.LookupSSHFP(context.Background(), "host.example.org")
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestLookupSSHFP_AllServersTimingOut(t *testing.T) {
	udp := &fakeExchanger{fn: func(context.Context, *dns.Msg, string) (*dns.Msg, error) {
		return nil, timeoutErr{}
	}}
	r := NewWithExchangers(Config{}, []string{"192.0.2.1:53", "192.0.2.2:53"}, udp, nil)
	_, err := r.LookupSSHFP(context.Background(), "host.example.org")
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if udp.calls != 2 {
		t.Fatalf("expected both servers to be tried, got %d calls", udp.calls)
	}
}

func TestLookupSSHFP_FallsThroughToNextServer(t *testing.T) {
	udp := &fakeExchanger{fn: func(_ context.Context, m *dns.Msg, addr string) (*dns.Msg, error) {
		if addr == "192.0.2.1:53" {
			return reply(m, dns.RcodeServerFailure), nil
		}
		resp := reply(m, dns.RcodeSuccess)
		resp.AuthenticatedData = true
		rr, _ := dns.NewRR("host.example.org. 300 IN SSHFP 1 1 0102")
		resp.Answer = []dns.RR{rr}
		return resp, nil
	}}
	r := NewWithExchangers(Config{}, []string{"192.0.2.1:53", "192.0.2.2:53"}, udp, nil)
	ans, err := r.LookupSSHFP(context.Background(), "host.example.org")
	if err != nil {
		t.Fatalf("LookupSSHFP: %v", err)
	}
	if !ans.Authenticated || len(ans.Records) != 1 {
		t.Fatalf("unexpected answer %+v", ans)
	}
}

func TestLookupSSHFP_TruncatedRetriesOverTCP(t *testing.T) {
	udp := &fakeExchanger{fn: func(_ context.Context, m *dns.Msg, _ string) (*dns.Msg, error) {
		resp := reply(m, dns.RcodeSuccess)
		resp.Truncated = true
		return resp, nil
	}}
	tcp := &fakeExchanger{fn: func(_ context.Context, m *dns.Msg, _ string) (*dns.Msg, error) {
		resp := reply(m, dns.RcodeSuccess)
		cname, _ := dns.NewRR("host.example.org. 300 IN CNAME real.example.org.")
		rr, _ := dns.NewRR("real.example.org. 300 IN SSHFP 4 2 " + testFingerprint)
		resp.Answer = []dns.RR{cname, rr}
		return resp, nil
	}}
	r := NewWithExchangers(Config{}, []string{"192.0.2.1:53"}, udp, tcp)
	ans, err := r.LookupSSHFP(context.Background(), "host.example.org")
	if err != nil {
		t.Fatalf("LookupSSHFP: %v", err)
	}
	if tcp.calls != 1 {
		t.Fatalf("expected one tcp retry, got %d", tcp.calls)
	}
	if len(ans.Records) != 1 {
		t.Fatalf("expected the CNAME to be skipped, got %v", ans.Records)
	}
}

func TestNew_ReadsResolvConf(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "resolv.conf")
	if err := os.WriteFile(path, []byte("nameserver 192.0.2.53\nnameserver 2001:db8::53\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	prev := ResolvConf
	ResolvConf = path
	defer func() { ResolvConf = prev }()

	r, err := New(Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got := r.Servers()
	if len(got) != 2 || got[0] != "192.0.2.53:53" || got[1] != "[2001:db8::53]:53" {
		t.Fatalf("unexpected servers: %v", got)
	}
}

func TestNew_NameserverOverride(t *testing.T) {
	for in, want := range map[string]string{
		"192.0.2.1":      "192.0.2.1:53",
		"192.0.2.1:5353": "192.0.2.1:5353",
		"2001:db8::1":    "[2001:db8::1]:53",
	} {
		r, err := New(Config{Nameserver: in})
		if err != nil {
			t.Fatalf("New(%q): %v", in, err)
		}
		if got := r.Servers(); len(got) != 1 || got[0] != want {
			t.Errorf("nameserver %q -> %v, want %s", in, got, want)
		}
	}
}
