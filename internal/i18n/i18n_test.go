// Copyright (c) 2026 ToeiRei
// check_sshfp - SSHFP record monitoring check
// This source code is licensed under the MIT license found in the LICENSE file.

package i18n

import "testing"

func TestT_EnglishDefault(t *testing.T) {
	Init("en")
	got := T("status.ok", 3, 2)
	if got != "3 SSHFP records for 2 algorithms match" {
		t.Errorf("unexpected message: %q", got)
	}
	if got := T("dns.not_validated"); got != "DNS query not DNSSEC validated" {
		t.Errorf("unexpected message: %q", got)
	}
}

func TestT_German(t *testing.T) {
	SetLang("de")
	defer SetLang("en")
	if got := T("dns.nxdomain", "example.org"); got != "Domain existiert nicht: example.org" {
		t.Errorf("unexpected message: %q", got)
	}
}

func TestT_UnknownLanguageFallsBackToEnglish(t *testing.T) {
	SetLang("xx")
	defer SetLang("en")
	if got := T("status.no_record", "rsa"); got != "No SSHFP record for algorithm rsa" {
		t.Errorf("unexpected message: %q", got)
	}
}

func TestT_UnknownMessageReturnsID(t *testing.T) {
	Init("en")
	if got := T("no.such.message"); got != "no.such.message" {
		t.Errorf("expected message ID, got %q", got)
	}
}

func TestLanguages(t *testing.T) {
	Init("en")
	langs := Languages()
	seen := map[string]bool{}
	for _, l := range langs {
		seen[l] = true
	}
	if !seen["en"] || !seen["de"] {
		t.Errorf("expected en and de locales, got %v", langs)
	}
}
