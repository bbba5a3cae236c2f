// Copyright (c) 2026 ToeiRei
// check_sshfp - SSHFP record monitoring check
// This source code is licensed under the MIT license found in the LICENSE file.

// Package reconcile cross-checks published SSHFP fingerprints against the
// host keys a service actually offers.
package reconcile

import (
	"bytes"
	"encoding/hex"

	"github.com/toeirei/sshfpcheck/internal/sshfp"
)

// Kind identifies the finding of a reconciliation run.
type Kind int

const (
	// OK means every offered key is covered and every record was used.
	OK Kind = iota
	// NoRecordForAlgorithm means a key was offered for an algorithm with no
	// SSHFP record at all.
	NoRecordForAlgorithm
	// FingerprintMismatch means a published digest differs from the digest
	// of the offered key.
	FingerprintMismatch
	// UnusedRecord means SSHFP records exist for an algorithm the service
	// did not offer.
	UnusedRecord
)

func (k Kind) String() string {
	switch k {
	case OK:
		return "ok"
	case NoRecordForAlgorithm:
		return "no-record-for-algorithm"
	case FingerprintMismatch:
		return "fingerprint-mismatch"
	case UnusedRecord:
		return "unused-record"
	default:
		return "unknown"
	}
}

// Result is the single terminal finding of a run. Only the fields relevant
// to Kind are set.
type Result struct {
	Kind Kind

	// OK
	Records    int
	Algorithms int

	// NoRecordForAlgorithm, UnusedRecord and FingerprintMismatch
	Algorithm sshfp.KeyAlgorithm

	// FingerprintMismatch, hex encoded
	Expected string
	Observed string
}

// Reconcile walks the offered keys in scan order and returns the first
// problem found. The index is not modified.
func Reconcile(idx *sshfp.Index, keys []sshfp.OfferedKey) Result {
	idx = idx.Clone()

	for _, key := range keys {
		bucket, ok := idx.Lookup(key.Algorithm)
		if !ok {
			return Result{Kind: NoRecordForAlgorithm, Algorithm: key.Algorithm}
		}
		bucket.Seen = true

		for _, fp := range bucket.Fingerprints {
			observed := fp.Type.Sum(key.Raw)
			if !bytes.Equal(observed, fp.Digest) {
				return Result{
					Kind:      FingerprintMismatch,
					Algorithm: key.Algorithm,
					Expected:  hex.EncodeToString(fp.Digest),
					Observed:  hex.EncodeToString(observed),
				}
			}
		}
	}

	// Coverage gaps only count once every offered key checked out.
	for _, bucket := range idx.Buckets() {
		if !bucket.Seen {
			return Result{Kind: UnusedRecord, Algorithm: bucket.Algorithm}
		}
	}

	return Result{Kind: OK, Records: idx.Records(), Algorithms: idx.Len()}
}
