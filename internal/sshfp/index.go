// Copyright (c) 2026 ToeiRei
// check_sshfp - SSHFP record monitoring check
// This source code is licensed under the MIT license found in the LICENSE file.

package sshfp

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/miekg/dns"
)

// Fingerprint is a published digest for one key algorithm.
type Fingerprint struct {
	Type   FingerprintType
	Digest []byte
}

// Bucket groups all fingerprints published for one key algorithm.
type Bucket struct {
	Algorithm    KeyAlgorithm
	Seen         bool
	Fingerprints []Fingerprint
}

// Index maps key algorithms to their buckets. Buckets are created on first
// use and iterate in creation order.
type Index struct {
	buckets []*Bucket
	byAlg   map[KeyAlgorithm]*Bucket
}

// NewIndex builds an index from entries, preserving their order.
func NewIndex(entries ...Entry) *Index {
	idx := &Index{byAlg: make(map[KeyAlgorithm]*Bucket)}
	for _, e := range entries {
		idx.Add(e)
	}
	return idx
}

// Add files an entry under its key algorithm.
func (idx *Index) Add(e Entry) {
	if idx.byAlg == nil {
		idx.byAlg = make(map[KeyAlgorithm]*Bucket)
	}
	b, ok := idx.byAlg[e.Algorithm]
	if !ok {
		b = &Bucket{Algorithm: e.Algorithm}
		idx.byAlg[e.Algorithm] = b
		idx.buckets = append(idx.buckets, b)
	}
	b.Fingerprints = append(b.Fingerprints, Fingerprint{Type: e.Type, Digest: e.Digest})
}

// Lookup returns the bucket for an algorithm.
func (idx *Index) Lookup(a KeyAlgorithm) (*Bucket, bool) {
	b, ok := idx.byAlg[a]
	return b, ok
}

// Buckets returns the buckets in creation order.
func (idx *Index) Buckets() []*Bucket {
	return idx.buckets
}

// Len is the number of distinct algorithms.
func (idx *Index) Len() int {
	return len(idx.buckets)
}

// Records is the total number of fingerprints across all buckets.
func (idx *Index) Records() int {
	n := 0
	for _, b := range idx.buckets {
		n += len(b.Fingerprints)
	}
	return n
}

// Clone returns a copy whose Seen flags can change independently. Digests
// are shared and must not be modified.
func (idx *Index) Clone() *Index {
	c := &Index{byAlg: make(map[KeyAlgorithm]*Bucket, len(idx.buckets))}
	for _, b := range idx.buckets {
		nb := &Bucket{
			Algorithm:    b.Algorithm,
			Seen:         b.Seen,
			Fingerprints: append([]Fingerprint(nil), b.Fingerprints...),
		}
		c.byAlg[nb.Algorithm] = nb
		c.buckets = append(c.buckets, nb)
	}
	return c
}

// EntryFromRR converts a DNS SSHFP record. Unknown algorithm or fingerprint
// type numbers are errors rather than being skipped.
func EntryFromRR(rr *dns.SSHFP) (Entry, error) {
	alg, err := AlgorithmFromCode(rr.Algorithm)
	if err != nil {
		return Entry{}, err
	}
	fpType, err := FingerprintTypeFromCode(rr.Type)
	if err != nil {
		return Entry{}, err
	}
	digest, err := hex.DecodeString(strings.ToLower(rr.FingerPrint))
	if err != nil {
		return Entry{}, fmt.Errorf("%w %q: %v", ErrBadDigest, rr.FingerPrint, err)
	}
	return Entry{Algorithm: alg, Type: fpType, Digest: digest}, nil
}

// IndexFromRRs builds the index for a set of DNS answers.
func IndexFromRRs(rrs []*dns.SSHFP) (*Index, error) {
	idx := NewIndex()
	for _, rr := range rrs {
		e, err := EntryFromRR(rr)
		if err != nil {
			return nil, err
		}
		idx.Add(e)
	}
	return idx, nil
}
