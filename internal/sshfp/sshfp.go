// Copyright (c) 2026 ToeiRei
// check_sshfp - SSHFP record monitoring check
// This source code is licensed under the MIT license found in the LICENSE file.

// Package sshfp holds the data model shared by the DNS and key-scan sides of
// a check: the closed SSHFP algorithm and fingerprint-type enumerations, the
// per-algorithm index built from DNS answers, and the keys offered live by
// the SSH service.
package sshfp

import (
	"crypto/sha1"
	"crypto/sha256"
	"errors"
	"fmt"
)

var (
	// ErrUnknownAlgorithm is returned for SSHFP algorithm numbers and key-scan
	// algorithm names outside the supported set.
	ErrUnknownAlgorithm = errors.New("unrecognized algorithm")
	// ErrUnknownFingerprintType is returned for SSHFP fingerprint types other
	// than SHA-1 and SHA-256.
	ErrUnknownFingerprintType = errors.New("unrecognized fingerprint type")
	// ErrBadDigest is returned when the fingerprint field is not valid hex.
	ErrBadDigest = errors.New("invalid fingerprint digest")
)

// KeyAlgorithm is the SSHFP algorithm number (RFC 4255, RFC 6594, RFC 7479).
type KeyAlgorithm uint8

const (
	RSA     KeyAlgorithm = 1
	DSS     KeyAlgorithm = 2
	ECDSA   KeyAlgorithm = 3
	Ed25519 KeyAlgorithm = 4
)

var algorithmNames = map[KeyAlgorithm]string{
	RSA:     "rsa",
	DSS:     "dss",
	ECDSA:   "ecdsa-nistp256",
	Ed25519: "ed25519",
}

// wireNames maps the SSH wire-format key type, as printed by ssh-keyscan,
// to the SSHFP algorithm.
var wireNames = map[string]KeyAlgorithm{
	"ssh-rsa":             RSA,
	"ssh-dss":             DSS,
	"ecdsa-sha2-nistp256": ECDSA,
	"ssh-ed25519":         Ed25519,
}

// AlgorithmFromCode converts an SSHFP algorithm number.
func AlgorithmFromCode(code uint8) (KeyAlgorithm, error) {
	a := KeyAlgorithm(code)
	if _, ok := algorithmNames[a]; !ok {
		return 0, fmt.Errorf("%w number %d", ErrUnknownAlgorithm, code)
	}
	return a, nil
}

// AlgorithmFromWireName converts an SSH key type such as "ssh-ed25519".
func AlgorithmFromWireName(name string) (KeyAlgorithm, error) {
	a, ok := wireNames[name]
	if !ok {
		return 0, fmt.Errorf("%w name %q", ErrUnknownAlgorithm, name)
	}
	return a, nil
}

func (a KeyAlgorithm) String() string {
	if name, ok := algorithmNames[a]; ok {
		return name
	}
	return fmt.Sprintf("algorithm(%d)", uint8(a))
}

// FingerprintType is the SSHFP fingerprint type number.
type FingerprintType uint8

const (
	SHA1   FingerprintType = 1
	SHA256 FingerprintType = 2
)

// FingerprintTypeFromCode converts an SSHFP fingerprint type number.
func FingerprintTypeFromCode(code uint8) (FingerprintType, error) {
	switch t := FingerprintType(code); t {
	case SHA1, SHA256:
		return t, nil
	default:
		return 0, fmt.Errorf("%w number %d", ErrUnknownFingerprintType, code)
	}
}

func (t FingerprintType) String() string {
	switch t {
	case SHA1:
		return "sha1"
	case SHA256:
		return "sha256"
	default:
		return fmt.Sprintf("fptype(%d)", uint8(t))
	}
}

// Sum computes the fingerprint of a wire-format public key.
func (t FingerprintType) Sum(key []byte) []byte {
	switch t {
	case SHA1:
		sum := sha1.Sum(key)
		return sum[:]
	case SHA256:
		sum := sha256.Sum256(key)
		return sum[:]
	default:
		return nil
	}
}

// Entry is one SSHFP assertion as published in DNS.
type Entry struct {
	Algorithm KeyAlgorithm
	Type      FingerprintType
	Digest    []byte
}

// OfferedKey is one host key offered by the live SSH service.
type OfferedKey struct {
	Algorithm KeyAlgorithm
	// Raw is the wire-format public key blob.
	Raw []byte
}
