// Copyright (c) 2026 ToeiRei
// check_sshfp - SSHFP record monitoring check
// This source code is licensed under the MIT license found in the LICENSE file.

// Package buildvars holds the values stamped into the binary at link time.
// It is the only place the release version is injected:
//
//	go build -ldflags "-X github.com/toeirei/sshfpcheck/buildvars.Version=1.2.3"
package buildvars

// Version is the release version; empty for local and development builds.
var Version string

// VersionOrDefault returns Version, or def for builds without one.
func VersionOrDefault(def string) string {
	if Version == "" {
		return def
	}
	return Version
}
