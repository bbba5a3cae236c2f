// Copyright (c) 2026 ToeiRei
// check_sshfp - SSHFP record monitoring check
// This source code is licensed under the MIT license found in the LICENSE file.

// Command-line entrypoint for check_sshfp.
//
// Usage:
//
//	go run . -H host.example.org -p 22
//	./check_sshfp --host host.example.org --port 22 [flags]
//
// The check prints one status line and exits with the monitoring status code.
// The version is linked in through buildvars.Version. See --help for options.
package main

import (
	"os"

	"github.com/toeirei/sshfpcheck/internal/cli"
)

func main() {
	cli.Main(os.Args[1:], os.Stdout, os.Stderr, os.Exit)
}
