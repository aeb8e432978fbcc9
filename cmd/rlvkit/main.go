// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RLVKit Contributors

// Package main is the entry point for the rlvkit CLI.
package main

import (
	"fmt"
	"os"

	"github.com/rlvkit/rlvkit/internal/engine"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	engine.SetImplVersion(version)

	cmd := NewRootCmd()
	cmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
