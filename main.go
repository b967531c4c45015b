// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// cvscope - DCC decoder programming and command station tool
//
// A CLI tool for encoding DCC packets and reading and writing decoder
// configuration variables through a DCC-EX command station.

package main

import (
	"os"

	"github.com/railkit/cvscope/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
