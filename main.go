// Copyright 2025 The SAFires Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/jcodagnone/safires/cmd"
)

var Version = "development"

func main() {
	cmd.Execute(Version)
}
