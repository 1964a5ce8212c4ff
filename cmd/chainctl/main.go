// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command chainctl runs tool chains from the terminal.
//
// Usage:
//
//	chainctl run "What is my BMI at 80kg and 1.8m?"
//	chainctl ask --server http://localhost:8080 "Compare cats and dogs"
//	chainctl tools
package main

import (
	"os"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	if err := newRootCmd(newCLI(os.Stdout, os.Stderr)).Execute(); err != nil {
		os.Exit(1)
	}
}
