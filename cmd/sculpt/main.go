// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command sculpt reads and rewrites Go source through handles that stay
// valid across edits.
//
// Usage:
//
//	sculpt outline main.go
//	sculpt structure main.go Server.Start -o json
//	sculpt apply main.go greet doc.yaml --diff
//	sculpt rename main.go greet hello --write
//	sculpt serve --addr :8080 --root ./project
//
// Configuration is read from ~/.sculpt/sculpt.yaml, or the file named by
// --config or SCULPT_CONFIG, and is created with defaults on first run.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
