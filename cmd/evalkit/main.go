// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command evalkit scores captured agent conversations against metric
// configurations and reports pass/fail per eval case.
package main

import (
	"os"

	"github.com/evalkit/evalkit/cmd/evalkit/root"

	// Subcommands register themselves with the root command.
	_ "github.com/evalkit/evalkit/cmd/evalkit/root/evaluate"
	_ "github.com/evalkit/evalkit/cmd/evalkit/root/metrics"
)

func main() {
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
