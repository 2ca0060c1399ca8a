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

package metrics

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/evalkit/evalkit/cmd/evalkit/root"
	"github.com/evalkit/evalkit/evaluation/evaluators"
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "List the registered evaluation metrics.",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "METRIC\tLLM\tDEFAULT\tDESCRIPTION")
		for _, info := range evaluators.DefaultRegistry().RegisteredMetrics() {
			llm := "no"
			if info.RequiresLLM {
				llm = "yes"
			}
			fmt.Fprintf(w, "%s\t%s\t%.2f\t%s\n", info.MetricName, llm, info.DefaultValue, info.Description)
		}
		return w.Flush()
	},
}

func init() {
	root.RootCmd.AddCommand(metricsCmd)
}
