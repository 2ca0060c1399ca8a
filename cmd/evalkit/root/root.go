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

package root

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/evalkit/evalkit/telemetry"
)

var (
	verbose      bool
	otlpEndpoint string

	telemetryShutdown telemetry.Shutdown
)

// RootCmd is the evalkit command tree root.
var RootCmd = &cobra.Command{
	Use:   "evalkit",
	Short: "Evaluate agent conversations against configured metrics.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := zerolog.WarnLevel
		if verbose {
			level = zerolog.DebugLevel
		}
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level)

		shutdown, err := telemetry.Setup(cmd.Context(), telemetry.Options{
			OTLPEndpoint: otlpEndpoint,
			Insecure:     true,
		})
		if err != nil {
			return err
		}
		telemetryShutdown = shutdown
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if telemetryShutdown == nil {
			return nil
		}
		return telemetryShutdown(cmd.Context())
	},
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	RootCmd.PersistentFlags().StringVar(&otlpEndpoint, "otlp-endpoint", "", "OTLP/HTTP endpoint for trace export")
}

// Execute runs the command tree.
func Execute() error {
	return RootCmd.Execute()
}
