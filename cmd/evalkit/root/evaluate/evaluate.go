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

package evaluate

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/evalkit/evalkit/cmd/evalkit/root"
	"github.com/evalkit/evalkit/evaluation"
	"github.com/evalkit/evalkit/evaluation/evaluators"
	"github.com/evalkit/evalkit/evaluation/service"
	"github.com/evalkit/evalkit/evaluation/storage"
	"github.com/evalkit/evalkit/model"
)

type evaluateFlags struct {
	evalSetPath    string
	inferencesPath string
	configPath     string
	appName        string
	judgeModel     string
	resultsDir     string
	parallelism    int
}

var flags evaluateFlags

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Score captured inference results against an eval set.",
	Long: `Scores previously captured agent conversations against the eval set's
references and the metric criteria in the config file. Exits non-zero when
any eval case fails.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return flags.run(cmd)
	},
}

func init() {
	root.RootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringVarP(&flags.evalSetPath, "evalset", "e", "", "Path to the eval set JSON file")
	evaluateCmd.Flags().StringVarP(&flags.inferencesPath, "inferences", "i", "", "Path to the captured inference results JSON file")
	evaluateCmd.Flags().StringVarP(&flags.configPath, "config", "c", "", "Path to the eval config YAML file")
	evaluateCmd.Flags().StringVarP(&flags.appName, "app", "a", "default_app", "App namespace for storage")
	evaluateCmd.Flags().StringVarP(&flags.judgeModel, "judge-model", "j", "gemini-2.5-flash", "Judge model for LLM-as-judge metrics")
	evaluateCmd.Flags().StringVarP(&flags.resultsDir, "results-dir", "r", "", "Directory to persist the result rollup in")
	evaluateCmd.Flags().IntVarP(&flags.parallelism, "parallelism", "p", 0, "Concurrent case evaluations (0 = default)")

	for _, required := range []string{"evalset", "inferences", "config"} {
		if err := evaluateCmd.MarkFlagRequired(required); err != nil {
			panic(err)
		}
	}
}

func (f *evaluateFlags) run(cmd *cobra.Command) error {
	ctx := cmd.Context()

	evalSet, err := loadEvalSet(f.evalSetPath)
	if err != nil {
		return err
	}
	inferences, err := loadInferences(f.inferencesPath)
	if err != nil {
		return err
	}
	configData, err := os.ReadFile(f.configPath)
	if err != nil {
		return fmt.Errorf("read eval config: %w", err)
	}
	evalConfig, err := evaluation.ParseEvalConfig(configData)
	if err != nil {
		return err
	}
	metrics := evalConfig.EvalMetrics()
	if len(metrics) == 0 {
		return fmt.Errorf("%w: eval config names no metrics", evaluation.ErrInvalidInput)
	}

	sets := storage.NewMemoryStore()
	if _, err := sets.CreateEvalSet(ctx, f.appName, evalSet.ID); err != nil {
		return err
	}
	for i := range evalSet.EvalCases {
		if err := sets.AddEvalCase(ctx, f.appName, evalSet.ID, &evalSet.EvalCases[i]); err != nil {
			return err
		}
	}

	cfg := service.Config{
		Sets:     sets,
		Registry: evaluators.DefaultRegistry(),
	}
	if needsJudge(metrics) {
		judge, err := model.NewGeminiModel(ctx, f.judgeModel, nil)
		if err != nil {
			return fmt.Errorf("create judge model: %w", err)
		}
		cfg.Evaluators.Judge = judge
	}
	if f.resultsDir != "" {
		results, err := storage.NewFileStore(f.resultsDir)
		if err != nil {
			return err
		}
		cfg.Results = results
	}
	svc, err := service.New(cfg)
	if err != nil {
		return err
	}

	req := &service.EvaluateRequest{
		AppName:          f.appName,
		EvalSetID:        evalSet.ID,
		InferenceResults: inferences,
		Config: evaluation.EvaluateConfig{
			EvalMetrics: metrics,
			Parallelism: f.parallelism,
		},
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CASE\tSTATUS\tMETRIC SCORES")
	var total, failed int
	for result, err := range svc.Evaluate(ctx, req) {
		if err != nil {
			return err
		}
		total++
		if result.FinalStatus == evaluation.EvalStatusFailed {
			failed++
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", result.EvalID, result.FinalStatus, formatScores(result))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\n%d/%d eval cases passed\n", total-failed, total)
	if failed > 0 {
		return fmt.Errorf("%d of %d eval cases failed", failed, total)
	}
	return nil
}

func loadEvalSet(path string) (*evaluation.EvalSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read eval set: %w", err)
	}
	return evaluation.UnmarshalEvalSet(data)
}

func loadInferences(path string) ([]*evaluation.InferenceResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read inferences: %w", err)
	}
	var inferences []*evaluation.InferenceResult
	if err := json.Unmarshal(data, &inferences); err != nil {
		return nil, fmt.Errorf("%w: parse inferences: %v", evaluation.ErrInvalidInput, err)
	}
	return inferences, nil
}

func needsJudge(metrics []evaluation.EvalMetric) bool {
	for _, m := range metrics {
		if m.MetricName.RequiresLLM() {
			return true
		}
	}
	return false
}

func formatScores(result *evaluation.EvalCaseResult) string {
	var out string
	for i, metric := range result.OverallMetricResults {
		if i > 0 {
			out += ", "
		}
		if metric.Score == nil {
			out += fmt.Sprintf("%s=n/a", metric.MetricName)
			continue
		}
		out += fmt.Sprintf("%s=%.2f", metric.MetricName, *metric.Score)
	}
	return out
}
