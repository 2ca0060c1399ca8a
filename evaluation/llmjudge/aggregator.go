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

package llmjudge

import (
	"github.com/rs/zerolog/log"

	"github.com/evalkit/evalkit/evaluation"
)

// MajorityVote resolves repeated sample verdicts to one binary score.
// NOT_EVALUATED samples are dropped; more valid than invalid yields 1.0;
// ties and invalid majorities yield 0.0; no usable samples yields nil.
func MajorityVote(verdicts []Verdict) *float64 {
	var positives, negatives int
	for _, v := range verdicts {
		switch v {
		case VerdictValid:
			positives++
		case VerdictInvalid:
			negatives++
		}
	}
	if positives == 0 && negatives == 0 {
		return nil
	}
	if positives > negatives {
		return evaluation.Float(1.0)
	}
	return evaluation.Float(0.0)
}

// MeanScore averages the non-nil scores. Returns nil when no invocation was
// evaluated.
func MeanScore(scores []*float64) *float64 {
	var sum float64
	var count int
	for _, s := range scores {
		if s == nil {
			continue
		}
		sum += *s
		count++
	}
	if count == 0 {
		return nil
	}
	return evaluation.Float(sum / float64(count))
}

// FractionPassing returns the fraction of evaluated scores equal to 1.0,
// the invocation-aggregation rule for binary validity metrics.
func FractionPassing(scores []*float64) *float64 {
	var passing, evaluated int
	for _, s := range scores {
		if s == nil {
			continue
		}
		evaluated++
		if *s == 1.0 {
			passing++
		}
	}
	if evaluated == 0 {
		return nil
	}
	return evaluation.Float(float64(passing) / float64(evaluated))
}

// AggregateRubricSamples resolves, per rubric id, the verdicts of repeated
// samples by majority, ties resolving to negative. When no sample carries a
// score for a rubric, a scoreless entry is propagated. The rationale comes
// from the first sample on the winning side.
func AggregateRubricSamples(rubricIDs []string, samples [][]evaluation.RubricScore) []evaluation.RubricScore {
	aggregated := make([]evaluation.RubricScore, 0, len(rubricIDs))
	for _, id := range rubricIDs {
		var positives, negatives []evaluation.RubricScore
		var noScore *evaluation.RubricScore
		for _, sample := range samples {
			for i := range sample {
				if sample[i].RubricID != id {
					continue
				}
				switch {
				case sample[i].Score == nil:
					if noScore == nil {
						noScore = &sample[i]
					}
				case *sample[i].Score >= 0.5:
					positives = append(positives, sample[i])
				default:
					negatives = append(negatives, sample[i])
				}
			}
		}
		switch {
		case len(positives) == 0 && len(negatives) == 0:
			if noScore != nil {
				aggregated = append(aggregated, *noScore)
			} else {
				aggregated = append(aggregated, evaluation.RubricScore{RubricID: id})
			}
		case len(positives) > len(negatives):
			aggregated = append(aggregated, positives[0])
		default:
			aggregated = append(aggregated, negatives[0])
		}
	}
	return aggregated
}

// AggregateRubricsAcrossInvocations computes, per rubric id, the mean of
// per-invocation scores.
func AggregateRubricsAcrossInvocations(rubricIDs []string, perInvocation [][]evaluation.RubricScore) []evaluation.RubricScore {
	overall := make([]evaluation.RubricScore, 0, len(rubricIDs))
	for _, id := range rubricIDs {
		var sum float64
		var count int
		for _, scores := range perInvocation {
			for i := range scores {
				if scores[i].RubricID == id && scores[i].Score != nil {
					sum += *scores[i].Score
					count++
				}
			}
		}
		score := evaluation.RubricScore{RubricID: id}
		if count > 0 {
			score.Score = evaluation.Float(sum / float64(count))
		}
		overall = append(overall, score)
	}
	return overall
}

// MatchRubricIDs maps parsed rubric verdicts back to configured rubric ids
// by normalised property text. Unmatched verdicts are logged and dropped.
func MatchRubricIDs(verdicts []RubricVerdict, rubrics []evaluation.Rubric) []evaluation.RubricScore {
	byProperty := make(map[string]string, len(rubrics))
	for _, r := range rubrics {
		byProperty[NormalizeProperty(r.Content.TextProperty)] = r.ID
	}

	scores := make([]evaluation.RubricScore, 0, len(verdicts))
	for _, v := range verdicts {
		id, ok := byProperty[v.Property]
		if !ok {
			log.Warn().
				Str("property", v.Property).
				Msg("judge response references unknown rubric, dropping")
			continue
		}
		scores = append(scores, evaluation.RubricScore{
			RubricID:  id,
			Rationale: v.Rationale,
			Score:     v.Score,
		})
	}
	return scores
}
