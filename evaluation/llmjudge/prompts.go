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
	"fmt"
	"strings"

	"github.com/evalkit/evalkit/evaluation"
)

// BuildFinalResponseMatchPrompt creates the validity-vs-reference rater
// prompt. The judge answers in the labelled field the parser expects.
func BuildFinalResponseMatchPrompt(userPrompt, agentResponse, referenceResponse string) string {
	return fmt.Sprintf(`You are an expert rater. Your task is to decide whether the agent response
is a valid answer to the user prompt, using the reference response as the
ground truth.

Rating rubric:
- Allow format variations (e.g. "CA" vs "California", "1000000" vs "1,000,000").
- Focus on semantic correctness and key entities, not exact wording.
- The agent response may contain more information than the reference, as
  long as the key facts are correct.
- Rate the response invalid if it contradicts the reference or misses a
  critical entity. A partially correct response is invalid.

User prompt:
%s

Reference response:
%s

Agent response:
%s

Think through the comparison step by step, then finish with exactly one
line in this form:

"is_the_agent_response_valid": [valid]

or

"is_the_agent_response_valid": [invalid]`, userPrompt, referenceResponse, agentResponse)
}

// BuildRubricPrompt creates the rubric-based rater prompt. The judge
// answers one Property/Rationale/Verdict block per rubric.
func BuildRubricPrompt(task, userPrompt, payload string, rubrics []evaluation.Rubric) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `You are an expert rater. %s

Evaluate each rubric below independently. For every rubric output exactly
one answer block of the form:

Property: <the rubric text, copied verbatim>
Rationale: <your reasoning>
Verdict: <yes or no>

Rubrics:
`, task)
	for _, r := range rubrics {
		fmt.Fprintf(&sb, "- %s\n", r.Content.TextProperty)
	}
	fmt.Fprintf(&sb, "\nUser prompt:\n%s\n\n%s\n", userPrompt, payload)
	return sb.String()
}

// ResponseQualityTask is the task statement for the final-response-quality
// rubric metric.
const ResponseQualityTask = "Your task is to judge the quality of the agent's final response against each rubric."

// ToolUseQualityTask is the task statement for the tool-use-quality rubric
// metric.
const ToolUseQualityTask = "Your task is to judge the quality of the agent's tool usage against each rubric."

// BuildSegmenterPrompt creates the first hallucination pass: break the
// response into sentences.
func BuildSegmenterPrompt(response string) string {
	return fmt.Sprintf(`Break the following response into individual sentences. Output every
sentence wrapped in <sentence></sentence> tags, preserving the original
text exactly. Do not add, merge, or rephrase sentences.

Response:
%s`, response)
}

// BuildValidatorPrompt creates the second hallucination pass: label each
// sentence against the context.
func BuildValidatorPrompt(context string, sentences []string) string {
	var sb strings.Builder
	sb.WriteString(`You are a fact-checking rater. For each numbered sentence below, decide
how it relates to the context:

- supported: the context entails the sentence.
- unsupported: the context neither entails nor contradicts the sentence.
- contradictory: the context contradicts the sentence.
- disputed: parts of the context both support and contradict the sentence.
- not_applicable: the sentence needs no factual support (greetings,
  questions, instructions, subjective statements).

For every sentence output a block of the form:

sentence: <the sentence>
label: <one of the five labels>
rationale: <your reasoning, citing context excerpts where relevant>

Context:
`)
	sb.WriteString(context)
	sb.WriteString("\n\nSentences:\n")
	for i, s := range sentences {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, s)
	}
	return sb.String()
}

// BuildCoherencePrompt creates the response-evaluation-score prompt: rate
// coherence on a 1-5 scale.
func BuildCoherencePrompt(userPrompt, agentResponse string) string {
	return fmt.Sprintf(`You are an expert rater. Rate the coherence of the agent response: logical
flow, clarity, and completeness with respect to the user prompt.

User prompt:
%s

Agent response:
%s

Think step by step, then finish with exactly one line of the form:

score: <integer from 1 to 5>`, userPrompt, agentResponse)
}

// BuildSimulatorQualityPrompt creates the per-turn user-simulator-quality
// prompt: rate whether a simulated user turn advances the conversation
// plan.
func BuildSimulatorQualityPrompt(conversationPlan, history, userTurn string) string {
	return fmt.Sprintf(`You are an expert rater. A simulated user is driving a conversation with
an agent according to a conversation plan. Judge whether the simulated
user's latest turn is consistent with the plan and a plausible continuation
of the conversation so far.

Conversation plan:
%s

Conversation so far:
%s

Latest simulated user turn:
%s

Think step by step, then finish with exactly one line in this form:

"is_the_agent_response_valid": [valid]

or

"is_the_agent_response_valid": [invalid]`, conversationPlan, history, userTurn)
}
