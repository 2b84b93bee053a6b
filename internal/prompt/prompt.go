// Package prompt turns structured response constraints into the instruction
// text that precedes the caller's system prompt.
package prompt

import (
	"fmt"
	"strings"
)

// Unbounded disables the word limit clause.
const Unbounded = -1

const listClause = "Use the numbered list format to give the answer, beginning with '1.'. " +
	"Do not provide introductory text, just the list of items, ensuring there are no line breaks between the items."

// Build renders the augmented prompt. Clauses keep a fixed order and empty
// ones are dropped.
func Build(responseMaxLength int, listFormatResponse bool, excludedTerm string) string {
	clauses := make([]string, 0, 3)
	if responseMaxLength != Unbounded {
		clauses = append(clauses, fmt.Sprintf("Answer the question in no more than %d words.", responseMaxLength))
	}
	if listFormatResponse {
		clauses = append(clauses, listClause)
	}
	if excludedTerm != "" {
		clauses = append(clauses, fmt.Sprintf("Omit any mention of the term(s) '%s', or derivatives, in your response.", excludedTerm))
	}
	return strings.Join(clauses, " ")
}

// System joins the augmented prompt and the caller's system prompt. An empty
// result means no system message is sent.
func System(augmented, systemPrompt string) string {
	return strings.TrimSpace(augmented + " " + systemPrompt)
}

// SelectExcludedTerm returns the first candidate found inside text.
func SelectExcludedTerm(text string, candidates []string) string {
	for _, c := range candidates {
		if c != "" && strings.Contains(text, c) {
			return c
		}
	}
	return ""
}

// ConsistencyQuestion asks the model to judge response against question.
func ConsistencyQuestion(question, response string) string {
	return fmt.Sprintf(
		"Is the following a suitable response to the question '%s': '%s'?. Answer with a single word: 'Yes' or 'No'.",
		question, response,
	)
}
