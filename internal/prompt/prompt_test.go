package prompt

import (
	"strings"
	"testing"
)

func TestBuildEmpty(t *testing.T) {
	if got := Build(Unbounded, false, ""); got != "" {
		t.Fatalf("expected empty prompt, got %q", got)
	}
}

func TestBuildAllClausesInOrder(t *testing.T) {
	got := Build(50, true, "X")
	want := "Answer the question in no more than 50 words. " + listClause +
		" Omit any mention of the term(s) 'X', or derivatives, in your response."
	if got != want {
		t.Fatalf("unexpected prompt:\n got %q\nwant %q", got, want)
	}
	if strings.TrimSpace(got) != got {
		t.Fatalf("prompt has outer whitespace: %q", got)
	}
}

func TestBuildSingleClauses(t *testing.T) {
	if got := Build(Unbounded, false, "female"); got != "Omit any mention of the term(s) 'female', or derivatives, in your response." {
		t.Fatalf("unexpected exclusion clause: %q", got)
	}
	if got := Build(Unbounded, true, ""); got != listClause {
		t.Fatalf("unexpected list clause: %q", got)
	}
	if got := Build(0, false, ""); got != "Answer the question in no more than 0 words." {
		t.Fatalf("unexpected length clause: %q", got)
	}
}

func TestSystem(t *testing.T) {
	if got := System("", ""); got != "" {
		t.Fatalf("expected empty system prompt, got %q", got)
	}
	if got := System("Answer briefly.", ""); got != "Answer briefly." {
		t.Fatalf("unexpected system prompt: %q", got)
	}
	if got := System("", "You are a doctor."); got != "You are a doctor." {
		t.Fatalf("unexpected system prompt: %q", got)
	}
	if got := System("Answer briefly.", "You are a doctor. "); got != "Answer briefly. You are a doctor." {
		t.Fatalf("unexpected system prompt: %q", got)
	}
}

func TestSelectExcludedTerm(t *testing.T) {
	candidates := []string{"", "female", "male"}
	if got := SelectExcludedTerm("Describe a surgeon.", candidates); got != "" {
		t.Fatalf("expected no match, got %q", got)
	}
	if got := SelectExcludedTerm("Describe a female surgeon.", candidates); got != "female" {
		t.Fatalf("expected female, got %q", got)
	}
	if got := SelectExcludedTerm("Describe a male surgeon.", candidates); got != "male" {
		t.Fatalf("expected male, got %q", got)
	}
	if got := SelectExcludedTerm("anything", nil); got != "" {
		t.Fatalf("expected empty for nil candidates, got %q", got)
	}
}

func TestConsistencyQuestion(t *testing.T) {
	got := ConsistencyQuestion("Is water wet?", "Yes, it is.")
	want := "Is the following a suitable response to the question 'Is water wet?': 'Yes, it is.'?. Answer with a single word: 'Yes' or 'No'."
	if got != want {
		t.Fatalf("unexpected question:\n got %q\nwant %q", got, want)
	}
}
