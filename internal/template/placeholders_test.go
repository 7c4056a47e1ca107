package template

import "testing"

func TestPlaceholdersApply(t *testing.T) {
	p := NewPlaceholders(
		"NEW_USER_NAME", "Jane Doe",
		"NEW_USER_UID", "jdoe",
	)
	got := p.Apply("Onboarding NEW_USER_NAME (NEW_USER_UID), welcome NEW_USER_NAME")
	want := "Onboarding Jane Doe (jdoe), welcome Jane Doe"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestPlaceholdersLeaveTextUnchanged(t *testing.T) {
	text := "Nothing to replace here"

	var empty Placeholders
	if got := empty.Apply(text); got != text {
		t.Fatalf("empty mapping changed text: %q", got)
	}

	absent := NewPlaceholders("NEW_USER_NAME", "Jane")
	if got := absent.Apply(text); got != text {
		t.Fatalf("absent tokens changed text: %q", got)
	}
}

func TestPlaceholdersApplyInInsertionOrder(t *testing.T) {
	// NEW_USER_NAME contains NEW_USER as a prefix, so order decides the outcome.
	longFirst := NewPlaceholders("NEW_USER_NAME", "Jane", "NEW_USER", "someone")
	if got := longFirst.Apply("NEW_USER_NAME"); got != "Jane" {
		t.Fatalf("expected Jane, got %q", got)
	}

	shortFirst := NewPlaceholders("NEW_USER", "someone", "NEW_USER_NAME", "Jane")
	if got := shortFirst.Apply("NEW_USER_NAME"); got != "someone_NAME" {
		t.Fatalf("expected someone_NAME, got %q", got)
	}
}

func TestPlaceholdersSetKeepsPosition(t *testing.T) {
	p := NewPlaceholders("A", "1", "B", "2")
	p.Set("A", "3")
	p.Set("", "ignored")

	tokens := p.Tokens()
	if len(tokens) != 2 || tokens[0] != "A" || tokens[1] != "B" {
		t.Fatalf("unexpected tokens: %v", tokens)
	}
	if v, _ := p.Value("A"); v != "3" {
		t.Fatalf("expected updated value 3, got %q", v)
	}
	if p.Len() != 2 {
		t.Fatalf("expected 2 tokens, got %d", p.Len())
	}
}
