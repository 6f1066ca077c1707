package transform

import (
	"errors"
	"testing"
)

func TestLookup(t *testing.T) {
	for _, name := range Names() {
		a, err := Lookup(name)
		if err != nil {
			t.Errorf("Lookup(%q) error = %v", name, err)
			continue
		}
		if a.Prompt == nil || a.Apply == nil || a.Label == "" {
			t.Errorf("Action %q is incomplete: %+v", name, a)
		}
	}

	if a, err := Lookup("  Continue "); err != nil || !a.Additive {
		t.Errorf("Lookup is not case-insensitive: %+v, %v", a, err)
	}
	if _, err := Lookup("teleport"); !errors.Is(err, ErrUnknownAction) {
		t.Errorf("Expected ErrUnknownAction, got %v", err)
	}
}

func TestApply(t *testing.T) {
	if got := Append("Hello world", "Hello world, and more."); got != "Hello world\n\nHello world, and more." {
		t.Errorf("Append() = %q", got)
	}
	if got := Replace("old", "new"); got != "new" {
		t.Errorf("Replace() = %q", got)
	}
}

func TestLanguageName(t *testing.T) {
	tests := map[string]string{
		"fr":      "French",
		"de":      "German",
		" ja ":    "Japanese",
		"High Elvish": "High Elvish",
	}
	for in, want := range tests {
		if got := LanguageName(in); got != want {
			t.Errorf("LanguageName(%q) = %q, want %q", in, got, want)
		}
	}
}
