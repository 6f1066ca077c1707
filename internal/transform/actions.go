package transform

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// PromptOptions carries the per-call inputs of a prompt builder
type PromptOptions struct {
	Language string
}

// Action is a named AI transform
type Action struct {
	Name          string
	Label         string
	MinChars      int
	Additive      bool
	NeedsLanguage bool
	Prompt        func(content string, opts PromptOptions) string
	Apply         func(original, response string) string
}

// Append keeps the original and adds the response as a new paragraph
func Append(original, response string) string {
	return original + "\n\n" + response
}

// Replace returns the response verbatim
func Replace(original, response string) string {
	return response
}

var actions = map[string]Action{
	"enhance": {
		Name:     "enhance",
		Label:    "Enhance",
		MinChars: 10,
		Prompt: func(content string, _ PromptOptions) string {
			return "Improve the style and flow of the following text while keeping its meaning and length. " +
				"Return only the rewritten text.\n\n" + content
		},
		Apply: Replace,
	},
	"refactor": {
		Name:     "refactor",
		Label:    "Refactor",
		MinChars: 20,
		Prompt: func(content string, _ PromptOptions) string {
			return "Restructure the following text into clear paragraphs, using headings (# ) and bullet lists (- ) " +
				"where they help. Return only the restructured text.\n\n" + content
		},
		Apply: Replace,
	},
	"proofread": {
		Name:     "proofread",
		Label:    "Proofread",
		MinChars: 1,
		Prompt: func(content string, _ PromptOptions) string {
			return "Fix spelling, grammar and punctuation in the following text. Change nothing else. " +
				"Return only the corrected text.\n\n" + content
		},
		Apply: Replace,
	},
	"summarize": {
		Name:     "summarize",
		Label:    "Summarize",
		MinChars: 50,
		Prompt: func(content string, _ PromptOptions) string {
			return "Summarize the following text in a few sentences. Return only the summary.\n\n" + content
		},
		Apply: Replace,
	},
	"translate": {
		Name:          "translate",
		Label:         "Translate",
		MinChars:      1,
		NeedsLanguage: true,
		Prompt: func(content string, opts PromptOptions) string {
			return fmt.Sprintf("Translate the following text into %s. Keep its formatting. "+
				"Return only the translation.\n\n%s", LanguageName(opts.Language), content)
		},
		Apply: Replace,
	},
	"continue": {
		Name:     "continue",
		Label:    "Continue",
		MinChars: 5,
		Additive: true,
		Prompt: func(content string, _ PromptOptions) string {
			return "Continue the following text in the same voice. Return only the new text, " +
				"without repeating what is already written.\n\n" + content
		},
		Apply: Append,
	},
	"expand": {
		Name:     "expand",
		Label:    "Expand",
		MinChars: 20,
		Additive: true,
		Prompt: func(content string, _ PromptOptions) string {
			return "Add one paragraph that develops the ideas of the following text with more detail. " +
				"Return only the new paragraph.\n\n" + content
		},
		Apply: Append,
	},
}

// Lookup returns the built-in action with the given name
func Lookup(name string) (Action, error) {
	a, ok := actions[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Action{}, fmt.Errorf("%w: %s", ErrUnknownAction, name)
	}
	return a, nil
}

// Names lists the built-in actions
func Names() []string {
	names := make([]string, 0, len(actions))
	for name := range actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LanguageName turns a BCP 47 tag such as "fr" or "pt-BR" into an English
// language name. Anything that does not parse is returned as given.
func LanguageName(lang string) string {
	lang = strings.TrimSpace(lang)
	tag, err := language.Parse(lang)
	if err != nil {
		return lang
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return lang
}
