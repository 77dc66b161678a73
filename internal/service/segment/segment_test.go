package segment

import (
	"reflect"
	"testing"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		delimiters string
		expected   []string
	}{
		{"two sentences", "Hello. World?", ".?;", []string{"Hello.", "World?"}},
		{"no delimiters", "no delimiters", DefaultDelimiters, []string{"no delimiters"}},
		{"consecutive delimiters", "A..B", ".", []string{"A.", "B"}},
		{"empty", "", DefaultDelimiters, []string{}},
		{"whitespace only", "   \t ", DefaultDelimiters, []string{}},
		{"ends on delimiter", "Done.", DefaultDelimiters, []string{"Done."}},
		{"only delimiters", "...?;", DefaultDelimiters, []string{}},
		{"trailing remainder trimmed", " I think so.  Yes ", DefaultDelimiters, []string{"I think so.", "Yes"}},
		{"semicolon", "first; second", DefaultDelimiters, []string{"first;", "second"}},
		{"exclamation not a default delimiter", "Wow! Really.", DefaultDelimiters, []string{"Wow! Really."}},
		{"custom delimiters", "a!b:c", "!:", []string{"a!", "b:", "c"}},
		{"multibyte text", "Zażółć gęślą. Jaźń?", DefaultDelimiters, []string{"Zażółć gęślą.", "Jaźń?"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Split(tt.text, tt.delimiters)
			if len(got) == 0 && len(tt.expected) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Split(%q, %q) = %q, want %q", tt.text, tt.delimiters, got, tt.expected)
			}
		})
	}
}

func TestSplit_NoEmptyParts(t *testing.T) {
	inputs := []string{"..", ". . .", "a. . b", "?;.x", "x;;;;y"}
	for _, in := range inputs {
		for _, part := range Split(in, DefaultDelimiters) {
			if part == "" || part == "." || part == "?" || part == ";" {
				t.Errorf("Split(%q) produced an empty part %q", in, part)
			}
		}
	}
}

func TestEndsWithAny(t *testing.T) {
	tests := []struct {
		text     string
		expected bool
	}{
		{"Hi there", false},
		{"Hi there.", true},
		{"Really?", true},
		{"Stop!", true},
		{"Note:", true},
		{"trailing space; ", true},
		{"", false},
		{"comma,", false},
	}

	for _, tt := range tests {
		if got := EndsWithAny(tt.text, DefaultTerminal); got != tt.expected {
			t.Errorf("EndsWithAny(%q) = %v, want %v", tt.text, got, tt.expected)
		}
	}
}
