package prompt

import (
	"strings"
	"testing"
)

func TestCompose_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"Trident Sugar Free Gum\nIngredients: sorbitol, gum base",
		strings.Repeat("NOISE ", 5000),
		"%s %d {{.}} ${text}",
	}

	for _, in := range inputs {
		a, b := Compose(in), Compose(in)
		if a != b {
			t.Errorf("Compose(%q) is not deterministic", truncate(in))
		}
	}
}

func TestCompose_EmbedsTextVerbatim(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"plain", "Oat Milk Barista Edition"},
		{"format verbs", "100% juice %s %v"},
		{"template syntax", "{{ .Text }} ${HOME}"},
		{"unicode", "Leche de avena · 燕麦奶 · जई का दूध"},
		{"multiline", "line one\n\nline two\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Compose(tt.text)
			if !strings.Contains(p, tt.text) {
				t.Errorf("prompt does not contain input text %q", tt.text)
			}
			if want := len(Compose("")) + len(tt.text); len(p) != want {
				t.Errorf("prompt length: got %d, want %d", len(p), want)
			}
		})
	}
}

func TestCompose_EmptyText(t *testing.T) {
	p := Compose("")
	if !strings.HasPrefix(p, header) || !strings.HasSuffix(p, footer) {
		t.Error("empty text should yield header+footer")
	}
}

func TestCompose_SectionsInOrder(t *testing.T) {
	p := Compose("anything")

	last := -1
	for i, s := range Sections {
		idx := strings.Index(p, s)
		if idx < 0 {
			t.Fatalf("section %d %q missing from prompt", i+1, s)
		}
		if idx <= last {
			t.Errorf("section %q out of order", s)
		}
		last = idx
	}
}

func TestCompose_Requirements(t *testing.T) {
	p := Compose("")

	for _, a := range Allergens {
		if !strings.Contains(p, a) {
			t.Errorf("allergen %q missing", a)
		}
	}
	for _, l := range Languages {
		if !strings.Contains(p, l) {
			t.Errorf("language %q missing", l)
		}
	}
	for _, must := range []string{
		"DO NOT translate the product name",
		"out of 5",
		"approximate prices",
		"higher-priced",
		"only if relevant",
		"vegan",
		"halal",
		"Markdown",
	} {
		if !strings.Contains(p, must) {
			t.Errorf("prompt missing %q", must)
		}
	}
}

func truncate(s string) string {
	if len(s) > 40 {
		return s[:40] + "..."
	}
	return s
}
