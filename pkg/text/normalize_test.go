package text

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "placeholder stripped and whitespace collapsed",
			in:   "{NAME} isn't   here",
			want: " isn't here",
		},
		{
			name: "lowercased",
			in:   "Der Vertrag LÄUFT",
			want: "der vertrag läuft",
		},
		{
			name: "placeholder with digits and spaces",
			in:   "Hallo {kunde 01}, wie geht's",
			want: "hallo , wie geht es",
		},
		{
			name: "german short forms expanded",
			in:   "ich hab 'ne frage zu 'nem vertrag",
			want: "ich hab eine frage zu einem vertrag",
		},
		{
			name: "braces with punctuation are not placeholders",
			in:   "{a-b} bleibt",
			want: "{a-b} bleibt",
		},
		{
			name: "empty",
			in:   "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalize_InvalidUTF8(t *testing.T) {
	if got := Normalize("ok \xff\xfe broken"); got != "" {
		t.Errorf("Normalize(invalid) = %q, want empty string", got)
	}
}

func TestNormalizeWith_EnglishTable(t *testing.T) {
	got := NormalizeWith("{NAME} isn't   here", EnglishContractions)
	if got != " is not here" {
		t.Errorf("NormalizeWith() = %q, want %q", got, " is not here")
	}
}

func TestJoin(t *testing.T) {
	tests := []struct {
		tokens []string
		want   string
	}{
		{[]string{"hallo", ",", "welt", "."}, "hallo, welt."},
		{[]string{" ", "a", "", "b"}, "a b"},
		{nil, ""},
	}

	for _, tt := range tests {
		if got := Join(tt.tokens); got != tt.want {
			t.Errorf("Join(%q) = %q, want %q", tt.tokens, got, tt.want)
		}
	}
}

func TestWordCore(t *testing.T) {
	tests := map[string]string{
		"Running!": "running",
		"run":      "run",
		"42":       "",
		"--go--":   "go",
		"Häuser":   "h",
	}
	for in, want := range tests {
		if got := WordCore(in); got != want {
			t.Errorf("WordCore(%q) = %q, want %q", in, got, want)
		}
	}
}

// FuzzNormalize checks that normalisation never panics and always yields a
// single-spaced result.
func FuzzNormalize(f *testing.F) {
	f.Add("{NAME} isn't   here")
	f.Add("Unicode: 你好世界 🌍😊")
	f.Add("")
	f.Add("   ")
	f.Add(strings.Repeat("{x} 'ne ", 200))

	f.Fuzz(func(t *testing.T, s string) {
		out := Normalize(s)
		if !utf8.ValidString(s) {
			if out != "" {
				t.Errorf("invalid input produced %q", out)
			}
			return
		}
		if strings.Contains(out, "  ") {
			t.Errorf("Normalize(%q) = %q contains a double space", s, out)
		}
	})
}
