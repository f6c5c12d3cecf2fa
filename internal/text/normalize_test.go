package text

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "passthrough clean text",
			input: "Hello world",
			want:  "Hello world",
		},
		{
			name:  "trims leading and trailing whitespace",
			input: "  Hello world  ",
			want:  "Hello world",
		},
		{
			name:  "trims tabs and newlines from edges",
			input: "\t\n Hello \n\t",
			want:  "Hello",
		},
		{
			name:  "normalizes CRLF to LF",
			input: "line one\r\nline two",
			want:  "line one\nline two",
		},
		{
			name:  "normalizes bare CR to LF",
			input: "line one\rline two",
			want:  "line one\nline two",
		},
		{
			name:  "composes decomposed accents",
			input: "café",
			want:  "café",
		},
		{
			name:  "empty stays empty",
			input: "",
			want:  "",
		},
		{
			name:  "whitespace-only becomes empty",
			input: "   \t\n  ",
			want:  "",
		},
		{
			name:  "preserves internal whitespace",
			input: "  hello   world  ",
			want:  "hello   world",
		},
		{
			name:  "preserves arabic script",
			input: " مرحبا بالعالم ",
			want:  "مرحبا بالعالم",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.input)
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
