package episode

import (
	"strings"
	"testing"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain ascii",
			input: "Hello World",
			want:  "hello-world",
		},
		{
			name:  "accented vowels and enye",
			input: "Canción de España",
			want:  "cancion-de-espana",
		},
		{
			name:  "diaeresis grave circumflex",
			input: "Pingüino àèìòù âêîôû",
			want:  "pinguino-aeiou-aeiou",
		},
		{
			name:  "punctuation collapses",
			input: "¿Qué pasa?!! -- 2023",
			want:  "que-pasa-2023",
		},
		{
			name:  "leading and trailing dash stripped",
			input: "  Linux  ",
			want:  "linux",
		},
		{
			name:  "other letters become dashes",
			input: "Façade",
			want:  "fa-ade",
		},
		{
			name:  "digits kept",
			input: "Episodio 42",
			want:  "episodio-42",
		},
		{
			name:  "empty",
			input: "",
			want:  "",
		},
		{
			name:  "only symbols",
			input: "!!!",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Slugify(tt.input); got != tt.want {
				t.Errorf("Slugify(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSlugify_Idempotent(t *testing.T) {
	inputs := []string{
		"Él Día — de los Muertos!!",
		"  --Hola--  Mundo--  ",
		"ÁÉÍÓÚ ñandú",
		"a_b.c/d",
		"İstanbul",
	}

	for _, in := range inputs {
		once := Slugify(in)
		if strings.Contains(once, "--") {
			t.Errorf("Slugify(%q) = %q contains --", in, once)
		}
		if strings.HasPrefix(once, "-") || strings.HasSuffix(once, "-") {
			t.Errorf("Slugify(%q) = %q has leading or trailing dash", in, once)
		}
		if twice := Slugify(once); twice != once {
			t.Errorf("Slugify(Slugify(%q)) = %q, want %q", in, twice, once)
		}
	}
}

func TestSlugify_UppercaseAccented(t *testing.T) {
	if got := Slugify("Él Día — de los Muertos!!"); got != "el-dia-de-los-muertos" {
		t.Errorf("Slugify() = %q, want %q", got, "el-dia-de-los-muertos")
	}
}
