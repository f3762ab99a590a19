package database

import "testing"

func TestRemoveDiacritics(t *testing.T) {
	cases := map[string]string{
		"Jiří":     "Jiri",
		"Núñez":    "Nunez",
		"Łukasz":   "Łukasz", // stroke is not a combining mark
		"François": "Francois",
		"plain":    "plain",
	}
	for in, want := range cases {
		if got := RemoveDiacritics(in); got != want {
			t.Errorf("RemoveDiacritics(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeName(t *testing.T) {
	cases := map[string]string{
		"Jan Novák":      "jan novak",
		"jan-novak":      "jan novak",
		"  Ana   María ": "ana maria",
		"O'Brien":        "o'brien",
	}
	for in, want := range cases {
		if got := NormalizeName(in); got != want {
			t.Errorf("NormalizeName(%q) = %q, want %q", in, got, want)
		}
	}
}
