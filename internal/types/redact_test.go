package types

import "testing"

func TestRedactEmail(t *testing.T) {
	tests := map[string]string{
		"user@example.com":        "u***@example.com",
		"a@safir.example":         "a***@safir.example",
		"":                        "",
		"not-an-email":            "***",
		"@example.com":            "***@example.com",
		"ops+alerts@b3lab.org":    "o***@b3lab.org",
		"first@second@domain.org": "f***@second@domain.org",
	}

	for in, want := range tests {
		if got := RedactEmail(in); got != want {
			t.Errorf("RedactEmail(%q) = %q, want %q", in, got, want)
		}
	}
}
