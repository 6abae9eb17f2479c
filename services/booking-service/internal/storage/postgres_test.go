package storage

import "testing"

func TestLikePatternMatchesLiterally(t *testing.T) {
	cases := []struct{ search, want string }{
		{"", "%%"},
		{"  Room 1 ", "%room 1%"},
		{"50%", `%50\%%`},
		{"go_lang", `%go\_lang%`},
		{`C:\dir`, `%c:\\dir%`},
	}
	for _, tc := range cases {
		if got := likePattern(tc.search); got != tc.want {
			t.Fatalf("likePattern(%q) = %q, want %q", tc.search, got, tc.want)
		}
	}
}
