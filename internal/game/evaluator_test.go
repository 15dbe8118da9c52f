package game

import "testing"

func TestMatchCount(t *testing.T) {
	cases := []struct {
		guess, secret string
		want          int
	}{
		{"1234", "1234", 4},
		{"1234", "5678", 0},
		{"1234", "1243", 2},
		{"1111", "1234", 1},
		{"4321", "1234", 0}, // right digits, wrong positions score nothing
		{"1294", "1234", 3},
	}
	for _, c := range cases {
		if got := MatchCount(c.guess, c.secret); got != c.want {
			t.Errorf("MatchCount(%q, %q) = %d, want %d", c.guess, c.secret, got, c.want)
		}
	}
}

func TestMatchCountSymmetric(t *testing.T) {
	pairs := [][2]string{{"1234", "1239"}, {"0000", "0101"}, {"9876", "9999"}}
	for _, p := range pairs {
		if MatchCount(p[0], p[1]) != MatchCount(p[1], p[0]) {
			t.Errorf("MatchCount not symmetric for %q/%q", p[0], p[1])
		}
	}
}

func TestValidateCode(t *testing.T) {
	for _, ok := range []string{"0000", "1234", "9999"} {
		if err := ValidateCode(ok); err != nil {
			t.Errorf("ValidateCode(%q) = %v, want nil", ok, err)
		}
	}
	for _, bad := range []string{"", "123", "12345", "12a4", "12.4", "１２３４", "-123"} {
		if err := ValidateCode(bad); err != ErrInvalidGuessFormat {
			t.Errorf("ValidateCode(%q) = %v, want ErrInvalidGuessFormat", bad, err)
		}
	}
}
