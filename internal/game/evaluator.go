package game

// CodeLength is the fixed length of secrets and guesses.
const CodeLength = 4

// ValidateCode checks that s is exactly CodeLength decimal digits.
func ValidateCode(s string) error {
	if len(s) != CodeLength {
		return ErrInvalidGuessFormat
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return ErrInvalidGuessFormat
		}
	}
	return nil
}

// MatchCount scores a guess against a secret: the number of positions where
// the digits are identical. No credit for a correct digit in the wrong
// position; this variant never reports that signal.
func MatchCount(guess, secret string) int {
	n := 0
	for i := 0; i < CodeLength && i < len(guess) && i < len(secret); i++ {
		if guess[i] == secret[i] {
			n++
		}
	}
	return n
}
