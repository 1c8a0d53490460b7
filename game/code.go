package game

import (
	"math/rand"
	"strings"
)

// Room codes are short join tokens typed by hand, so the alphabet drops
// visually confusable characters (0/O, 1/I/L).
const (
	codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	CodeLength   = 5
)

// CodeAlphabet exposes the code character set, shared with friend codes.
func CodeAlphabet() string {
	return codeAlphabet
}

// GenerateCode returns a fresh room code.
func GenerateCode(rng *rand.Rand) string {
	var b strings.Builder
	b.Grow(CodeLength)
	for i := 0; i < CodeLength; i++ {
		b.WriteByte(codeAlphabet[rng.Intn(len(codeAlphabet))])
	}
	return b.String()
}

// ValidCode reports whether s could have been produced by GenerateCode.
func ValidCode(s string) bool {
	if len(s) != CodeLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !strings.ContainsRune(codeAlphabet, rune(s[i])) {
			return false
		}
	}
	return true
}
