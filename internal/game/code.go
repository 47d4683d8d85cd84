package game

import "strings"

// Room codes avoid the ambiguous glyphs O and 0.
const (
	CodeAlphabet = "ABCDEFGHIJKLMNPQRSTUVWXYZ123456789"
	CodeLength   = 4
)

// GenerateCode builds one candidate code. Uniqueness is the caller's job.
func GenerateCode(rng Intner) string {
	code := make([]byte, CodeLength)
	for i := range code {
		code[i] = CodeAlphabet[rng.Intn(len(CodeAlphabet))]
	}
	return string(code)
}

// NormalizeCode upper-cases user input so "ab12" finds room "AB12".
func NormalizeCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// ValidCode reports whether s could have been produced by GenerateCode.
func ValidCode(s string) bool {
	if len(s) != CodeLength {
		return false
	}
	for _, c := range s {
		if !strings.ContainsRune(CodeAlphabet, c) {
			return false
		}
	}
	return true
}
