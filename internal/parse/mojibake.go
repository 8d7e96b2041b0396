package parse

import (
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// FixMojibake repairs text whose UTF-8 bytes were decoded as Latin-1 and
// re-encoded ("cafÃ©" -> "café"). Text containing code points above U+00FF,
// or whose bytes are not valid UTF-8 once reinterpreted, is returned as is.
func FixMojibake(s string) string {
	if s == "" || isASCII(s) {
		return s
	}
	raw, err := charmap.ISO8859_1.NewEncoder().String(s)
	if err != nil {
		return s
	}
	if !utf8.ValidString(raw) {
		return s
	}
	return raw
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
