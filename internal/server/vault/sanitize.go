package vault

import "strings"

// illegalChars are replaced in uploaded file names. The set covers path
// separators, shell metacharacters and whitespace.
const illegalChars = "<>|:()&;#?*/\\ "

// Sanitize replaces every illegal character in name with '_'.
func Sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(illegalChars, r) || r == 0 {
			return '_'
		}
		return r
	}, name)
}
