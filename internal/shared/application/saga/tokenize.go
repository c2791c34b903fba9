package saga

import (
	"strings"
	"unicode"
)

// normalize lower-cases a name and strips underscores and hyphens, so
// "Create_User", "createUser" and "CREATE-USER" compare equal.
func normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.TrimSpace(s) {
		if r == '_' || r == '-' {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// splitCamel tokenizes a camel-case name on case transitions. Runs of
// capitals are kept as one token together with trailing digits, so
// "HTTP2Error" yields ["HTTP2", "Error"] and "CreateBlogPost" yields
// ["Create", "Blog", "Post"].
func splitCamel(s string) []string {
	runes := []rune(s)
	var tokens []string

	i := 0
	for i < len(runes) {
		switch r := runes[i]; {
		case unicode.IsUpper(r):
			j := i + 1
			for j < len(runes) && unicode.IsUpper(runes[j]) {
				j++
			}
			if j-i > 1 {
				// Uppercase run. The last capital starts the next word
				// when a lowercase letter follows ("HTTPServer").
				if j < len(runes) && unicode.IsLower(runes[j]) {
					j--
				} else {
					for j < len(runes) && unicode.IsDigit(runes[j]) {
						j++
					}
				}
				tokens = append(tokens, string(runes[i:j]))
				i = j
				continue
			}
			// Single capital: consume the rest of the word.
			for j < len(runes) && (unicode.IsLower(runes[j]) || unicode.IsDigit(runes[j])) {
				j++
			}
			tokens = append(tokens, string(runes[i:j]))
			i = j
		case unicode.IsLower(r) || unicode.IsDigit(r):
			j := i
			for j < len(runes) && (unicode.IsLower(runes[j]) || unicode.IsDigit(runes[j])) {
				j++
			}
			tokens = append(tokens, string(runes[i:j]))
			i = j
		default:
			// Separators carry no token content.
			i++
		}
	}
	return tokens
}
