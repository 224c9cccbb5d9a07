package forwarder

import "regexp"

// tokenRe matches a word-bounded run of exactly 43 or 44 ASCII alphanumerics,
// the length of a base58 token mint address.
var tokenRe = regexp.MustCompile(`\b[a-zA-Z0-9]{43,44}\b`)

// ExtractToken returns the leftmost token-like run in text, or "" when the
// text carries none.
func ExtractToken(text string) string {
	return tokenRe.FindString(text)
}
