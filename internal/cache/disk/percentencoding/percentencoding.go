// Package percentencoding implements a much stricter form of URL encoding[1]
// suitable for deriving OS filesystem names from untrusted cache keys.
//
// [1]: https://en.wikipedia.org/wiki/Percent-encoding
package percentencoding

import (
	"fmt"
	"strings"
)

func Encode(s string) string {
	var result strings.Builder

	for _, c := range []byte(s) {
		switch {
		case c >= '0' && c <= '9':
			fallthrough
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
			fallthrough
		case c == '-' || c == '_':
			result.WriteByte(c)
		default:
			result.WriteString(fmt.Sprintf("%%%02x", c))
		}
	}

	return result.String()
}
