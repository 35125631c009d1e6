package archive

import (
	"strings"
)

// NaturalLess compares strings so that embedded numbers sort by value
// ("page2" < "page10"). Letters compare case-insensitively.
func NaturalLess(a, b string) bool {
	for a != "" && b != "" {
		ca, restA := nextChunk(a)
		cb, restB := nextChunk(b)

		if isDigit(ca[0]) && isDigit(cb[0]) {
			na, nb := strings.TrimLeft(ca, "0"), strings.TrimLeft(cb, "0")
			if len(na) != len(nb) {
				return len(na) < len(nb)
			}
			if na != nb {
				return na < nb
			}
			// Same value: fewer leading zeros first.
			if len(ca) != len(cb) {
				return len(ca) < len(cb)
			}
		} else {
			la, lb := strings.ToLower(ca), strings.ToLower(cb)
			if la != lb {
				return la < lb
			}
		}

		a, b = restA, restB
	}
	return len(a) < len(b)
}

func nextChunk(s string) (string, string) {
	digit := isDigit(s[0])
	i := 1
	for i < len(s) && isDigit(s[i]) == digit {
		i++
	}
	return s[:i], s[i:]
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
