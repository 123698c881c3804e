// Package collation implements the string ordering and equality policies used
// when comparing atomic values, and a registry resolving them by URI.
package collation

import (
	"strings"
)

const (
	// CodepointURI identifies the Unicode codepoint collation.
	CodepointURI = "http://www.w3.org/2005/xpath-functions/collation/codepoint"
	// HTMLASCIICaseInsensitiveURI identifies the HTML ASCII case-insensitive
	// collation.
	HTMLASCIICaseInsensitiveURI = "http://www.w3.org/2005/xpath-functions/collation/html-ascii-case-insensitive"
	// UCABaseURI is the base of the parameterized Unicode Collation Algorithm
	// family of URIs.
	UCABaseURI = "http://www.w3.org/2013/collation/UCA"
)

// Collation is an ordering and equality policy over strings.
//
// Key must be consistent with Equal: Key(a) == Key(b) exactly when
// Equal(a, b). Implementations must be safe for concurrent use.
type Collation interface {
	URI() string
	// CompareStrings returns a negative number, zero or a positive number as
	// a sorts before, equal to or after b.
	CompareStrings(a, b string) int
	Equal(a, b string) bool
	// Key returns a collation key for s, usable as a map key.
	Key(s string) string
}

// Codepoint is the collation ordering strings by Unicode codepoint.
var Codepoint Collation = codepoint{}

type codepoint struct{}

func (codepoint) URI() string { return CodepointURI }

// Go compares strings bytewise, and UTF-8 byte order is codepoint order.
func (codepoint) CompareStrings(a, b string) int { return strings.Compare(a, b) }

func (codepoint) Equal(a, b string) bool { return a == b }

func (codepoint) Key(s string) string { return s }

// HTMLASCIICaseInsensitive compares strings codepoint by codepoint after
// folding the ASCII letters A-Z to lower case. Other characters are compared
// unchanged.
var HTMLASCIICaseInsensitive Collation = htmlASCII{}

type htmlASCII struct{}

func (htmlASCII) URI() string { return HTMLASCIICaseInsensitiveURI }

func (htmlASCII) CompareStrings(a, b string) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		ca, cb := foldASCII(a[i]), foldASCII(b[i])
		if ca != cb {
			if ca < cb {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}

func (h htmlASCII) Equal(a, b string) bool {
	return len(a) == len(b) && h.CompareStrings(a, b) == 0
}

func (htmlASCII) Key(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, s)
}

func foldASCII(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}
