package query

import (
	"strconv"
	"strings"
)

// Key identifies a query. Observers with equal keys share one cache entry.
type Key []string

// String renders the key for logs.
func (k Key) String() string {
	return "[" + strings.Join(k, " ") + "]"
}

// HasPrefix reports whether the first len(prefix) parts of k equal prefix.
// An empty prefix matches every key.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i, part := range prefix {
		if k[i] != part {
			return false
		}
	}
	return true
}

// hash is the driver key. Parts are quoted so ["a b"] and ["a", "b"] differ.
func (k Key) hash() string {
	var b strings.Builder
	for i, part := range k {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(part))
	}
	return b.String()
}
