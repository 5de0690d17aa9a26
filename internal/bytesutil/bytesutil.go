// Package bytesutil holds small byte-parsing helpers used by the resp
// decoder, factored out so it doesn't have to pull in strconv's
// string-conversion allocations on the hot path.
package bytesutil

import "fmt"

// ParseInt parses a (possibly negative) base-10 integer from b without
// allocating an intermediate string.
func ParseInt(b []byte) (int64, error) {
	if len(b) == 0 {
		return 0, fmt.Errorf("bytesutil: empty integer")
	}
	neg := false
	if b[0] == '-' {
		neg = true
		b = b[1:]
		if len(b) == 0 {
			return 0, fmt.Errorf("bytesutil: malformed integer")
		}
	} else if b[0] == '+' {
		b = b[1:]
	}
	var n int64
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("bytesutil: invalid digit %q", c)
		}
		n = n*10 + int64(c-'0')
	}
	if neg {
		n = -n
	}
	return n, nil
}
