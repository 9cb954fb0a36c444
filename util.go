package llsd

import (
	"encoding/binary"

	"golang.org/x/exp/constraints"
)

var (
	BE = binary.BigEndian
	// Order is the byte order of every fixed-width field on the wire.
	Order binary.ByteOrder = BE
)

// Unlimited disables a byte budget or a depth bound.
const Unlimited = -1

// indentUnit is one level of pretty-printed indentation.
const indentUnit = "    "

// clamp limits v to [lo, hi].
func clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// isSpace matches the C locale isspace set.
func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

func isAlpha(c byte) bool { return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' }

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// hexNybbles maps an ASCII hex digit to its value; every other byte maps to -1.
var hexNybbles = func() (t [256]int8) {
	for i := range t {
		t[i] = -1
	}
	for c := '0'; c <= '9'; c++ {
		t[c] = int8(c - '0')
	}
	for c := 'a'; c <= 'f'; c++ {
		t[c] = int8(c-'a') + 10
		t[c-'a'+'A'] = int8(c-'a') + 10
	}
	return t
}()

const upperHex = "0123456789ABCDEF"
