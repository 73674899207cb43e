package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SHA256Hex returns the hex-encoded SHA256 hash of the input string.
func SHA256Hex(input string) string {
	h := sha256.Sum256([]byte(input))
	return hex.EncodeToString(h[:])
}

// Prefix returns the first n characters of SHA256Hex(input), or the full hash
// when n is out of range. Used to correlate values in logs without storing them.
func Prefix(input string, n int) string {
	full := SHA256Hex(input)
	if n <= 0 || n > len(full) {
		return full
	}
	return full[:n]
}

// Key hashes parts into a fixed-length key. Parts are separated by a NUL byte
// so ("ab", "c") and ("a", "bc") never collide.
func Key(parts ...string) string {
	return SHA256Hex(strings.Join(parts, "\x00"))
}
