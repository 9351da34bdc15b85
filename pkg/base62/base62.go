// Package base62 encodes non-negative integers into compact, URL-safe strings.
package base62

// Alphabet lists the 62 symbols in digit order: digits, lowercase, uppercase.
const Alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

const base = uint64(len(Alphabet))

// Encode returns the base62 representation of n, most significant digit first.
// Encode(0) is "0"; for n > 0 the result never starts with a zero digit.
func Encode(n uint64) string {
	if n == 0 {
		return Alphabet[:1]
	}

	// 62^11 > 2^64, so eleven digits hold any uint64.
	var buf [11]byte
	i := len(buf)

	for n > 0 {
		i--
		buf[i] = Alphabet[n%base]
		n /= base
	}

	return string(buf[i:])
}
