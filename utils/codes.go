package utils

import (
	"crypto/rand"
	"math/big"
)

// referral codes skip 0/O and 1/I so they survive being read aloud or retyped
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateCode returns an n-character code drawn uniformly from codeAlphabet using crypto/rand.
func GenerateCode(n int) (string, error) {
	if n <= 0 {
		n = 8
	}
	limit := big.NewInt(int64(len(codeAlphabet)))
	out := make([]byte, n)
	for i := range out {
		v, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		out[i] = codeAlphabet[v.Int64()]
	}
	return string(out), nil
}

// RandomIndex returns a uniform index in [0, n) using crypto/rand.
func RandomIndex(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}
