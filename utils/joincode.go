package utils

import (
	"crypto/rand"
	"math/big"
)

// Excludes ambiguous characters (0/O, 1/I/L)
const joinCodeCharset = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const JoinCodeLength = 6

// GenerateJoinCode returns a random alphanumeric group join code
func GenerateJoinCode() string {
	code := make([]byte, JoinCodeLength)
	max := big.NewInt(int64(len(joinCodeCharset)))
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand failing means the platform is broken; fall back deterministically
			code[i] = joinCodeCharset[i%len(joinCodeCharset)]
			continue
		}
		code[i] = joinCodeCharset[n.Int64()]
	}
	return string(code)
}
