package random

import (
	"crypto/rand"
	"math/big"
)

const upperAlnum = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Code returns an uppercase alphanumeric string of the given length,
// drawn from crypto/rand.
func Code(length int) string {
	result := make([]byte, length)
	charsetLength := big.NewInt(int64(len(upperAlnum)))
	for i := range result {
		n, _ := rand.Int(rand.Reader, charsetLength)
		result[i] = upperAlnum[n.Int64()]
	}
	return string(result)
}
