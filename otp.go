package ayushya

import (
	"crypto/rand"
	"crypto/subtle"
	"math/big"

	goerrors "github.com/goliatone/go-errors"
)

// DefaultCodeLength is how many digits a one-time-code carries.
const DefaultCodeLength = 6

// GenerateCode returns a numeric one-time-code of the given length using
// crypto/rand. Leading zeroes are valid, the code is a string, not a number.
func GenerateCode(length int) (string, error) {
	if length <= 0 {
		length = DefaultCodeLength
	}

	digits := make([]byte, length)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate code")
		}
		digits[i] = byte('0' + n.Int64())
	}

	return string(digits), nil
}

// CodeEqual compares a presented code against the stored one in constant time.
func CodeEqual(presented, stored string) bool {
	if len(presented) != len(stored) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(stored)) == 1
}
