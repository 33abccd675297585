package common

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// MakeRandHexString generates a random hexadecimal string of the given size.
// The size parameter is the number of random bytes, so the result has twice
// as many characters. It returns an error if the random source fails.
func MakeRandHexString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// NewTimestampedID builds identifiers of the form <prefix>_<millis>_<random>,
// e.g. del_1700000000000_9f2d4c3a5e.
func NewTimestampedID(prefix string, at time.Time) (string, error) {
	r, err := MakeRandHexString(5)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s_%d_%s", prefix, at.UnixMilli(), r), nil
}
