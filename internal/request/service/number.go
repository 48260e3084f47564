package service

import (
	"crypto/rand"
	"fmt"
	"time"
)

// maxNumberAttempts bounds collision retries before the create is reported
// as a conflict.
const maxNumberAttempts = 5

// numberAlphabet excludes ambiguous characters so the number survives being
// read over a counter or written on a claim stub.
const numberAlphabet = "ABCDEFGHJKMNPQRSTVWXYZ23456789"

const numberSuffixLength = 6

// newRequestNumber produces a human-quotable reference like LGK-2026-K7M2QD.
// Uniqueness is enforced by the store; callers regenerate on collision.
func newRequestNumber(createdAt time.Time) (string, error) {
	buf := make([]byte, numberSuffixLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = numberAlphabet[int(b)%len(numberAlphabet)]
	}
	return fmt.Sprintf("LGK-%d-%s", createdAt.Year(), buf), nil
}
