// Package claim issues and verifies pickup credentials for document
// requests: a short human-readable code and a signed token for QR-based
// verification at the counter.
package claim

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/nacl/secretbox"

	dErrors "lingkod/pkg/domain-errors"
)

// codeAlphabet avoids ambiguous characters so staff can read codes aloud.
const codeAlphabet = "ABCDEFGHJKMNPQRSTVWXYZ23456789"

const codeLength = 10

// GenerateCode produces a pickup code like "K3MTR-8WQ2D".
func GenerateCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("could not generate pickup code: %w", err)
	}
	chars := make([]byte, codeLength)
	for i, b := range buf {
		chars[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(chars[:5]) + "-" + string(chars[5:]), nil
}

// HashCode creates a bcrypt hash of the pickup code for verification.
func HashCode(code string) (string, error) {
	if code == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "pickup code cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(normalizeCode(code)), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("could not hash pickup code: %w", err)
	}
	return string(hashed), nil
}

// VerifyCode checks a submitted code against the stored hash. The bcrypt
// comparison is constant-time by construction.
func VerifyCode(code, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(normalizeCode(code))); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return dErrors.New(dErrors.CodeClaimMismatch, "pickup code does not match")
		}
		return fmt.Errorf("could not verify pickup code: %w", err)
	}
	return nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(code), "-", ""))
}

// MaskCode renders the low-sensitivity display form, e.g. "K3***-***2D".
func MaskCode(code string) string {
	raw := normalizeCode(code)
	if len(raw) != codeLength {
		return ""
	}
	return raw[:2] + "***-***" + raw[codeLength-2:]
}

// Cipher encrypts pickup codes reversibly so the owner can re-display a lost
// code. The plaintext code is never logged and never stored directly.
type Cipher struct {
	key [32]byte
}

// NewCipher derives a cipher from a base64-encoded 32-byte key.
func NewCipher(encodedKey string) (*Cipher, error) {
	raw, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("decode claim code key: %w", err)
	}
	if len(raw) != 32 {
		return nil, errors.New("claim code key must be 32 bytes")
	}
	c := &Cipher{}
	copy(c.key[:], raw)
	return c, nil
}

// Encrypt seals the code with a random nonce; output is base64(nonce||box).
func (c *Cipher) Encrypt(code string) (string, error) {
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("could not generate nonce: %w", err)
	}
	sealed := secretbox.Seal(nonce[:], []byte(code), &nonce, &c.key)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decrypt recovers the plaintext code for an owner-reveal request.
func (c *Cipher) Decrypt(encrypted string) (string, error) {
	sealed, err := base64.RawURLEncoding.DecodeString(encrypted)
	if err != nil {
		return "", fmt.Errorf("decode encrypted code: %w", err)
	}
	if len(sealed) < 24 {
		return "", errors.New("encrypted code too short")
	}
	var nonce [24]byte
	copy(nonce[:], sealed[:24])
	plain, ok := secretbox.Open(nil, sealed[24:], &nonce, &c.key)
	if !ok {
		return "", errors.New("could not decrypt pickup code")
	}
	return string(plain), nil
}
