package profile

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Fingerprint identifies a candidate across imports by name, email and phone.
// Name and email are compared case-insensitively, phone is only trimmed.
func Fingerprint(name, email, phone string) string {
	base := strings.ToLower(strings.TrimSpace(name)) + "|" +
		strings.ToLower(strings.TrimSpace(email)) + "|" +
		strings.TrimSpace(phone)

	sum := sha256.Sum256([]byte(base))
	return hex.EncodeToString(sum[:])
}

// Fingerprint returns the dedup fingerprint of the candidate.
func (c *Candidate) Fingerprint() string {
	return Fingerprint(c.Name, c.Email, c.Phone)
}
