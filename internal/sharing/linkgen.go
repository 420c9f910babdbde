package sharing

import (
	"crypto/rand"
	"fmt"
)

// LinkLength is the length of a public share link.
const LinkLength = 12

// linkAlphabet needs no escaping in URLs. 62^12 is about 3.2e21.
const linkAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// maxUnbiasedByte is the largest multiple of len(linkAlphabet) that fits in a byte.
const maxUnbiasedByte = 256 - 256%len(linkAlphabet)

// MaxLinkAttempts bounds link generation retries on collision.
const MaxLinkAttempts = 5

// GenerateLink returns a random link token. Uniqueness is not guaranteed; the
// caller must check the store.
func GenerateLink() (string, error) {
	out := make([]byte, 0, LinkLength)
	buf := make([]byte, LinkLength*2)
	for len(out) < LinkLength {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		for _, b := range buf {
			// Rejection sampling keeps every character equally likely.
			if int(b) >= maxUnbiasedByte {
				continue
			}
			out = append(out, linkAlphabet[int(b)%len(linkAlphabet)])
			if len(out) == LinkLength {
				break
			}
		}
	}
	return string(out), nil
}

// IsWellFormedLink checks length and alphabet only.
func IsWellFormedLink(token string) bool {
	if len(token) != LinkLength {
		return false
	}
	for i := 0; i < len(token); i++ {
		c := token[i]
		isAlnum := (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
		if !isAlnum {
			return false
		}
	}
	return true
}
