package sharing

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// PasswordGate hashes and verifies share passwords. It protects a share, not
// an account.
type PasswordGate struct {
	cost int
}

// NewPasswordGate creates a gate with the given bcrypt cost. Out-of-range
// costs fall back to bcrypt.DefaultCost.
func NewPasswordGate(cost int) PasswordGate {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return PasswordGate{cost: cost}
}

// Hash returns a salted bcrypt hash of plaintext.
func (g PasswordGate) Hash(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), g.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", validationError("Password must be 72 bytes or fewer")
		}
		return "", err
	}
	return string(hash), nil
}

// maxPasswordBytes is where bcrypt stops reading input.
const maxPasswordBytes = 72

// Verify compares plaintext against hash in constant time. Input longer than
// bcrypt reads is rejected, since only its prefix would be compared.
func (g PasswordGate) Verify(plaintext, hash string) bool {
	if len(plaintext) > maxPasswordBytes {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
