package sharing

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestPasswordGate_RoundTrip(t *testing.T) {
	g := NewPasswordGate(bcrypt.MinCost)

	for _, p := range []string{"correct-horse", "a", "pässwörd", strings.Repeat("x", 72)} {
		hash, err := g.Hash(p)
		if err != nil {
			t.Fatalf("Hash(%q) error = %v", p, err)
		}
		if hash == p {
			t.Fatalf("Hash(%q) returned the plaintext", p)
		}
		if !g.Verify(p, hash) {
			t.Errorf("Verify(%q, Hash(%q)) = false, want true", p, p)
		}
		if g.Verify(p+"!", hash) {
			t.Errorf("Verify(%q, Hash(%q)) = true, want false", p+"!", p)
		}
	}
}

func TestPasswordGate_RejectsLongerThanHashed(t *testing.T) {
	g := NewPasswordGate(bcrypt.MinCost)
	pw := strings.Repeat("x", 72)

	hash, err := g.Hash(pw)
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	for _, guess := range []string{pw + "x", pw + "-not-the-password", pw + strings.Repeat("y", 100)} {
		if g.Verify(guess, hash) {
			t.Errorf("Verify(%d bytes, Hash(72 bytes)) = true, want false", len(guess))
		}
	}
}

func TestPasswordGate_Salted(t *testing.T) {
	g := NewPasswordGate(bcrypt.MinCost)

	h1, _ := g.Hash("same")
	h2, _ := g.Hash("same")
	if h1 == h2 {
		t.Error("Hash() returned identical hashes for the same input")
	}
}

func TestPasswordGate_TooLong(t *testing.T) {
	g := NewPasswordGate(bcrypt.MinCost)

	_, err := g.Hash(strings.Repeat("x", 73))
	if !errors.Is(err, ErrValidation) {
		t.Errorf("Hash(73 bytes) error = %v, want validation error", err)
	}
}

func TestNewPasswordGate_Cost(t *testing.T) {
	tests := []struct {
		cost int
		want int
	}{
		{bcrypt.MinCost, bcrypt.MinCost},
		{12, 12},
		{0, bcrypt.DefaultCost},
		{99, bcrypt.DefaultCost},
	}

	for _, tt := range tests {
		if got := NewPasswordGate(tt.cost).cost; got != tt.want {
			t.Errorf("NewPasswordGate(%d).cost = %d, want %d", tt.cost, got, tt.want)
		}
	}
}

func TestPasswordGate_VerifyGarbageHash(t *testing.T) {
	g := NewPasswordGate(bcrypt.MinCost)
	if g.Verify("anything", "not-a-bcrypt-hash") {
		t.Error("Verify() against garbage hash = true, want false")
	}
}
