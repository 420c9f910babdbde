package sharing

import (
	"errors"
	"testing"
	"time"
)

func TestValidateDuration(t *testing.T) {
	p := NewExpiryPolicy(1, 30)

	tests := []struct {
		name    string
		hours   int
		wantErr bool
	}{
		{"minimum", 1, false},
		{"one day", 24, false},
		{"maximum", 720, false},
		{"zero", 0, true},
		{"negative", -5, true},
		{"one past maximum", 721, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.ValidateDuration(tt.hours)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateDuration(%d) error = %v, wantErr %v", tt.hours, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrValidation) {
				t.Errorf("ValidateDuration(%d) error kind = %v, want validation", tt.hours, KindOf(err))
			}
		})
	}
}

func TestComputeExpiry(t *testing.T) {
	p := NewExpiryPolicy(1, 30)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	got, err := p.ComputeExpiry(now, 24)
	if err != nil {
		t.Fatalf("ComputeExpiry() error = %v", err)
	}
	if want := now.Add(24 * time.Hour); !got.Equal(want) {
		t.Errorf("ComputeExpiry() = %v, want %v", got, want)
	}

	if _, err := p.ComputeExpiry(now, 1000); err == nil {
		t.Error("ComputeExpiry(1000) error = nil, want out of range error")
	}
}

func TestIsExpired(t *testing.T) {
	e := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"well before", e.Add(-time.Hour), false},
		{"exactly at expiry", e, false},
		{"one nanosecond after", e.Add(time.Nanosecond), true},
		{"long after", e.Add(48 * time.Hour), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsExpired(e, tt.now); got != tt.want {
				t.Errorf("IsExpired(%v, %v) = %v, want %v", e, tt.now, got, tt.want)
			}
		})
	}
}

func TestExtend(t *testing.T) {
	current := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	for _, hours := range []int{1, 24, 720} {
		got, err := Extend(current, hours)
		if err != nil {
			t.Fatalf("Extend(%d) error = %v", hours, err)
		}
		if !got.After(current) {
			t.Errorf("Extend(%d) = %v, not after %v", hours, got, current)
		}
	}

	for _, hours := range []int{0, -1} {
		if _, err := Extend(current, hours); !errors.Is(err, ErrValidation) {
			t.Errorf("Extend(%d) error = %v, want validation error", hours, err)
		}
	}
}
