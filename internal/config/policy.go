package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Policy holds share lifecycle limits. These are easier to manage as a YAML
// file than as a pile of env vars.
type Policy struct {
	Shares     SharePolicy                `yaml:"shares"`
	Passwords  PasswordPolicy             `yaml:"passwords"`
	RateLimits map[string]RateLimitPolicy `yaml:"rate_limits"`
}

// SharePolicy bounds share durations and sizes.
type SharePolicy struct {
	MinHours         int `yaml:"min_hours"`
	MaxDays          int `yaml:"max_days"`
	DefaultHours     int `yaml:"default_hours"`
	MaxFilesPerShare int `yaml:"max_files_per_share"`
}

// PasswordPolicy configures the share password hash.
type PasswordPolicy struct {
	BcryptCost int `yaml:"bcrypt_cost"`
}

// RateLimitPolicy is a sliding-window limit for one bucket.
type RateLimitPolicy struct {
	Limit  int           `yaml:"limit"`
	Window time.Duration `yaml:"window"`
}

// DefaultPolicy returns the built-in limits.
func DefaultPolicy() *Policy {
	return &Policy{
		Shares: SharePolicy{
			MinHours:         1,
			MaxDays:          30,
			DefaultHours:     24,
			MaxFilesPerShare: 50,
		},
		Passwords: PasswordPolicy{
			BcryptCost: 10,
		},
		RateLimits: map[string]RateLimitPolicy{
			"create": {Limit: 10, Window: time.Hour},
			"verify": {Limit: 20, Window: 15 * time.Minute},
		},
	}
}

// LoadPolicy loads the policy file.
// Path is determined by POLICY_FILE env var, defaulting to "policy.yaml".
// Returns the defaults without error if the file doesn't exist.
func LoadPolicy() (*Policy, error) {
	return LoadPolicyFile(getEnv("POLICY_FILE", "policy.yaml"))
}

// LoadPolicyFile loads a policy from a specific path, filling unset fields
// with defaults.
func LoadPolicyFile(path string) (*Policy, error) {
	policy := DefaultPolicy()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Policy file is optional
			return policy, nil
		}
		return nil, err
	}

	var fromFile Policy
	if err := yaml.Unmarshal(data, &fromFile); err != nil {
		return nil, fmt.Errorf("failed to parse policy file: %w", err)
	}

	policy.merge(&fromFile)
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return policy, nil
}

func (p *Policy) merge(o *Policy) {
	if o.Shares.MinHours > 0 {
		p.Shares.MinHours = o.Shares.MinHours
	}
	if o.Shares.MaxDays > 0 {
		p.Shares.MaxDays = o.Shares.MaxDays
	}
	if o.Shares.DefaultHours > 0 {
		p.Shares.DefaultHours = o.Shares.DefaultHours
	}
	if o.Shares.MaxFilesPerShare > 0 {
		p.Shares.MaxFilesPerShare = o.Shares.MaxFilesPerShare
	}
	if o.Passwords.BcryptCost > 0 {
		p.Passwords.BcryptCost = o.Passwords.BcryptCost
	}
	for bucket, limit := range o.RateLimits {
		p.RateLimits[bucket] = limit
	}
}

// Validate checks that the limits are internally consistent.
func (p *Policy) Validate() error {
	if p.Shares.MinHours > p.Shares.MaxDays*24 {
		return fmt.Errorf("shares.min_hours (%d) exceeds shares.max_days (%d days)", p.Shares.MinHours, p.Shares.MaxDays)
	}
	if p.Shares.DefaultHours < p.Shares.MinHours || p.Shares.DefaultHours > p.Shares.MaxDays*24 {
		return fmt.Errorf("shares.default_hours (%d) is outside the allowed range", p.Shares.DefaultHours)
	}
	if p.Passwords.BcryptCost < 4 || p.Passwords.BcryptCost > 31 {
		return fmt.Errorf("passwords.bcrypt_cost (%d) must be between 4 and 31", p.Passwords.BcryptCost)
	}
	for bucket, limit := range p.RateLimits {
		if limit.Limit <= 0 || limit.Window <= 0 {
			return fmt.Errorf("rate_limits.%s needs a positive limit and window", bucket)
		}
	}
	return nil
}

// RateLimit returns the limit for a bucket and whether one is configured.
func (p *Policy) RateLimit(bucket string) (RateLimitPolicy, bool) {
	if p == nil || p.RateLimits == nil {
		return RateLimitPolicy{}, false
	}
	l, ok := p.RateLimits[bucket]
	return l, ok
}
