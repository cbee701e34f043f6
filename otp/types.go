package otp

import (
	"errors"
	"fmt"
	"strings"
)

const (
	Digits     = 6
	TOTPPeriod = 30 // seconds
	MOTPPeriod = 10 // seconds
)

var (
	ErrInvalidSecretEncoding = errors.New("otp: invalid base32 secret")
	ErrUnsupportedAlgorithm  = errors.New("otp: unsupported algorithm")
	ErrClockSkew             = errors.New("otp: system clock may be out of sync")
	ErrTimeSource            = errors.New("otp: system clock unreadable")
	ErrInvalidSecret         = errors.New("otp: invalid secret record")
)

// Algorithm is the closed set of code generators a secret can use.
type Algorithm uint8

const (
	TOTP Algorithm = iota + 1
	HOTP
	MOTP
)

func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "totp":
		return TOTP, nil
	case "hotp":
		return HOTP, nil
	case "motp":
		return MOTP, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, s)
}

func (a Algorithm) String() string {
	switch a {
	case TOTP:
		return "totp"
	case HOTP:
		return "hotp"
	case MOTP:
		return "motp"
	}
	return fmt.Sprintf("algorithm(%d)", uint8(a))
}

func (a Algorithm) Valid() bool { return a >= TOTP && a <= MOTP }

func (a Algorithm) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedAlgorithm, uint8(a))
	}
	return []byte(a.String()), nil
}

func (a *Algorithm) UnmarshalText(b []byte) error {
	parsed, err := ParseAlgorithm(string(b))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Secret is one stored service seed. Counter is set for HOTP only.
type Secret struct {
	Name      string    `json:"name"`
	Seed      string    `json:"seed"`
	Algorithm Algorithm `json:"algorithm"`
	Counter   *uint64   `json:"counter,omitempty"`
}

// NewSecret builds a record with the counter initialised the way the
// algorithm requires.
func NewSecret(name, seed string, alg Algorithm) Secret {
	s := Secret{Name: name, Seed: seed, Algorithm: alg}
	if alg == HOTP {
		var c uint64
		s.Counter = &c
	}
	return s
}

func (s Secret) Validate() error {
	switch {
	case strings.TrimSpace(s.Name) == "":
		return fmt.Errorf("%w: empty name", ErrInvalidSecret)
	case strings.TrimSpace(s.Seed) == "":
		return fmt.Errorf("%w: empty seed for %q", ErrInvalidSecret, s.Name)
	case !s.Algorithm.Valid():
		return fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, s.Name)
	case s.Algorithm == HOTP && s.Counter == nil:
		return fmt.Errorf("%w: hotp secret %q has no counter", ErrInvalidSecret, s.Name)
	case s.Algorithm != HOTP && s.Counter != nil:
		return fmt.Errorf("%w: %s secret %q carries a counter", ErrInvalidSecret, s.Algorithm, s.Name)
	}
	return nil
}

// Renamed returns a copy of s stored under name.
func (s Secret) Renamed(name string) Secret {
	out := s
	out.Name = name
	if s.Counter != nil {
		c := *s.Counter
		out.Counter = &c
	}
	return out
}

// Advanced returns a copy of an HOTP secret with the counter moved one step.
func (s Secret) Advanced() Secret {
	out := s.Renamed(s.Name)
	if out.Counter != nil {
		*out.Counter++
	}
	return out
}
