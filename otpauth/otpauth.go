// Package otpauth converts otpauth:// provisioning URLs to and from secret
// records.
package otpauth

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	pqotp "github.com/pquerna/otp"

	"github.com/fahmaliyi/otpguard/otp"
)

const Scheme = "otpauth"

var (
	ErrNotOTPAuth     = errors.New("otpauth: not an otpauth:// URL")
	ErrMissingName    = errors.New("otpauth: URL has no service name")
	ErrMissingSecret  = errors.New("otpauth: URL has no secret parameter")
	ErrMissingCounter = errors.New("otpauth: hotp URL has no counter parameter")
	ErrInvalidCounter = errors.New("otpauth: counter must be an unsigned integer")
)

// IsURL reports whether s looks like a provisioning URL rather than a raw seed.
func IsURL(s string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(s)), Scheme+"://")
}

// Parse builds a secret record from otpauth://{totp|hotp|motp}/{label}?secret=...
// The record name is the label exactly as it appears in the path; the issuer
// parameter does not change it.
func Parse(raw string) (otp.Secret, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return otp.Secret{}, errors.Join(ErrNotOTPAuth, err)
	}
	if !strings.EqualFold(u.Scheme, Scheme) {
		return otp.Secret{}, ErrNotOTPAuth
	}

	key, err := pqotp.NewKeyFromURL(raw)
	if err != nil {
		return otp.Secret{}, errors.Join(ErrNotOTPAuth, err)
	}

	alg, err := otp.ParseAlgorithm(key.Type())
	if err != nil {
		return otp.Secret{}, err
	}

	name := strings.TrimPrefix(u.Path, "/")
	if name == "" {
		return otp.Secret{}, ErrMissingName
	}

	seed := key.Secret()
	if seed == "" {
		return otp.Secret{}, ErrMissingSecret
	}

	sec := otp.Secret{Name: name, Seed: seed, Algorithm: alg}
	if alg == otp.HOTP {
		raw := u.Query().Get("counter")
		if raw == "" {
			return otp.Secret{}, ErrMissingCounter
		}
		c, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return otp.Secret{}, fmt.Errorf("%w: %q", ErrInvalidCounter, raw)
		}
		sec.Counter = &c
	}
	if err := sec.Validate(); err != nil {
		return otp.Secret{}, err
	}
	return sec, nil
}

// Format renders s as a provisioning URL that Parse accepts.
func Format(s otp.Secret) string {
	q := url.Values{}
	q.Set("secret", s.Seed)
	switch s.Algorithm {
	case otp.TOTP:
		q.Set("algorithm", "SHA1")
		q.Set("digits", strconv.Itoa(otp.Digits))
		q.Set("period", strconv.Itoa(otp.TOTPPeriod))
	case otp.HOTP:
		var c uint64
		if s.Counter != nil {
			c = *s.Counter
		}
		q.Set("algorithm", "SHA1")
		q.Set("digits", strconv.Itoa(otp.Digits))
		q.Set("counter", strconv.FormatUint(c, 10))
	}
	u := url.URL{
		Scheme:   Scheme,
		Host:     s.Algorithm.String(),
		Path:     "/" + s.Name,
		RawQuery: q.Encode(),
	}
	return u.String()
}
