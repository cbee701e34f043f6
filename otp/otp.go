package otp

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/awnumar/memguard"
)

// DefaultSkewWindow bounds how far two consecutive clock reads may drift
// before the clock is reported as unreliable.
const DefaultSkewWindow = 5 * time.Minute

var seedEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Generator produces codes for stored secrets. It holds no per-secret state;
// HOTP counters belong to the caller.
//
// The skew guard compares two reads of the local clock. It catches a clock
// that jumps while a code is being produced, not a clock that is steadily
// wrong, and is no substitute for NTP.
type Generator struct {
	Clock      Clocker
	SkewWindow time.Duration
}

func NewGenerator() *Generator {
	return &Generator{Clock: SystemClock(), SkewWindow: DefaultSkewWindow}
}

// Generate dispatches on the secret's algorithm. pin is only used by MOTP.
func (g *Generator) Generate(s Secret, pin string) (string, error) {
	switch s.Algorithm {
	case TOTP:
		return g.TOTP(s.Seed)
	case HOTP:
		if s.Counter == nil {
			return "", fmt.Errorf("%w: hotp secret %q has no counter", ErrInvalidSecret, s.Name)
		}
		return HOTPCode(s.Seed, *s.Counter)
	case MOTP:
		return g.MOTP(s.Seed, pin)
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, s.Algorithm)
}

func (g *Generator) TOTP(seed string) (string, error) {
	now, err := g.now()
	if err != nil {
		return "", err
	}
	return TOTPAt(seed, now)
}

func (g *Generator) MOTP(seed, pin string) (string, error) {
	now, err := g.now()
	if err != nil {
		return "", err
	}
	return MOTPAt(seed, pin, now)
}

// Remaining reports how long the code for alg stays valid at t. HOTP codes
// do not expire and report zero.
func Remaining(alg Algorithm, t time.Time) time.Duration {
	var period int64
	switch alg {
	case TOTP:
		period = TOTPPeriod
	case MOTP:
		period = MOTPPeriod
	default:
		return 0
	}
	return time.Duration(period-t.Unix()%period) * time.Second
}

func (g *Generator) now() (time.Time, error) {
	clock := g.Clock
	if clock == nil {
		clock = SystemClock()
	}
	window := g.SkewWindow
	if window <= 0 {
		window = DefaultSkewWindow
	}

	first := clock.Now()
	second := clock.Now()
	if first.Unix() < 0 || second.Unix() < 0 {
		return time.Time{}, ErrTimeSource
	}
	diff := second.Sub(first)
	if diff < 0 {
		diff = -diff
	}
	if diff > window {
		return time.Time{}, fmt.Errorf("%w: clock moved %s between reads", ErrClockSkew, diff.Truncate(time.Second))
	}
	return first, nil
}

// TOTPAt computes the RFC 6238 code (SHA-1, 30s step, 6 digits) at t.
func TOTPAt(seed string, t time.Time) (string, error) {
	if t.Unix() < 0 {
		return "", ErrTimeSource
	}
	return HOTPCode(seed, uint64(t.Unix())/TOTPPeriod)
}

// HOTPCode computes the RFC 4226 code for counter.
func HOTPCode(seed string, counter uint64) (string, error) {
	key, err := DecodeSeed(seed)
	if err != nil {
		return "", err
	}
	defer memguard.WipeBytes(key)

	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], counter)
	return truncate(key, msg[:]), nil
}

// MOTPAt hashes the seed text, the hex time step and the optional PIN with
// SHA-256 and renders the first three digest bytes as six hex digits.
func MOTPAt(seed, pin string, t time.Time) (string, error) {
	if t.Unix() < 0 {
		return "", ErrTimeSource
	}
	if strings.TrimSpace(seed) == "" {
		return "", fmt.Errorf("%w: empty motp seed", ErrInvalidSecretEncoding)
	}
	step := uint64(t.Unix()) / MOTPPeriod

	h := sha256.New()
	h.Write([]byte(seed))
	h.Write([]byte(strconv.FormatUint(step, 16)))
	if pin != "" {
		h.Write([]byte(pin))
	}
	sum := h.Sum(nil)

	v := uint32(sum[0])<<16 | uint32(sum[1])<<8 | uint32(sum[2])
	return fmt.Sprintf("%06x", v), nil
}

// DecodeSeed decodes an unpadded RFC 4648 base32 seed. Spaces are dropped and
// lower case is accepted.
func DecodeSeed(seed string) ([]byte, error) {
	clean := strings.ToUpper(strings.Join(strings.Fields(seed), ""))
	if clean == "" {
		return nil, fmt.Errorf("%w: empty seed", ErrInvalidSecretEncoding)
	}
	key, err := seedEncoding.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSecretEncoding, err)
	}
	return key, nil
}

// truncate is the RFC 4226 dynamic truncation of HMAC-SHA1(key, msg).
func truncate(key, msg []byte) string {
	mac := hmac.New(sha1.New, key)
	mac.Write(msg)
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	code := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff
	return fmt.Sprintf("%0*d", Digits, code%1_000_000)
}
