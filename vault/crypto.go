package vault

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/awnumar/memguard"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// DefaultKDFParams is Argon2id with 64 MiB, 4 passes and 4 lanes.
func DefaultKDFParams() KDFParams { return KDFParams{Time: 4, Memory: 64 * 1024, Threads: 4} }

func (p KDFParams) validate() error {
	if p.Time == 0 || p.Memory < 8*uint32(p.Threads) || p.Threads == 0 {
		return fmt.Errorf("%w: time=%d memory=%d threads=%d", ErrInvalidKDFParams, p.Time, p.Memory, p.Threads)
	}
	return nil
}

// DeriveKey stretches password with Argon2id. The key lives in a locked
// buffer; callers must Destroy it.
func DeriveKey(password, salt []byte, params KDFParams) (*memguard.LockedBuffer, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	if len(salt) != SaltLen {
		return nil, fmt.Errorf("%w: salt must be %d bytes", ErrInvalidKDFParams, SaltLen)
	}
	raw := argon2.IDKey(password, salt, params.Time, params.Memory, params.Threads, KeyLen)
	// NewBufferFromBytes wipes raw.
	return memguard.NewBufferFromBytes(raw), nil
}

// Codec seals and opens containers.
type Codec struct {
	KDF  KDFParams
	Rand io.Reader
}

func NewCodec() *Codec {
	return &Codec{KDF: DefaultKDFParams(), Rand: rand.Reader}
}

func (c *Codec) randBytes(n int) ([]byte, error) {
	r := c.Rand
	if r == nil {
		r = rand.Reader
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Encrypt seals payload under a key derived from password with a fresh salt
// and nonce. The salt is bound as associated data.
func (c *Codec) Encrypt(payload, password []byte) (*Container, error) {
	versioned := make([]byte, 0, len(payload)+1)
	versioned = append(versioned, FormatVersion)
	versioned = append(versioned, payload...)
	defer memguard.WipeBytes(versioned)

	return c.seal(versioned, password)
}

func (c *Codec) seal(plaintext, password []byte) (*Container, error) {
	salt, err := c.randBytes(SaltLen)
	if err != nil {
		return nil, fmt.Errorf("vault: generate salt: %w", err)
	}
	nonce, err := c.randBytes(NonceLen)
	if err != nil {
		return nil, fmt.Errorf("vault: generate nonce: %w", err)
	}

	key, err := DeriveKey(password, salt, c.KDF)
	if err != nil {
		return nil, err
	}
	defer key.Destroy()

	aead, err := chacha20poly1305.New(key.Bytes())
	if err != nil {
		return nil, fmt.Errorf("vault: init cipher: %w", err)
	}

	return &Container{
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: aead.Seal(nil, nonce, plaintext, salt),
	}, nil
}

// Decrypt opens ct and returns the payload without its version byte.
// Wrong passwords and tampering are indistinguishable and both yield
// ErrAuthentication.
func (c *Codec) Decrypt(ct *Container, password []byte) ([]byte, error) {
	if ct == nil || len(ct.Salt) != SaltLen || len(ct.Nonce) != NonceLen {
		return nil, ErrAuthentication
	}

	key, err := DeriveKey(password, ct.Salt, c.KDF)
	if err != nil {
		return nil, err
	}
	defer key.Destroy()

	aead, err := chacha20poly1305.New(key.Bytes())
	if err != nil {
		return nil, fmt.Errorf("vault: init cipher: %w", err)
	}

	pt, err := aead.Open(nil, ct.Nonce, ct.Ciphertext, ct.Salt)
	if err != nil {
		return nil, ErrAuthentication
	}
	if len(pt) == 0 {
		return nil, fmt.Errorf("%w: empty plaintext", ErrUnsupportedFormat)
	}
	if pt[0] != FormatVersion {
		version := pt[0]
		memguard.WipeBytes(pt)
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedFormat, version)
	}
	return pt[1:], nil
}

func MarshalContainer(c *Container) ([]byte, error) {
	return json.Marshal(c)
}

func UnmarshalContainer(raw []byte) (*Container, error) {
	var c Container
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, errors.Join(ErrCorrupt, err)
	}
	return &c, nil
}
