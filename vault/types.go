package vault

import (
	"errors"
	"os"

	"github.com/fahmaliyi/otpguard/otp"
)

const (
	SaltLen  = 16
	NonceLen = 12
	KeyLen   = 32

	// FormatVersion prefixes every decrypted payload.
	FormatVersion byte = 0x01

	FileMode os.FileMode = 0o600
	DirMode  os.FileMode = 0o700
)

var (
	ErrAuthentication    = errors.New("vault: decryption failed, password incorrect or data corrupted")
	ErrUnsupportedFormat = errors.New("vault: unsupported data format version")
	ErrConcurrentAccess  = errors.New("vault: file is locked by another process, try again later")
	ErrCorrupt           = errors.New("vault: corrupt file")
	ErrStorageIO         = errors.New("vault: storage failure")
	ErrSecretNotFound    = errors.New("vault: secret not found")
	ErrSecretExists      = errors.New("vault: secret already exists")
	ErrInvalidKDFParams  = errors.New("vault: invalid key derivation parameters")
)

// IsUnlockFailure reports whether err should be shown to a user as the single
// generic "wrong password or corrupted vault" message.
func IsUnlockFailure(err error) bool {
	return errors.Is(err, ErrAuthentication) || errors.Is(err, ErrUnsupportedFormat) || errors.Is(err, ErrCorrupt)
}

// Secrets maps a service name to its record.
type Secrets map[string]otp.Secret

// Container is the on-disk artifact. The plaintext sealed in Ciphertext is
// FormatVersion followed by the serialized Secrets.
type Container struct {
	Salt       []byte `json:"salt"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

type KDFParams struct {
	Time, Memory uint32
	Threads      uint8
}

// Code is the outcome of generating one secret's code in a listing. Err is
// set instead of Value when that entry alone failed.
type Code struct {
	Name      string
	Algorithm otp.Algorithm
	Value     string
	Err       error
}
