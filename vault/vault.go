package vault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"slices"
	"time"

	"github.com/awnumar/memguard"
	"github.com/samber/lo"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/fahmaliyi/otpguard/otp"
)

// Store persists Secrets in a single encrypted container file. Every
// mutation is a full load, in-memory change and full rewrite.
type Store struct {
	path  string
	codec *Codec
	log   *zap.Logger

	retryAttempts uint64
	retryBase     time.Duration
}

type Option func(*Store)

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

func WithCodec(c *Codec) Option {
	return func(s *Store) {
		if c != nil {
			s.codec = c
		}
	}
}

// WithLockRetry retries operations that hit ErrConcurrentAccess with
// exponential backoff. Zero attempts surfaces the conflict immediately.
func WithLockRetry(attempts uint64, base time.Duration) Option {
	return func(s *Store) {
		s.retryAttempts = attempts
		s.retryBase = base
	}
}

func NewStore(path string, opts ...Option) *Store {
	s := &Store{path: path, codec: NewCodec(), log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	if s.retryBase <= 0 {
		s.retryBase = 100 * time.Millisecond
	}
	return s
}

func (s *Store) Path() string { return s.path }

// Exists reports whether a container has been written. An empty file left
// behind by an interrupted first save counts as absent.
func (s *Store) Exists() bool {
	info, err := os.Stat(s.path)
	return err == nil && info.Size() > 0
}

// Load decrypts the vault under a shared lock. A missing vault is an empty
// map, not an error.
func (s *Store) Load(ctx context.Context, password []byte) (Secrets, error) {
	var out Secrets
	err := s.withRetry(ctx, func() error {
		f, err := openLocked(s.path, false, openForRead)
		if errors.Is(err, fs.ErrNotExist) {
			out = Secrets{}
			return nil
		}
		if err != nil {
			return err
		}
		defer f.Close()

		out, err = s.read(f, password)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Debug("vault loaded", zap.String("path", s.path), zap.Int("secrets", len(out)))
	return out, nil
}

// Save encrypts secrets with a fresh salt and nonce and replaces the vault
// file under an exclusive lock. Nothing on disk changes if encoding or
// encryption fails.
func (s *Store) Save(ctx context.Context, secrets Secrets, password []byte) error {
	raw, err := s.seal(secrets, password)
	if err != nil {
		return err
	}
	return s.withRetry(ctx, func() error {
		f, err := openLocked(s.path, true, openForWrite)
		if err != nil {
			return err
		}
		defer f.Close()

		return s.write(raw, len(secrets))
	})
}

// Update holds the exclusive lock across load, fn and save. fn reports
// whether it changed the map; when it did not, the file is left untouched.
func (s *Store) Update(ctx context.Context, password []byte, fn func(Secrets) (bool, error)) error {
	return s.update(ctx, password, password, fn)
}

func (s *Store) update(ctx context.Context, readPW, writePW []byte, fn func(Secrets) (bool, error)) error {
	return s.withRetry(ctx, func() error {
		f, err := openLocked(s.path, true, openForWrite)
		if err != nil {
			return err
		}
		defer f.Close()

		secrets, err := s.read(f, readPW)
		if err != nil {
			return err
		}
		changed, err := fn(secrets)
		if err != nil || !changed {
			return err
		}
		raw, err := s.seal(secrets, writePW)
		if err != nil {
			return err
		}
		return s.write(raw, len(secrets))
	})
}

// Add inserts or replaces the record stored under secret.Name.
func (s *Store) Add(ctx context.Context, password []byte, secret otp.Secret) error {
	if err := secret.Validate(); err != nil {
		return err
	}
	return s.Update(ctx, password, func(secrets Secrets) (bool, error) {
		if _, ok := secrets[secret.Name]; ok {
			s.log.Info("replacing existing secret", zap.String("name", secret.Name))
		}
		secrets[secret.Name] = secret
		return true, nil
	})
}

func (s *Store) Rename(ctx context.Context, password []byte, oldName, newName string) error {
	if newName == "" {
		return fmt.Errorf("%w: empty name", otp.ErrInvalidSecret)
	}
	return s.Update(ctx, password, func(secrets Secrets) (bool, error) {
		sec, ok := secrets[oldName]
		if !ok {
			return false, fmt.Errorf("%w: %q", ErrSecretNotFound, oldName)
		}
		if oldName == newName {
			return false, nil
		}
		if _, taken := secrets[newName]; taken {
			return false, fmt.Errorf("%w: %q", ErrSecretExists, newName)
		}
		delete(secrets, oldName)
		secrets[newName] = sec.Renamed(newName)
		return true, nil
	})
}

// Delete removes name. A missing name returns ErrSecretNotFound and does
// not rewrite the file.
func (s *Store) Delete(ctx context.Context, password []byte, name string) error {
	return s.Update(ctx, password, func(secrets Secrets) (bool, error) {
		if _, ok := secrets[name]; !ok {
			return false, fmt.Errorf("%w: %q", ErrSecretNotFound, name)
		}
		delete(secrets, name)
		return true, nil
	})
}

// ChangePassword re-encrypts the vault under newPassword.
func (s *Store) ChangePassword(ctx context.Context, oldPassword, newPassword []byte) error {
	return s.update(ctx, oldPassword, newPassword, func(Secrets) (bool, error) {
		return true, nil
	})
}

// Code generates the current code for name. HOTP counters advance by one
// only when a code was produced.
func (s *Store) Code(ctx context.Context, password []byte, gen *otp.Generator, name, pin string) (string, error) {
	var code string
	err := s.Update(ctx, password, func(secrets Secrets) (bool, error) {
		sec, ok := secrets[name]
		if !ok {
			return false, fmt.Errorf("%w: %q", ErrSecretNotFound, name)
		}
		var err error
		code, err = gen.Generate(sec, pin)
		if err != nil {
			return false, err
		}
		if sec.Algorithm != otp.HOTP {
			return false, nil
		}
		secrets[name] = sec.Advanced()
		return true, nil
	})
	if err != nil {
		return "", err
	}
	return code, nil
}

// Codes generates codes for every secret, sorted by name. A failing entry is
// reported in its Code.Err and does not stop the others.
func (s *Store) Codes(ctx context.Context, password []byte, gen *otp.Generator, pin string) ([]Code, error) {
	var codes []Code
	err := s.Update(ctx, password, func(secrets Secrets) (bool, error) {
		codes = codes[:0]
		names := lo.Keys(secrets)
		slices.Sort(names)

		advanced := false
		for _, name := range names {
			sec := secrets[name]
			value, err := gen.Generate(sec, pin)
			codes = append(codes, Code{Name: name, Algorithm: sec.Algorithm, Value: value, Err: err})
			if err != nil {
				s.log.Warn("code generation failed", zap.String("name", name), zap.Error(err))
				continue
			}
			if sec.Algorithm == otp.HOTP {
				secrets[name] = sec.Advanced()
				advanced = true
			}
		}
		return advanced, nil
	})
	if err != nil {
		return nil, err
	}
	return codes, nil
}

func (s *Store) read(r io.Reader, password []byte) (Secrets, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, storageErr("read vault", err)
	}
	if len(raw) == 0 {
		return Secrets{}, nil
	}
	ct, err := UnmarshalContainer(raw)
	if err != nil {
		return nil, err
	}
	payload, err := s.codec.Decrypt(ct, password)
	if err != nil {
		return nil, err
	}
	defer memguard.WipeBytes(payload)
	return decodeSecrets(payload)
}

func (s *Store) seal(secrets Secrets, password []byte) ([]byte, error) {
	payload, err := encodeSecrets(secrets)
	if err != nil {
		return nil, err
	}
	defer memguard.WipeBytes(payload)

	ct, err := s.codec.Encrypt(payload, password)
	if err != nil {
		return nil, err
	}
	return MarshalContainer(ct)
}

func (s *Store) write(raw []byte, n int) error {
	if err := atomicWriteFile(s.path, raw, FileMode); err != nil {
		return err
	}
	s.log.Debug("vault saved", zap.String("path", s.path), zap.Int("secrets", n))
	return nil
}

func (s *Store) withRetry(ctx context.Context, op func() error) error {
	if s.retryAttempts == 0 {
		return op()
	}
	b := retry.WithMaxRetries(s.retryAttempts, retry.NewExponential(s.retryBase))
	return retry.Do(ctx, b, func(context.Context) error {
		err := op()
		if errors.Is(err, ErrConcurrentAccess) {
			s.log.Debug("vault busy, retrying", zap.String("path", s.path))
			return retry.RetryableError(err)
		}
		return err
	})
}

func encodeSecrets(secrets Secrets) ([]byte, error) {
	for name, sec := range secrets {
		if err := sec.Validate(); err != nil {
			return nil, err
		}
		if name != sec.Name {
			return nil, fmt.Errorf("%w: key %q holds record %q", otp.ErrInvalidSecret, name, sec.Name)
		}
	}
	return json.Marshal(secrets)
}

func decodeSecrets(payload []byte) (Secrets, error) {
	secrets := Secrets{}
	if err := json.Unmarshal(payload, &secrets); err != nil {
		return nil, errors.Join(ErrCorrupt, err)
	}
	for name, sec := range secrets {
		if err := sec.Validate(); err != nil || name != sec.Name {
			return nil, fmt.Errorf("%w: invalid record %q", ErrCorrupt, name)
		}
	}
	return secrets, nil
}
