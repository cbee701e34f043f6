package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/awnumar/memguard"
	"go.uber.org/zap"

	"github.com/fahmaliyi/otpguard/otp"
	"github.com/fahmaliyi/otpguard/vault"
)

// ErrUnlock hides which of password, format or integrity failed.
var ErrUnlock = errors.New("wrong password or corrupted vault")

const defaultClipboardTTL = 30 * time.Second

// App runs one otpguard invocation against a Store.
type App struct {
	store        *vault.Store
	gen          *otp.Generator
	log          *zap.Logger
	out          io.Writer
	password     PasswordReader
	clipboard    Clipboard
	clipboardTTL time.Duration
	version      string
}

type AppOption func(*App)

func WithOutput(w io.Writer) AppOption {
	return func(a *App) { a.out = w }
}

func WithPasswordReader(r PasswordReader) AppOption {
	return func(a *App) { a.password = r }
}

// WithClipboard sets the clipboard and how long a copied code stays on it.
func WithClipboard(cb Clipboard, ttl time.Duration) AppOption {
	return func(a *App) {
		a.clipboard = cb
		if ttl > 0 {
			a.clipboardTTL = ttl
		}
	}
}

func WithGenerator(g *otp.Generator) AppOption {
	return func(a *App) { a.gen = g }
}

func WithLogger(l *zap.Logger) AppOption {
	return func(a *App) {
		if l != nil {
			a.log = l
		}
	}
}

func WithVersion(v string) AppOption {
	return func(a *App) { a.version = v }
}

func New(store *vault.Store, opts ...AppOption) *App {
	a := &App{
		store:        store,
		gen:          otp.NewGenerator(),
		log:          zap.NewNop(),
		out:          os.Stdout,
		clipboard:    SystemClipboard(),
		clipboardTTL: defaultClipboardTTL,
		version:      "dev",
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.password == nil {
		a.password = TerminalPassword(a.out)
	}
	return a
}

// Run executes the action selected by o.
func (a *App) Run(ctx context.Context, o Options) error {
	return presentable(a.run(ctx, o))
}

func (a *App) run(ctx context.Context, o Options) error {
	switch {
	case o.Version:
		fmt.Fprintf(a.out, "otpguard %s\n", a.version)
		return nil
	case o.Password:
		return a.changePassword(ctx)
	}

	pw, err := a.unlock(ctx)
	if err != nil {
		return err
	}
	defer memguard.WipeBytes(pw)

	switch {
	case o.Delete != "":
		return a.delete(ctx, pw, o.Delete)
	case o.RenameFrom != "":
		return a.rename(ctx, pw, o.RenameFrom, o.RenameTo)
	case o.QRImage != "":
		return a.addFromImage(ctx, pw, o)
	case o.Secret != "":
		return a.add(ctx, pw, o)
	case o.Export != "":
		return a.export(ctx, pw, o.Export, o.ExportFile)
	case o.Interactive:
		return a.interactive(ctx, pw, o.PIN)
	case o.Name != "":
		return a.show(ctx, pw, o.Name, o.PIN, o.Copy)
	default:
		return a.list(ctx, pw, o.PIN)
	}
}

// unlock reads the vault password, creating the vault on first use.
func (a *App) unlock(ctx context.Context) ([]byte, error) {
	if a.store.Exists() {
		pw, err := a.password("Password: ")
		if err != nil {
			return nil, fmt.Errorf("read password: %w", err)
		}
		if len(pw) == 0 {
			return nil, ErrEmptyPassword
		}
		return pw, nil
	}

	fmt.Fprintf(a.out, "No vault found at %s, creating a new one.\n", a.store.Path())
	pw, err := readNewPassword(a.password)
	if err != nil {
		return nil, err
	}
	if err := a.store.Save(ctx, vault.Secrets{}, pw); err != nil {
		memguard.WipeBytes(pw)
		return nil, err
	}
	a.log.Info("vault created", zap.String("path", a.store.Path()))
	return pw, nil
}

func (a *App) changePassword(ctx context.Context) error {
	if !a.store.Exists() {
		pw, err := a.unlock(ctx)
		if err != nil {
			return err
		}
		memguard.WipeBytes(pw)
		fmt.Fprintln(a.out, "Password set.")
		return nil
	}

	current, err := a.password("Current password: ")
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	defer memguard.WipeBytes(current)

	next, err := readNewPassword(a.password)
	if err != nil {
		return err
	}
	defer memguard.WipeBytes(next)

	if err := a.store.ChangePassword(ctx, current, next); err != nil {
		return err
	}
	a.log.Info("vault password changed")
	fmt.Fprintln(a.out, "Password updated.")
	return nil
}

// presentable collapses unlock failures into ErrUnlock.
func presentable(err error) error {
	if err != nil && vault.IsUnlockFailure(err) {
		return ErrUnlock
	}
	return err
}
