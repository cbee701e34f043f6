package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/fahmaliyi/otpguard/otp"
	"github.com/fahmaliyi/otpguard/otpauth"
	"github.com/fahmaliyi/otpguard/qrcode"
	"github.com/fahmaliyi/otpguard/vault"
)

var ErrUsage = errors.New("invalid arguments")

const exportQRSize = 256

// Options is the parsed command line.
type Options struct {
	Name       string
	Secret     string
	Type       string
	QRImage    string
	RenameFrom string
	RenameTo   string
	Delete     string
	Export     string
	ExportFile string
	PIN        string

	Password    bool
	Interactive bool
	Copy        bool
	Version     bool
}

func ParseFlags(args []string, output io.Writer) (Options, error) {
	var o Options
	fs := flag.NewFlagSet("otpguard", flag.ContinueOnError)
	fs.SetOutput(output)

	fs.StringVar(&o.Name, "n", "", "service name to show, or to store with -a/-j")
	fs.StringVar(&o.Secret, "a", "", "add a base32 seed or an otpauth:// URL")
	fs.StringVar(&o.Type, "t", otp.TOTP.String(), "algorithm for -a: totp, hotp or motp")
	fs.StringVar(&o.QRImage, "j", "", "add the otpauth QR code in a PNG or JPEG image")
	fs.StringVar(&o.RenameFrom, "r", "", "rename this service (with -N)")
	fs.StringVar(&o.RenameTo, "N", "", "new name for -r")
	fs.StringVar(&o.Delete, "d", "", "delete a service")
	fs.StringVar(&o.Export, "x", "", "export a service as a QR code")
	fs.StringVar(&o.ExportFile, "o", "", "write the -x QR code to this PNG file")
	fs.StringVar(&o.PIN, "pin", "", "PIN for motp codes")
	fs.BoolVar(&o.Password, "p", false, "set or change the vault password")
	fs.BoolVar(&o.Interactive, "i", false, "interactive mode")
	fs.BoolVar(&o.Copy, "c", false, "copy the code shown with -n to the clipboard")
	fs.BoolVar(&o.Version, "v", false, "print version")

	if err := fs.Parse(args); err != nil {
		return Options{}, err
	}
	if fs.NArg() > 0 {
		return Options{}, fmt.Errorf("%w: unexpected argument %q", ErrUsage, fs.Arg(0))
	}
	if (o.RenameFrom == "") != (o.RenameTo == "") {
		return Options{}, fmt.Errorf("%w: -r and -N must be used together", ErrUsage)
	}
	if o.ExportFile != "" && o.Export == "" {
		return Options{}, fmt.Errorf("%w: -o requires -x", ErrUsage)
	}
	if o.Copy && o.Name == "" {
		return Options{}, fmt.Errorf("%w: -c requires -n", ErrUsage)
	}
	return o, nil
}

func (a *App) show(ctx context.Context, pw []byte, name, pin string, copyCode bool) error {
	code, err := a.store.Code(ctx, pw, a.gen, name, pin)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s: %s\n", name, code)
	if !copyCode {
		return nil
	}
	return a.copy(ctx, code)
}

func (a *App) list(ctx context.Context, pw []byte, pin string) error {
	codes, err := a.store.Codes(ctx, pw, a.gen, pin)
	if err != nil {
		return err
	}
	if len(codes) == 0 {
		fmt.Fprintln(a.out, "No secrets stored. Add one with -n <name> -a <secret>.")
		return nil
	}
	for _, c := range codes {
		if c.Err != nil {
			fmt.Fprintf(a.out, "%-24s %-5s error: %v\n", c.Name, c.Algorithm, c.Err)
			continue
		}
		fmt.Fprintf(a.out, "%-24s %-5s %s\n", c.Name, c.Algorithm, c.Value)
	}
	return nil
}

func (a *App) delete(ctx context.Context, pw []byte, name string) error {
	if err := a.store.Delete(ctx, pw, name); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted %s.\n", name)
	return nil
}

func (a *App) rename(ctx context.Context, pw []byte, from, to string) error {
	if err := a.store.Rename(ctx, pw, from, to); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Renamed %s to %s.\n", from, to)
	return nil
}

func (a *App) export(ctx context.Context, pw []byte, name, file string) error {
	secrets, err := a.store.Load(ctx, pw)
	if err != nil {
		return err
	}
	sec, ok := secrets[name]
	if !ok {
		return fmt.Errorf("%w: %q", vault.ErrSecretNotFound, name)
	}
	url := otpauth.Format(sec)

	if file != "" {
		if err := qrcode.WritePNG(url, file, exportQRSize); err != nil {
			return err
		}
		a.log.Info("exported secret", zap.String("name", name), zap.String("file", file))
		fmt.Fprintf(a.out, "Wrote QR code for %s to %s.\n", name, file)
		return nil
	}

	art, err := qrcode.Render(url)
	if err != nil {
		return err
	}
	fmt.Fprint(a.out, art)
	return nil
}

// copy places code on the clipboard and blocks until it is cleared.
func (a *App) copy(ctx context.Context, code string) error {
	if err := a.clipboard.WriteAll(code); err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	fmt.Fprintf(a.out, "Copied to clipboard, clearing in %s.\n", a.clipboardTTL.Round(time.Second))
	clearAfter(ctx, a.clipboard, code, a.clipboardTTL)
	return nil
}
