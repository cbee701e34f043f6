package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/awnumar/memguard"
	"go.uber.org/zap"

	"github.com/fahmaliyi/otpguard/otp"
	"github.com/fahmaliyi/otpguard/otpauth"
	"github.com/fahmaliyi/otpguard/qrcode"
)

func (a *App) add(ctx context.Context, pw []byte, o Options) error {
	sec, err := secretFromOptions(o.Name, o.Secret, o.Type)
	if err != nil {
		return err
	}
	if err := a.store.Add(ctx, pw, sec); err != nil {
		return err
	}
	a.log.Info("secret added", zap.String("name", sec.Name), zap.Stringer("algorithm", sec.Algorithm))
	fmt.Fprintf(a.out, "Added %s (%s).\n", sec.Name, sec.Algorithm)
	return nil
}

func (a *App) addFromImage(ctx context.Context, pw []byte, o Options) error {
	content, err := qrcode.Scan(o.QRImage)
	if err != nil {
		return err
	}
	o.Secret = content
	return a.add(ctx, pw, o)
}

// secretFromOptions builds a record from a raw seed or an otpauth URL. A
// non-empty name overrides the label carried by a URL.
func secretFromOptions(name, raw, algorithm string) (otp.Secret, error) {
	raw = strings.TrimSpace(raw)
	if otpauth.IsURL(raw) {
		sec, err := otpauth.Parse(raw)
		if err != nil {
			return otp.Secret{}, err
		}
		if name != "" {
			sec = sec.Renamed(name)
		}
		return sec, nil
	}

	if name == "" {
		return otp.Secret{}, fmt.Errorf("%w: -a with a raw seed requires -n", ErrUsage)
	}
	alg, err := otp.ParseAlgorithm(algorithm)
	if err != nil {
		return otp.Secret{}, err
	}
	if alg != otp.MOTP {
		key, err := otp.DecodeSeed(raw)
		if err != nil {
			return otp.Secret{}, err
		}
		memguard.WipeBytes(key)
	}
	sec := otp.NewSecret(name, raw, alg)
	if err := sec.Validate(); err != nil {
		return otp.Secret{}, err
	}
	return sec, nil
}
