package otpauth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fahmaliyi/otpguard/otp"
	"github.com/fahmaliyi/otpguard/otpauth"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		want    otp.Secret
		wantErr error
	}{
		{
			name: "totp with issuer in label",
			raw:  "otpauth://totp/GitHub:alice?secret=JBSWY3DPEHPK3PXP&issuer=GitHub",
			want: otp.Secret{Name: "GitHub:alice", Seed: "JBSWY3DPEHPK3PXP", Algorithm: otp.TOTP},
		},
		{
			name: "issuer parameter does not rename",
			raw:  "otpauth://totp/alice?secret=JBSWY3DPEHPK3PXP&issuer=ACME",
			want: otp.Secret{Name: "alice", Seed: "JBSWY3DPEHPK3PXP", Algorithm: otp.TOTP},
		},
		{
			name: "plain label",
			raw:  "  otpauth://totp/github?secret=JBSWY3DPEHPK3PXP  ",
			want: otp.Secret{Name: "github", Seed: "JBSWY3DPEHPK3PXP", Algorithm: otp.TOTP},
		},
		{
			name: "hotp with counter",
			raw:  "otpauth://HOTP/github?secret=JBSWY3DPEHPK3PXP&counter=42",
			want: otp.Secret{Name: "github", Seed: "JBSWY3DPEHPK3PXP", Algorithm: otp.HOTP, Counter: ptr(42)},
		},
		{
			name: "motp",
			raw:  "otpauth://motp/vpn?secret=0123456789abcdef",
			want: otp.Secret{Name: "vpn", Seed: "0123456789abcdef", Algorithm: otp.MOTP},
		},
		{name: "wrong scheme", raw: "https://totp/github?secret=JBSWY3DPEHPK3PXP", wantErr: otpauth.ErrNotOTPAuth},
		{name: "unknown type", raw: "otpauth://yotp/github?secret=JBSWY3DPEHPK3PXP", wantErr: otp.ErrUnsupportedAlgorithm},
		{name: "missing name", raw: "otpauth://totp/?secret=JBSWY3DPEHPK3PXP", wantErr: otpauth.ErrMissingName},
		{name: "missing secret", raw: "otpauth://totp/github", wantErr: otpauth.ErrMissingSecret},
		{name: "empty secret", raw: "otpauth://totp/github?secret=", wantErr: otpauth.ErrMissingSecret},
		{name: "hotp without counter", raw: "otpauth://hotp/github?secret=JBSWY3DPEHPK3PXP", wantErr: otpauth.ErrMissingCounter},
		{name: "hotp bad counter", raw: "otpauth://hotp/github?secret=JBSWY3DPEHPK3PXP&counter=-1", wantErr: otpauth.ErrInvalidCounter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := otpauth.Parse(tt.raw)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.NoError(t, got.Validate())
		})
	}
}

func TestFormatParse(t *testing.T) {
	t.Parallel()

	secrets := []otp.Secret{
		{Name: "GitHub:alice", Seed: "JBSWY3DPEHPK3PXP", Algorithm: otp.TOTP},
		{Name: "my bank", Seed: "GEZDGNBVGY3TQOJQ", Algorithm: otp.HOTP, Counter: ptr(9)},
		{Name: "vpn", Seed: "0123456789abcdef", Algorithm: otp.MOTP},
	}
	for _, s := range secrets {
		raw := otpauth.Format(s)
		assert.True(t, otpauth.IsURL(raw))

		got, err := otpauth.Parse(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, s, got)
	}
}

func TestIsURL(t *testing.T) {
	t.Parallel()

	assert.True(t, otpauth.IsURL("OTPAUTH://totp/x?secret=A"))
	assert.False(t, otpauth.IsURL("JBSWY3DPEHPK3PXP"))
}

func ptr(n uint64) *uint64 { return &n }
