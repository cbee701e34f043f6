package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fahmaliyi/otpguard/otp"
	"github.com/fahmaliyi/otpguard/vault"
)

const (
	testPassword = "Secret123"
	// base32 of ASCII "12345678901234567890".
	rfcSeed = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type memClipboard struct {
	mu     sync.Mutex
	text   string
	writes []string
}

func (c *memClipboard) WriteAll(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.text = text
	c.writes = append(c.writes, text)
	return nil
}

func (c *memClipboard) ReadAll() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text, nil
}

type harness struct {
	store *vault.Store
	out   *bytes.Buffer
	cb    *memClipboard
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	codec := &vault.Codec{KDF: vault.KDFParams{Time: 1, Memory: 64, Threads: 1}}
	return &harness{
		store: vault.NewStore(filepath.Join(t.TempDir(), "otpguard.enc"), vault.WithCodec(codec)),
		out:   &bytes.Buffer{},
		cb:    &memClipboard{},
	}
}

func (h *harness) run(t *testing.T, answers []string, args ...string) error {
	t.Helper()
	opts, err := ParseFlags(args, h.out)
	require.NoError(t, err)

	s := &scripted{answers: answers}
	app := New(h.store,
		WithOutput(h.out),
		WithPasswordReader(s.read),
		WithClipboard(h.cb, 10*time.Millisecond),
		WithGenerator(&otp.Generator{Clock: fixedClock{time.Unix(1111111109, 0)}}),
	)
	return app.Run(context.Background(), opts)
}

// initVault creates the vault with testPassword.
func (h *harness) initVault(t *testing.T) {
	t.Helper()
	require.NoError(t, h.run(t, []string{testPassword, testPassword}, "-p"))
	require.True(t, h.store.Exists())
}

func TestApp_FirstUseCreatesVault(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	err := h.run(t, []string{testPassword, testPassword})
	require.NoError(t, err)
	assert.True(t, h.store.Exists())
	assert.Contains(t, h.out.String(), "creating a new one")
	assert.Contains(t, h.out.String(), "No secrets stored")
}

func TestApp_FirstUseRejectsWeakPassword(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	err := h.run(t, []string{"short"})
	assert.ErrorIs(t, err, ErrWeakPassword)
	assert.False(t, h.store.Exists())
}

func TestApp_AddShowList(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.initVault(t)

	require.NoError(t, h.run(t, []string{testPassword}, "-n", "aws", "-a", rfcSeed))
	require.NoError(t, h.run(t, []string{testPassword}, "-n", "github", "-a", rfcSeed, "-t", "hotp"))

	h.out.Reset()
	require.NoError(t, h.run(t, []string{testPassword}, "-n", "aws"))
	assert.Equal(t, "aws: 081804\n", h.out.String())

	h.out.Reset()
	require.NoError(t, h.run(t, []string{testPassword}, "-n", "github"))
	assert.Equal(t, "github: 755224\n", h.out.String())

	h.out.Reset()
	require.NoError(t, h.run(t, []string{testPassword}))
	assert.Contains(t, h.out.String(), "aws")
	assert.Contains(t, h.out.String(), "081804")
	assert.Contains(t, h.out.String(), "287082", "second hotp code after one generation")
}

func TestApp_AddRejectsBadSeed(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.initVault(t)

	err := h.run(t, []string{testPassword}, "-n", "x", "-a", "not base32!")
	assert.ErrorIs(t, err, otp.ErrInvalidSecretEncoding)

	err = h.run(t, []string{testPassword}, "-a", rfcSeed)
	assert.ErrorIs(t, err, ErrUsage)
}

func TestApp_AddOTPAuthURL(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.initVault(t)

	url := "otpauth://totp/Example:alice@example.com?secret=" + rfcSeed + "&issuer=Example"
	require.NoError(t, h.run(t, []string{testPassword}, "-a", url))

	secrets, err := h.store.Load(context.Background(), []byte(testPassword))
	require.NoError(t, err)
	require.Contains(t, secrets, "Example:alice@example.com")
	assert.Equal(t, otp.TOTP, secrets["Example:alice@example.com"].Algorithm)
}

func TestApp_WrongPasswordIsGeneric(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.initVault(t)

	err := h.run(t, []string{"Wrong1234"})
	assert.ErrorIs(t, err, ErrUnlock)
	assert.NotErrorIs(t, err, vault.ErrAuthentication)
}

func TestApp_RenameDelete(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.initVault(t)
	require.NoError(t, h.run(t, []string{testPassword}, "-n", "aws", "-a", rfcSeed))

	require.NoError(t, h.run(t, []string{testPassword}, "-r", "aws", "-N", "amazon"))
	err := h.run(t, []string{testPassword}, "-n", "aws")
	assert.ErrorIs(t, err, vault.ErrSecretNotFound)

	require.NoError(t, h.run(t, []string{testPassword}, "-d", "amazon"))
	err = h.run(t, []string{testPassword}, "-d", "amazon")
	assert.ErrorIs(t, err, vault.ErrSecretNotFound)
}

func TestApp_ChangePassword(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.initVault(t)
	require.NoError(t, h.run(t, []string{testPassword}, "-n", "aws", "-a", rfcSeed))

	require.NoError(t, h.run(t, []string{testPassword, "Another456", "Another456"}, "-p"))

	err := h.run(t, []string{testPassword}, "-n", "aws")
	assert.ErrorIs(t, err, ErrUnlock)

	h.out.Reset()
	require.NoError(t, h.run(t, []string{"Another456"}, "-n", "aws"))
	assert.Equal(t, "aws: 081804\n", h.out.String())
}

func TestApp_ExportAndImportQR(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.initVault(t)
	require.NoError(t, h.run(t, []string{testPassword}, "-n", "github", "-a", rfcSeed, "-t", "hotp"))

	png := filepath.Join(t.TempDir(), "github.png")
	require.NoError(t, h.run(t, []string{testPassword}, "-x", "github", "-o", png))
	require.NoError(t, h.run(t, []string{testPassword}, "-n", "copy", "-j", png))

	secrets, err := h.store.Load(context.Background(), []byte(testPassword))
	require.NoError(t, err)
	require.Contains(t, secrets, "copy")
	assert.Equal(t, secrets["github"].Seed, secrets["copy"].Seed)
	assert.Equal(t, otp.HOTP, secrets["copy"].Algorithm)

	h.out.Reset()
	require.NoError(t, h.run(t, []string{testPassword}, "-x", "github"))
	assert.NotEmpty(t, h.out.String())

	err = h.run(t, []string{testPassword}, "-x", "missing")
	assert.ErrorIs(t, err, vault.ErrSecretNotFound)
}

func TestApp_CopyClearsClipboard(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.initVault(t)
	require.NoError(t, h.run(t, []string{testPassword}, "-n", "aws", "-a", rfcSeed))

	require.NoError(t, h.run(t, []string{testPassword}, "-n", "aws", "-c"))
	assert.Equal(t, []string{"081804", ""}, h.cb.writes)
}

func TestApp_Version(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	require.NoError(t, h.run(t, nil, "-v"))
	assert.Equal(t, "otpguard dev\n", h.out.String())
	assert.False(t, h.store.Exists())
}

func TestParseFlags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    []string
		want    Options
		wantErr bool
	}{
		{name: "list", args: nil, want: Options{Type: "totp"}},
		{name: "add", args: []string{"-n", "a", "-a", "SEED", "-t", "hotp"}, want: Options{Name: "a", Secret: "SEED", Type: "hotp"}},
		{name: "rename", args: []string{"-r", "a", "-N", "b"}, want: Options{RenameFrom: "a", RenameTo: "b", Type: "totp"}},
		{name: "rename without target", args: []string{"-r", "a"}, wantErr: true},
		{name: "output without export", args: []string{"-o", "x.png"}, wantErr: true},
		{name: "copy without name", args: []string{"-c"}, wantErr: true},
		{name: "stray argument", args: []string{"extra"}, wantErr: true},
		{name: "unknown flag", args: []string{"-z"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseFlags(tt.args, &bytes.Buffer{})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
