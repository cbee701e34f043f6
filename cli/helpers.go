package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode"

	"github.com/awnumar/memguard"
	"golang.org/x/term"
)

const minPasswordLen = 8

var (
	ErrWeakPassword     = errors.New("password must be at least 8 characters and mix upper case, lower case and digits")
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrEmptyPassword    = errors.New("password cannot be empty")
)

// PasswordReader reads one password without echoing it.
type PasswordReader func(prompt string) ([]byte, error)

// TerminalPassword prompts on w and reads from the terminal behind stdin.
func TerminalPassword(w io.Writer) PasswordReader {
	return func(prompt string) ([]byte, error) {
		fmt.Fprint(w, prompt)
		pw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(w)
		return pw, err
	}
}

// ValidatePassword applies the strength rules for new vault passwords.
func ValidatePassword(pw []byte) error {
	if len(pw) == 0 {
		return ErrEmptyPassword
	}
	if len(pw) < minPasswordLen {
		return ErrWeakPassword
	}
	var upper, lower, digit bool
	for _, r := range string(pw) {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return ErrWeakPassword
	}
	return nil
}

// readNewPassword asks twice and validates the result.
func readNewPassword(read PasswordReader) ([]byte, error) {
	first, err := read("New password: ")
	if err != nil {
		return nil, err
	}
	if err := ValidatePassword(first); err != nil {
		memguard.WipeBytes(first)
		return nil, err
	}
	second, err := read("Repeat new password: ")
	if err != nil {
		memguard.WipeBytes(first)
		return nil, err
	}
	defer memguard.WipeBytes(second)
	if !bytes.Equal(first, second) {
		memguard.WipeBytes(first)
		return nil, ErrPasswordMismatch
	}
	return first, nil
}
