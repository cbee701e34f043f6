package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scripted answers password prompts from a fixed list.
type scripted struct {
	answers []string
	prompts []string
}

func (s *scripted) read(prompt string) ([]byte, error) {
	s.prompts = append(s.prompts, prompt)
	if len(s.answers) == 0 {
		return nil, errors.New("no more answers")
	}
	next := s.answers[0]
	s.answers = s.answers[1:]
	return []byte(next), nil
}

func TestValidatePassword(t *testing.T) {
	t.Parallel()

	tests := []struct {
		pw      string
		wantErr error
	}{
		{pw: "", wantErr: ErrEmptyPassword},
		{pw: "Ab1", wantErr: ErrWeakPassword},
		{pw: "alllowercase1", wantErr: ErrWeakPassword},
		{pw: "ALLUPPERCASE1", wantErr: ErrWeakPassword},
		{pw: "NoDigitsHere", wantErr: ErrWeakPassword},
		{pw: "Correct1Horse"},
		{pw: "Ünïcode9x"},
	}
	for _, tt := range tests {
		t.Run(tt.pw, func(t *testing.T) {
			t.Parallel()
			err := ValidatePassword([]byte(tt.pw))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestReadNewPassword(t *testing.T) {
	t.Parallel()

	t.Run("confirmed", func(t *testing.T) {
		t.Parallel()
		s := &scripted{answers: []string{"Secret123", "Secret123"}}
		pw, err := readNewPassword(s.read)
		require.NoError(t, err)
		assert.Equal(t, "Secret123", string(pw))
		assert.Len(t, s.prompts, 2)
	})

	t.Run("mismatch", func(t *testing.T) {
		t.Parallel()
		s := &scripted{answers: []string{"Secret123", "Secret124"}}
		_, err := readNewPassword(s.read)
		assert.ErrorIs(t, err, ErrPasswordMismatch)
	})

	t.Run("weak password is not confirmed", func(t *testing.T) {
		t.Parallel()
		s := &scripted{answers: []string{"weak"}}
		_, err := readNewPassword(s.read)
		assert.ErrorIs(t, err, ErrWeakPassword)
		assert.Len(t, s.prompts, 1)
	})
}
