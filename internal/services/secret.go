package services

import (
	"crypto/subtle"
	"errors"

	"code-reveal-backend/internal/config"
)

// SecretStore holds the immutable secret code.
type SecretStore struct {
	code  string
	runes []rune
}

func NewSecretStore(code string) (*SecretStore, error) {
	if code == "" {
		return nil, config.ErrMissingSecretCode
	}
	return &SecretStore{code: code, runes: []rune(code)}, nil
}

// Len is the number of characters (runes) in the code.
func (s *SecretStore) Len() int {
	return len(s.runes)
}

func (s *SecretStore) CharAt(i int) (string, error) {
	if i < 0 || i >= len(s.runes) {
		return "", errors.New("secret index out of range")
	}
	return string(s.runes[i]), nil
}

func (s *SecretStore) Matches(guess string) bool {
	return subtle.ConstantTimeCompare([]byte(guess), []byte(s.code)) == 1
}
