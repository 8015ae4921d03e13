package services

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ErrAdminKeyInvalid is returned when a presented admin key does not match.
var ErrAdminKeyInvalid = errors.New("admin: invalid key")

// AdminAuthenticator checks admin keys against a bcrypt hash.
type AdminAuthenticator interface {
	Enabled() bool
	Verify(key string) error
}

type adminAuthenticator struct {
	hash []byte
}

// NewAdminAuthenticator returns an authenticator for hash. An empty hash
// disables the check.
func NewAdminAuthenticator(hash string) AdminAuthenticator {
	return &adminAuthenticator{hash: []byte(strings.TrimSpace(hash))}
}

func (a *adminAuthenticator) Enabled() bool {
	return len(a.hash) > 0
}

func (a *adminAuthenticator) Verify(key string) error {
	if !a.Enabled() {
		return nil
	}
	if key == "" {
		return ErrAdminKeyInvalid
	}
	if err := bcrypt.CompareHashAndPassword(a.hash, []byte(key)); err != nil {
		return ErrAdminKeyInvalid
	}
	return nil
}

// HashAdminKey produces the value to store in ADMIN_KEY_HASH.
func HashAdminKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", errors.New("admin: key must not be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}
