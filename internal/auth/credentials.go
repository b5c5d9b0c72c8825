package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// CredentialVerifier hashes and checks passwords.
type CredentialVerifier interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
}

// BcryptVerifier stores salted bcrypt hashes.
type BcryptVerifier struct {
	cost int
}

func NewBcryptVerifier(cost int) *BcryptVerifier {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptVerifier{cost: cost}
}

func (v *BcryptVerifier) Hash(password string) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), v.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify reports whether password matches hash. An empty or malformed hash
// never matches.
func (v *BcryptVerifier) Verify(hash, password string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
