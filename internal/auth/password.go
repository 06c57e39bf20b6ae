package auth

import "golang.org/x/crypto/bcrypt"

// HashPassword hashes a plaintext password with configured cost.
func HashPassword(password string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}

// DummyHash is compared against when no account matches, so a missing user
// costs the same as a wrong password. It must be built with the same cost
// as stored hashes.
type DummyHash []byte

// NewDummyHash hashes a throwaway secret at cost. An out-of-range cost falls
// back to bcrypt's default.
func NewDummyHash(cost int) DummyHash {
	hash, err := bcrypt.GenerateFromPassword([]byte("taskflow-no-such-account"), cost)
	if err != nil {
		hash, _ = bcrypt.GenerateFromPassword([]byte("taskflow-no-such-account"), bcrypt.DefaultCost)
	}
	return DummyHash(hash)
}

// Compare burns one bcrypt comparison and always fails.
func (h DummyHash) Compare(plain string) error {
	if err := bcrypt.CompareHashAndPassword(h, []byte(plain)); err != nil {
		return err
	}
	return bcrypt.ErrMismatchedHashAndPassword
}
