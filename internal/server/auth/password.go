package auth

import "golang.org/x/crypto/bcrypt"

// HashPassword hashes a plaintext password with bcrypt at the default cost.
// The caller should wipe the plaintext buffer afterwards.
func HashPassword(password []byte) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(password, bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether the candidate matches the stored bcrypt hash.
func CheckPassword(hash string, candidate []byte) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), candidate) == nil
}
