package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the work factor for stored password hashes
const BcryptCost = bcrypt.DefaultCost

// MaxPasswordBytes is the longest password bcrypt hashes without truncation
const MaxPasswordBytes = 72

// resetCodeBytes random bytes give a 6 character hex code
const resetCodeBytes = 3

// HashPassword returns the bcrypt hash of password
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// CheckPassword reports whether password matches the stored hash. Longer
// inputs than MaxPasswordBytes never match since bcrypt would compare only
// their prefix.
func CheckPassword(hashedPassword, password string) bool {
	if len(password) > MaxPasswordBytes {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	return err == nil
}

// GenerateResetCode returns a 6 character upper-case hex password reset code
func GenerateResetCode() (string, error) {
	buf := make([]byte, resetCodeBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate reset code: %w", err)
	}
	return strings.ToUpper(hex.EncodeToString(buf)), nil
}
