// Package cryptox implements the password credential format used by the user
// store: hex(scrypt(password, salt)) + "." + salt.
package cryptox

import (
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/dmitrijs2005/pcpboard/internal/common"
	"golang.org/x/crypto/scrypt"
)

const (
	saltSize = 16
	keyLen   = 64

	scryptN = 1 << 14
	scryptR = 8
	scryptP = 1
)

var ErrMalformedHash = errors.New("malformed password hash")

func deriveKey(password, salt []byte) ([]byte, error) {
	return scrypt.Key(password, salt, scryptN, scryptR, scryptP, keyLen)
}

// HashPassword derives a key from password with a fresh random salt.
func HashPassword(password string) (string, error) {
	salt, err := common.MakeRandHexString(saltSize)
	if err != nil {
		return "", err
	}
	key, err := deriveKey([]byte(password), []byte(salt))
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(key) + "." + salt, nil
}

// ComparePassword reports whether supplied matches the stored hash. The
// stored value is validated before any key derivation happens, and the
// comparison itself is constant time.
func ComparePassword(supplied, stored string) (bool, error) {
	hashed, salt, ok := strings.Cut(stored, ".")
	if !ok || hashed == "" || salt == "" {
		return false, ErrMalformedHash
	}
	want, err := hex.DecodeString(hashed)
	if err != nil || len(want) != keyLen {
		return false, ErrMalformedHash
	}

	got, err := deriveKey([]byte(supplied), []byte(salt))
	if err != nil {
		return false, err
	}
	defer common.WipeByteArray(got)

	if len(got) != len(want) {
		return false, nil
	}
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}
