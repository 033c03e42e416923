package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/awnumar/memguard"
	"golang.org/x/crypto/argon2"
)

const hashPrefix = "$argon2id$"

var (
	ErrEmptyPassword   = errors.New("password must not be empty")
	ErrMalformedHash   = errors.New("malformed password hash")
	ErrIncompatibleVer = errors.New("incompatible argon2 version")
)

// HashPassword returns the PHC-style encoding
// $argon2id$v=19$m=<kib>,t=<iter>,p=<par>$<salt>$<key>.
func HashPassword(password []byte, params Argon2Params) (string, error) {
	if err := params.Validate(); err != nil {
		return "", err
	}
	if len(password) == 0 {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key := deriveKey(password, salt, params)
	defer memguard.WipeBytes(key)

	return fmt.Sprintf("%sv=%d$%s$%s$%s",
		hashPrefix, argon2.Version, params.phcSegment(),
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// IsHashed reports whether stored looks like an encoded argon2id hash.
// Rows written before hashing was introduced hold the plaintext.
func IsHashed(stored string) bool {
	return strings.HasPrefix(stored, hashPrefix)
}

// VerifyPassword compares password with stored in constant time. needsRehash
// is true when stored is a legacy plaintext value or was hashed with
// different parameters than current.
func VerifyPassword(stored string, password []byte, current Argon2Params) (ok bool, needsRehash bool, err error) {
	if !IsHashed(stored) {
		match := subtle.ConstantTimeCompare([]byte(stored), password) == 1
		return match, match, nil
	}

	params, salt, want, err := decodeHash(stored)
	if err != nil {
		return false, false, err
	}
	defer memguard.WipeBytes(want)

	got := deriveKey(password, salt, params)
	defer memguard.WipeBytes(got)

	if subtle.ConstantTimeCompare(got, want) != 1 {
		return false, false, nil
	}
	return true, !current.sameCost(params), nil
}

func decodeHash(encoded string) (Argon2Params, []byte, []byte, error) {
	// "", "argon2id", "v=19", "m=..,t=..,p=..", salt, key
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return Argon2Params{}, nil, nil, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return Argon2Params{}, nil, nil, fmt.Errorf("%w: version: %v", ErrMalformedHash, err)
	}
	if version != argon2.Version {
		return Argon2Params{}, nil, nil, fmt.Errorf("%w: %d", ErrIncompatibleVer, version)
	}

	params, err := parsePHCSegment(parts[3])
	if err != nil {
		return Argon2Params{}, nil, nil, fmt.Errorf("%w: params: %v", ErrMalformedHash, err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return Argon2Params{}, nil, nil, fmt.Errorf("%w: salt: %v", ErrMalformedHash, err)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return Argon2Params{}, nil, nil, fmt.Errorf("%w: key: %v", ErrMalformedHash, err)
	}
	params.SaltLen = len(salt)
	params.KeyLen = uint32(len(key))

	if len(salt) == 0 || len(key) == 0 {
		return Argon2Params{}, nil, nil, ErrMalformedHash
	}
	return params, salt, key, nil
}

// PasswordHasher binds the current parameters to HashPassword and
// VerifyPassword.
type PasswordHasher struct {
	Params Argon2Params
}

func NewPasswordHasher(params Argon2Params) (PasswordHasher, error) {
	if err := params.Validate(); err != nil {
		return PasswordHasher{}, err
	}
	return PasswordHasher{Params: params}, nil
}

func (h PasswordHasher) Hash(password []byte) (string, error) {
	return HashPassword(password, h.Params)
}

func (h PasswordHasher) Verify(stored string, password []byte) (ok bool, needsRehash bool, err error) {
	return VerifyPassword(stored, password, h.Params)
}
