package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters for newly created hashes. Verification reads the
// parameters from the encoded hash, so these can be raised without breaking
// existing credentials.
const (
	memory      = 19 * 1024 // KiB
	iterations  = 2
	parallelism = 1
	keyLength   = 32
	saltLength  = 16
)

var ErrMalformedHash = errors.New("cryptox: malformed password hash")

// Argon2Hasher hashes credentials with argon2id and a server-side pepper.
// The zero value hashes without a pepper.
type Argon2Hasher struct {
	Pepper string
}

// NewArgon2Hasher returns a hasher bound to pepper.
func NewArgon2Hasher(pepper string) *Argon2Hasher {
	return &Argon2Hasher{Pepper: pepper}
}

// Hash returns a PHC-format argon2id string with a fresh random salt.
func (h *Argon2Hasher) Hash(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("cryptox: read salt: %w", err)
	}

	key := argon2.IDKey([]byte(password+h.Pepper), salt, iterations, memory, parallelism, keyLength)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		memory,
		iterations,
		parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether password matches encodedHash. Malformed hashes
// yield false.
func (h *Argon2Hasher) Verify(password, encodedHash string) bool {
	return h.Compare(password, encodedHash) == nil
}

// Compare is Verify with a reason. It returns ErrMalformedHash for hashes it
// cannot parse and a mismatch error when the password is wrong.
func (h *Argon2Hasher) Compare(password, encodedHash string) error {
	p, salt, want, err := decodeHash(encodedHash)
	if err != nil {
		return err
	}

	got := argon2.IDKey([]byte(password+h.Pepper), salt, p.iterations, p.memory, p.parallelism, uint32(len(want))) // #nosec G115 - bounded by decodeHash
	if subtle.ConstantTimeCompare(got, want) == 1 {
		return nil
	}
	return errors.New("cryptox: password does not match")
}

type params struct {
	memory      uint32
	iterations  uint32
	parallelism uint8
}

// decodeHash parses $argon2id$v=19$m=X,t=Y,p=Z$salt$hash.
func decodeHash(encoded string) (params, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return params{}, nil, nil, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return params{}, nil, nil, ErrMalformedHash
	}

	var p params
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.iterations, &p.parallelism); err != nil {
		return params{}, nil, nil, ErrMalformedHash
	}
	// Refuse absurd parameters rather than let a corrupt row pin the CPU.
	if p.memory == 0 || p.memory > 1<<22 || p.iterations == 0 || p.iterations > 64 || p.parallelism == 0 {
		return params{}, nil, nil, ErrMalformedHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return params{}, nil, nil, ErrMalformedHash
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 || len(key) > 1024 {
		return params{}, nil, nil, ErrMalformedHash
	}

	return p, salt, key, nil
}
