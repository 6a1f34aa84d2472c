package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// SecretSize is the byte length of generated peppers and fallback HMAC
// secrets.
const SecretSize = 32

// RandomSecret returns n random bytes encoded as unpadded base64url.
func RandomSecret(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("cryptox: secret size must be positive, got %d", n)
	}

	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("cryptox: read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
