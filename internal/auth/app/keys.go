package app

import (
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/storefront/pkg/cryptox"
	"github.com/aussiebroadwan/storefront/pkg/jwtx"
)

// InitAuthKeys builds the token signer and verifier.
//
// HMAC algorithms use AUTH_SECRET_KEY. In dev a short or missing secret is
// replaced with a random one, so tokens do not survive a restart.
//
// EdDSA loads AUTH_PRIVATE_KEY_FILE, creating it on first start. In dev
// without a file the key is generated in memory.
func InitAuthKeys(cfg Config, logger *slog.Logger) (jwtx.Signer, jwtx.Verifier, error) {
	keyCfg := jwtx.KeyConfig{
		Algorithm: cfg.Algorithm,
		Options:   jwtx.VerifyOptions{Issuer: cfg.Issuer},
	}

	switch {
	case jwtx.IsHMAC(cfg.Algorithm):
		secret := cfg.SecretKey
		if len(secret) < jwtx.MinHMACSecretLength {
			if !cfg.IsDev() {
				return nil, nil, fmt.Errorf("AUTH_SECRET_KEY shorter than %d bytes", jwtx.MinHMACSecretLength)
			}
			generated, err := cryptox.RandomSecret(cryptox.SecretSize)
			if err != nil {
				return nil, nil, fmt.Errorf("generate dev secret: %w", err)
			}
			secret = generated
			logger.Warn("AUTH_SECRET_KEY missing or short, using a random secret; tokens will not survive a restart")
		}
		keyCfg.Secret = []byte(secret)

	case cfg.Algorithm == jwtx.AlgEdDSA:
		if cfg.PrivateKeyFile != "" {
			key, err := cryptox.LoadOrGenerateEd25519Key(cfg.PrivateKeyFile)
			if err != nil {
				return nil, nil, fmt.Errorf("load signing key: %w", err)
			}
			keyCfg.PrivateKey = key
		} else {
			logger.Warn("AUTH_PRIVATE_KEY_FILE not set, using an in-memory EdDSA key")
		}
	}

	signer, verifier, err := jwtx.NewKeyPair(keyCfg)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("token signing configured", "alg", signer.Alg())
	return signer, verifier, nil
}
